// Package notify composes event notifiers.
package notify

import (
	"context"
	"errors"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
	"github.com/Jaydccq/mini-ups-sub001/internal/ports"
)

// Multi delivers each event to every notifier and joins their errors.
type Multi []ports.Notifier

func (m Multi) Notify(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes each event to the logger. It never fails.
type Log struct {
	logger ports.Logger
}

// NewLog creates a logging notifier.
func NewLog(logger ports.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, event domain.Event) error {
	l.logger.Info("event",
		ports.String("kind", string(event.Kind)),
		ports.String("event_id", event.ID),
		ports.Int32("truck_id", event.TruckID),
		ports.Int64("package_id", event.PackageID),
		ports.Seq(event.Seq),
	)
	return nil
}
