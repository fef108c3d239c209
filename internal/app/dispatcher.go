package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
	"github.com/Jaydccq/mini-ups-sub001/internal/ports"
)

// Completer resolves pending requests by sequence number.
type Completer interface {
	Complete(seq int64, reply domain.Reply) bool
	CompleteWithError(seq int64, err error) bool
}

// DispatchStats summarizes one dispatched batch.
type DispatchStats struct {
	Completions int
	Deliveries  int
	Statuses    int
	Errors      int
	Acks        int

	// Failures counts entries whose bridge call returned an error or panicked.
	Failures int
	// UnknownTags counts entries skipped for an unmapped status tag.
	UnknownTags int

	Duration time.Duration
}

// Entries returns the number of entries dispatched.
func (s DispatchStats) Entries() int {
	return s.Completions + s.Deliveries + s.Statuses + s.Errors + s.Acks
}

// Dispatcher routes the entries of an inbound batch to the bridge and the
// pending registry. It runs on the receive loop and never stops a batch
// because of one bad entry.
type Dispatcher struct {
	bridge  ports.Bridge
	pending Completer
	logger  ports.Logger
	emitter EventEmitter
	now     func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(bridge ports.Bridge, pending Completer, logger ports.Logger, emitter EventEmitter) *Dispatcher {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &Dispatcher{
		bridge:  bridge,
		pending: pending,
		logger:  logger,
		emitter: emitter,
		now:     time.Now,
	}
}

// Dispatch processes b in the fixed order completions, deliveries, status
// updates, errors, acknowledgments.
func (d *Dispatcher) Dispatch(ctx context.Context, b domain.Batch) DispatchStats {
	start := d.now()
	var stats DispatchStats

	for _, c := range b.Completions {
		stats.Completions++
		d.finish(&stats, "completion", c, d.safely("completion", c.Seq, func() error {
			return d.handleCompletion(ctx, c, &stats)
		}))
	}

	for _, dl := range b.Deliveries {
		stats.Deliveries++
		d.finish(&stats, "delivery", dl, d.safely("delivery", dl.Seq, func() error {
			return d.handleDelivery(ctx, dl)
		}))
	}

	for _, s := range b.Statuses {
		stats.Statuses++
		d.finish(&stats, "status", s, d.safely("status", s.Seq, func() error {
			return d.handleStatus(ctx, s, &stats)
		}))
	}

	for _, e := range b.Errors {
		stats.Errors++
		d.logger.Warn("world rejected command",
			ports.Int64("origin_seq", e.OriginSeq),
			ports.Seq(e.Seq),
			ports.String("message", e.Message),
		)
		d.pending.CompleteWithError(e.OriginSeq, &domain.WorldError{
			Message:   e.Message,
			OriginSeq: e.OriginSeq,
			Seq:       e.Seq,
		})
		d.pending.Complete(e.Seq, e)
	}

	for _, seq := range b.Acks {
		stats.Acks++
		d.pending.Complete(seq, domain.Ack{Seq: seq})
	}

	stats.Duration = d.now().Sub(start)
	d.emitter.OnBatch(stats)
	return stats
}

func (d *Dispatcher) finish(stats *DispatchStats, kind string, entry domain.Reply, err error) {
	if err == nil {
		d.pending.Complete(entry.Sequence(), entry)
		return
	}
	stats.Failures++
	d.logger.Error("bridge call failed",
		ports.String("kind", kind),
		ports.Seq(entry.Sequence()),
		ports.Err(err),
	)
	d.emitter.OnBridgeError(kind, err)
	d.pending.CompleteWithError(entry.Sequence(), err)
}

// safely runs fn, turning a panic into an error.
func (d *Dispatcher) safely(kind string, seq int64, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s seq %d: panic: %v", kind, seq, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s seq %d: %w", kind, seq, err)
	}
	return nil
}

func (d *Dispatcher) handleCompletion(ctx context.Context, c domain.Completion, stats *DispatchStats) error {
	status, ok := d.parseStatus(c.StatusTag, c.TruckID, c.Seq, stats)
	if !ok {
		return nil
	}
	if err := d.bridge.UpdateActorPosition(ctx, c.TruckID, c.X, c.Y, status); err != nil {
		return err
	}

	var kind domain.EventKind
	switch status {
	case domain.StatusAtWarehouse:
		kind = domain.EventTruckArrived
	case domain.StatusIdle:
		kind = domain.EventTruckIdle
	default:
		return nil
	}
	return d.bridge.NotifyExternalParty(ctx, domain.Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		TruckID:    c.TruckID,
		X:          c.X,
		Y:          c.Y,
		Status:     status.String(),
		Seq:        c.Seq,
		OccurredAt: d.now().UTC(),
	})
}

func (d *Dispatcher) handleDelivery(ctx context.Context, dl domain.Delivery) error {
	if err := d.bridge.MarkItemDelivered(ctx, dl.PackageID); err != nil {
		return err
	}
	return d.bridge.NotifyExternalParty(ctx, domain.Event{
		ID:         uuid.NewString(),
		Kind:       domain.EventPackageDelivered,
		TruckID:    dl.TruckID,
		PackageID:  dl.PackageID,
		Seq:        dl.Seq,
		OccurredAt: d.now().UTC(),
	})
}

func (d *Dispatcher) handleStatus(ctx context.Context, s domain.StatusUpdate, stats *DispatchStats) error {
	status, ok := d.parseStatus(s.StatusTag, s.TruckID, s.Seq, stats)
	if !ok {
		return nil
	}
	return d.bridge.UpdateActorPosition(ctx, s.TruckID, s.X, s.Y, status)
}

func (d *Dispatcher) parseStatus(tag string, truckID int32, seq int64, stats *DispatchStats) (domain.TruckStatus, bool) {
	status, ok := domain.ParseStatusTag(tag)
	if !ok {
		stats.UnknownTags++
		d.logger.Warn("unknown truck status, skipping update",
			ports.String("status", tag),
			ports.Int32("truck_id", truckID),
			ports.Seq(seq),
		)
	}
	return status, ok
}
