package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	logAdapter "github.com/Jaydccq/mini-ups-sub001/internal/adapters/log"
	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
)

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) Notify(ctx context.Context, event domain.Event) error {
	c.calls++
	return c.err
}

func TestMulti_DeliversToAll(t *testing.T) {
	failing := &countingNotifier{err: errors.New("webhook down")}
	ok := &countingNotifier{}
	m := Multi{failing, ok, NewLog(logAdapter.NewNoopLogger())}

	err := m.Notify(context.Background(), domain.Event{Kind: domain.EventTruckIdle})

	assert.ErrorIs(t, err, failing.err)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, Multi{}.Notify(context.Background(), domain.Event{}))
}
