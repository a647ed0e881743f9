package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"ticketnepal/internal/logger"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepExpiredEvents(context.Context) (int, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(sweeper, 10*time.Millisecond, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestScheduler_KeepsRunningAfterErrors(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db down")}
	s := New(sweeper, 10*time.Millisecond, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestNew_DefaultInterval(t *testing.T) {
	s := New(&countingSweeper{}, 0, logger.Discard())
	assert.Equal(t, time.Hour, s.interval)
}
