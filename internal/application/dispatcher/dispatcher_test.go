package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/garyjia/business-trip/internal/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Info(string, ...interface{}) {}

func (l *recordingLogger) Warn(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func submitted() *event.Event {
	return event.NewEvent(event.TypeSubmittedToManager, 7, 3, map[string]interface{}{"manager_id": int64(5)})
}

func TestDispatch_RunsHandlersInOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string

	d.SubscribeNamed(event.TypeSubmittedToManager, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.Subscribe(event.TypeSubmittedToManager, func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})
	d.SubscribeAll("audit", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "audit")
		return nil
	})
	d.Subscribe(event.TypeTripStarted, func(ctx context.Context, evt *event.Event) error {
		order = append(order, "unrelated")
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), submitted()))
	assert.Equal(t, []string{"first", "second", "audit"}, order)
}

func TestDispatch_JoinsErrorsAndKeepsGoing(t *testing.T) {
	logger := &recordingLogger{}
	d := NewDispatcher(WithLogger(logger))
	errBoom := errors.New("boom")
	reached := false

	d.SubscribeNamed(event.TypeSubmittedToManager, "failing", func(ctx context.Context, evt *event.Event) error {
		return errBoom
	})
	d.SubscribeNamed(event.TypeSubmittedToManager, "panicking", func(ctx context.Context, evt *event.Event) error {
		panic("unexpected")
	})
	d.SubscribeNamed(event.TypeSubmittedToManager, "last", func(ctx context.Context, evt *event.Event) error {
		reached = true
		return nil
	})

	err := d.Dispatch(context.Background(), submitted())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "panic: unexpected")
	assert.True(t, reached)
	assert.Equal(t, 2, logger.errorCount())
}

func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	var called []string
	for _, name := range []string{"a", "b"} {
		name := name
		d.SubscribeNamed(event.TypeTripEnded, name, func(ctx context.Context, evt *event.Event) error {
			called = append(called, name)
			return nil
		})
	}

	d.Unsubscribe(event.TypeTripEnded, "a")
	require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeTripEnded, 1, 1, nil)))

	assert.Equal(t, []string{"b"}, called)
	handlers := d.ListHandlers(event.TypeTripEnded)
	require.Len(t, handlers, 1)
	assert.Equal(t, "b", handlers[0].Name)
	assert.Nil(t, handlers[0].Handler)
}

func TestDispatchAsync_CloseWaitsForHandlers(t *testing.T) {
	d := NewDispatcher()
	var count atomic.Int32
	for i := 0; i < 3; i++ {
		d.Subscribe(event.TypeSubmittedToManager, func(ctx context.Context, evt *event.Event) error {
			count.Add(1)
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.DispatchAsync(ctx, submitted())
	cancel()

	require.NoError(t, d.Close())
	assert.Equal(t, int32(3), count.Load())
}

func TestDispatchAsync_ConcurrentWithClose(t *testing.T) {
	d := NewDispatcher()
	var closeReturned atomic.Bool
	var late atomic.Int32
	d.Subscribe(event.TypeSubmittedToManager, func(ctx context.Context, evt *event.Event) error {
		if closeReturned.Load() {
			late.Add(1)
		}
		return nil
	})

	var senders sync.WaitGroup
	for i := 0; i < 8; i++ {
		senders.Add(1)
		go func() {
			defer senders.Done()
			for j := 0; j < 50; j++ {
				d.DispatchAsync(context.Background(), submitted())
			}
		}()
	}

	require.NoError(t, d.Close())
	closeReturned.Store(true)
	senders.Wait()

	assert.Zero(t, late.Load(), "no handler may start after Close returned")
}

func TestClosedDispatcher(t *testing.T) {
	logger := &recordingLogger{}
	d := NewDispatcher(WithLogger(logger))
	require.NoError(t, d.Close())

	assert.Error(t, d.Close())
	assert.Error(t, d.Dispatch(context.Background(), submitted()))

	d.DispatchAsync(context.Background(), submitted())
	assert.Len(t, logger.warns, 1)
}
