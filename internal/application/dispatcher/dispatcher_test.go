package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/personal-ledger/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func TestDispatch(t *testing.T) {
	t.Run("runs handlers in order", func(t *testing.T) {
		d := NewDispatcher()
		var order []string
		d.SubscribeNamed(event.TypeRequestSubmitted, "first", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "first")
			return nil
		})
		d.SubscribeNamed(event.TypeRequestSubmitted, "second", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "second")
			return nil
		})

		if err := d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestSubmitted, 1, "u", nil)); err != nil {
			t.Fatalf("Dispatch() failed: %v", err)
		}
		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("order = %v", order)
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		called := false
		d.SubscribeNamed(event.TypeRequestApproved, "failing", func(ctx context.Context, evt *event.Event) error {
			return errors.New("boom")
		})
		d.SubscribeNamed(event.TypeRequestApproved, "after", func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		})

		err := d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestApproved, 1, "u", nil))
		if err == nil {
			t.Fatal("expected error")
		}
		if called {
			t.Error("handler after the failing one must not run")
		}
		if logger.ErrorCount() != 1 {
			t.Errorf("ErrorCount() = %d, want 1", logger.ErrorCount())
		}
	})

	t.Run("recovers panics", func(t *testing.T) {
		d := NewDispatcher()
		d.Subscribe(event.TypeRequestRejected, func(ctx context.Context, evt *event.Event) error {
			panic("handler exploded")
		})

		err := d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestRejected, 1, "u", nil))
		if err == nil {
			t.Fatal("expected error from panicking handler")
		}
	})

	t.Run("ignores other event types", func(t *testing.T) {
		d := NewDispatcher()
		d.Subscribe(event.TypeRequestRejected, func(ctx context.Context, evt *event.Event) error {
			t.Error("handler should not be called")
			return nil
		})
		if err := d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestApproved, 1, "u", nil)); err != nil {
			t.Fatalf("Dispatch() failed: %v", err)
		}
	})
}

func TestDispatchAsync(t *testing.T) {
	t.Run("handler errors are logged not returned", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		var calls atomic.Int32
		d.Subscribe(event.TypeRequestSubmitted, func(ctx context.Context, evt *event.Event) error {
			calls.Add(1)
			return errors.New("delivery failed")
		})
		d.Subscribe(event.TypeRequestSubmitted, func(ctx context.Context, evt *event.Event) error {
			calls.Add(1)
			return nil
		})

		d.DispatchAsync(context.Background(), event.NewEvent(event.TypeRequestSubmitted, 1, "u", nil))
		if err := d.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}

		if calls.Load() != 2 {
			t.Errorf("calls = %d, want 2", calls.Load())
		}
		if logger.ErrorCount() != 1 {
			t.Errorf("ErrorCount() = %d, want 1", logger.ErrorCount())
		}
	})

	t.Run("handlers outlive a cancelled caller context", func(t *testing.T) {
		d := NewDispatcher()
		done := make(chan error, 1)
		d.Subscribe(event.TypeRequestApproved, func(ctx context.Context, evt *event.Event) error {
			time.Sleep(10 * time.Millisecond)
			done <- ctx.Err()
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		d.DispatchAsync(ctx, event.NewEvent(event.TypeRequestApproved, 1, "u", nil))
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("handler context err = %v, want nil", err)
			}
		case <-time.After(time.Second):
			t.Fatal("handler did not run")
		}
		_ = d.Close()
	})

	t.Run("closed dispatcher drops events", func(t *testing.T) {
		d := NewDispatcher()
		d.Subscribe(event.TypeRequestApproved, func(ctx context.Context, evt *event.Event) error {
			t.Error("handler should not be called after Close")
			return nil
		})
		_ = d.Close()
		d.DispatchAsync(context.Background(), event.NewEvent(event.TypeRequestApproved, 1, "u", nil))

		if err := d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestApproved, 1, "u", nil)); err == nil {
			t.Error("Dispatch() on closed dispatcher should fail")
		}
	})
}

func TestSubscribeAll(t *testing.T) {
	d := NewDispatcher()
	var seen sync.Map
	d.SubscribeAll("publisher", func(ctx context.Context, evt *event.Event) error {
		seen.Store(evt.Type, true)
		return nil
	})

	for _, typ := range event.All {
		if err := d.Dispatch(context.Background(), event.NewEvent(typ, 1, "u", nil)); err != nil {
			t.Fatalf("Dispatch(%s) failed: %v", typ, err)
		}
		if _, ok := seen.Load(typ); !ok {
			t.Errorf("handler not called for %s", typ)
		}
		if got := d.ListHandlers(typ); len(got) != 1 || got[0].Name != "publisher" || got[0].Handler != nil {
			t.Errorf("ListHandlers(%s) = %+v", typ, got)
		}
	}
}

func TestClose_Twice(t *testing.T) {
	d := NewDispatcher()
	if err := d.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	if err := d.Close(); err == nil {
		t.Error("second Close() should fail")
	}
}
