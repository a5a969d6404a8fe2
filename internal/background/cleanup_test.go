package background

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type fakeTokenStore struct {
	calls   atomic.Int64
	deleted int64
	err     error
}

func (f *fakeTokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	return f.deleted, f.err
}

func TestCleanupManager_RunsImmediatelyAndStops(t *testing.T) {
	store := &fakeTokenStore{deleted: 3}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cm := NewCleanupManager(store, logger, time.Hour)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	// The first sweep happens on startup, before the first tick
	deadline := time.After(2 * time.Second)
	for store.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("cleanup never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cm.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup manager did not stop")
	}
}

func TestCleanupManager_StopsOnContextCancel(t *testing.T) {
	store := &fakeTokenStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cm := NewCleanupManager(store, logger, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cm.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup manager ignored context cancellation")
	}
}
