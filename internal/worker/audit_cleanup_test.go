package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	mu    sync.Mutex
	calls []int
	n     int64
	err   error
}

func (f *fakeCleaner) Cleanup(_ context.Context, days int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, days)
	return f.n, f.err
}

func (f *fakeCleaner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRunOnce(t *testing.T) {
	cleaner := &fakeCleaner{n: 7}
	w := NewAuditCleanupWorker(cleaner, 90, 0)

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	assert.Equal(t, []int{90}, cleaner.calls)
	assert.Equal(t, 24*time.Hour, w.cleanupInterval)

	cleaner.err = errors.New("mongo: server selection timeout")
	_, err = w.RunOnce(context.Background())
	assert.ErrorContains(t, err, "failed to cleanup audit logs")
}

func TestStartRunsImmediatelyAndOnTick(t *testing.T) {
	cleaner := &fakeCleaner{}
	w := NewAuditCleanupWorker(cleaner, 30, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return cleaner.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestStartDisabled(t *testing.T) {
	cleaner := &fakeCleaner{}
	w := NewAuditCleanupWorker(cleaner, 0, time.Millisecond)

	w.Start(context.Background())
	assert.Zero(t, cleaner.count())
}
