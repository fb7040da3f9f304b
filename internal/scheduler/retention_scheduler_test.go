package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type fakePruner struct {
	calls atomic.Int32
	age   atomic.Int64
	err   error
}

func (f *fakePruner) DeleteOlderThan(_ context.Context, age time.Duration) (int64, error) {
	f.calls.Add(1)
	f.age.Store(int64(age))
	return 3, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetentionSchedulerPrunesOnStart(t *testing.T) {
	pruner := &fakePruner{}
	s := NewRetentionScheduler(pruner, 48*time.Hour, quietLogger())
	s.checkInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for pruner.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if pruner.calls.Load() < 2 {
		t.Fatalf("expected repeated pruning, got %d calls", pruner.calls.Load())
	}
	if got := time.Duration(pruner.age.Load()); got != 48*time.Hour {
		t.Errorf("expected retention 48h, got %v", got)
	}
}

func TestRetentionSchedulerStop(t *testing.T) {
	pruner := &fakePruner{err: errors.New("db down")}
	s := NewRetentionScheduler(pruner, time.Hour, quietLogger())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()
	for pruner.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRetentionSchedulerDisabled(t *testing.T) {
	pruner := &fakePruner{}
	NewRetentionScheduler(pruner, 0, quietLogger()).Start(context.Background())

	if pruner.calls.Load() != 0 {
		t.Errorf("expected no pruning when retention is zero")
	}
}
