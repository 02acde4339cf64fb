package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
	done  chan struct{}
}

func (p *countingPurger) Purge(context.Context) (int64, error) {
	if p.calls.Add(1) == 1 {
		close(p.done)
	}
	return 3, p.err
}

func TestSchedulePurge_RunsOnStart(t *testing.T) {
	p := &countingPurger{done: make(chan struct{})}
	r := New()
	if err := r.SchedulePurge("quota", time.Hour, p); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	r.Start()
	defer r.Stop()

	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("purge did not run")
	}
}

func TestSchedulePurge_ErrorIsSwallowed(t *testing.T) {
	p := &countingPurger{done: make(chan struct{}), err: errors.New("db down")}
	r := New()
	if err := r.SchedulePurge("quota", 50*time.Millisecond, p); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	r.Start()
	defer r.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for p.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected repeated runs after failure, got %d", p.calls.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSchedulePurge_RejectsBadInterval(t *testing.T) {
	r := New()
	if err := r.SchedulePurge("quota", 0, &countingPurger{done: make(chan struct{})}); err == nil {
		t.Fatal("expected error for zero interval")
	}
}
