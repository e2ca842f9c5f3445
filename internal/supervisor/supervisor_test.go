package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testConfig(name, symbol string) WorkerConfig {
	return WorkerConfig{
		Name:           name,
		Symbol:         symbol,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		BackoffFactor:  2,
	}
}

func TestSupervisor_RunsUntilCancelled(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	var runs int32

	err := s.AddWorker(testConfig("btc", "BTC-USD"), func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		<-ctx.Done()
		return context.Canceled
	})
	if err != nil {
		t.Fatalf("AddWorker: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if atomic.LoadInt32(&runs) != 1 {
		t.Fatalf("expected worker to run exactly once, ran %d times", runs)
	}

	status, err := s.GetWorkerStatus("btc")
	if err != nil {
		t.Fatalf("GetWorkerStatus: %v", err)
	}
	if status != StatusStopped {
		t.Errorf("status = %v, want %v", status, StatusStopped)
	}
}

func TestSupervisor_RetriesOnFailureWithoutAffectingOtherWorkers(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	var failingRuns, healthyRuns int32

	failErr := errors.New("connection refused")

	err := s.AddWorker(testConfig("flaky", "FLAKY-USD"), func(ctx context.Context) error {
		n := atomic.AddInt32(&failingRuns, 1)
		if n < 3 {
			return failErr
		}
		<-ctx.Done()
		return context.Canceled
	})
	if err != nil {
		t.Fatalf("AddWorker(flaky): %v", err)
	}

	err = s.AddWorker(testConfig("healthy", "HEALTHY-USD"), func(ctx context.Context) error {
		atomic.AddInt32(&healthyRuns, 1)
		<-ctx.Done()
		return context.Canceled
	})
	if err != nil {
		t.Fatalf("AddWorker(healthy): %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&failingRuns) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := atomic.LoadInt32(&failingRuns); got < 3 {
		t.Fatalf("expected flaky worker to retry at least 3 times, got %d", got)
	}
	if got := atomic.LoadInt32(&healthyRuns); got != 1 {
		t.Fatalf("expected healthy worker unaffected by flaky worker's failures, ran %d times", got)
	}
}

func TestSupervisor_WorkerFailsPermanentlyAfterMaxRetries(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	cfg := testConfig("doomed", "DOOMED-USD")
	cfg.MaxRetries = 2

	failErr := errors.New("unrecoverable")
	err := s.AddWorker(cfg, func(ctx context.Context) error {
		return failErr
	})
	if err != nil {
		t.Fatalf("AddWorker: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status, _ := s.GetWorkerStatus("doomed")
		if status == StatusFailed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	status, err := s.GetWorkerStatus("doomed")
	if err != nil {
		t.Fatalf("GetWorkerStatus: %v", err)
	}
	if status != StatusFailed {
		t.Fatalf("status = %v, want %v", status, StatusFailed)
	}

	s.Stop()
}

func TestSupervisor_AddWorkerRejectsDuplicateAndLateRegistration(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	cfg := testConfig("dup", "DUP-USD")
	noop := func(ctx context.Context) error { <-ctx.Done(); return context.Canceled }

	if err := s.AddWorker(cfg, noop); err != nil {
		t.Fatalf("first AddWorker: %v", err)
	}
	if err := s.AddWorker(cfg, noop); err == nil {
		t.Fatal("expected error adding duplicate worker name")
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if err := s.AddWorker(testConfig("late", "LATE-USD"), noop); err == nil {
		t.Fatal("expected error adding worker after Start")
	}
}
