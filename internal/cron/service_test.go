package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stellovault/stellovault-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
	held     bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	failing := &testJob{name: "fail", err: errors.New("boom")}
	succeeding := &testJob{name: "success"}
	registry := NewRegistry(failing, succeeding)
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if failing.runs != 1 {
		t.Fatalf("failing job ran %d times, want 1", failing.runs)
	}
	if succeeding.runs != 1 {
		t.Fatalf("succeeding job ran %d times, want 1", succeeding.runs)
	}
}

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	job := &testJob{name: "sweep"}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran %d times while lock was held, want 0", job.runs)
	}
}

type stubSweeper struct {
	limit int
	count int
	err   error
}

func (s *stubSweeper) ExpireEscrows(_ context.Context, limit int) (int, error) {
	s.limit = limit
	return s.count, s.err
}

func TestEscrowTimeoutJobSweeps(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	sweeper := &stubSweeper{count: 3}
	job, err := NewEscrowTimeoutJob(EscrowTimeoutJobParams{Logger: logg, Escrows: sweeper, BatchSize: 25})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sweeper.limit != 25 {
		t.Fatalf("sweep limit = %d, want 25", sweeper.limit)
	}
}

func TestEscrowTimeoutJobPropagatesError(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	sweeper := &stubSweeper{err: errors.New("db down")}
	job, err := NewEscrowTimeoutJob(EscrowTimeoutJobParams{Logger: logg, Escrows: sweeper})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing sweep")
	}
}

type stubIndexer struct {
	count int
	err   error
	runs  int
}

func (s *stubIndexer) Run(context.Context) (int, error) {
	s.runs++
	return s.count, s.err
}

func TestCollateralIndexerJobRuns(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	indexer := &stubIndexer{count: 2}
	job, err := NewCollateralIndexerJob(CollateralIndexerJobParams{Logger: logg, Indexer: indexer})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if indexer.runs != 1 {
		t.Fatalf("indexer ran %d times, want 1", indexer.runs)
	}
}
