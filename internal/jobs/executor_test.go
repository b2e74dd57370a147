package jobs

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hybridq/hybrid-core/internal/metrics"
	"github.com/hybridq/hybrid-core/internal/quantum"
	"github.com/hybridq/hybrid-core/pkg/config"
	"github.com/hybridq/hybrid-core/pkg/models"
)

func newTestExecutor(t *testing.T) (*Store, *Executor) {
	t.Helper()
	store := NewStore()
	registry := quantum.NewRegistry()
	if err := registry.Register(quantum.NewSimulator(quantum.DefaultDevice, 1)); err != nil {
		t.Fatalf("register device: %v", err)
	}
	executor := NewExecutor(store, registry, config.JobDefaults{Steps: 10, Stepsize: 0.5})
	return store, executor
}

// waitForTerminal polls until the job reaches a terminal status.
func waitForTerminal(t *testing.T, store *Store, jobID string) models.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := store.Get(jobID)
		if !ok {
			t.Fatalf("job disappeared: %s", jobID)
		}
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal status", jobID)
	return models.Job{}
}

func TestExecutorRunsJobToCompletion(t *testing.T) {
	store, executor := newTestExecutor(t)

	created, err := store.Create("", models.JobSpec{Steps: 5, Stepsize: 0.5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := executor.Start(created.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	job := waitForTerminal(t, store, created.ID)
	if job.Status != models.JobStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s (%s)", job.Status, job.Error)
	}
	if job.Result == nil {
		t.Fatalf("expected result")
	}
	if job.Result.Iterations != 5 {
		t.Fatalf("expected 5 iterations, got %d", job.Result.Iterations)
	}
	if len(job.Result.Params) != 2 {
		t.Fatalf("expected 2 final params, got %d", len(job.Result.Params))
	}
	if math.Abs(job.Result.Params[0]-0.67679672) > 1e-6 {
		t.Fatalf("unexpected final param 0: %f", job.Result.Params[0])
	}
	if math.Abs(job.Result.Expval-(-0.5344079938678081)) > 1e-9 {
		t.Fatalf("unexpected final expval: %f", job.Result.Expval)
	}

	collector, ok := store.GetCollector(created.ID)
	if !ok {
		t.Fatalf("expected collector")
	}
	points := collector.Series("expval")
	if len(points) != 5 {
		t.Fatalf("expected 5 metric points, got %d", len(points))
	}
	for i, p := range points {
		if p.Iteration != i {
			t.Fatalf("expected contiguous iterations, got %d at %d", p.Iteration, i)
		}
	}
}

func TestExecutorAppliesDefaults(t *testing.T) {
	store, executor := newTestExecutor(t)

	created, _ := store.Create("", models.JobSpec{})
	if _, err := executor.Start(created.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	job := waitForTerminal(t, store, created.ID)
	if job.Status != models.JobStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s (%s)", job.Status, job.Error)
	}
	if job.Result.Iterations != 10 {
		t.Fatalf("expected default 10 iterations, got %d", job.Result.Iterations)
	}
}

func TestExecutorCustomInitialParams(t *testing.T) {
	store, executor := newTestExecutor(t)

	created, _ := store.Create("", models.JobSpec{
		Steps:         1,
		Stepsize:      0.5,
		InitialParams: []float64{0, 0},
	})
	if _, err := executor.Start(created.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	job := waitForTerminal(t, store, created.ID)
	if job.Status != models.JobStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s (%s)", job.Status, job.Error)
	}
	// Gradient vanishes at the origin, so params stay put and expval is 1.
	if math.Abs(job.Result.Expval-1.0) > 1e-12 {
		t.Fatalf("expected expval 1.0 at origin, got %f", job.Result.Expval)
	}
}

func TestExecutorFailsOnUnknownDevice(t *testing.T) {
	store, executor := newTestExecutor(t)

	created, _ := store.Create("", models.JobSpec{Device: "qpu/nowhere"})
	if _, err := executor.Start(created.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	job := waitForTerminal(t, store, created.ID)
	if job.Status != models.JobStatusFailed {
		t.Fatalf("expected FAILED, got %s", job.Status)
	}
	if job.Error == "" {
		t.Fatalf("expected error message")
	}
}

func TestExecutorStartValidation(t *testing.T) {
	_, executor := newTestExecutor(t)

	if _, err := executor.Start(""); !errors.Is(err, ErrJobIDMissing) {
		t.Fatalf("expected ErrJobIDMissing, got %v", err)
	}
	if _, err := executor.Start("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestExecutorStartTerminalJob(t *testing.T) {
	store, executor := newTestExecutor(t)

	created, _ := store.Create("", models.JobSpec{})
	if _, err := store.SetStatus(created.ID, models.JobStatusCancelled, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := executor.Start(created.ID); !errors.Is(err, ErrJobTerminal) {
		t.Fatalf("expected ErrJobTerminal, got %v", err)
	}
}

func TestExecutorStopMarksCancelled(t *testing.T) {
	store, executor := newTestExecutor(t)

	created, _ := store.Create("", models.JobSpec{})
	updated, err := executor.Stop(created.ID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if updated.Status != models.JobStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", updated.Status)
	}

	job, _ := store.Get(created.ID)
	if job.Status != models.JobStatusCancelled {
		t.Fatalf("expected CANCELLED in store, got %s", job.Status)
	}
}

type countingSink struct {
	count int
}

func (c *countingSink) Record(string, int, float64) {
	c.count++
}

func TestExecutorSinkFactory(t *testing.T) {
	store, executor := newTestExecutor(t)

	sink := &countingSink{}
	executor.WithSinkFactory(func(jobID string) metrics.Sink { return sink })

	created, _ := store.Create("", models.JobSpec{Steps: 3, Stepsize: 0.5})
	if _, err := executor.Start(created.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	job := waitForTerminal(t, store, created.ID)
	if job.Status != models.JobStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s (%s)", job.Status, job.Error)
	}
	if sink.count != 3 {
		t.Fatalf("expected 3 records in extra sink, got %d", sink.count)
	}
}

type atomicSink struct {
	n *atomic.Int32
}

func (s atomicSink) Record(string, int, float64) {
	s.n.Add(1)
}

func TestExecutorStartConcurrent(t *testing.T) {
	store, executor := newTestExecutor(t)

	var records atomic.Int32
	executor.WithSinkFactory(func(jobID string) metrics.Sink {
		return atomicSink{n: &records}
	})

	created, err := store.Create("", models.JobSpec{Steps: 4, Stepsize: 0.5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := executor.Start(created.ID)
			// A straggler may observe the job already finished.
			if err != nil && !errors.Is(err, ErrJobTerminal) {
				t.Errorf("start: %v", err)
			}
		}()
	}
	wg.Wait()

	job := waitForTerminal(t, store, created.ID)
	if job.Status != models.JobStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s (%s)", job.Status, job.Error)
	}
	if job.Result.Iterations != 4 {
		t.Fatalf("expected 4 iterations, got %d", job.Result.Iterations)
	}
	if got := records.Load(); got != 4 {
		t.Fatalf("expected exactly 4 metric records, got %d", got)
	}
}
