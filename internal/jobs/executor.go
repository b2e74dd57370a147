package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hybridq/hybrid-core/internal/metrics"
	"github.com/hybridq/hybrid-core/internal/optimize"
	"github.com/hybridq/hybrid-core/internal/quantum"
	"github.com/hybridq/hybrid-core/pkg/config"
	"github.com/hybridq/hybrid-core/pkg/logger"
	"github.com/hybridq/hybrid-core/pkg/models"
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrJobTerminal  = errors.New("job is terminal")
	ErrJobIDMissing = errors.New("job_id is required")
)

// SinkFactory builds an additional metric sink for a job, e.g. the log
// sink or a remote Redis sink. May return nil.
type SinkFactory func(jobID string) metrics.Sink

// Executor runs hybrid jobs asynchronously with per-job cancellation.
type Executor struct {
	store    *Store
	registry *quantum.Registry
	defaults config.JobDefaults
	sinkFor  SinkFactory
	notifier *Notifier

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewExecutor creates an executor resolving devices from the registry.
func NewExecutor(store *Store, registry *quantum.Registry, defaults config.JobDefaults) *Executor {
	return &Executor{
		store:    store,
		registry: registry,
		defaults: defaults,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// WithSinkFactory installs an additional per-job metric sink.
func (e *Executor) WithSinkFactory(f SinkFactory) *Executor {
	e.sinkFor = f
	return e
}

// WithNotifier installs a completion notifier for callback URLs.
func (e *Executor) WithNotifier(n *Notifier) *Executor {
	e.notifier = n
	return e
}

// Start begins executing a job asynchronously. Starting a RUNNING job is
// a no-op returning the current state; terminal jobs fail.
func (e *Executor) Start(jobID string) (models.Job, error) {
	if jobID == "" {
		return models.Job{}, ErrJobIDMissing
	}

	// The check-and-transition is done under the executor lock so two
	// concurrent Start calls cannot both spawn a run for the same job.
	e.mu.Lock()
	defer e.mu.Unlock()

	job, ok := e.store.Get(jobID)
	if !ok {
		return models.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if _, active := e.cancels[jobID]; active || job.Status == models.JobStatusRunning {
		return job, nil
	}
	if job.Status.IsTerminal() {
		return models.Job{}, fmt.Errorf("%w: %s", ErrJobTerminal, jobID)
	}

	updated, err := e.store.SetStatus(jobID, models.JobStatusRunning, "")
	if err != nil {
		return models.Job{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancels[jobID] = cancel

	go e.runJob(ctx, jobID)
	return updated, nil
}

// Stop requests cancellation for a running job and marks it cancelled.
func (e *Executor) Stop(jobID string) (models.Job, error) {
	if jobID == "" {
		return models.Job{}, ErrJobIDMissing
	}

	e.mu.Lock()
	cancel, ok := e.cancels[jobID]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	return e.store.SetStatus(jobID, models.JobStatusCancelled, "")
}

func (e *Executor) cleanup(jobID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[jobID]; ok {
		cancel()
		delete(e.cancels, jobID)
	}
	e.mu.Unlock()
}

// resolveSpec applies daemon defaults to omitted spec fields.
func (e *Executor) resolveSpec(spec models.JobSpec) models.JobSpec {
	if spec.Device == "" {
		spec.Device = quantum.DefaultDevice
	}
	if spec.Steps <= 0 {
		spec.Steps = e.defaults.Steps
	}
	if spec.Stepsize <= 0 {
		spec.Stepsize = e.defaults.Stepsize
	}
	return spec
}

func (e *Executor) runJob(ctx context.Context, jobID string) {
	defer e.cleanup(jobID)

	job, ok := e.store.Get(jobID)
	if !ok {
		logger.Error("job not found", "job_id", jobID)
		return
	}

	spec := e.resolveSpec(job.Spec)

	device, err := e.registry.Get(spec.Device)
	if err != nil {
		e.fail(jobID, fmt.Sprintf("device resolution failed: %v", err))
		return
	}

	collector := metrics.NewCollector(map[string]string{
		"job_id": jobID,
		"device": device.Name(),
	})
	collector.Start()
	if err := e.store.SetCollector(jobID, collector); err != nil {
		logger.Error("failed to store collector", "job_id", jobID, "error", err)
	}

	sink := metrics.MultiSink{collector}
	if e.sinkFor != nil {
		if extra := e.sinkFor(jobID); extra != nil {
			sink = append(sink, extra)
		}
	}

	logger.Info("starting hybrid job", "job_id", jobID,
		"device", device.Name(), "steps", spec.Steps, "stepsize", spec.Stepsize)

	params, err := e.runLoop(ctx, device, spec, sink)
	collector.Stop()

	if err != nil {
		if ctx.Err() != nil {
			logger.Info("hybrid job cancelled", "job_id", jobID)
			e.notify(jobID)
			return
		}
		e.fail(jobID, err.Error())
		return
	}

	series := collector.Series(optimize.MetricExpval)
	result := models.JobResult{
		Params:     params,
		Iterations: len(series),
	}
	if len(series) > 0 {
		result.Expval = series[len(series)-1].Value
	}
	if err := e.store.SetResult(jobID, result); err != nil {
		logger.Error("failed to store result", "job_id", jobID, "error", err)
	}

	if _, err := e.store.SetStatus(jobID, models.JobStatusCompleted, ""); err != nil {
		// Raced with Stop: the cancellation wins.
		logger.Warn("could not mark job completed", "job_id", jobID, "error", err)
	} else {
		logger.Info("hybrid job completed", "job_id", jobID,
			"iterations", result.Iterations, "expval", result.Expval)
	}
	e.notify(jobID)
}

// runLoop executes the qubit-rotation optimization against the device.
func (e *Executor) runLoop(ctx context.Context, device quantum.Device, spec models.JobSpec, sink metrics.Sink) ([]float64, error) {
	if len(spec.InitialParams) == 0 {
		return optimize.QubitRotation(ctx, device, spec.Steps, spec.Stepsize, sink)
	}

	qnode := quantum.NewQNode(quantum.QubitRotation(), device)
	opt, err := optimize.NewGradientDescent(qnode, spec.Stepsize)
	if err != nil {
		return nil, err
	}
	driver, err := optimize.NewDriver(spec.Steps, qnode, opt, sink, spec.InitialParams)
	if err != nil {
		return nil, err
	}
	return driver.Run(ctx)
}

func (e *Executor) fail(jobID, msg string) {
	logger.Error("hybrid job failed", "job_id", jobID, "error", msg)
	if _, err := e.store.SetStatus(jobID, models.JobStatusFailed, msg); err != nil {
		logger.Error("failed to set failed status", "job_id", jobID, "error", err)
	}
	e.notify(jobID)
}

func (e *Executor) notify(jobID string) {
	if e.notifier == nil {
		return
	}
	job, ok := e.store.Get(jobID)
	if !ok || job.Spec.CallbackURL == "" {
		return
	}
	e.notifier.Notify(job.Spec.CallbackURL, job.Spec.CallbackSecret, job)
}
