package optimize

import (
	"context"
	"fmt"

	"github.com/hybridq/hybrid-core/internal/metrics"
	"github.com/hybridq/hybrid-core/internal/quantum"
	"github.com/hybridq/hybrid-core/pkg/utils"
)

// MetricExpval is the metric name emitted per iteration.
const MetricExpval = "expval"

// DefaultInitialParams returns the fixed starting point of the qubit
// rotation loop.
func DefaultInitialParams() []float64 {
	return []float64{0.5, 0.75}
}

// Driver runs a fixed number of optimization steps against an objective,
// emitting one metric record per iteration. There is no convergence check
// and no early exit: the loop always runs exactly Steps iterations unless
// the objective fails or the context is cancelled.
type Driver struct {
	steps     int
	objective Objective
	optimizer Optimizer
	sink      metrics.Sink
	initial   []float64
}

// NewDriver creates a driver. A nil sink discards records. The initial
// parameter vector is copied.
func NewDriver(steps int, objective Objective, optimizer Optimizer, sink metrics.Sink, initial []float64) (*Driver, error) {
	if steps < 0 {
		return nil, fmt.Errorf("steps cannot be negative: %d", steps)
	}
	if objective == nil {
		return nil, fmt.Errorf("objective is required")
	}
	if optimizer == nil {
		return nil, fmt.Errorf("optimizer is required")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Driver{
		steps:     steps,
		objective: objective,
		optimizer: optimizer,
		sink:      sink,
		initial:   utils.CopyFloats(initial),
	}, nil
}

// Run executes the loop: for i = 0..steps-1, update the parameters via the
// optimizer, evaluate the objective at the new parameters, and emit a
// metric record (i, value). It returns the final parameter vector. Any
// failure aborts immediately and propagates; there is no retry and no
// partial-result recovery.
func (d *Driver) Run(ctx context.Context) ([]float64, error) {
	params := utils.CopyFloats(d.initial)

	for i := 0; i < d.steps; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		next, err := d.optimizer.Step(params)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		params = next

		expval, err := d.objective.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		d.sink.Record(MetricExpval, i, expval)
	}

	return params, nil
}

// QubitRotation runs the standard loop on the given device: the RX·RY
// single-qubit circuit minimized by gradient descent from (0.5, 0.75).
// It returns the final parameter vector.
func QubitRotation(ctx context.Context, device quantum.Device, steps int, stepsize float64, sink metrics.Sink) ([]float64, error) {
	qnode := quantum.NewQNode(quantum.QubitRotation(), device)
	opt, err := NewGradientDescent(qnode, stepsize)
	if err != nil {
		return nil, err
	}
	driver, err := NewDriver(steps, qnode, opt, sink, DefaultInitialParams())
	if err != nil {
		return nil, err
	}
	return driver.Run(ctx)
}
