package optimize

import (
	"errors"
	"fmt"
)

// Objective is a differentiable scalar function of a parameter vector.
// A QNode satisfies this interface.
type Objective interface {
	Evaluate(params []float64) (float64, error)
	Gradient(params []float64) ([]float64, error)
}

// Optimizer produces updated parameter vectors. The update rule is
// decoupled from the objective so alternatives can be swapped in without
// touching the driver.
type Optimizer interface {
	// Gradient returns the objective gradient at params.
	Gradient(params []float64) ([]float64, error)
	// Step returns a new parameter vector; the input is not mutated.
	Step(params []float64) ([]float64, error)
}

// ErrInvalidStepsize indicates a non-positive learning rate.
var ErrInvalidStepsize = errors.New("stepsize must be positive")

// GradientDescent updates parameters against the gradient scaled by a
// fixed stepsize: new = params - stepsize * grad.
type GradientDescent struct {
	objective Objective
	stepsize  float64
}

// NewGradientDescent creates a gradient-descent optimizer. A stepsize of
// zero or below is rejected.
func NewGradientDescent(objective Objective, stepsize float64) (*GradientDescent, error) {
	if objective == nil {
		return nil, fmt.Errorf("objective is required")
	}
	if stepsize <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidStepsize, stepsize)
	}
	return &GradientDescent{objective: objective, stepsize: stepsize}, nil
}

// Stepsize returns the configured learning rate.
func (o *GradientDescent) Stepsize() float64 {
	return o.stepsize
}

// Gradient returns the objective gradient at params.
func (o *GradientDescent) Gradient(params []float64) ([]float64, error) {
	return o.objective.Gradient(params)
}

// Step computes one gradient-descent update. Failures from the gradient
// computation propagate unmodified.
func (o *GradientDescent) Step(params []float64) ([]float64, error) {
	grad, err := o.objective.Gradient(params)
	if err != nil {
		return nil, err
	}
	if len(grad) != len(params) {
		return nil, fmt.Errorf("gradient has %d components, want %d", len(grad), len(params))
	}
	next := make([]float64, len(params))
	for i := range params {
		next[i] = params[i] - o.stepsize*grad[i]
	}
	return next, nil
}
