package quantum

import "math"

// QNode is a circuit bound to a device. It behaves as a differentiable
// scalar function of the circuit's parameter vector.
type QNode struct {
	circuit *Circuit
	device  Device
}

// NewQNode binds a circuit to a device.
func NewQNode(c *Circuit, d Device) *QNode {
	return &QNode{circuit: c, device: d}
}

// Circuit returns the underlying circuit.
func (q *QNode) Circuit() *Circuit {
	return q.circuit
}

// Evaluate executes the circuit at the given parameters.
func (q *QNode) Evaluate(params []float64) (float64, error) {
	return q.device.Execute(q.circuit, params)
}

// Gradient computes the gradient of the expectation value with respect to
// each parameter using the parameter-shift rule:
//
//	df/dθᵢ = (f(θ + π/2·eᵢ) − f(θ − π/2·eᵢ)) / 2
//
// which is exact for single-parameter rotation gates. Any evaluation
// failure propagates unmodified.
func (q *QNode) Gradient(params []float64) ([]float64, error) {
	if len(params) != q.circuit.NumParams() {
		// Surface the arity error through a plain evaluation.
		if _, err := q.Evaluate(params); err != nil {
			return nil, err
		}
	}

	grad := make([]float64, len(params))
	shifted := make([]float64, len(params))
	for i := range params {
		copy(shifted, params)

		shifted[i] = params[i] + math.Pi/2
		plus, err := q.Evaluate(shifted)
		if err != nil {
			return nil, err
		}

		shifted[i] = params[i] - math.Pi/2
		minus, err := q.Evaluate(shifted)
		if err != nil {
			return nil, err
		}

		grad[i] = (plus - minus) / 2
	}
	return grad, nil
}
