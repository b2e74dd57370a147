package quantum

import (
	"errors"
	"fmt"
)

// ErrParamArity indicates a parameter vector whose length does not match
// the circuit's parameter count.
var ErrParamArity = errors.New("parameter vector arity mismatch")

// Device executes a circuit bound to a concrete parameter vector and
// returns the expectation value of the circuit's observable.
type Device interface {
	Name() string
	Wires() int
	Execute(c *Circuit, params []float64) (float64, error)
}

// Simulator is an exact statevector device. Results are deterministic:
// no sampling noise is modelled.
type Simulator struct {
	name  string
	wires int
}

// NewSimulator creates a statevector simulator device.
func NewSimulator(name string, wires int) *Simulator {
	return &Simulator{name: name, wires: wires}
}

// Name returns the device's registry name.
func (s *Simulator) Name() string {
	return s.name
}

// Wires returns the device's qubit capacity.
func (s *Simulator) Wires() int {
	return s.wires
}

// Execute runs the circuit and returns the Z expectation value on the
// circuit's observable wire. It fails if the parameter vector does not
// have exactly NumParams elements or the circuit exceeds the device.
func (s *Simulator) Execute(c *Circuit, params []float64) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if c.Wires() > s.wires {
		return 0, fmt.Errorf("circuit needs %d wires but device %s has %d", c.Wires(), s.name, s.wires)
	}
	if len(params) != c.NumParams() {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrParamArity, len(params), c.NumParams())
	}

	state := NewStateVector(c.Wires())
	for _, op := range c.Ops() {
		switch op.Gate {
		case GateRX:
			state.ApplyRX(op.Wire, op.angle(params))
		case GateRY:
			state.ApplyRY(op.Wire, op.angle(params))
		case GateRZ:
			state.ApplyRZ(op.Wire, op.angle(params))
		case GateH:
			state.ApplyH(op.Wire)
		case GateX:
			state.ApplyX(op.Wire)
		case GateY:
			state.ApplyY(op.Wire)
		case GateZ:
			state.ApplyZ(op.Wire)
		case GateCNOT:
			state.ApplyCNOT(op.Control, op.Wire)
		default:
			return 0, fmt.Errorf("unsupported gate: %s", op.Gate)
		}
	}

	return state.ExpectationZ(c.ObservableWire()), nil
}
