package quantum

import "fmt"

// Gate identifies a gate kind.
type Gate string

const (
	GateRX   Gate = "RX"
	GateRY   Gate = "RY"
	GateRZ   Gate = "RZ"
	GateH    Gate = "H"
	GateX    Gate = "X"
	GateY    Gate = "Y"
	GateZ    Gate = "Z"
	GateCNOT Gate = "CNOT"
)

// Param is either a free parameter slot resolved at execution time, or a
// fixed angle baked into the circuit.
type Param struct {
	slot  int
	angle float64
}

// Slot references the i-th component of the parameter vector.
func Slot(i int) Param {
	return Param{slot: i}
}

// Angle is a fixed rotation angle.
func Angle(theta float64) Param {
	return Param{slot: -1, angle: theta}
}

// Op is a single gate application.
type Op struct {
	Gate    Gate
	Wire    int
	Control int // CNOT only
	Param   Param
}

// Circuit is an ordered list of gate applications on a fixed number of
// wires, measured via a single Pauli-Z observable.
type Circuit struct {
	wires       int
	ops         []Op
	numParams   int
	observableQ int
}

// NewCircuit creates an empty circuit over the given number of wires with
// the observable defaulting to Z on wire 0.
func NewCircuit(wires int) *Circuit {
	return &Circuit{wires: wires}
}

// Wires returns the number of wires the circuit acts on.
func (c *Circuit) Wires() int {
	return c.wires
}

// Ops returns the gate sequence.
func (c *Circuit) Ops() []Op {
	return c.ops
}

// NumParams returns the arity of the circuit's parameter vector, the
// highest referenced slot plus one.
func (c *Circuit) NumParams() int {
	return c.numParams
}

// ObservableWire returns the wire the Z observable is measured on.
func (c *Circuit) ObservableWire() int {
	return c.observableQ
}

// MeasureZ selects the wire for the Pauli-Z expectation measurement.
func (c *Circuit) MeasureZ(wire int) *Circuit {
	c.observableQ = wire
	return c
}

func (c *Circuit) addRotation(g Gate, wire int, p Param) *Circuit {
	if p.slot >= c.numParams {
		c.numParams = p.slot + 1
	}
	c.ops = append(c.ops, Op{Gate: g, Wire: wire, Control: -1, Param: p})
	return c
}

// RX appends a rotation about X on the given wire.
func (c *Circuit) RX(wire int, p Param) *Circuit {
	return c.addRotation(GateRX, wire, p)
}

// RY appends a rotation about Y on the given wire.
func (c *Circuit) RY(wire int, p Param) *Circuit {
	return c.addRotation(GateRY, wire, p)
}

// RZ appends a rotation about Z on the given wire.
func (c *Circuit) RZ(wire int, p Param) *Circuit {
	return c.addRotation(GateRZ, wire, p)
}

// H appends a Hadamard gate.
func (c *Circuit) H(wire int) *Circuit {
	c.ops = append(c.ops, Op{Gate: GateH, Wire: wire, Control: -1, Param: Angle(0)})
	return c
}

// X appends a Pauli-X gate.
func (c *Circuit) X(wire int) *Circuit {
	c.ops = append(c.ops, Op{Gate: GateX, Wire: wire, Control: -1, Param: Angle(0)})
	return c
}

// Y appends a Pauli-Y gate.
func (c *Circuit) Y(wire int) *Circuit {
	c.ops = append(c.ops, Op{Gate: GateY, Wire: wire, Control: -1, Param: Angle(0)})
	return c
}

// Z appends a Pauli-Z gate.
func (c *Circuit) Z(wire int) *Circuit {
	c.ops = append(c.ops, Op{Gate: GateZ, Wire: wire, Control: -1, Param: Angle(0)})
	return c
}

// CNOT appends a controlled-X gate.
func (c *Circuit) CNOT(control, target int) *Circuit {
	c.ops = append(c.ops, Op{Gate: GateCNOT, Wire: target, Control: control, Param: Angle(0)})
	return c
}

// Validate checks the circuit's wire references.
func (c *Circuit) Validate() error {
	if c.wires <= 0 {
		return fmt.Errorf("circuit must have at least one wire")
	}
	if c.observableQ < 0 || c.observableQ >= c.wires {
		return fmt.Errorf("observable wire %d out of range [0,%d)", c.observableQ, c.wires)
	}
	for _, op := range c.ops {
		if op.Wire < 0 || op.Wire >= c.wires {
			return fmt.Errorf("%s: wire %d out of range [0,%d)", op.Gate, op.Wire, c.wires)
		}
		if op.Gate == GateCNOT {
			if op.Control < 0 || op.Control >= c.wires {
				return fmt.Errorf("CNOT: control %d out of range [0,%d)", op.Control, c.wires)
			}
			if op.Control == op.Wire {
				return fmt.Errorf("CNOT: control and target must differ")
			}
		}
	}
	return nil
}

// angle resolves the rotation angle of an op against a parameter vector.
func (op Op) angle(params []float64) float64 {
	if op.Param.slot < 0 {
		return op.Param.angle
	}
	return params[op.Param.slot]
}

// QubitRotation returns the fixed two-gate rotation circuit: RX(params[0])
// followed by RY(params[1]) on a single qubit, measured in the Z basis.
func QubitRotation() *Circuit {
	return NewCircuit(1).
		RX(0, Slot(0)).
		RY(0, Slot(1)).
		MeasureZ(0)
}
