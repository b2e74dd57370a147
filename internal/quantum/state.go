package quantum

import (
	"math"
	"math/cmplx"
)

// StateVector is a dense amplitude vector over n qubits, initialized to
// the all-zeros basis state.
type StateVector struct {
	amps   []complex128
	qubits int
}

// NewStateVector creates a statevector for the given number of qubits.
func NewStateVector(qubits int) *StateVector {
	n := 1 << qubits
	amps := make([]complex128, n)
	amps[0] = 1
	return &StateVector{amps: amps, qubits: qubits}
}

// Qubits returns the number of qubits.
func (s *StateVector) Qubits() int {
	return s.qubits
}

// Amplitudes returns a copy of the amplitude vector.
func (s *StateVector) Amplitudes() []complex128 {
	out := make([]complex128, len(s.amps))
	copy(out, s.amps)
	return out
}

// ApplyRX applies a rotation about the X axis on qubit q.
func (s *StateVector) ApplyRX(q int, theta float64) {
	n := len(s.amps)
	bit := 1 << q
	c := complex(math.Cos(theta/2), 0)
	js := complex(0, -math.Sin(theta/2))
	next := make([]complex128, n)
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			next[i] = c*s.amps[i] + js*s.amps[j]
			next[j] = js*s.amps[i] + c*s.amps[j]
		}
	}
	s.amps = next
}

// ApplyRY applies a rotation about the Y axis on qubit q.
func (s *StateVector) ApplyRY(q int, theta float64) {
	n := len(s.amps)
	bit := 1 << q
	c := complex(math.Cos(theta/2), 0)
	sn := complex(math.Sin(theta/2), 0)
	next := make([]complex128, n)
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			next[i] = c*s.amps[i] - sn*s.amps[j]
			next[j] = sn*s.amps[i] + c*s.amps[j]
		}
	}
	s.amps = next
}

// ApplyRZ applies a rotation about the Z axis on qubit q.
func (s *StateVector) ApplyRZ(q int, theta float64) {
	bit := 1 << q
	phase := cmplx.Exp(complex(0, theta/2))
	for i := range s.amps {
		if i&bit != 0 {
			s.amps[i] *= phase
		} else {
			s.amps[i] *= cmplx.Conj(phase)
		}
	}
}

// ApplyH applies a Hadamard gate on qubit q.
func (s *StateVector) ApplyH(q int) {
	n := len(s.amps)
	bit := 1 << q
	factor := complex(1.0/math.Sqrt2, 0)
	next := make([]complex128, n)
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			next[i] = factor * (s.amps[i] + s.amps[j])
			next[j] = factor * (s.amps[i] - s.amps[j])
		}
	}
	s.amps = next
}

// ApplyX applies a Pauli-X gate on qubit q.
func (s *StateVector) ApplyX(q int) {
	bit := 1 << q
	for i := range s.amps {
		if i&bit == 0 {
			j := i | bit
			s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
		}
	}
}

// ApplyY applies a Pauli-Y gate on qubit q.
func (s *StateVector) ApplyY(q int) {
	bit := 1 << q
	for i := range s.amps {
		if i&bit == 0 {
			j := i | bit
			s.amps[i], s.amps[j] = -1i*s.amps[j], 1i*s.amps[i]
		}
	}
}

// ApplyZ applies a Pauli-Z gate on qubit q.
func (s *StateVector) ApplyZ(q int) {
	bit := 1 << q
	for i := range s.amps {
		if i&bit != 0 {
			s.amps[i] *= -1
		}
	}
}

// ApplyCNOT applies a controlled-X gate.
func (s *StateVector) ApplyCNOT(control, target int) {
	cBit := 1 << control
	tBit := 1 << target
	for i := range s.amps {
		if i&cBit != 0 && i&tBit == 0 {
			j := i | tBit
			s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
		}
	}
}

// Probability returns the probability of the given basis state index.
func (s *StateVector) Probability(basis int) float64 {
	amp := s.amps[basis]
	return real(amp * cmplx.Conj(amp))
}

// ExpectationZ returns the expectation value of the Pauli-Z observable on
// qubit q, a scalar in [-1, 1].
func (s *StateVector) ExpectationZ(q int) float64 {
	bit := 1 << q
	expval := 0.0
	for i := range s.amps {
		p := s.Probability(i)
		if i&bit == 0 {
			expval += p
		} else {
			expval -= p
		}
	}
	return expval
}
