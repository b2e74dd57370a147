package quantum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatorQubitRotation(t *testing.T) {
	dev := NewSimulator("local/statevector", 1)
	circuit := QubitRotation()

	require.Equal(t, 2, circuit.NumParams())

	// RX(a) RY(b) |0> measured in Z gives cos(a)cos(b).
	cases := [][2]float64{
		{0, 0},
		{0.5, 0.75},
		{math.Pi / 2, 0},
		{1.2, -0.4},
	}
	for _, c := range cases {
		got, err := dev.Execute(circuit, []float64{c[0], c[1]})
		require.NoError(t, err)
		assert.InDelta(t, math.Cos(c[0])*math.Cos(c[1]), got, 1e-12)
		assert.LessOrEqual(t, got, 1.0)
		assert.GreaterOrEqual(t, got, -1.0)
	}
}

func TestSimulatorRejectsWrongArity(t *testing.T) {
	dev := NewSimulator("local/statevector", 1)
	circuit := QubitRotation()

	_, err := dev.Execute(circuit, []float64{0.5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParamArity)

	_, err = dev.Execute(circuit, []float64{0.5, 0.75, 1.0})
	assert.ErrorIs(t, err, ErrParamArity)
}

func TestSimulatorRejectsOversizedCircuit(t *testing.T) {
	dev := NewSimulator("local/statevector", 1)
	circuit := NewCircuit(2).H(0).CNOT(0, 1)

	_, err := dev.Execute(circuit, nil)
	require.Error(t, err)
}

func TestSimulatorFixedAngles(t *testing.T) {
	dev := NewSimulator("local/statevector", 1)
	circuit := NewCircuit(1).RX(0, Angle(math.Pi)).MeasureZ(0)

	require.Equal(t, 0, circuit.NumParams())
	got, err := dev.Execute(circuit, nil)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, got, 1e-12)
}

func TestSimulatorDeterminism(t *testing.T) {
	dev := NewSimulator("local/statevector", 1)
	circuit := QubitRotation()
	params := []float64{0.5, 0.75}

	first, err := dev.Execute(circuit, params)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := dev.Execute(circuit, params)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCircuitValidate(t *testing.T) {
	bad := NewCircuit(1).RX(2, Slot(0))
	assert.Error(t, bad.Validate())

	selfCtrl := NewCircuit(2).CNOT(1, 1)
	assert.Error(t, selfCtrl.Validate())

	badObs := NewCircuit(1).MeasureZ(3)
	assert.Error(t, badObs.Validate())

	ok := NewCircuit(2).H(0).CNOT(0, 1).MeasureZ(1)
	assert.NoError(t, ok.Validate())
}

func TestRegistryResolvesDevices(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewSimulator("local/statevector", 1)))
	require.NoError(t, r.Register(NewSimulator("local/statevector-4q", 4)))

	dev, err := r.Get("local/statevector-4q")
	require.NoError(t, err)
	assert.Equal(t, 4, dev.Wires())

	// Empty name falls back to the default device.
	dev, err = r.Get("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDevice, dev.Name())

	_, err = r.Get("remote/qpu-1")
	assert.ErrorIs(t, err, ErrUnknownDevice)

	assert.Error(t, r.Register(NewSimulator("local/statevector", 2)))
	assert.Len(t, r.Names(), 2)
}
