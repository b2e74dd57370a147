package quantum

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hybridq/hybrid-core/pkg/config"
)

// DefaultDevice is the device used when a job spec omits one.
const DefaultDevice = "local/statevector"

// ErrUnknownDevice indicates a device name with no registry entry.
var ErrUnknownDevice = errors.New("unknown device")

// Registry resolves device names from job specs to devices.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]Device
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]Device)}
}

// NewRegistryFromConfig builds a registry from configured device entries.
func NewRegistryFromConfig(devices []config.Device) (*Registry, error) {
	r := NewRegistry()
	for _, dev := range devices {
		switch dev.Kind {
		case "statevector":
			if err := r.Register(NewSimulator(dev.Name, dev.Wires)); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("device %s: unsupported kind %q", dev.Name, dev.Kind)
		}
	}
	return r, nil
}

// Register adds a device. Names must be unique.
func (r *Registry) Register(d Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.devices[d.Name()]; exists {
		return fmt.Errorf("device already registered: %s", d.Name())
	}
	r.devices[d.Name()] = d
	return nil
}

// Get resolves a device name. An empty name resolves to DefaultDevice.
func (r *Registry) Get(name string) (Device, error) {
	if name == "" {
		name = DefaultDevice
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}
	return d, nil
}

// Names returns the registered device names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.devices))
	for name := range r.devices {
		names = append(names, name)
	}
	return names
}
