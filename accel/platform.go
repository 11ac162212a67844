package accel

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/accelkit/accelgo/driver"
)

// BackendEnvVar is read by DefaultPlatform to choose a backend by name.
const BackendEnvVar = "ACCELGO_BACKEND"

// defaultBackend is used when BackendEnvVar is unset.
const defaultBackend = "cpu"

// Platform is an initialized backend. There is at most one Platform per
// registered backend name; GetPlatform returns the cached instance on
// repeated calls.
type Platform struct {
	name string
	api  driver.API
}

var (
	platformsMu sync.Mutex
	platforms   = make(map[string]*Platform)
)

// GetPlatform initializes (once) and returns the backend registered under
// name. The backend's package must have been imported for its registration
// side effect.
func GetPlatform(name string) (*Platform, error) {
	platformsMu.Lock()
	defer platformsMu.Unlock()
	if p, found := platforms[name]; found {
		return p, nil
	}
	api, err := driver.Lookup(name)
	if err != nil {
		return nil, errors.WithMessagef(err, "available backends: %v", driver.Names())
	}
	if err := call("Init", api.Init(0)); err != nil {
		return nil, errors.WithMessagef(err, "initializing backend %q", name)
	}
	p := &Platform{name: name, api: api}
	platforms[name] = p
	klog.V(1).Infof("accel: initialized backend %q", name)
	return p, nil
}

// DefaultPlatform returns the platform named by $ACCELGO_BACKEND, or the
// "cpu" backend when unset.
func DefaultPlatform() (*Platform, error) {
	name := os.Getenv(BackendEnvVar)
	if name == "" {
		name = defaultBackend
	}
	return GetPlatform(name)
}

// Name returns the backend name this platform was registered under.
func (p *Platform) Name() string { return p.name }

// NumDevices returns the number of devices the backend exposes.
func (p *Platform) NumDevices() (int, error) {
	count, st := p.api.DeviceCount()
	return newCall("DeviceCount", count, st)
}

// Device returns a handle to the id-th device.
func (p *Platform) Device(id int) (*Device, error) {
	count, err := p.NumDevices()
	if err != nil {
		return nil, err
	}
	if id < 0 || id >= count {
		return nil, &DeviceNotFoundError{ID: id, Count: count}
	}
	return &Device{platform: p, id: driver.Device(id)}, nil
}

// Devices returns handles to every installed device.
func (p *Platform) Devices() ([]*Device, error) {
	count, err := p.NumDevices()
	if err != nil {
		return nil, err
	}
	devices := make([]*Device, count)
	for i := range devices {
		devices[i] = &Device{platform: p, id: driver.Device(i)}
	}
	return devices, nil
}
