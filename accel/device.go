package accel

import (
	"fmt"

	"github.com/accelkit/accelgo/driver"
)

// Device identifies one accelerator of a platform. It holds no native
// resources; contexts created from it do.
type Device struct {
	platform *Platform
	id       driver.Device
}

// ID returns the device ordinal within its platform.
func (d *Device) ID() int { return int(d.id) }

// Platform returns the platform this device belongs to.
func (d *Device) Platform() *Platform { return d.platform }

// Name returns the device's marketing name.
func (d *Device) Name() (string, error) {
	name, st := d.platform.api.DeviceName(d.id)
	return newCall("DeviceName", name, st)
}

// TotalMem returns the device's memory size in bytes.
func (d *Device) TotalMem() (uint64, error) {
	mem, st := d.platform.api.DeviceTotalMem(d.id)
	return newCall("DeviceTotalMem", mem, st)
}

func (d *Device) String() string {
	name, err := d.Name()
	if err != nil {
		name = "<unknown>"
	}
	return fmt.Sprintf("device #%d (%s)", d.id, name)
}
