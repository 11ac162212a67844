// Package accel is a typed host-side runtime for accelerator devices: typed
// memory ownership, context currency and explicit kernel dispatch, layered
// over a pluggable low-level driver (package driver).
//
// The usual flow is
//
//	platform := must.M1(accel.DefaultPlatform())
//	device := must.M1(platform.Device(0))
//	ctx := must.M1(device.NewContext())
//	defer ctx.Destroy()
//
//	mem := must.M1(accel.NewDeviceMemory[float32](ctx, 1024))
//	defer mem.Destroy()
//
// Memories are generic over their element type (dtypes.Supported), so copies
// and kernel arguments are checked at compile time where possible and at
// runtime everywhere else. Every blocking operation binds the owning context
// for its duration and restores whatever was current before, so independent
// contexts compose without coordination.
//
// Backends register themselves on import. The pure-Go reference backend:
//
//	import _ "github.com/accelkit/accelgo/driver/cpu"
package accel
