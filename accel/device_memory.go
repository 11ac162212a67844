package accel

import (
	"fmt"
	"runtime"
	"unsafe"

	"k8s.io/klog/v2"

	"github.com/accelkit/accelgo/driver"
	"github.com/accelkit/accelgo/dtypes"
)

// DeviceMemory is device-resident linear memory of n elements of T,
// allocated in the unified (managed) address space so Slice can touch it
// from the host. Host reads observe device writes only after the owning
// context synchronized.
type DeviceMemory[T dtypes.Supported] struct {
	ctx     *Context
	ptr     driver.Pointer
	numElem int
}

var (
	_ Memory[float32]     = (*DeviceMemory[float32])(nil)
	_ Continuous[float32] = (*DeviceMemory[float32])(nil)
)

// NewDeviceMemory allocates numElem elements of T on the device.
// It panics if numElem is not positive.
func NewDeviceMemory[T dtypes.Supported](ctx *Context, numElem int) (*DeviceMemory[T], error) {
	checkNumElem(numElem)
	ptr, err := contexted1(ctx, func(api driver.API) (driver.Pointer, error) {
		ptr, st := api.MemAllocManaged(numElem*elemSize[T](), driver.AttachGlobal)
		return newCall("MemAllocManaged", ptr, st)
	})
	if err != nil {
		return nil, err
	}
	m := &DeviceMemory[T]{ctx: ctx, ptr: ptr, numElem: numElem}
	runtime.SetFinalizer(m, func(m *DeviceMemory[T]) {
		if m.ptr != 0 {
			klog.Warningf("accel: %s garbage collected without Destroy, releasing it now", m)
			if err := m.Destroy(); err != nil {
				klog.Errorf("accel: releasing leaked device memory: %+v", err)
			}
		}
	})
	return m, nil
}

// NewDeviceMemoryZeros allocates and zero-fills.
func NewDeviceMemoryZeros[T dtypes.Supported](ctx *Context, numElem int) (*DeviceMemory[T], error) {
	m, err := NewDeviceMemory[T](ctx, numElem)
	if err != nil {
		return nil, err
	}
	if err := m.SetZero(); err != nil {
		if derr := m.Destroy(); derr != nil {
			klog.Errorf("accel: releasing memory after failed zero fill: %+v", derr)
		}
		return nil, err
	}
	return m, nil
}

// NewDeviceMemoryFromElem allocates and fills every element with value.
func NewDeviceMemoryFromElem[T dtypes.Supported](ctx *Context, numElem int, value T) (*DeviceMemory[T], error) {
	m, err := NewDeviceMemory[T](ctx, numElem)
	if err != nil {
		return nil, err
	}
	if err := m.Set(value); err != nil {
		if derr := m.Destroy(); derr != nil {
			klog.Errorf("accel: releasing memory after failed fill: %+v", derr)
		}
		return nil, err
	}
	return m, nil
}

// NewDeviceMemoryFromSlice allocates len(data) elements and copies data in.
func NewDeviceMemoryFromSlice[T dtypes.Supported](ctx *Context, data []T) (*DeviceMemory[T], error) {
	m, err := NewDeviceMemory[T](ctx, len(data))
	if err != nil {
		return nil, err
	}
	if err := Copy[T](m, HostSlice[T](data)); err != nil {
		if derr := m.Destroy(); derr != nil {
			klog.Errorf("accel: releasing memory after failed upload: %+v", derr)
		}
		return nil, err
	}
	return m, nil
}

// Destroy releases the allocation. Idempotent.
func (m *DeviceMemory[T]) Destroy() error {
	if m.ptr == 0 {
		return nil
	}
	ptr := m.ptr
	m.ptr = 0
	m.numElem = 0
	runtime.SetFinalizer(m, nil)
	return m.ctx.contexted(func(api driver.API) error {
		return call("MemFree", api.MemFree(ptr))
	})
}

func (m *DeviceMemory[T]) HeadAddr() driver.Pointer { return m.ptr }
func (m *DeviceMemory[T]) NumElem() int             { return m.numElem }
func (m *DeviceMemory[T]) ByteSize() int            { return m.numElem * elemSize[T]() }
func (m *DeviceMemory[T]) MemoryType() MemoryType   { return MemoryDevice }
func (m *DeviceMemory[T]) Context() *Context        { return m.ctx }

// Slice aliases the allocation through unified addressing. Valid until
// Destroy; synchronize before reading results of device work.
func (m *DeviceMemory[T]) Slice() []T {
	return unsafe.Slice((*T)(unsafe.Pointer(uintptr(m.ptr))), m.numElem)
}

// Set fills every element with value using the device fill primitives.
func (m *DeviceMemory[T]) Set(value T) error {
	return memsetDevice(m.ctx, m.ptr, m.numElem, value)
}

// SetZero zeroes the allocation.
func (m *DeviceMemory[T]) SetZero() error {
	return m.ctx.contexted(func(api driver.API) error {
		return call("MemsetD8", api.MemsetD8(m.ptr, 0, m.ByteSize()))
	})
}

// BufferID returns the allocation's unique buffer identifier, stable for the
// allocation's lifetime and distinct across live allocations.
func (m *DeviceMemory[T]) BufferID() (uint64, error) {
	return m.pointerAttribute(driver.AttrBufferID)
}

// IsManaged reports whether the allocation lives in managed (unified)
// memory. True for memory allocated by NewDeviceMemory.
func (m *DeviceMemory[T]) IsManaged() (bool, error) {
	v, err := m.pointerAttribute(driver.AttrIsManaged)
	return v != 0, err
}

// IsMapped reports whether the allocation is mapped into the host address
// space.
func (m *DeviceMemory[T]) IsMapped() (bool, error) {
	v, err := m.pointerAttribute(driver.AttrIsMapped)
	return v != 0, err
}

// MemoryClass returns the backend's classification of the allocation's
// address.
func (m *DeviceMemory[T]) MemoryClass() (driver.MemClass, error) {
	v, err := m.pointerAttribute(driver.AttrMemoryClass)
	return driver.MemClass(v), err
}

func (m *DeviceMemory[T]) pointerAttribute(attr driver.PointerAttribute) (uint64, error) {
	return contexted1(m.ctx, func(api driver.API) (uint64, error) {
		v, st := api.PointerGetAttribute(attr, m.ptr)
		return newCall("PointerGetAttribute", v, st)
	})
}

func (m *DeviceMemory[T]) String() string {
	return fmt.Sprintf("DeviceMemory[%s]{%d elements @ %#x}",
		dtypes.FromGenericsType[T](), m.numElem, uintptr(m.ptr))
}
