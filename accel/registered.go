package accel

import (
	"fmt"
	"runtime"

	"k8s.io/klog/v2"

	"github.com/accelkit/accelgo/driver"
	"github.com/accelkit/accelgo/dtypes"
)

// RegisteredMemory registers a caller-supplied host slice with the device,
// making transfers in and out of it efficient. It borrows the slice: the
// elements stay owned by the caller, only the registration side effect is
// owned here and undone by Destroy. The caller must keep the slice alive and
// must not grow or move it while registered.
type RegisteredMemory[T dtypes.Supported] struct {
	ctx  *Context
	data []T
}

var (
	_ Memory[uint8]     = (*RegisteredMemory[uint8])(nil)
	_ Continuous[uint8] = (*RegisteredMemory[uint8])(nil)
)

// NewRegisteredMemory registers data with the device.
// It panics if data is empty.
func NewRegisteredMemory[T dtypes.Supported](ctx *Context, data []T) (*RegisteredMemory[T], error) {
	checkNumElem(len(data))
	err := ctx.contexted(func(api driver.API) error {
		return call("MemHostRegister",
			api.MemHostRegister(sliceAddr(data), len(data)*elemSize[T](), 0))
	})
	if err != nil {
		return nil, err
	}
	m := &RegisteredMemory[T]{ctx: ctx, data: data}
	runtime.SetFinalizer(m, func(m *RegisteredMemory[T]) {
		if m.data != nil {
			klog.Warningf("accel: %s garbage collected without Destroy, unregistering now", m)
			if err := m.Destroy(); err != nil {
				klog.Errorf("accel: unregistering leaked memory: %+v", err)
			}
		}
	})
	return m, nil
}

// Destroy unregisters the slice. The slice itself stays valid and keeps its
// contents. Idempotent.
func (m *RegisteredMemory[T]) Destroy() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	runtime.SetFinalizer(m, nil)
	return m.ctx.contexted(func(api driver.API) error {
		return call("MemHostUnregister", api.MemHostUnregister(sliceAddr(data)))
	})
}

func (m *RegisteredMemory[T]) HeadAddr() driver.Pointer { return sliceAddr(m.data) }
func (m *RegisteredMemory[T]) NumElem() int             { return len(m.data) }
func (m *RegisteredMemory[T]) ByteSize() int            { return len(m.data) * elemSize[T]() }
func (m *RegisteredMemory[T]) MemoryType() MemoryType   { return MemoryHost }
func (m *RegisteredMemory[T]) Context() *Context        { return m.ctx }

// Slice returns the borrowed slice itself.
func (m *RegisteredMemory[T]) Slice() []T { return m.data }

// Set is an element-wise host store.
func (m *RegisteredMemory[T]) Set(value T) error {
	fillSlice(m.data, value)
	return nil
}

// SetZero zeroes the borrowed slice.
func (m *RegisteredMemory[T]) SetZero() error {
	var zero T
	return m.Set(zero)
}

func (m *RegisteredMemory[T]) String() string {
	return fmt.Sprintf("RegisteredMemory[%s]{%d elements @ %#x}",
		dtypes.FromGenericsType[T](), len(m.data), uintptr(m.HeadAddr()))
}
