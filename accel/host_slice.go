package accel

import (
	"github.com/accelkit/accelgo/driver"
	"github.com/accelkit/accelgo/dtypes"
)

// HostSlice adapts a plain Go slice as a copy endpoint of kind Host, without
// any registration side effect. It carries no context: a copy touching
// device memory borrows the other endpoint's context, and a host to host
// copy needs none.
type HostSlice[T dtypes.Supported] []T

var (
	_ Memory[float32]     = HostSlice[float32](nil)
	_ Continuous[float32] = HostSlice[float32](nil)
)

func (h HostSlice[T]) HeadAddr() driver.Pointer { return sliceAddr(h) }
func (h HostSlice[T]) NumElem() int             { return len(h) }
func (h HostSlice[T]) ByteSize() int            { return len(h) * elemSize[T]() }
func (h HostSlice[T]) MemoryType() MemoryType   { return MemoryHost }
func (h HostSlice[T]) Context() *Context        { return nil }
func (h HostSlice[T]) Slice() []T               { return h }

func (h HostSlice[T]) Set(value T) error {
	fillSlice(h, value)
	return nil
}

func (h HostSlice[T]) SetZero() error {
	var zero T
	return h.Set(zero)
}
