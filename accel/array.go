package accel

import (
	"fmt"
	"runtime"

	"k8s.io/klog/v2"

	"github.com/accelkit/accelgo/driver"
	"github.com/accelkit/accelgo/dtypes"
)

// Array is opaque device array memory of up to three dimensions. It has no
// linear address the host could touch: element access goes through the
// array copy entry points, so Array satisfies Memory but not Continuous.
// HeadAddr returns the opaque handle, usable for identity checks only.
type Array[T dtypes.Supported] struct {
	ctx    *Context
	handle driver.Array
	desc   driver.ArrayDescriptor
}

var _ Memory[float32] = (*Array[float32])(nil)

// NewArray1D allocates a width-element array.
// It panics if width is not positive.
func NewArray1D[T dtypes.Supported](ctx *Context, width int) (*Array[T], error) {
	return newArray[T](ctx, width, 0, 0)
}

// NewArray2D allocates a width x height array.
func NewArray2D[T dtypes.Supported](ctx *Context, width, height int) (*Array[T], error) {
	return newArray[T](ctx, width, height, 0)
}

// NewArray3D allocates a width x height x depth array.
func NewArray3D[T dtypes.Supported](ctx *Context, width, height, depth int) (*Array[T], error) {
	return newArray[T](ctx, width, height, depth)
}

func newArray[T dtypes.Supported](ctx *Context, width, height, depth int) (*Array[T], error) {
	desc := driver.ArrayDescriptor{
		Width:     width,
		Height:    height,
		Depth:     depth,
		ElemBytes: elemSize[T](),
	}
	checkNumElem(desc.NumElem())
	handle, err := contexted1(ctx, func(api driver.API) (driver.Array, error) {
		a, st := api.ArrayCreate(desc)
		return newCall("ArrayCreate", a, st)
	})
	if err != nil {
		return nil, err
	}
	a := &Array[T]{ctx: ctx, handle: handle, desc: desc}
	runtime.SetFinalizer(a, func(a *Array[T]) {
		if a.handle != 0 {
			klog.Warningf("accel: %s garbage collected without Destroy, releasing it now", a)
			if err := a.Destroy(); err != nil {
				klog.Errorf("accel: releasing leaked array: %+v", err)
			}
		}
	})
	return a, nil
}

// Destroy releases the array. Idempotent.
func (a *Array[T]) Destroy() error {
	if a.handle == 0 {
		return nil
	}
	handle := a.handle
	a.handle = 0
	runtime.SetFinalizer(a, nil)
	return a.ctx.contexted(func(api driver.API) error {
		return call("ArrayDestroy", api.ArrayDestroy(handle))
	})
}

func (a *Array[T]) HeadAddr() driver.Pointer { return driver.Pointer(a.handle) }
func (a *Array[T]) NumElem() int             { return a.desc.NumElem() }
func (a *Array[T]) ByteSize() int            { return a.desc.NumElem() * elemSize[T]() }
func (a *Array[T]) MemoryType() MemoryType   { return MemoryArray }
func (a *Array[T]) Context() *Context        { return a.ctx }

// Dims returns the array extents; height and depth are zero for the unused
// dimensions.
func (a *Array[T]) Dims() (width, height, depth int) {
	return a.desc.Width, a.desc.Height, a.desc.Depth
}

// Set fills every element with value by staging a filled host buffer and
// copying it in; arrays have no memset entry point.
func (a *Array[T]) Set(value T) error {
	staging := make([]T, a.NumElem())
	fillSlice(staging, value)
	return a.ctx.contexted(func(api driver.API) error {
		return call("MemcpyHtoA",
			api.MemcpyHtoA(a.handle, 0, sliceAddr(staging), a.ByteSize()))
	})
}

// SetZero zeroes the array.
func (a *Array[T]) SetZero() error {
	var zero T
	return a.Set(zero)
}

func (a *Array[T]) String() string {
	return fmt.Sprintf("Array[%s]{%dx%dx%d}",
		dtypes.FromGenericsType[T](), a.desc.Width, a.desc.Height, a.desc.Depth)
}
