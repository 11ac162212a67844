package accel

import (
	"fmt"
	"runtime"
	"unsafe"

	"k8s.io/klog/v2"

	"github.com/accelkit/accelgo/driver"
	"github.com/accelkit/accelgo/dtypes"
)

// PageLockedMemory is pinned host memory: allocated by the backend, exempt
// from OS paging and registered with the device's address-unification
// system, which makes host/device transfers fast and lets kernels read it
// in place on backends that map pinned pages.
type PageLockedMemory[T dtypes.Supported] struct {
	ctx     *Context
	ptr     driver.Pointer
	numElem int
}

var (
	_ Memory[int32]     = (*PageLockedMemory[int32])(nil)
	_ Continuous[int32] = (*PageLockedMemory[int32])(nil)
)

// NewPageLockedMemory allocates numElem pinned elements of T.
// It panics if numElem is not positive.
func NewPageLockedMemory[T dtypes.Supported](ctx *Context, numElem int) (*PageLockedMemory[T], error) {
	checkNumElem(numElem)
	ptr, err := contexted1(ctx, func(api driver.API) (driver.Pointer, error) {
		ptr, st := api.MemAllocHost(numElem * elemSize[T]())
		return newCall("MemAllocHost", ptr, st)
	})
	if err != nil {
		return nil, err
	}
	m := &PageLockedMemory[T]{ctx: ctx, ptr: ptr, numElem: numElem}
	runtime.SetFinalizer(m, func(m *PageLockedMemory[T]) {
		if m.ptr != 0 {
			klog.Warningf("accel: %s garbage collected without Destroy, releasing it now", m)
			if err := m.Destroy(); err != nil {
				klog.Errorf("accel: releasing leaked page-locked memory: %+v", err)
			}
		}
	})
	return m, nil
}

// NewPageLockedMemoryZeros allocates and zero-fills.
func NewPageLockedMemoryZeros[T dtypes.Supported](ctx *Context, numElem int) (*PageLockedMemory[T], error) {
	m, err := NewPageLockedMemory[T](ctx, numElem)
	if err != nil {
		return nil, err
	}
	// Host-reachable, the fill cannot fail.
	_ = m.SetZero()
	return m, nil
}

// NewPageLockedMemoryFromElem allocates and fills every element with value.
func NewPageLockedMemoryFromElem[T dtypes.Supported](ctx *Context, numElem int, value T) (*PageLockedMemory[T], error) {
	m, err := NewPageLockedMemory[T](ctx, numElem)
	if err != nil {
		return nil, err
	}
	_ = m.Set(value)
	return m, nil
}

// Destroy releases the pinned allocation. Idempotent.
func (m *PageLockedMemory[T]) Destroy() error {
	if m.ptr == 0 {
		return nil
	}
	ptr := m.ptr
	m.ptr = 0
	m.numElem = 0
	runtime.SetFinalizer(m, nil)
	return m.ctx.contexted(func(api driver.API) error {
		return call("MemFreeHost", api.MemFreeHost(ptr))
	})
}

func (m *PageLockedMemory[T]) HeadAddr() driver.Pointer { return m.ptr }
func (m *PageLockedMemory[T]) NumElem() int             { return m.numElem }
func (m *PageLockedMemory[T]) ByteSize() int            { return m.numElem * elemSize[T]() }
func (m *PageLockedMemory[T]) MemoryType() MemoryType   { return MemoryPageLocked }
func (m *PageLockedMemory[T]) Context() *Context        { return m.ctx }

// Slice aliases the pinned storage. Valid until Destroy.
func (m *PageLockedMemory[T]) Slice() []T {
	return unsafe.Slice((*T)(unsafe.Pointer(uintptr(m.ptr))), m.numElem)
}

// Set is an element-wise host store; pinned memory is host-reachable, so no
// device primitive is needed.
func (m *PageLockedMemory[T]) Set(value T) error {
	fillSlice(m.Slice(), value)
	return nil
}

// SetZero zeroes the allocation.
func (m *PageLockedMemory[T]) SetZero() error {
	var zero T
	return m.Set(zero)
}

func (m *PageLockedMemory[T]) String() string {
	return fmt.Sprintf("PageLockedMemory[%s]{%d elements @ %#x}",
		dtypes.FromGenericsType[T](), m.numElem, uintptr(m.ptr))
}
