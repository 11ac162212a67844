package accel

import (
	"unsafe"

	"github.com/accelkit/accelgo/driver"
	"github.com/accelkit/accelgo/dtypes"
)

// Param is a host-side value that can occupy one kernel argument slot.
// TargetSpec declares the device-side representation the value marshals to
// and must be answerable on a zero value, so Launchable constructors can
// type-check a signature before any argument exists. marshal appends the
// raw parameter pointer the dispatch layer hands to the backend.
//
// The three implementations cover the whole surface: Scalar for by-value
// elements, In for read-only memory handles, Out for writable ones.
type Param interface {
	TargetSpec() driver.ParamInfo
	marshal(args *launchArgs)
}

// launchArgs collects the type-erased argument pointer array. keep pins the
// boxed values and memory handles until the launch returned.
type launchArgs struct {
	ptrs []unsafe.Pointer
	keep []any
}

// Scalar passes a by-value element to a kernel.
type Scalar[T dtypes.Supported] struct {
	Value T
}

// ConstPtr is the device-side representation of a read-only memory handle.
// It only exists as a Param; kernels see the head address.
type ConstPtr[T dtypes.Supported] struct {
	mem Memory[T]
}

// MutPtr is the device-side representation of a writable memory handle.
// The class distinction keeps a read-only handle out of a slot declared for
// writes, and the other way round.
type MutPtr[T dtypes.Supported] struct {
	mem Memory[T]
}

// In offers mem to a kernel slot declared read-only.
func In[T dtypes.Supported](mem Memory[T]) ConstPtr[T] { return ConstPtr[T]{mem: mem} }

// Out offers mem to a kernel slot declared writable.
func Out[T dtypes.Supported](mem Memory[T]) MutPtr[T] { return MutPtr[T]{mem: mem} }

func (s Scalar[T]) TargetSpec() driver.ParamInfo {
	return driver.ParamInfo{Class: driver.ParamScalar, DType: dtypes.FromGenericsType[T]()}
}

func (s Scalar[T]) marshal(args *launchArgs) {
	boxed := new(T)
	*boxed = s.Value
	args.ptrs = append(args.ptrs, unsafe.Pointer(boxed))
	args.keep = append(args.keep, boxed)
}

func (p ConstPtr[T]) TargetSpec() driver.ParamInfo {
	return driver.ParamInfo{Class: driver.ParamConstPtr, DType: dtypes.FromGenericsType[T]()}
}

func (p ConstPtr[T]) marshal(args *launchArgs) {
	marshalPointer(args, p.mem)
}

func (p MutPtr[T]) TargetSpec() driver.ParamInfo {
	return driver.ParamInfo{Class: driver.ParamMutPtr, DType: dtypes.FromGenericsType[T]()}
}

func (p MutPtr[T]) marshal(args *launchArgs) {
	marshalPointer(args, p.mem)
}

func marshalPointer[T dtypes.Supported](args *launchArgs, mem Memory[T]) {
	boxed := new(driver.Pointer)
	*boxed = mem.HeadAddr()
	args.ptrs = append(args.ptrs, unsafe.Pointer(boxed))
	args.keep = append(args.keep, boxed, mem)
}
