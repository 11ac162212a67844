// Package driver defines the boundary between the accel runtime and a device
// driver: a fixed catalog of named, fallible entry points (API), the native
// Status enumeration those entry points return, and a registry of concrete
// backends.
//
// The catalog is a stable contract: the runtime never adds entry points here,
// a driver-binding backend does. Backends implementing API over a real device
// driver live outside this module (they are cgo bindings); the in-tree cpu
// backend (see driver/cpu) implements the catalog in host memory and is what
// the test suite runs against.
package driver

import (
	"unsafe"

	"github.com/accelkit/accelgo/dtypes"
)

// Opaque handles issued by a backend. Their values are meaningless to the
// runtime; they are only passed back into the catalog.
type (
	// Device identifies one enumerated device, 0-based.
	Device int

	// Ctx is a native context handle.
	Ctx uintptr

	// Module is a loaded compiled-code image.
	Module uintptr

	// Function is an entry point resolved inside a Module.
	Function uintptr

	// Stream is an asynchronous execution queue.
	Stream uintptr

	// Array is an opaque multi-dimensional device allocation.
	Array uintptr
)

// Pointer is an address in the unified 64-bit virtual address space shared by
// host and device. A Pointer's originating memory class is queryable from the
// backend by address alone (PointerGetAttribute).
type Pointer uintptr

// DefaultStream is the implicit stream of the current context. Work issued on
// it serializes with every launch that does not name an explicit stream.
const DefaultStream Stream = 0

// AttachGlobal is the attach flag for managed allocations visible to every
// stream (MemAllocManaged).
const AttachGlobal uint32 = 0x1

// PointerAttribute selects which property PointerGetAttribute reports.
type PointerAttribute int32

const (
	AttrMemoryClass PointerAttribute = iota + 1
	AttrBufferID
	AttrIsManaged
	AttrIsMapped
)

// MemClass is the backend's memory classification of an address.
type MemClass uint64

const (
	MemClassHost    MemClass = 1
	MemClassDevice  MemClass = 2
	MemClassArray   MemClass = 3
	MemClassUnified MemClass = 4
)

// ParamClass describes how a kernel parameter slot receives its argument.
type ParamClass int32

const (
	// ParamScalar is passed by value.
	ParamScalar ParamClass = iota
	// ParamConstPtr is a pointer the kernel only reads through.
	ParamConstPtr
	// ParamMutPtr is a pointer the kernel may write through.
	ParamMutPtr
)

//go:generate go tool enumer -type=ParamClass -trimprefix=Param driver.go

// ParamInfo is the declared device representation of one kernel parameter
// slot, as recorded in the compiled image.
type ParamInfo struct {
	Class ParamClass
	DType dtypes.DType
}

// ArrayDescriptor describes the shape of an opaque array allocation.
// Unused trailing axes are zero.
type ArrayDescriptor struct {
	Width, Height, Depth int
	// ElemBytes is the element width: 1, 2, 4 or 8.
	ElemBytes int
}

// NumElem returns the total element count the descriptor denotes.
func (d ArrayDescriptor) NumElem() int {
	n := d.Width
	if d.Height > 0 {
		n *= d.Height
	}
	if d.Depth > 0 {
		n *= d.Depth
	}
	return n
}

// API is the catalog of driver entry points. Every call returns a Status;
// "new-value" calls additionally return the produced handle or value, which
// is only meaningful when the Status is StatusSuccess.
//
// Context-sensitivity: memory, module, stream and launch entry points operate
// on the calling thread's current context. The runtime establishes currency
// before calling them; a backend may return StatusErrorInvalidContext when no
// context is current.
type API interface {
	// Init initializes the backend. Must be called before anything else;
	// repeated calls are no-ops.
	Init(flags uint32) Status

	DeviceCount() (int, Status)
	DeviceName(dev Device) (string, Status)
	DeviceTotalMem(dev Device) (uint64, Status)

	// CtxCreate creates a context bound to dev and makes it current on the
	// calling thread.
	CtxCreate(dev Device, flags uint32) (Ctx, Status)
	CtxDestroy(ctx Ctx) Status
	CtxGetCurrent() (Ctx, Status)
	// CtxSetCurrent binds ctx as the thread-current context; ctx 0 unbinds.
	CtxSetCurrent(ctx Ctx) Status
	// CtxSynchronize blocks until all work issued in the current context,
	// including default-stream launches, has completed.
	CtxSynchronize() Status

	MemGetInfo() (free, total uint64, st Status)
	MemAlloc(size int) (Pointer, Status)
	MemAllocManaged(size int, flags uint32) (Pointer, Status)
	MemFree(p Pointer) Status
	MemAllocHost(size int) (Pointer, Status)
	MemFreeHost(p Pointer) Status
	MemHostRegister(p Pointer, size int, flags uint32) Status
	MemHostUnregister(p Pointer) Status
	PointerGetAttribute(attr PointerAttribute, p Pointer) (uint64, Status)

	MemcpyHtoD(dst, src Pointer, n int) Status
	MemcpyDtoH(dst, src Pointer, n int) Status
	MemcpyDtoD(dst, src Pointer, n int) Status
	MemcpyHtoDAsync(dst, src Pointer, n int, s Stream) Status
	MemcpyDtoHAsync(dst, src Pointer, n int, s Stream) Status
	MemcpyDtoDAsync(dst, src Pointer, n int, s Stream) Status

	ArrayCreate(desc ArrayDescriptor) (Array, Status)
	ArrayDestroy(a Array) Status
	MemcpyHtoA(dst Array, dstOffset int, src Pointer, n int) Status
	MemcpyAtoH(dst Pointer, src Array, srcOffset int, n int) Status
	MemcpyAtoA(dst Array, dstOffset int, src Array, srcOffset int, n int) Status
	MemcpyDtoA(dst Array, dstOffset int, src Pointer, n int) Status
	MemcpyAtoD(dst Pointer, src Array, srcOffset int, n int) Status

	// Memset entry points are limited to 8/16/32-bit granularity; wider
	// fills are composed by the caller. MemsetD2D32 writes `width` 32-bit
	// words every `pitch` bytes, `height` times.
	MemsetD8(p Pointer, value uint8, n int) Status
	MemsetD16(p Pointer, value uint16, n int) Status
	MemsetD32(p Pointer, value uint32, n int) Status
	MemsetD2D32(p Pointer, pitch int, value uint32, width, height int) Status

	ModuleLoadData(image []byte) (Module, Status)
	ModuleUnload(m Module) Status
	ModuleGetFunction(m Module, name string) (Function, Status)
	FuncParamCount(f Function) (int, Status)
	FuncParamInfo(f Function, index int) (ParamInfo, Status)

	// LaunchKernel enqueues f on s with the given grid/block geometry.
	// params holds one raw pointer per declared parameter slot, each
	// pointing at the argument's device representation. Completion (and any
	// device-side trap) is observed at the next synchronize on s.
	LaunchKernel(f Function,
		gridX, gridY, gridZ int,
		blockX, blockY, blockZ int,
		sharedMemBytes int, s Stream, params []unsafe.Pointer) Status

	StreamCreate(flags uint32) (Stream, Status)
	StreamDestroy(s Stream) Status
	// StreamQuery reports StatusErrorNotReady while work is pending.
	StreamQuery(s Stream) Status
	StreamSynchronize(s Stream) Status
}
