package accel

import (
	"unsafe"

	"github.com/accelkit/accelgo/driver"
	"github.com/accelkit/accelgo/dtypes"
)

// MemoryType classifies where a memory's elements physically live and,
// therefore, which copy routes apply to it.
type MemoryType int32

const (
	// MemoryHost is pageable host memory registered with the device.
	MemoryHost MemoryType = iota
	// MemoryPageLocked is pinned host memory allocated by the backend.
	MemoryPageLocked
	// MemoryDevice is device-resident linear memory.
	MemoryDevice
	// MemoryArray is opaque array memory with no linear address.
	MemoryArray
)

//go:generate go tool enumer -type=MemoryType -trimprefix=Memory memory.go

// Memory is a typed allocation of n elements of T owned by a Context.
//
// HeadAddr is the allocation's device-visible address; for MemoryArray it is
// the opaque handle, usable for identity but not for address arithmetic.
type Memory[T dtypes.Supported] interface {
	HeadAddr() driver.Pointer
	NumElem() int
	ByteSize() int
	MemoryType() MemoryType
	Context() *Context

	// Set assigns value to every element. SetZero is the cheaper
	// all-zero-bytes variant.
	Set(value T) error
	SetZero() error
}

// Continuous is a Memory whose elements are directly addressable from the
// host. Slice aliases the underlying storage: it is valid until Destroy and
// observes device writes only after synchronization.
type Continuous[T dtypes.Supported] interface {
	Memory[T]
	Slice() []T
}

// elemSize is a shorthand for the byte size of T.
func elemSize[T dtypes.Supported]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// sliceAddr returns the address of a slice's first element.
func sliceAddr[T dtypes.Supported](data []T) driver.Pointer {
	return driver.Pointer(uintptr(unsafe.Pointer(unsafe.SliceData(data))))
}

// fillSlice assigns value to every element of host-visible storage.
func fillSlice[T dtypes.Supported](data []T, value T) {
	for i := range data {
		data[i] = value
	}
}

// memsetDevice fills n elements at p with value's raw bytes, choosing the
// fill granularity from the element size. 8-byte elements have no native
// fill, so the value's two 4-byte words are written as two interleaved
// strided fills; reading the words through the value's own memory keeps the
// result correct on either endianness.
func memsetDevice[T dtypes.Supported](c *Context, p driver.Pointer, n int, value T) error {
	return c.contexted(func(api driver.API) error {
		switch elemSize[T]() {
		case 1:
			v := *(*uint8)(unsafe.Pointer(&value))
			return call("MemsetD8", api.MemsetD8(p, v, n))
		case 2:
			v := *(*uint16)(unsafe.Pointer(&value))
			return call("MemsetD16", api.MemsetD16(p, v, n))
		case 4:
			v := *(*uint32)(unsafe.Pointer(&value))
			return call("MemsetD32", api.MemsetD32(p, v, n))
		case 8:
			words := (*[2]uint32)(unsafe.Pointer(&value))
			const pitch = 8
			if err := call("MemsetD2D32", api.MemsetD2D32(p, pitch, words[0], 1, n)); err != nil {
				return err
			}
			return call("MemsetD2D32", api.MemsetD2D32(p+4, pitch, words[1], 1, n))
		}
		panic("unreachable: dtypes.Supported covers only 1, 2, 4 and 8 byte elements")
	})
}

// checkNumElem panics on a non-positive element count. Zero-sized memories
// have no head address and no defined copy semantics, so requesting one is a
// programming error rather than a runtime condition.
func checkNumElem(numElem int) {
	if numElem <= 0 {
		panic("accel: memory must have at least one element")
	}
}
