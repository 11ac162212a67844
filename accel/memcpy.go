package accel

import (
	"runtime"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/accelkit/accelgo/driver"
	"github.com/accelkit/accelgo/dtypes"
)

// Copy copies src's elements into dst, synchronously. Both memories must
// hold the same element count (SizeMismatchError otherwise; dst is left
// untouched) and must be distinct allocations (ErrAliasedCopy otherwise,
// since overlap behavior at the driver level is unspecified).
//
// The route is chosen from the (src kind, dst kind) pair: host to host is a
// plain element copy, every pairing touching device or array memory uses the
// matching driver entry point.
func Copy[T dtypes.Supported](dst, src Memory[T]) error {
	if err := checkCopy(dst, src); err != nil {
		return err
	}
	ctx := copyContext(dst, src)
	if ctx == nil {
		// Both endpoints are plain host slices; no driver involvement.
		copyHostElems(dst, src)
		return nil
	}
	err := ctx.contexted(func(api driver.API) error {
		return dispatchCopy(api, dst, src, driver.DefaultStream, false)
	})
	runtime.KeepAlive(dst)
	runtime.KeepAlive(src)
	return err
}

// CopyAsync issues the same checked copy on a private stream and returns an
// Event completing when the transfer does. Until the event resolves the
// destination must not be read or written; the source only needs its
// contents stable, so it stays freely host-readable.
//
// Array memory has no asynchronous route and is rejected.
func CopyAsync[T dtypes.Supported](dst, src Memory[T]) (*Event, error) {
	if err := checkCopy(dst, src); err != nil {
		return nil, err
	}
	if dst.MemoryType() == MemoryArray || src.MemoryType() == MemoryArray {
		return nil, errors.New("array memory copies cannot be issued asynchronously")
	}
	ctx := copyContext(dst, src)
	if ctx == nil {
		return nil, errors.New("async copy requires a context-owned endpoint")
	}
	return newEvent(ctx, func(api driver.API, stream driver.Stream) error {
		return dispatchCopy(api, dst, src, stream, true)
	}, dst, src)
}

func checkCopy[T dtypes.Supported](dst, src Memory[T]) error {
	if dst.NumElem() != src.NumElem() {
		return &SizeMismatchError{Dst: dst.NumElem(), Src: src.NumElem()}
	}
	if dst.HeadAddr() == src.HeadAddr() {
		return ErrAliasedCopy
	}
	return nil
}

// copyContext picks the context the transfer is issued in. Both endpoints
// carry one; prefer the destination's.
func copyContext[T dtypes.Supported](dst, src Memory[T]) *Context {
	if ctx := dst.Context(); ctx != nil {
		return ctx
	}
	return src.Context()
}

func dispatchCopy[T dtypes.Supported](api driver.API, dst, src Memory[T],
	stream driver.Stream, async bool) error {

	n := dst.ByteSize()
	dstKind, srcKind := dst.MemoryType(), src.MemoryType()

	if dstKind == MemoryArray || srcKind == MemoryArray {
		return dispatchArrayCopy(api, dst, src, n)
	}

	dstHost := dstKind == MemoryHost || dstKind == MemoryPageLocked
	srcHost := srcKind == MemoryHost || srcKind == MemoryPageLocked
	switch {
	case dstHost && srcHost:
		copyHostElems(dst, src)
		return nil
	case srcHost: // host to device
		if async {
			return call("MemcpyHtoDAsync",
				api.MemcpyHtoDAsync(dst.HeadAddr(), src.HeadAddr(), n, stream))
		}
		return call("MemcpyHtoD", api.MemcpyHtoD(dst.HeadAddr(), src.HeadAddr(), n))
	case dstHost: // device to host
		if async {
			return call("MemcpyDtoHAsync",
				api.MemcpyDtoHAsync(dst.HeadAddr(), src.HeadAddr(), n, stream))
		}
		return call("MemcpyDtoH", api.MemcpyDtoH(dst.HeadAddr(), src.HeadAddr(), n))
	default: // device to device
		if async {
			return call("MemcpyDtoDAsync",
				api.MemcpyDtoDAsync(dst.HeadAddr(), src.HeadAddr(), n, stream))
		}
		return call("MemcpyDtoD", api.MemcpyDtoD(dst.HeadAddr(), src.HeadAddr(), n))
	}
}

func dispatchArrayCopy[T dtypes.Supported](api driver.API, dst, src Memory[T], n int) error {
	dstKind, srcKind := dst.MemoryType(), src.MemoryType()
	switch {
	case dstKind == MemoryArray && srcKind == MemoryArray:
		return call("MemcpyAtoA", api.MemcpyAtoA(
			driver.Array(dst.HeadAddr()), 0, driver.Array(src.HeadAddr()), 0, n))
	case dstKind == MemoryArray && srcKind == MemoryDevice:
		return call("MemcpyDtoA", api.MemcpyDtoA(
			driver.Array(dst.HeadAddr()), 0, src.HeadAddr(), n))
	case dstKind == MemoryArray:
		return call("MemcpyHtoA", api.MemcpyHtoA(
			driver.Array(dst.HeadAddr()), 0, src.HeadAddr(), n))
	case srcKind == MemoryDevice:
		return call("MemcpyAtoD", api.MemcpyAtoD(
			dst.HeadAddr(), driver.Array(src.HeadAddr()), 0, n))
	default:
		return call("MemcpyAtoH", api.MemcpyAtoH(
			dst.HeadAddr(), driver.Array(src.HeadAddr()), 0, n))
	}
}

// copyHostElems is the host to host route: both endpoints are directly
// addressable, no driver involvement needed.
func copyHostElems[T dtypes.Supported](dst, src Memory[T]) {
	n := dst.NumElem()
	dstSlice := unsafe.Slice((*T)(unsafe.Pointer(uintptr(dst.HeadAddr()))), n)
	srcSlice := unsafe.Slice((*T)(unsafe.Pointer(uintptr(src.HeadAddr()))), n)
	copy(dstSlice, srcSlice)
}
