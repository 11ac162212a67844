package cpu

import (
	"unsafe"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	"github.com/accelkit/accelgo/driver"
)

// bufferAlignment matches what device allocators typically hand out, so
// address arithmetic in client code behaves the same on this backend.
const bufferAlignment = 64

// allocation is one entry of the address table. Every pointer handed out by
// the backend resolves back to its entry by range scan, which is what powers
// PointerGetAttribute.
type allocation struct {
	base    driver.Pointer
	size    int
	id      uint64
	owner   driver.Ctx
	class   driver.MemClass
	managed bool
	mapped  bool

	// backing keeps the Go allocation alive; nil for registered ranges,
	// whose memory the client owns.
	backing []byte
}

func (a *allocation) contains(p driver.Pointer, n int) bool {
	return p >= a.base && uint64(p)+uint64(n) <= uint64(a.base)+uint64(a.size)
}

// alignedBytes over-allocates and returns the first aligned address inside.
func alignedBytes(size int) ([]byte, driver.Pointer) {
	buf := make([]byte, size+bufferAlignment)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	pad := (bufferAlignment - addr%bufferAlignment) % bufferAlignment
	return buf, driver.Pointer(addr + pad)
}

// newAlloc must be called with b.mu held.
func (b *Backend) newAlloc(size int, class driver.MemClass, managed bool) *allocation {
	buf, base := alignedBytes(size)
	b.nextID++
	a := &allocation{
		base:    base,
		size:    size,
		id:      b.nextID,
		owner:   b.current,
		class:   class,
		managed: managed,
		mapped:  class == driver.MemClassHost || managed,
		backing: buf,
	}
	b.allocs = append(b.allocs, a)
	return a
}

// lookup must be called with b.mu held.
func (b *Backend) lookup(p driver.Pointer) *allocation {
	for _, a := range b.allocs {
		if a.contains(p, 0) && p < a.base+driver.Pointer(a.size) {
			return a
		}
	}
	return nil
}

// checkRange validates that [p, p+n) lies inside a single tracked allocation
// of the given class. Must be called with b.mu held.
func (b *Backend) checkRange(p driver.Pointer, n int, class driver.MemClass) driver.Status {
	a := b.lookup(p)
	if a == nil || a.class != class || !a.contains(p, n) {
		return driver.StatusErrorInvalidValue
	}
	return driver.StatusSuccess
}

// deviceUsed must be called with b.mu held.
func (b *Backend) deviceUsed() uint64 {
	var used uint64
	for _, a := range b.allocs {
		if a.class == driver.MemClassDevice {
			used += uint64(a.size)
		}
	}
	return used
}

func (b *Backend) MemGetInfo() (free, total uint64, st driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return 0, 0, st
	}
	total = b.devices[b.ctxs[b.current].device].totalMem
	used := b.deviceUsed()
	if used > total {
		used = total
	}
	return total - used, total, driver.StatusSuccess
}

func (b *Backend) MemAlloc(byteSize int) (driver.Pointer, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return 0, st
	}
	if byteSize <= 0 {
		return 0, driver.StatusErrorInvalidValue
	}
	return b.newAlloc(byteSize, driver.MemClassDevice, false).base, driver.StatusSuccess
}

func (b *Backend) MemAllocManaged(byteSize int, flags uint32) (driver.Pointer, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return 0, st
	}
	if byteSize <= 0 || flags != driver.AttachGlobal {
		return 0, driver.StatusErrorInvalidValue
	}
	return b.newAlloc(byteSize, driver.MemClassDevice, true).base, driver.StatusSuccess
}

func (b *Backend) MemFree(p driver.Pointer) driver.Status {
	return b.release(p, driver.MemClassDevice)
}

func (b *Backend) MemAllocHost(byteSize int) (driver.Pointer, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return 0, st
	}
	if byteSize <= 0 {
		return 0, driver.StatusErrorInvalidValue
	}
	a := b.newAlloc(byteSize, driver.MemClassHost, false)
	off := int(uintptr(a.base) - uintptr(unsafe.Pointer(unsafe.SliceData(a.backing))))
	if err := unix.Mlock(a.backing[off : off+byteSize]); err != nil {
		// Best effort: RLIMIT_MEMLOCK may be low in sandboxes. The memory
		// still works, it is just not actually pinned.
		klog.V(1).Infof("cpu backend: mlock of %d bytes failed, memory not pinned: %v", byteSize, err)
	}
	return a.base, driver.StatusSuccess
}

func (b *Backend) MemFreeHost(p driver.Pointer) driver.Status {
	return b.release(p, driver.MemClassHost)
}

// release removes an allocation by its base address.
func (b *Backend) release(p driver.Pointer, class driver.MemClass) driver.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return st
	}
	for i, a := range b.allocs {
		// Registered ranges (backing == nil) are owned by the client and only
		// leave the table through MemHostUnregister.
		if a.base == p && a.class == class && a.backing != nil {
			b.munlockLocked(a)
			b.allocs = append(b.allocs[:i], b.allocs[i+1:]...)
			return driver.StatusSuccess
		}
	}
	return driver.StatusErrorInvalidValue
}

// munlockLocked undoes the pinning of an owned page-locked allocation.
// Must be called with b.mu held.
func (b *Backend) munlockLocked(a *allocation) {
	if a.class != driver.MemClassHost || a.backing == nil {
		return
	}
	off := int(uintptr(a.base) - uintptr(unsafe.Pointer(unsafe.SliceData(a.backing))))
	if err := unix.Munlock(a.backing[off : off+a.size]); err != nil {
		klog.V(2).Infof("cpu backend: munlock failed: %v", err)
	}
}

func (b *Backend) MemHostRegister(p driver.Pointer, byteSize int, flags uint32) driver.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return st
	}
	if p == 0 || byteSize <= 0 {
		return driver.StatusErrorInvalidValue
	}
	if a := b.lookup(p); a != nil {
		// Already tracked, either by an allocator call or a prior register.
		return driver.StatusErrorInvalidValue
	}
	b.nextID++
	b.allocs = append(b.allocs, &allocation{
		base:   p,
		size:   byteSize,
		id:     b.nextID,
		owner:  b.current,
		class:  driver.MemClassHost,
		mapped: true,
	})
	return driver.StatusSuccess
}

func (b *Backend) MemHostUnregister(p driver.Pointer) driver.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return st
	}
	for i, a := range b.allocs {
		if a.base == p && a.class == driver.MemClassHost && a.backing == nil {
			b.allocs = append(b.allocs[:i], b.allocs[i+1:]...)
			return driver.StatusSuccess
		}
	}
	return driver.StatusErrorInvalidValue
}

func (b *Backend) PointerGetAttribute(attr driver.PointerAttribute, p driver.Pointer) (uint64, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return 0, st
	}
	a := b.lookup(p)
	if a == nil {
		if arr, found := b.arrays[driver.Array(p)]; found {
			return arrayAttribute(attr, arr)
		}
		return 0, driver.StatusErrorInvalidValue
	}
	switch attr {
	case driver.AttrMemoryClass:
		return uint64(a.class), driver.StatusSuccess
	case driver.AttrBufferID:
		return a.id, driver.StatusSuccess
	case driver.AttrIsManaged:
		return boolAttr(a.managed), driver.StatusSuccess
	case driver.AttrIsMapped:
		return boolAttr(a.mapped), driver.StatusSuccess
	}
	return 0, driver.StatusErrorInvalidValue
}

func boolAttr(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// rawBytes reinterprets an address range as a byte slice. The backend lives
// in the host address space, so every pointer it hands out is dereferenceable.
func rawBytes(p driver.Pointer, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(p))), n)
}

func (b *Backend) MemcpyHtoD(dst driver.Pointer, src driver.Pointer, byteSize int) driver.Status {
	return b.copyChecked(dst, driver.MemClassDevice, src, 0, byteSize)
}

func (b *Backend) MemcpyDtoH(dst driver.Pointer, src driver.Pointer, byteSize int) driver.Status {
	return b.copyChecked(dst, 0, src, driver.MemClassDevice, byteSize)
}

func (b *Backend) MemcpyDtoD(dst driver.Pointer, src driver.Pointer, byteSize int) driver.Status {
	return b.copyChecked(dst, driver.MemClassDevice, src, driver.MemClassDevice, byteSize)
}

// copyChecked validates device-side ranges (class != 0) and performs the
// copy. Host-side addresses may be arbitrary client memory.
func (b *Backend) copyChecked(dst driver.Pointer, dstClass driver.MemClass,
	src driver.Pointer, srcClass driver.MemClass, byteSize int) driver.Status {

	b.mu.Lock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		b.mu.Unlock()
		return st
	}
	if byteSize < 0 || dst == 0 || src == 0 {
		b.mu.Unlock()
		return driver.StatusErrorInvalidValue
	}
	if dstClass != 0 {
		if st := b.checkRange(dst, byteSize, dstClass); st != driver.StatusSuccess {
			b.mu.Unlock()
			return st
		}
	}
	if srcClass != 0 {
		if st := b.checkRange(src, byteSize, srcClass); st != driver.StatusSuccess {
			b.mu.Unlock()
			return st
		}
	}
	b.mu.Unlock()
	copy(rawBytes(dst, byteSize), rawBytes(src, byteSize))
	return driver.StatusSuccess
}

func (b *Backend) MemcpyHtoDAsync(dst driver.Pointer, src driver.Pointer, byteSize int, s driver.Stream) driver.Status {
	return b.copyAsync(dst, driver.MemClassDevice, src, 0, byteSize, s)
}

func (b *Backend) MemcpyDtoHAsync(dst driver.Pointer, src driver.Pointer, byteSize int, s driver.Stream) driver.Status {
	return b.copyAsync(dst, 0, src, driver.MemClassDevice, byteSize, s)
}

func (b *Backend) MemcpyDtoDAsync(dst driver.Pointer, src driver.Pointer, byteSize int, s driver.Stream) driver.Status {
	return b.copyAsync(dst, driver.MemClassDevice, src, driver.MemClassDevice, byteSize, s)
}

func (b *Backend) copyAsync(dst driver.Pointer, dstClass driver.MemClass,
	src driver.Pointer, srcClass driver.MemClass, byteSize int, s driver.Stream) driver.Status {

	b.mu.Lock()
	sim, st := b.streamFor(s)
	b.mu.Unlock()
	if st != driver.StatusSuccess {
		return st
	}
	if !sim.submit(func() driver.Status {
		return b.copyChecked(dst, dstClass, src, srcClass, byteSize)
	}) {
		return driver.StatusErrorInvalidHandle
	}
	return driver.StatusSuccess
}

func (b *Backend) MemsetD8(p driver.Pointer, value uint8, n int) driver.Status {
	b.mu.Lock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		b.mu.Unlock()
		return st
	}
	if st := b.checkRange(p, n, driver.MemClassDevice); st != driver.StatusSuccess {
		b.mu.Unlock()
		return st
	}
	b.mu.Unlock()
	buf := rawBytes(p, n)
	for i := range buf {
		buf[i] = value
	}
	return driver.StatusSuccess
}

func (b *Backend) MemsetD16(p driver.Pointer, value uint16, n int) driver.Status {
	if p%2 != 0 {
		return driver.StatusErrorInvalidValue
	}
	b.mu.Lock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		b.mu.Unlock()
		return st
	}
	if st := b.checkRange(p, n*2, driver.MemClassDevice); st != driver.StatusSuccess {
		b.mu.Unlock()
		return st
	}
	b.mu.Unlock()
	buf := unsafe.Slice((*uint16)(unsafe.Pointer(uintptr(p))), n)
	for i := range buf {
		buf[i] = value
	}
	return driver.StatusSuccess
}

func (b *Backend) MemsetD32(p driver.Pointer, value uint32, n int) driver.Status {
	if p%4 != 0 {
		return driver.StatusErrorInvalidValue
	}
	b.mu.Lock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		b.mu.Unlock()
		return st
	}
	if st := b.checkRange(p, n*4, driver.MemClassDevice); st != driver.StatusSuccess {
		b.mu.Unlock()
		return st
	}
	b.mu.Unlock()
	buf := unsafe.Slice((*uint32)(unsafe.Pointer(uintptr(p))), n)
	for i := range buf {
		buf[i] = value
	}
	return driver.StatusSuccess
}

func (b *Backend) MemsetD2D32(p driver.Pointer, pitch int, value uint32, width, height int) driver.Status {
	if p%4 != 0 || pitch%4 != 0 || pitch < width*4 || width < 0 || height < 0 {
		return driver.StatusErrorInvalidValue
	}
	b.mu.Lock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		b.mu.Unlock()
		return st
	}
	if height > 0 {
		span := (height-1)*pitch + width*4
		if st := b.checkRange(p, span, driver.MemClassDevice); st != driver.StatusSuccess {
			b.mu.Unlock()
			return st
		}
	}
	b.mu.Unlock()
	for row := 0; row < height; row++ {
		buf := unsafe.Slice((*uint32)(unsafe.Pointer(uintptr(p)+uintptr(row*pitch))), width)
		for i := range buf {
			buf[i] = value
		}
	}
	return driver.StatusSuccess
}
