package cpu

import (
	"github.com/accelkit/accelgo/driver"
)

// arrayAlloc backs one opaque array. Arrays live outside the linear address
// table: their handle is not a dereferenceable pointer, so element access
// only happens through the staged copy entry points below.
type arrayAlloc struct {
	id    uint64
	owner driver.Ctx
	desc  driver.ArrayDescriptor
	data  []byte
}

func arrayAttribute(attr driver.PointerAttribute, arr *arrayAlloc) (uint64, driver.Status) {
	switch attr {
	case driver.AttrMemoryClass:
		return uint64(driver.MemClassArray), driver.StatusSuccess
	case driver.AttrBufferID:
		return arr.id, driver.StatusSuccess
	case driver.AttrIsManaged, driver.AttrIsMapped:
		return 0, driver.StatusSuccess
	}
	return 0, driver.StatusErrorInvalidValue
}

func (b *Backend) ArrayCreate(desc driver.ArrayDescriptor) (driver.Array, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return 0, st
	}
	if desc.Width <= 0 || desc.Height < 0 || desc.Depth < 0 || desc.ElemBytes <= 0 {
		return 0, driver.StatusErrorInvalidValue
	}
	b.nextID++
	h := driver.Array(b.handle())
	b.arrays[h] = &arrayAlloc{
		id:    b.nextID,
		owner: b.current,
		desc:  desc,
		data:  make([]byte, desc.NumElem()*desc.ElemBytes),
	}
	return h, driver.StatusSuccess
}

func (b *Backend) ArrayDestroy(a driver.Array) driver.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return st
	}
	if _, found := b.arrays[a]; !found {
		return driver.StatusErrorInvalidHandle
	}
	delete(b.arrays, a)
	return driver.StatusSuccess
}

// arrayRange must be called with b.mu held.
func (b *Backend) arrayRange(a driver.Array, offset, byteSize int) ([]byte, driver.Status) {
	arr, found := b.arrays[a]
	if !found {
		return nil, driver.StatusErrorInvalidHandle
	}
	if offset < 0 || byteSize < 0 || offset+byteSize > len(arr.data) {
		return nil, driver.StatusErrorInvalidValue
	}
	return arr.data[offset : offset+byteSize], driver.StatusSuccess
}

func (b *Backend) MemcpyHtoA(dst driver.Array, dstOffset int, src driver.Pointer, byteSize int) driver.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return st
	}
	buf, st := b.arrayRange(dst, dstOffset, byteSize)
	if st != driver.StatusSuccess {
		return st
	}
	copy(buf, rawBytes(src, byteSize))
	return driver.StatusSuccess
}

func (b *Backend) MemcpyAtoH(dst driver.Pointer, src driver.Array, srcOffset int, byteSize int) driver.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return st
	}
	buf, st := b.arrayRange(src, srcOffset, byteSize)
	if st != driver.StatusSuccess {
		return st
	}
	copy(rawBytes(dst, byteSize), buf)
	return driver.StatusSuccess
}

func (b *Backend) MemcpyAtoA(dst driver.Array, dstOffset int, src driver.Array, srcOffset int, byteSize int) driver.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return st
	}
	dstBuf, st := b.arrayRange(dst, dstOffset, byteSize)
	if st != driver.StatusSuccess {
		return st
	}
	srcBuf, st := b.arrayRange(src, srcOffset, byteSize)
	if st != driver.StatusSuccess {
		return st
	}
	copy(dstBuf, srcBuf)
	return driver.StatusSuccess
}

func (b *Backend) MemcpyDtoA(dst driver.Array, dstOffset int, src driver.Pointer, byteSize int) driver.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return st
	}
	if st := b.checkRange(src, byteSize, driver.MemClassDevice); st != driver.StatusSuccess {
		return st
	}
	buf, st := b.arrayRange(dst, dstOffset, byteSize)
	if st != driver.StatusSuccess {
		return st
	}
	copy(buf, rawBytes(src, byteSize))
	return driver.StatusSuccess
}

func (b *Backend) MemcpyAtoD(dst driver.Pointer, src driver.Array, srcOffset int, byteSize int) driver.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return st
	}
	if st := b.checkRange(dst, byteSize, driver.MemClassDevice); st != driver.StatusSuccess {
		return st
	}
	buf, st := b.arrayRange(src, srcOffset, byteSize)
	if st != driver.StatusSuccess {
		return st
	}
	copy(rawBytes(dst, byteSize), buf)
	return driver.StatusSuccess
}
