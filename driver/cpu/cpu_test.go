package cpu

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/accelkit/accelgo/driver"
	"github.com/accelkit/accelgo/dtypes"
)

// newTestBackend returns an isolated, initialized backend with a bound
// context, so tests do not share state with the registered "cpu" instance.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New()
	require.Equal(t, driver.StatusSuccess, b.Init(0))
	ctx, st := b.CtxCreate(0, 0)
	require.Equal(t, driver.StatusSuccess, st)
	t.Cleanup(func() { b.CtxDestroy(ctx) })
	return b
}

func TestRequiresInitialization(t *testing.T) {
	b := New()
	_, st := b.DeviceCount()
	require.Equal(t, driver.StatusErrorNotInitialized, st)
}

func TestMemoryRequiresCurrentContext(t *testing.T) {
	b := New()
	require.Equal(t, driver.StatusSuccess, b.Init(0))
	_, st := b.MemAlloc(64)
	require.Equal(t, driver.StatusErrorInvalidContext, st)
}

func TestPointerIntrospection(t *testing.T) {
	b := newTestBackend(t)

	dev, st := b.MemAlloc(256)
	require.Equal(t, driver.StatusSuccess, st)
	managed, st := b.MemAllocManaged(256, driver.AttachGlobal)
	require.Equal(t, driver.StatusSuccess, st)
	host, st := b.MemAllocHost(256)
	require.Equal(t, driver.StatusSuccess, st)

	class, st := b.PointerGetAttribute(driver.AttrMemoryClass, dev)
	require.Equal(t, driver.StatusSuccess, st)
	require.Equal(t, uint64(driver.MemClassDevice), class)

	// Interior pointers resolve to the owning allocation.
	id1, st := b.PointerGetAttribute(driver.AttrBufferID, dev)
	require.Equal(t, driver.StatusSuccess, st)
	id2, st := b.PointerGetAttribute(driver.AttrBufferID, dev+100)
	require.Equal(t, driver.StatusSuccess, st)
	require.Equal(t, id1, id2)

	isManaged, st := b.PointerGetAttribute(driver.AttrIsManaged, managed)
	require.Equal(t, driver.StatusSuccess, st)
	require.Equal(t, uint64(1), isManaged)
	isManaged, st = b.PointerGetAttribute(driver.AttrIsManaged, dev)
	require.Equal(t, driver.StatusSuccess, st)
	require.Equal(t, uint64(0), isManaged)

	hostClass, st := b.PointerGetAttribute(driver.AttrMemoryClass, host)
	require.Equal(t, driver.StatusSuccess, st)
	require.Equal(t, uint64(driver.MemClassHost), hostClass)

	// Untracked addresses are rejected.
	_, st = b.PointerGetAttribute(driver.AttrBufferID, driver.Pointer(12345))
	require.Equal(t, driver.StatusErrorInvalidValue, st)

	require.Equal(t, driver.StatusSuccess, b.MemFree(dev))
	require.Equal(t, driver.StatusSuccess, b.MemFree(managed))
	require.Equal(t, driver.StatusSuccess, b.MemFreeHost(host))

	// Freed addresses are untracked again.
	_, st = b.PointerGetAttribute(driver.AttrBufferID, dev)
	require.Equal(t, driver.StatusErrorInvalidValue, st)
}

func TestAllocationAlignment(t *testing.T) {
	b := newTestBackend(t)
	for i := 0; i < 8; i++ {
		p, st := b.MemAlloc(1 + i*7)
		require.Equal(t, driver.StatusSuccess, st)
		require.Zero(t, p%bufferAlignment)
	}
}

func TestCopyValidatesDeviceRanges(t *testing.T) {
	b := newTestBackend(t)

	dev, st := b.MemAlloc(64)
	require.Equal(t, driver.StatusSuccess, st)
	hostBuf := make([]byte, 128)
	hostPtr := driver.Pointer(uintptr(unsafe.Pointer(&hostBuf[0])))

	// In-bounds works, out-of-bounds is rejected before any write.
	require.Equal(t, driver.StatusSuccess, b.MemcpyHtoD(dev, hostPtr, 64))
	require.Equal(t, driver.StatusErrorInvalidValue, b.MemcpyHtoD(dev, hostPtr, 65))
	require.Equal(t, driver.StatusErrorInvalidValue, b.MemcpyDtoH(hostPtr, hostPtr, 16))
}

func TestMemset2DStride(t *testing.T) {
	b := newTestBackend(t)

	p, st := b.MemAlloc(4 * 8)
	require.Equal(t, driver.StatusSuccess, st)
	require.Equal(t, driver.StatusSuccess, b.MemsetD8(p, 0, 32))

	// Write the first word of each 8-byte element, leave the second alone.
	require.Equal(t, driver.StatusSuccess, b.MemsetD2D32(p, 8, 0xAAAAAAAA, 1, 4))
	out := make([]uint32, 8)
	outPtr := driver.Pointer(uintptr(unsafe.Pointer(&out[0])))
	require.Equal(t, driver.StatusSuccess, b.MemcpyDtoH(outPtr, p, 32))
	for i, v := range out {
		if i%2 == 0 {
			require.Equal(t, uint32(0xAAAAAAAA), v)
		} else {
			require.Zero(t, v)
		}
	}
}

func TestStreamQueryNotReadyWhilePending(t *testing.T) {
	b := newTestBackend(t)

	s, st := b.StreamCreate(0)
	require.Equal(t, driver.StatusSuccess, st)

	release := make(chan struct{})
	b.mu.Lock()
	sim, _ := b.streamFor(s)
	b.mu.Unlock()
	sim.submit(func() driver.Status {
		<-release
		return driver.StatusSuccess
	})

	require.Equal(t, driver.StatusErrorNotReady, b.StreamQuery(s))
	close(release)
	require.Equal(t, driver.StatusSuccess, b.StreamSynchronize(s))
	require.Equal(t, driver.StatusSuccess, b.StreamQuery(s))
	require.Equal(t, driver.StatusSuccess, b.StreamDestroy(s))
}

func TestStreamStickyError(t *testing.T) {
	b := newTestBackend(t)

	s, st := b.StreamCreate(0)
	require.Equal(t, driver.StatusSuccess, st)
	b.mu.Lock()
	sim, _ := b.streamFor(s)
	b.mu.Unlock()
	sim.submit(func() driver.Status { return driver.StatusErrorInvalidValue })
	sim.submit(func() driver.Status { return driver.StatusSuccess })

	// The first failure is reported and then cleared.
	require.Equal(t, driver.StatusErrorInvalidValue, b.StreamSynchronize(s))
	require.Equal(t, driver.StatusSuccess, b.StreamSynchronize(s))
	require.Equal(t, driver.StatusSuccess, b.StreamDestroy(s))
}

func TestStreamWaitersSafeAfterStop(t *testing.T) {
	s := newStream(0)
	require.True(t, s.submit(func() driver.Status { return driver.StatusSuccess }))
	require.Equal(t, driver.StatusSuccess, s.synchronize())

	// A stopped stream keeps answering waiters and rejects new work.
	s.stop()
	require.Equal(t, driver.StatusSuccess, s.synchronize())
	s.drain()
	require.False(t, s.submit(func() driver.Status { return driver.StatusSuccess }))
}

func TestContextSynchronizeDuringStreamChurn(t *testing.T) {
	b := newTestBackend(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s, st := b.StreamCreate(0)
			if st != driver.StatusSuccess {
				return
			}
			b.StreamDestroy(s)
		}
	}()
	for {
		select {
		case <-done:
			return
		default:
			require.Equal(t, driver.StatusSuccess, b.CtxSynchronize())
		}
	}
}

func TestStreamErrorSurvivesContextSynchronize(t *testing.T) {
	b := newTestBackend(t)

	s, st := b.StreamCreate(0)
	require.Equal(t, driver.StatusSuccess, st)
	p, st := b.MemAlloc(64)
	require.Equal(t, driver.StatusSuccess, st)

	// The copy overruns the allocation, so the queued task fails.
	require.Equal(t, driver.StatusSuccess, b.MemcpyDtoDAsync(p, p, 128, s))

	// Context-wide synchronization waits for the stream but leaves the
	// failure for the stream's own entry points to report.
	require.Equal(t, driver.StatusSuccess, b.CtxSynchronize())
	require.Equal(t, driver.StatusErrorInvalidValue, b.StreamQuery(s))
	require.Equal(t, driver.StatusErrorInvalidValue, b.StreamSynchronize(s))
	require.Equal(t, driver.StatusSuccess, b.StreamSynchronize(s))
	require.Equal(t, driver.StatusSuccess, b.StreamDestroy(s))
}

func TestCtxDestroyReclaimsOwnedResources(t *testing.T) {
	b := newTestBackend(t)

	ctx, st := b.CtxCreate(0, 0)
	require.Equal(t, driver.StatusSuccess, st)

	p, st := b.MemAlloc(64)
	require.Equal(t, driver.StatusSuccess, st)
	s, st := b.StreamCreate(0)
	require.Equal(t, driver.StatusSuccess, st)
	arr, st := b.ArrayCreate(driver.ArrayDescriptor{Width: 4, ElemBytes: 4})
	require.Equal(t, driver.StatusSuccess, st)
	image := NewProgram().Func("noop", nil, func(Thread, Args) {}).Build()
	m, st := b.ModuleLoadData(image)
	require.Equal(t, driver.StatusSuccess, st)
	f, st := b.ModuleGetFunction(m, "noop")
	require.Equal(t, driver.StatusSuccess, st)

	require.Equal(t, driver.StatusSuccess, b.CtxDestroy(ctx))
	ctx2, st := b.CtxCreate(0, 0)
	require.Equal(t, driver.StatusSuccess, st)
	defer b.CtxDestroy(ctx2)

	// Everything the dead context owned is gone; its handles no longer
	// resolve and its pointers are untracked.
	_, st = b.PointerGetAttribute(driver.AttrBufferID, p)
	require.Equal(t, driver.StatusErrorInvalidValue, st)
	require.Equal(t, driver.StatusErrorInvalidHandle, b.StreamQuery(s))
	require.Equal(t, driver.StatusErrorInvalidHandle, b.ArrayDestroy(arr))
	require.Equal(t, driver.StatusErrorInvalidHandle, b.ModuleUnload(m))
	_, st = b.FuncParamCount(f)
	require.Equal(t, driver.StatusErrorInvalidHandle, st)
}

func TestProgramImageRoundTrip(t *testing.T) {
	b := newTestBackend(t)

	image := NewProgram().
		Func("double", []driver.ParamInfo{
			{Class: driver.ParamScalar, DType: dtypes.Int32},
			{Class: driver.ParamMutPtr, DType: dtypes.Int32},
		}, func(th Thread, args Args) {
			count := int(ScalarArg[int32](args, 0))
			if i := th.Index(); i < count {
				SliceArg[int32](args, 1, count)[i] *= 2
			}
		}).
		Build()

	m, st := b.ModuleLoadData(image)
	require.Equal(t, driver.StatusSuccess, st)
	f, st := b.ModuleGetFunction(m, "double")
	require.Equal(t, driver.StatusSuccess, st)

	count, st := b.FuncParamCount(f)
	require.Equal(t, driver.StatusSuccess, st)
	require.Equal(t, 2, count)
	info, st := b.FuncParamInfo(f, 1)
	require.Equal(t, driver.StatusSuccess, st)
	require.Equal(t, driver.ParamMutPtr, info.Class)
	require.Equal(t, dtypes.Int32, info.DType)

	_, st = b.ModuleGetFunction(m, "missing")
	require.Equal(t, driver.StatusErrorNotFound, st)
	_, st = b.ModuleLoadData([]byte(`{"magic":"bogus"}`))
	require.Equal(t, driver.StatusErrorInvalidImage, st)

	// Launch it against a device buffer.
	const n = 100
	dev, st := b.MemAlloc(n * 4)
	require.Equal(t, driver.StatusSuccess, st)
	require.Equal(t, driver.StatusSuccess, b.MemsetD32(dev, 3, n))

	nArg := int32(n)
	params := []unsafe.Pointer{unsafe.Pointer(&nArg), unsafe.Pointer(&dev)}
	require.Equal(t, driver.StatusSuccess,
		b.LaunchKernel(f, 1, 1, 1, 128, 1, 1, 0, driver.DefaultStream, params))
	require.Equal(t, driver.StatusSuccess, b.CtxSynchronize())

	out := unsafe.Slice((*int32)(unsafe.Pointer(uintptr(dev))), n)
	for _, v := range out {
		require.Equal(t, int32(6), v)
	}
	require.Equal(t, driver.StatusSuccess, b.ModuleUnload(m))
}

func TestLaunchValidatesArity(t *testing.T) {
	b := newTestBackend(t)
	image := NewProgram().Func("noop", nil, func(Thread, Args) {}).Build()
	m, st := b.ModuleLoadData(image)
	require.Equal(t, driver.StatusSuccess, st)
	f, st := b.ModuleGetFunction(m, "noop")
	require.Equal(t, driver.StatusSuccess, st)

	var x int32
	require.Equal(t, driver.StatusErrorInvalidValue,
		b.LaunchKernel(f, 1, 1, 1, 1, 1, 1, 0, driver.DefaultStream,
			[]unsafe.Pointer{unsafe.Pointer(&x)}))
	require.Equal(t, driver.StatusErrorInvalidValue,
		b.LaunchKernel(f, 0, 1, 1, 1, 1, 1, 0, driver.DefaultStream, nil))
}

func TestAssertPoisonsLaunch(t *testing.T) {
	b := newTestBackend(t)
	image := NewProgram().
		Func("trap", nil, func(th Thread, _ Args) {
			Assert(th.Index() < 4, "index %d out of range", th.Index())
		}).
		Build()
	m, st := b.ModuleLoadData(image)
	require.Equal(t, driver.StatusSuccess, st)
	f, st := b.ModuleGetFunction(m, "trap")
	require.Equal(t, driver.StatusSuccess, st)

	require.Equal(t, driver.StatusSuccess,
		b.LaunchKernel(f, 1, 1, 1, 8, 1, 1, 0, driver.DefaultStream, nil))
	require.Equal(t, driver.StatusErrorAssert, b.CtxSynchronize())
}

func TestGridGeometryCoversAllAxes(t *testing.T) {
	b := newTestBackend(t)

	var mu sync.Mutex
	seen := make(map[Dim3]int)
	image := NewProgram().
		Func("count", nil, func(th Thread, _ Args) {
			mu.Lock()
			seen[th.BlockIdx]++
			mu.Unlock()
		}).
		Build()
	m, st := b.ModuleLoadData(image)
	require.Equal(t, driver.StatusSuccess, st)
	f, st := b.ModuleGetFunction(m, "count")
	require.Equal(t, driver.StatusSuccess, st)

	require.Equal(t, driver.StatusSuccess,
		b.LaunchKernel(f, 2, 3, 2, 2, 2, 1, 0, driver.DefaultStream, nil))
	require.Equal(t, driver.StatusSuccess, b.CtxSynchronize())

	require.Len(t, seen, 2*3*2)
	for _, threads := range seen {
		require.Equal(t, 4, threads)
	}
}

func TestHostRegisterTracksRange(t *testing.T) {
	b := newTestBackend(t)

	buf := make([]byte, 256)
	p := driver.Pointer(uintptr(unsafe.Pointer(&buf[0])))
	require.Equal(t, driver.StatusSuccess, b.MemHostRegister(p, len(buf), 0))

	class, st := b.PointerGetAttribute(driver.AttrMemoryClass, p+10)
	require.Equal(t, driver.StatusSuccess, st)
	require.Equal(t, uint64(driver.MemClassHost), class)

	// Double registration is rejected.
	require.Equal(t, driver.StatusErrorInvalidValue, b.MemHostRegister(p, len(buf), 0))

	require.Equal(t, driver.StatusSuccess, b.MemHostUnregister(p))
	require.Equal(t, driver.StatusErrorInvalidValue, b.MemHostUnregister(p))
}
