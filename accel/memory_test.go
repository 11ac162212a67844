package accel_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/accelkit/accelgo/accel"
	"github.com/accelkit/accelgo/driver"
)

func TestDeviceMemoryReadBackAfterSetZero(t *testing.T) {
	ctx := getTestContext(t)

	dev, err := accel.NewDeviceMemory[int32](ctx, 12)
	require.NoError(t, err)
	defer func() { require.NoError(t, dev.Destroy()) }()
	require.Equal(t, 12, dev.NumElem())
	require.Equal(t, 48, dev.ByteSize())
	require.Equal(t, accel.MemoryDevice, dev.MemoryType())

	require.NoError(t, dev.SetZero())

	host, err := accel.NewPageLockedMemory[int32](ctx, 12)
	require.NoError(t, err)
	defer func() { require.NoError(t, host.Destroy()) }()
	require.NoError(t, host.Set(-1))

	require.NoError(t, accel.Copy[int32](host, dev))
	for _, v := range host.Slice() {
		require.Equal(t, int32(0), v)
	}
}

func TestDeviceMemorySetAndCopyToHost(t *testing.T) {
	ctx := getTestContext(t)

	dev, err := accel.NewDeviceMemory[int32](ctx, 4)
	require.NoError(t, err)
	defer func() { require.NoError(t, dev.Destroy()) }()
	require.NoError(t, dev.Set(1234))

	host, err := accel.NewPageLockedMemory[int32](ctx, 4)
	require.NoError(t, err)
	defer func() { require.NoError(t, host.Destroy()) }()
	require.NoError(t, accel.Copy[int32](host, dev))
	require.Equal(t, []int32{1234, 1234, 1234, 1234}, host.Slice())
}

func TestSetCoversAllElementWidths(t *testing.T) {
	ctx := getTestContext(t)

	t.Run("uint8", func(t *testing.T) {
		m, err := accel.NewDeviceMemory[uint8](ctx, 5)
		require.NoError(t, err)
		defer func() { require.NoError(t, m.Destroy()) }()
		require.NoError(t, m.Set(0xAB))
		require.NoError(t, ctx.Synchronize())
		for _, v := range m.Slice() {
			require.Equal(t, uint8(0xAB), v)
		}
	})
	t.Run("float16", func(t *testing.T) {
		m, err := accel.NewDeviceMemory[float16.Float16](ctx, 5)
		require.NoError(t, err)
		defer func() { require.NoError(t, m.Destroy()) }()
		want := float16.Fromfloat32(1.5)
		require.NoError(t, m.Set(want))
		require.NoError(t, ctx.Synchronize())
		for _, v := range m.Slice() {
			require.Equal(t, want, v)
		}
	})
	t.Run("float32", func(t *testing.T) {
		m, err := accel.NewDeviceMemory[float32](ctx, 5)
		require.NoError(t, err)
		defer func() { require.NoError(t, m.Destroy()) }()
		require.NoError(t, m.Set(3.25))
		require.NoError(t, ctx.Synchronize())
		for _, v := range m.Slice() {
			require.Equal(t, float32(3.25), v)
		}
	})
}

// 64-bit elements have no native fill: the value is written as two 32-bit
// strided fills. The pattern below has distinct words, so a wrong word
// order or stride shows up immediately.
func TestSet64BitElements(t *testing.T) {
	ctx := getTestContext(t)

	t.Run("uint64", func(t *testing.T) {
		m, err := accel.NewDeviceMemory[uint64](ctx, 7)
		require.NoError(t, err)
		defer func() { require.NoError(t, m.Destroy()) }()
		const want = uint64(0xDEADBEEF_01234567)
		require.NoError(t, m.Set(want))
		require.NoError(t, ctx.Synchronize())
		for _, v := range m.Slice() {
			require.Equal(t, want, v)
		}
	})
	t.Run("float64", func(t *testing.T) {
		m, err := accel.NewDeviceMemory[float64](ctx, 7)
		require.NoError(t, err)
		defer func() { require.NoError(t, m.Destroy()) }()
		require.NoError(t, m.Set(math.Pi))
		require.NoError(t, ctx.Synchronize())
		for _, v := range m.Slice() {
			require.Equal(t, math.Pi, v)
		}
	})
}

func TestZeroElementAllocationPanics(t *testing.T) {
	ctx := getTestContext(t)
	require.Panics(t, func() { _, _ = accel.NewDeviceMemory[float32](ctx, 0) })
	require.Panics(t, func() { _, _ = accel.NewDeviceMemory[float32](ctx, -3) })
	require.Panics(t, func() { _, _ = accel.NewPageLockedMemory[float32](ctx, 0) })
	require.Panics(t, func() { _, _ = accel.NewRegisteredMemory(ctx, []float32{}) })
	require.Panics(t, func() { _, _ = accel.NewArray1D[float32](ctx, 0) })
}

func TestCopySizeMismatchLeavesDestinationUntouched(t *testing.T) {
	ctx := getTestContext(t)

	dst, err := accel.NewDeviceMemory[int32](ctx, 4)
	require.NoError(t, err)
	defer func() { require.NoError(t, dst.Destroy()) }()
	require.NoError(t, dst.Set(7))

	src, err := accel.NewDeviceMemory[int32](ctx, 6)
	require.NoError(t, err)
	defer func() { require.NoError(t, src.Destroy()) }()
	require.NoError(t, src.Set(1))

	err = accel.Copy[int32](dst, src)
	var mismatch *accel.SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, 4, mismatch.Dst)
	require.Equal(t, 6, mismatch.Src)

	require.NoError(t, ctx.Synchronize())
	for _, v := range dst.Slice() {
		require.Equal(t, int32(7), v)
	}
}

func TestCopyRejectsAliasedMemory(t *testing.T) {
	ctx := getTestContext(t)

	m, err := accel.NewDeviceMemory[int32](ctx, 4)
	require.NoError(t, err)
	defer func() { require.NoError(t, m.Destroy()) }()

	err = accel.Copy[int32](m, m)
	require.ErrorIs(t, err, accel.ErrAliasedCopy)
}

func TestCopyAllKindPairings(t *testing.T) {
	ctx := getTestContext(t)
	const n = 16

	registeredBacking := make([]int32, n)
	registered, err := accel.NewRegisteredMemory(ctx, registeredBacking)
	require.NoError(t, err)
	defer func() { require.NoError(t, registered.Destroy()) }()
	require.Equal(t, accel.MemoryHost, registered.MemoryType())

	pinned, err := accel.NewPageLockedMemory[int32](ctx, n)
	require.NoError(t, err)
	defer func() { require.NoError(t, pinned.Destroy()) }()

	dev1, err := accel.NewDeviceMemory[int32](ctx, n)
	require.NoError(t, err)
	defer func() { require.NoError(t, dev1.Destroy()) }()
	dev2, err := accel.NewDeviceMemory[int32](ctx, n)
	require.NoError(t, err)
	defer func() { require.NoError(t, dev2.Destroy()) }()

	arr, err := accel.NewArray1D[int32](ctx, n)
	require.NoError(t, err)
	defer func() { require.NoError(t, arr.Destroy()) }()

	for i := range registeredBacking {
		registeredBacking[i] = int32(i * 3)
	}

	// host -> host
	require.NoError(t, accel.Copy[int32](pinned, registered))
	require.Equal(t, registeredBacking, pinned.Slice())

	// host -> device -> device -> array -> device -> host
	require.NoError(t, accel.Copy[int32](dev1, pinned))
	require.NoError(t, accel.Copy[int32](dev2, dev1))
	require.NoError(t, accel.Copy[int32](arr, dev2))
	require.NoError(t, dev1.SetZero())
	require.NoError(t, accel.Copy[int32](dev1, arr))

	require.NoError(t, pinned.SetZero())
	require.NoError(t, accel.Copy[int32](pinned, dev1))
	require.NoError(t, ctx.Synchronize())
	require.Equal(t, registeredBacking, pinned.Slice())

	// array <-> host round trip
	out := make([]int32, n)
	outMem, err := accel.NewRegisteredMemory(ctx, out)
	require.NoError(t, err)
	defer func() { require.NoError(t, outMem.Destroy()) }()
	require.NoError(t, accel.Copy[int32](outMem, arr))
	require.Equal(t, registeredBacking, out)
}

func TestArrayMemory(t *testing.T) {
	ctx := getTestContext(t)

	arr, err := accel.NewArray2D[float32](ctx, 4, 3)
	require.NoError(t, err)
	defer func() { require.NoError(t, arr.Destroy()) }()
	require.Equal(t, 12, arr.NumElem())
	require.Equal(t, accel.MemoryArray, arr.MemoryType())
	w, h, d := arr.Dims()
	require.Equal(t, []int{4, 3, 0}, []int{w, h, d})

	require.NoError(t, arr.Set(2.5))
	host, err := accel.NewPageLockedMemory[float32](ctx, 12)
	require.NoError(t, err)
	defer func() { require.NoError(t, host.Destroy()) }()
	require.NoError(t, accel.Copy[float32](host, arr))
	for _, v := range host.Slice() {
		require.Equal(t, float32(2.5), v)
	}
}

func TestBufferIDsAreDistinct(t *testing.T) {
	ctx := getTestContext(t)

	m1, err := accel.NewDeviceMemory[uint8](ctx, 8)
	require.NoError(t, err)
	defer func() { require.NoError(t, m1.Destroy()) }()
	m2, err := accel.NewDeviceMemory[uint8](ctx, 8)
	require.NoError(t, err)
	defer func() { require.NoError(t, m2.Destroy()) }()

	id1, err := m1.BufferID()
	require.NoError(t, err)
	id2, err := m2.BufferID()
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	// Same allocation, stable answer.
	again, err := m1.BufferID()
	require.NoError(t, err)
	require.Equal(t, id1, again)
}

func TestDeviceMemoryAttributes(t *testing.T) {
	ctx := getTestContext(t)

	m, err := accel.NewDeviceMemory[float64](ctx, 16)
	require.NoError(t, err)
	defer func() { require.NoError(t, m.Destroy()) }()

	class, err := m.MemoryClass()
	require.NoError(t, err)
	require.Equal(t, driver.MemClassDevice, class)

	managed, err := m.IsManaged()
	require.NoError(t, err)
	require.True(t, managed)

	mapped, err := m.IsMapped()
	require.NoError(t, err)
	require.True(t, mapped)
}

func TestRegisteredMemoryBorrowSemantics(t *testing.T) {
	ctx := getTestContext(t)

	backing := []int64{1, 2, 3, 4}
	reg, err := accel.NewRegisteredMemory(ctx, backing)
	require.NoError(t, err)
	require.Equal(t, 4, reg.NumElem())

	require.NoError(t, reg.Set(-5))
	require.Equal(t, []int64{-5, -5, -5, -5}, backing)

	// Destroy unregisters but keeps the contents.
	require.NoError(t, reg.Destroy())
	require.Equal(t, []int64{-5, -5, -5, -5}, backing)
	// Idempotent.
	require.NoError(t, reg.Destroy())
}

func TestMemoryDestroyIsIdempotent(t *testing.T) {
	ctx := getTestContext(t)

	dev, err := accel.NewDeviceMemory[int32](ctx, 4)
	require.NoError(t, err)
	require.NoError(t, dev.Destroy())
	require.NoError(t, dev.Destroy())

	pinned, err := accel.NewPageLockedMemory[int32](ctx, 4)
	require.NoError(t, err)
	require.NoError(t, pinned.Destroy())
	require.NoError(t, pinned.Destroy())

	arr, err := accel.NewArray1D[int32](ctx, 4)
	require.NoError(t, err)
	require.NoError(t, arr.Destroy())
	require.NoError(t, arr.Destroy())
}

func TestHostSlice(t *testing.T) {
	ctx := getTestContext(t)

	src := accel.HostSlice[int32]{1, 2, 3, 4}
	dst := make(accel.HostSlice[int32], 4)
	require.Equal(t, accel.MemoryHost, src.MemoryType())
	require.Nil(t, src.Context())

	// host slice -> host slice needs no context at all.
	require.NoError(t, accel.Copy[int32](dst, src))
	require.Equal(t, src.Slice(), dst.Slice())

	// host slice -> device borrows the device side's context.
	dev, err := accel.NewDeviceMemory[int32](ctx, 4)
	require.NoError(t, err)
	defer func() { require.NoError(t, dev.Destroy()) }()
	require.NoError(t, accel.Copy[int32](dev, src))
	require.NoError(t, ctx.Synchronize())
	require.Equal(t, []int32{1, 2, 3, 4}, dev.Slice())

	_, err = accel.CopyAsync[int32](dst, src)
	require.Error(t, err)
}

func TestConvenienceConstructors(t *testing.T) {
	ctx := getTestContext(t)

	zeros, err := accel.NewDeviceMemoryZeros[float32](ctx, 6)
	require.NoError(t, err)
	defer func() { require.NoError(t, zeros.Destroy()) }()
	require.NoError(t, ctx.Synchronize())
	for _, v := range zeros.Slice() {
		require.Zero(t, v)
	}

	filled, err := accel.NewDeviceMemoryFromElem[int32](ctx, 6, -8)
	require.NoError(t, err)
	defer func() { require.NoError(t, filled.Destroy()) }()
	require.NoError(t, ctx.Synchronize())
	for _, v := range filled.Slice() {
		require.Equal(t, int32(-8), v)
	}

	uploaded, err := accel.NewDeviceMemoryFromSlice(ctx, []int32{5, 6, 7})
	require.NoError(t, err)
	defer func() { require.NoError(t, uploaded.Destroy()) }()
	require.NoError(t, ctx.Synchronize())
	require.Equal(t, []int32{5, 6, 7}, uploaded.Slice())

	pinned, err := accel.NewPageLockedMemoryFromElem[uint16](ctx, 3, 77)
	require.NoError(t, err)
	defer func() { require.NoError(t, pinned.Destroy()) }()
	require.Equal(t, []uint16{77, 77, 77}, pinned.Slice())

	pinnedZeros, err := accel.NewPageLockedMemoryZeros[uint16](ctx, 3)
	require.NoError(t, err)
	defer func() { require.NoError(t, pinnedZeros.Destroy()) }()
	require.Equal(t, []uint16{0, 0, 0}, pinnedZeros.Slice())
}

func TestMemoryTypeString(t *testing.T) {
	require.Equal(t, "Host", accel.MemoryHost.String())
	require.Equal(t, "PageLocked", accel.MemoryPageLocked.String())
	require.Equal(t, "Device", accel.MemoryDevice.String())
	require.Equal(t, "Array", accel.MemoryArray.String())
}
