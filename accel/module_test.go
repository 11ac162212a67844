package accel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/accelkit/accelgo/accel"
	"github.com/accelkit/accelgo/driver"
	"github.com/accelkit/accelgo/driver/cpu"
	"github.com/accelkit/accelgo/dtypes"
)

// testProgram bundles the kernels used across the launch tests.
func testProgram() *cpu.Program {
	return cpu.NewProgram().
		Func("noop", nil, func(t cpu.Thread, args cpu.Args) {}).
		Func("fill", []driver.ParamInfo{
			{Class: driver.ParamScalar, DType: dtypes.Int32},
			{Class: driver.ParamScalar, DType: dtypes.Int32},
			{Class: driver.ParamMutPtr, DType: dtypes.Int32},
		}, func(t cpu.Thread, args cpu.Args) {
			value := cpu.ScalarArg[int32](args, 0)
			count := int(cpu.ScalarArg[int32](args, 1))
			if i := t.Index(); i < count {
				cpu.SliceArg[int32](args, 2, count)[i] = value
			}
		}).
		Func("axpy", []driver.ParamInfo{
			{Class: driver.ParamScalar, DType: dtypes.Float32},
			{Class: driver.ParamScalar, DType: dtypes.Int32},
			{Class: driver.ParamConstPtr, DType: dtypes.Float32},
			{Class: driver.ParamMutPtr, DType: dtypes.Float32},
		}, func(t cpu.Thread, args cpu.Args) {
			alpha := cpu.ScalarArg[float32](args, 0)
			count := int(cpu.ScalarArg[int32](args, 1))
			i := t.Index()
			if i >= count {
				return
			}
			x := cpu.SliceArg[float32](args, 2, count)
			y := cpu.SliceArg[float32](args, 3, count)
			y[i] = alpha*x[i] + y[i]
		}).
		Func("always_asserts", nil, func(t cpu.Thread, args cpu.Args) {
			cpu.Assert(false, "thread %d tripped", t.Index())
		})
}

func testArtifact(t *testing.T, entry string) accel.Artifact {
	t.Helper()
	return accel.Artifact{Image: testProgram().Build(), Entry: entry}
}

func TestLaunchNoop(t *testing.T) {
	ctx := getTestContext(t)
	kernel, err := ctx.Kernel(testArtifact(t, "noop"))
	require.NoError(t, err)
	require.Equal(t, "noop", kernel.Name())
	require.Equal(t, 0, kernel.NumParams())

	launch, err := accel.NewLaunchable0(kernel)
	require.NoError(t, err)
	require.NoError(t, launch.Launch(accel.Grid1(4), accel.Block1(32)))
}

func TestLaunchFillsMemory(t *testing.T) {
	ctx := getTestContext(t)
	const n = 1000

	mem, err := accel.NewDeviceMemory[int32](ctx, n)
	require.NoError(t, err)
	defer func() { require.NoError(t, mem.Destroy()) }()
	require.NoError(t, mem.SetZero())

	kernel, err := ctx.Kernel(testArtifact(t, "fill"))
	require.NoError(t, err)
	launch, err := accel.NewLaunchable3[
		accel.Scalar[int32], accel.Scalar[int32], accel.MutPtr[int32],
	](kernel)
	require.NoError(t, err)

	// More threads than elements: the kernel bounds-checks.
	require.NoError(t, launch.Launch(accel.Grid1(8), accel.Block1(256),
		accel.Scalar[int32]{Value: 42}, accel.Scalar[int32]{Value: n},
		accel.Out[int32](mem)))

	require.NoError(t, ctx.Synchronize())
	for _, v := range mem.Slice() {
		require.Equal(t, int32(42), v)
	}
}

func TestLaunchAxpyEndToEnd(t *testing.T) {
	ctx := getTestContext(t)
	const n = 512

	x, err := accel.NewDeviceMemory[float32](ctx, n)
	require.NoError(t, err)
	defer func() { require.NoError(t, x.Destroy()) }()
	y, err := accel.NewDeviceMemory[float32](ctx, n)
	require.NoError(t, err)
	defer func() { require.NoError(t, y.Destroy()) }()

	host := make([]float32, n)
	for i := range host {
		host[i] = float32(i)
	}
	src, err := accel.NewRegisteredMemory(ctx, host)
	require.NoError(t, err)
	defer func() { require.NoError(t, src.Destroy()) }()
	require.NoError(t, accel.Copy[float32](x, src))
	require.NoError(t, y.Set(1))

	kernel, err := ctx.Kernel(testArtifact(t, "axpy"))
	require.NoError(t, err)
	launch, err := accel.NewLaunchable4[
		accel.Scalar[float32], accel.Scalar[int32],
		accel.ConstPtr[float32], accel.MutPtr[float32],
	](kernel)
	require.NoError(t, err)

	require.NoError(t, launch.Launch(accel.Grid1(2), accel.Block1(256),
		accel.Scalar[float32]{Value: 2}, accel.Scalar[int32]{Value: n},
		accel.In[float32](x), accel.Out[float32](y)))

	require.NoError(t, ctx.Synchronize())
	for i, got := range y.Slice() {
		require.Equal(t, 2*float32(i)+1, got)
	}
}

func TestLaunchableRejectsWrongSignature(t *testing.T) {
	ctx := getTestContext(t)
	kernel, err := ctx.Kernel(testArtifact(t, "fill"))
	require.NoError(t, err)

	// Wrong arity.
	_, err = accel.NewLaunchable0(kernel)
	require.Error(t, err)

	// Wrong element type in slot 0.
	_, err = accel.NewLaunchable3[
		accel.Scalar[float32], accel.Scalar[int32], accel.MutPtr[int32],
	](kernel)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parameter #0")

	// Read-only handle offered for a writable slot.
	_, err = accel.NewLaunchable3[
		accel.Scalar[int32], accel.Scalar[int32], accel.ConstPtr[int32],
	](kernel)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parameter #2")
}

func TestKernelCachePerContext(t *testing.T) {
	ctx := getTestContext(t)
	artifact := testArtifact(t, "noop")

	k1, err := ctx.Kernel(artifact)
	require.NoError(t, err)
	k2, err := ctx.Kernel(artifact)
	require.NoError(t, err)
	require.Same(t, k1, k2)

	// A different context loads its own copy.
	other := getTestContext(t)
	k3, err := other.Kernel(artifact)
	require.NoError(t, err)
	require.NotSame(t, k1, k3)
}

func TestKernelUnknownEntry(t *testing.T) {
	ctx := getTestContext(t)
	_, err := ctx.Kernel(testArtifact(t, "no_such_entry"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no_such_entry")
}

func TestKernelInvalidImage(t *testing.T) {
	ctx := getTestContext(t)
	_, err := ctx.Kernel(accel.Artifact{Image: []byte("not an image"), Entry: "noop"})
	require.Error(t, err)
	var devErr *accel.DeviceError
	require.ErrorAs(t, err, &devErr)
	require.Equal(t, driver.StatusErrorInvalidImage, devErr.Code)
}

func TestLaunchRejectsDegenerateGeometry(t *testing.T) {
	ctx := getTestContext(t)
	kernel, err := ctx.Kernel(testArtifact(t, "noop"))
	require.NoError(t, err)
	launch, err := accel.NewLaunchable0(kernel)
	require.NoError(t, err)

	require.Error(t, launch.Launch(accel.Grid{X: 0, Y: 1, Z: 1}, accel.Block1(1)))
	require.Error(t, launch.Launch(accel.Grid1(1), accel.Block{X: 1, Y: -1, Z: 1}))
}

func TestDeviceAssertionSurfacesOnLaunch(t *testing.T) {
	ctx := getTestContext(t)
	kernel, err := ctx.Kernel(testArtifact(t, "always_asserts"))
	require.NoError(t, err)
	launch, err := accel.NewLaunchable0(kernel)
	require.NoError(t, err)

	err = launch.Launch(accel.Grid1(1), accel.Block1(8))
	require.ErrorIs(t, err, accel.ErrDeviceAssertionFailed)
}
