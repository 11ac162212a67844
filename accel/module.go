package accel

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/accelkit/accelgo/driver"
)

//go:generate sh -c "go run ../cmd/launchable_codegen > launchable_gen.go"

// Artifact is a compiled kernel image plus the entry point to bind. The
// image format is backend-specific; the runtime only ferries it to the
// backend's loader.
type Artifact struct {
	Image []byte
	Entry string
}

// Kernel is one loaded, introspected kernel entry point, bound to the
// context it was loaded in. Kernels are cached per context by entry name:
// asking the same context for the same entry returns the same *Kernel.
//
// Launching is done through the typed LaunchableN wrappers (NewLaunchable2
// and friends), which pin the argument list's shape and types once at
// construction.
type Kernel struct {
	ctx    *Context
	module driver.Module
	fn     driver.Function
	name   string
	params []driver.ParamInfo
}

// Kernel loads the artifact's entry point, or returns the cached Kernel if
// this context already loaded an entry of the same name.
func (c *Context) Kernel(artifact Artifact) (*Kernel, error) {
	c.kernelsMu.Lock()
	defer c.kernelsMu.Unlock()
	if c.kernels == nil {
		return nil, errors.New("context already destroyed")
	}
	if k, found := c.kernels[artifact.Entry]; found {
		return k, nil
	}

	k, err := contexted1(c, func(api driver.API) (*Kernel, error) {
		loaded, st := api.ModuleLoadData(artifact.Image)
		module, err := newCall("ModuleLoadData", loaded, st)
		if err != nil {
			return nil, err
		}
		unload := func() {
			if st := api.ModuleUnload(module); st != driver.StatusSuccess {
				klog.Errorf("accel: unloading module after failed kernel setup: %s", st)
			}
		}
		f, fnst := api.ModuleGetFunction(module, artifact.Entry)
		fn, err := newCall("ModuleGetFunction", f, fnst)
		if err != nil {
			unload()
			return nil, errors.WithMessagef(err, "kernel entry %q", artifact.Entry)
		}
		n, nst := api.FuncParamCount(fn)
		count, err := newCall("FuncParamCount", n, nst)
		if err != nil {
			unload()
			return nil, err
		}
		params := make([]driver.ParamInfo, count)
		for i := range params {
			info, ist := api.FuncParamInfo(fn, i)
			params[i], err = newCall("FuncParamInfo", info, ist)
			if err != nil {
				unload()
				return nil, err
			}
		}
		return &Kernel{ctx: c, module: module, fn: fn, name: artifact.Entry, params: params}, nil
	})
	if err != nil {
		return nil, err
	}
	c.kernels[artifact.Entry] = k
	return k, nil
}

// Name returns the kernel's entry point name.
func (k *Kernel) Name() string { return k.name }

// NumParams returns the kernel's declared parameter count.
func (k *Kernel) NumParams() int { return len(k.params) }

// ParamInfo returns the declared class and element type of parameter slot i.
func (k *Kernel) ParamInfo(i int) driver.ParamInfo { return k.params[i] }

// checkSignature verifies the offered argument shapes against the kernel's
// declared parameter list, slot by slot.
func (k *Kernel) checkSignature(specs ...driver.ParamInfo) error {
	if len(specs) != len(k.params) {
		return errors.Errorf("kernel %q takes %d parameter(s), %d offered",
			k.name, len(k.params), len(specs))
	}
	for i, want := range k.params {
		got := specs[i]
		if got.Class != want.Class || got.DType != want.DType {
			return errors.Errorf("kernel %q parameter #%d: declared %s %s, offered %s %s",
				k.name, i, want.Class, want.DType, got.Class, got.DType)
		}
	}
	return nil
}

// launch marshals args and dispatches on the default stream, blocking the
// calling goroutine until the kernel completed. A device assertion trips
// here as ErrDeviceAssertionFailed.
func (k *Kernel) launch(grid Grid, block Block, args []Param) error {
	if err := grid.validate(); err != nil {
		return err
	}
	if err := block.validate(); err != nil {
		return err
	}

	var marshaled launchArgs
	for _, a := range args {
		a.marshal(&marshaled)
	}
	err := k.ctx.contexted(func(api driver.API) error {
		if err := call("LaunchKernel", api.LaunchKernel(k.fn,
			grid.X, grid.Y, grid.Z,
			block.X, block.Y, block.Z,
			0, driver.DefaultStream, marshaled.ptrs)); err != nil {
			return err
		}
		return call("CtxSynchronize", api.CtxSynchronize())
	})
	runtime.KeepAlive(marshaled.keep)
	return err
}

func (k *Kernel) String() string {
	return fmt.Sprintf("Kernel{%q, %d parameter(s)}", k.name, len(k.params))
}
