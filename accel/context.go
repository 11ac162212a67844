package accel

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/accelkit/accelgo/driver"
)

// Context owns all device resources created through it. It wraps the
// backend's context handle and is safe for concurrent use: every operation
// binds this context to the calling goroutine's OS thread for its duration
// and restores whatever was current before.
//
// Destroy releases the context and everything still allocated in it. It is
// idempotent; a finalizer logs contexts that were garbage collected without
// an explicit Destroy.
type Context struct {
	device *Device
	api    driver.API

	mu     sync.Mutex
	handle driver.Ctx

	kernelsMu sync.Mutex
	kernels   map[string]*Kernel
}

// NewContext creates a context on the device and returns it bound-free: the
// calling thread's current context is left as it was.
func (d *Device) NewContext() (*Context, error) {
	api := d.platform.api

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	prev, st := api.CtxGetCurrent()
	if err := call("CtxGetCurrent", st); err != nil {
		return nil, &ContextError{APIName: "CtxGetCurrent", Code: st}
	}
	created, ctst := api.CtxCreate(d.id, 0)
	handle, err := newCall("CtxCreate", created, ctst)
	if err != nil {
		return nil, err
	}
	// Creation binds; undo that so construction has no ambient effect. If the
	// restore fails, the fresh handle must not outlive this call.
	if st := api.CtxSetCurrent(prev); st != driver.StatusSuccess {
		if dst := api.CtxDestroy(handle); dst != driver.StatusSuccess {
			klog.Errorf("accel: releasing context after failed current-context restore: CtxDestroy returned %s", dst)
		}
		return nil, &ContextError{APIName: "CtxSetCurrent", Code: st}
	}

	ctx := &Context{
		device:  d,
		api:     api,
		handle:  handle,
		kernels: make(map[string]*Kernel),
	}
	runtime.SetFinalizer(ctx, func(c *Context) {
		if !c.IsDestroyed() {
			klog.Warningf("accel: context on %s garbage collected without Destroy, releasing it now", d)
			if err := c.Destroy(); err != nil {
				klog.Errorf("accel: releasing leaked context: %+v", err)
			}
		}
	})
	return ctx, nil
}

// Device returns the device this context was created on.
func (c *Context) Device() *Device { return c.device }

// IsDestroyed reports whether Destroy has already run.
func (c *Context) IsDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle == 0
}

// Destroy releases the context. Memories and kernels still alive become
// invalid. Safe to call more than once.
func (c *Context) Destroy() error {
	c.mu.Lock()
	handle := c.handle
	c.handle = 0
	c.mu.Unlock()
	if handle == 0 {
		return nil
	}
	runtime.SetFinalizer(c, nil)

	c.kernelsMu.Lock()
	c.kernels = nil
	c.kernelsMu.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	prev, st := c.api.CtxGetCurrent()
	if err := call("CtxGetCurrent", st); err != nil {
		return &ContextError{APIName: "CtxGetCurrent", Code: st}
	}
	err := call("CtxDestroy", c.api.CtxDestroy(handle))
	if prev != handle {
		// Destroying the current context unbinds it; restore only a context
		// that was someone else's.
		if st := c.api.CtxSetCurrent(prev); st != driver.StatusSuccess && err == nil {
			err = &ContextError{APIName: "CtxSetCurrent", Code: st}
		}
	}
	return err
}

// guard binds c as the thread's current context and returns a release
// function restoring the previous binding. The calling goroutine stays
// locked to its OS thread until release runs.
func (c *Context) guard() (release func(), err error) {
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()
	if handle == 0 {
		return nil, errors.New("context already destroyed")
	}

	runtime.LockOSThread()
	prev, st := c.api.CtxGetCurrent()
	if err := call("CtxGetCurrent", st); err != nil {
		runtime.UnlockOSThread()
		return nil, &ContextError{APIName: "CtxGetCurrent", Code: st}
	}
	if prev != handle {
		if st := c.api.CtxSetCurrent(handle); st != driver.StatusSuccess {
			runtime.UnlockOSThread()
			return nil, &ContextError{APIName: "CtxSetCurrent", Code: st}
		}
	}
	return func() {
		if prev != handle {
			if st := c.api.CtxSetCurrent(prev); st != driver.StatusSuccess {
				klog.Errorf("accel: restoring previous context: %s", st)
			}
		}
		runtime.UnlockOSThread()
	}, nil
}

// contexted runs fn with c bound as the current context.
func (c *Context) contexted(fn func(api driver.API) error) error {
	release, err := c.guard()
	if err != nil {
		return err
	}
	defer release()
	return fn(c.api)
}

// contexted1 is contexted for functions producing a value.
func contexted1[T any](c *Context, fn func(api driver.API) (T, error)) (T, error) {
	release, err := c.guard()
	if err != nil {
		var zero T
		return zero, err
	}
	defer release()
	return fn(c.api)
}

// MemoryInfo reports the free and total device memory, in bytes.
func (c *Context) MemoryInfo() (free, total uint64, err error) {
	err = c.contexted(func(api driver.API) error {
		var st driver.Status
		free, total, st = api.MemGetInfo()
		return call("MemGetInfo", st)
	})
	return
}

// Synchronize blocks until all work issued in this context has completed.
// A kernel assertion surfaces here as ErrDeviceAssertionFailed.
func (c *Context) Synchronize() error {
	return c.contexted(func(api driver.API) error {
		return call("CtxSynchronize", api.CtxSynchronize())
	})
}
