// Package cpu implements the driver catalog in host memory: a pure-Go
// reference backend with one emulated device.
//
// Allocations are ordinary Go memory tracked in an allocation table, so the
// unified-addressing introspection (memory class, buffer id, managed bit) is
// answered by address alone, the way a real driver does it. Streams are
// worker goroutines draining FIFO task queues. Kernels are Go functions
// packaged by Program into an opaque image (see program.go).
//
// Import the package for its side effect of registering itself as the "cpu"
// backend:
//
//	import _ "github.com/accelkit/accelgo/driver/cpu"
package cpu

import (
	"sync"
	"unsafe"

	"github.com/accelkit/accelgo/driver"
)

func init() {
	driver.MustRegister("cpu", New())
}

// deviceTotalMem is what the emulated device reports as its memory size.
// It bounds nothing; host memory is the real limit.
const deviceTotalMem uint64 = 16 << 30

type deviceInfo struct {
	name     string
	totalMem uint64
}

type simContext struct {
	device driver.Device
}

type loadedModule struct {
	owner driver.Ctx
	prog  *Program
}

type loadedFunc struct {
	owner driver.Ctx
	def   *kernelDef
}

// Backend implements driver.API. All state is process-global, including the
// current-context bit, mirroring the ambient nature of context currency in
// the native drivers.
type Backend struct {
	mu          sync.Mutex
	initialized bool

	nextHandle uintptr
	nextID     uint64

	devices []deviceInfo
	ctxs    map[driver.Ctx]*simContext
	current driver.Ctx

	allocs []*allocation
	arrays map[driver.Array]*arrayAlloc

	modules map[driver.Module]*loadedModule
	funcs   map[driver.Function]*loadedFunc

	streams       map[driver.Stream]*stream
	defaultStream *stream
}

// New returns an unregistered backend instance. Most users want the "cpu"
// backend registered by this package's init instead; New exists so tests can
// run an isolated instance.
func New() *Backend {
	return &Backend{
		devices:       []deviceInfo{{name: "accelgo emulated cpu device", totalMem: deviceTotalMem}},
		ctxs:          make(map[driver.Ctx]*simContext),
		arrays:        make(map[driver.Array]*arrayAlloc),
		modules:       make(map[driver.Module]*loadedModule),
		funcs:         make(map[driver.Function]*loadedFunc),
		streams:       make(map[driver.Stream]*stream),
		defaultStream: newStream(0),
	}
}

var _ driver.API = (*Backend)(nil)

func (b *Backend) handle() uintptr {
	b.nextHandle++
	return b.nextHandle
}

func (b *Backend) Init(flags uint32) driver.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = true
	return driver.StatusSuccess
}

// requireInit must be called with b.mu held.
func (b *Backend) requireInit() driver.Status {
	if !b.initialized {
		return driver.StatusErrorNotInitialized
	}
	return driver.StatusSuccess
}

// requireCurrent must be called with b.mu held.
func (b *Backend) requireCurrent() driver.Status {
	if st := b.requireInit(); st != driver.StatusSuccess {
		return st
	}
	if b.current == 0 {
		return driver.StatusErrorInvalidContext
	}
	return driver.StatusSuccess
}

func (b *Backend) DeviceCount() (int, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireInit(); st != driver.StatusSuccess {
		return 0, st
	}
	return len(b.devices), driver.StatusSuccess
}

func (b *Backend) deviceLocked(dev driver.Device) (*deviceInfo, driver.Status) {
	if st := b.requireInit(); st != driver.StatusSuccess {
		return nil, st
	}
	if dev < 0 || int(dev) >= len(b.devices) {
		return nil, driver.StatusErrorNoDevice
	}
	return &b.devices[dev], driver.StatusSuccess
}

func (b *Backend) DeviceName(dev driver.Device) (string, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, st := b.deviceLocked(dev)
	if st != driver.StatusSuccess {
		return "", st
	}
	return d.name, driver.StatusSuccess
}

func (b *Backend) DeviceTotalMem(dev driver.Device) (uint64, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, st := b.deviceLocked(dev)
	if st != driver.StatusSuccess {
		return 0, st
	}
	return d.totalMem, driver.StatusSuccess
}

func (b *Backend) CtxCreate(dev driver.Device, flags uint32) (driver.Ctx, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, st := b.deviceLocked(dev); st != driver.StatusSuccess {
		return 0, st
	}
	ctx := driver.Ctx(b.handle())
	b.ctxs[ctx] = &simContext{device: dev}
	// Creation binds, as the native drivers do.
	b.current = ctx
	return ctx, driver.StatusSuccess
}

func (b *Backend) CtxDestroy(ctx driver.Ctx) driver.Status {
	b.mu.Lock()
	if st := b.requireInit(); st != driver.StatusSuccess {
		b.mu.Unlock()
		return st
	}
	if _, found := b.ctxs[ctx]; !found {
		b.mu.Unlock()
		return driver.StatusErrorInvalidHandle
	}
	delete(b.ctxs, ctx)
	if b.current == ctx {
		b.current = 0
	}

	// Destroying a context reclaims everything allocated under it, the way
	// the native drivers do. Handles owned by the dead context become
	// invalid; pointers into its allocations stop resolving.
	kept := b.allocs[:0]
	for _, a := range b.allocs {
		if a.owner != ctx {
			kept = append(kept, a)
			continue
		}
		b.munlockLocked(a)
	}
	b.allocs = kept
	for h, arr := range b.arrays {
		if arr.owner == ctx {
			delete(b.arrays, h)
		}
	}
	for h, m := range b.modules {
		if m.owner == ctx {
			delete(b.modules, h)
		}
	}
	for h, f := range b.funcs {
		if f.owner == ctx {
			delete(b.funcs, h)
		}
	}
	var owned []*stream
	for h, s := range b.streams {
		if s.owner == ctx {
			owned = append(owned, s)
			delete(b.streams, h)
		}
	}
	b.mu.Unlock()

	// Queued work takes the backend lock, so the streams wind down outside it.
	for _, s := range owned {
		s.drain()
		s.stop()
	}
	return driver.StatusSuccess
}

func (b *Backend) CtxGetCurrent() (driver.Ctx, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireInit(); st != driver.StatusSuccess {
		return 0, st
	}
	return b.current, driver.StatusSuccess
}

func (b *Backend) CtxSetCurrent(ctx driver.Ctx) driver.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireInit(); st != driver.StatusSuccess {
		return st
	}
	if ctx != 0 {
		if _, found := b.ctxs[ctx]; !found {
			return driver.StatusErrorInvalidContext
		}
	}
	b.current = ctx
	return driver.StatusSuccess
}

func (b *Backend) CtxSynchronize() driver.Status {
	b.mu.Lock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		b.mu.Unlock()
		return st
	}
	owned := make([]*stream, 0, len(b.streams))
	for _, s := range b.streams {
		if s.owner == b.current {
			owned = append(owned, s)
		}
	}
	b.mu.Unlock()

	// Synchronizing must not hold the backend lock: pending tasks take it.
	// Created streams are only waited on, never consumed; their sticky
	// status stays for StreamSynchronize and StreamQuery to report.
	for _, s := range owned {
		s.drain()
	}
	return b.defaultStream.synchronize()
}

func (b *Backend) StreamCreate(flags uint32) (driver.Stream, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return 0, st
	}
	h := driver.Stream(b.handle())
	b.streams[h] = newStream(b.current)
	return h, driver.StatusSuccess
}

// streamFor resolves a stream handle; 0 is the default stream.
// Must be called with b.mu held.
func (b *Backend) streamFor(s driver.Stream) (*stream, driver.Status) {
	if s == driver.DefaultStream {
		return b.defaultStream, driver.StatusSuccess
	}
	st, found := b.streams[s]
	if !found {
		return nil, driver.StatusErrorInvalidHandle
	}
	return st, driver.StatusSuccess
}

func (b *Backend) StreamDestroy(s driver.Stream) driver.Status {
	if s == driver.DefaultStream {
		return driver.StatusErrorInvalidValue
	}
	b.mu.Lock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		b.mu.Unlock()
		return st
	}
	sim, st := b.streamFor(s)
	if st != driver.StatusSuccess {
		b.mu.Unlock()
		return st
	}
	delete(b.streams, s)
	b.mu.Unlock()

	// Pending work completes before the queue is torn down.
	sim.drain()
	sim.stop()
	return driver.StatusSuccess
}

func (b *Backend) StreamQuery(s driver.Stream) driver.Status {
	b.mu.Lock()
	sim, st := b.streamFor(s)
	b.mu.Unlock()
	if st != driver.StatusSuccess {
		return st
	}
	return sim.query()
}

func (b *Backend) StreamSynchronize(s driver.Stream) driver.Status {
	b.mu.Lock()
	sim, st := b.streamFor(s)
	b.mu.Unlock()
	if st != driver.StatusSuccess {
		return st
	}
	return sim.synchronize()
}

func (b *Backend) ModuleLoadData(image []byte) (driver.Module, driver.Status) {
	prog, st := resolveImage(image)
	if st != driver.StatusSuccess {
		return 0, st
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return 0, st
	}
	h := driver.Module(b.handle())
	b.modules[h] = &loadedModule{owner: b.current, prog: prog}
	return h, driver.StatusSuccess
}

func (b *Backend) ModuleUnload(m driver.Module) driver.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return st
	}
	if _, found := b.modules[m]; !found {
		return driver.StatusErrorInvalidHandle
	}
	delete(b.modules, m)
	return driver.StatusSuccess
}

func (b *Backend) ModuleGetFunction(m driver.Module, name string) (driver.Function, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		return 0, st
	}
	mod, found := b.modules[m]
	if !found {
		return 0, driver.StatusErrorInvalidHandle
	}
	def, found := mod.prog.kernels[name]
	if !found {
		return 0, driver.StatusErrorNotFound
	}
	h := driver.Function(b.handle())
	b.funcs[h] = &loadedFunc{owner: b.current, def: def}
	return h, driver.StatusSuccess
}

func (b *Backend) FuncParamCount(f driver.Function) (int, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn, found := b.funcs[f]
	if !found {
		return 0, driver.StatusErrorInvalidHandle
	}
	return len(fn.def.params), driver.StatusSuccess
}

func (b *Backend) FuncParamInfo(f driver.Function, index int) (driver.ParamInfo, driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn, found := b.funcs[f]
	if !found {
		return driver.ParamInfo{}, driver.StatusErrorInvalidHandle
	}
	if index < 0 || index >= len(fn.def.params) {
		return driver.ParamInfo{}, driver.StatusErrorInvalidValue
	}
	return fn.def.params[index], driver.StatusSuccess
}

func (b *Backend) LaunchKernel(f driver.Function,
	gridX, gridY, gridZ int,
	blockX, blockY, blockZ int,
	sharedMemBytes int, s driver.Stream, params []unsafe.Pointer) driver.Status {

	b.mu.Lock()
	if st := b.requireCurrent(); st != driver.StatusSuccess {
		b.mu.Unlock()
		return st
	}
	fn, found := b.funcs[f]
	if !found {
		b.mu.Unlock()
		return driver.StatusErrorInvalidHandle
	}
	sim, st := b.streamFor(s)
	b.mu.Unlock()
	if st != driver.StatusSuccess {
		return st
	}

	if gridX < 1 || gridY < 1 || gridZ < 1 || blockX < 1 || blockY < 1 || blockZ < 1 {
		return driver.StatusErrorInvalidValue
	}
	if len(params) != len(fn.def.params) {
		return driver.StatusErrorInvalidValue
	}

	// Argument values are consumed now: the caller's pointers need not stay
	// valid after LaunchKernel returns, matching the native contract.
	args := snapshotArgs(fn.def.params, params)
	grid := Dim3{X: gridX, Y: gridY, Z: gridZ}
	block := Dim3{X: blockX, Y: blockY, Z: blockZ}
	if !sim.submit(func() driver.Status {
		return runGrid(fn.def, grid, block, args)
	}) {
		return driver.StatusErrorInvalidHandle
	}
	return driver.StatusSuccess
}
