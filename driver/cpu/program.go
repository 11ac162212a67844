package cpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/accelkit/accelgo/driver"
	"github.com/accelkit/accelgo/dtypes"
)

// Dim3 is a 3-axis extent or coordinate.
type Dim3 struct {
	X, Y, Z int
}

// Thread describes one kernel invocation's position in its launch geometry.
type Thread struct {
	BlockIdx, ThreadIdx Dim3
	BlockDim, GridDim   Dim3
}

// Index flattens the X axis into a global linear index, the usual 1-D
// "blockIdx.x*blockDim.x + threadIdx.x" idiom.
func (t Thread) Index() int {
	return t.BlockIdx.X*t.BlockDim.X + t.ThreadIdx.X
}

// Args is the marshaled argument vector handed to a kernel body. Decode
// entries with ScalarArg and SliceArg.
type Args []unsafe.Pointer

// KernelFunc is a kernel body. It is called once per thread of the launch
// geometry; threads of one block run sequentially, blocks run concurrently.
type KernelFunc func(t Thread, args Args)

// ScalarArg decodes the i-th argument as a by-value scalar.
func ScalarArg[T dtypes.Supported](args Args, i int) T {
	return *(*T)(args[i])
}

// PtrArg decodes the i-th argument as a raw buffer address.
func PtrArg(args Args, i int) driver.Pointer {
	return *(*driver.Pointer)(args[i])
}

// SliceArg decodes the i-th argument as a buffer of n elements.
func SliceArg[T dtypes.Supported](args Args, i, n int) []T {
	p := PtrArg(args, i)
	return unsafe.Slice((*T)(unsafe.Pointer(uintptr(p))), n)
}

// assertFailure is the panic payload thrown by Assert and trapped by the
// launch machinery.
type assertFailure struct {
	msg string
}

// Assert aborts the running launch with an assertion status when cond is
// false. It is the backend's analog of a device-side assert trap: the whole
// launch fails and the failure surfaces on the next synchronize.
func Assert(cond bool, format string, a ...any) {
	if !cond {
		panic(assertFailure{msg: fmt.Sprintf(format, a...)})
	}
}

type kernelDef struct {
	name   string
	params []driver.ParamInfo
	body   KernelFunc
}

// Program collects kernels and packages them into a loadable image.
//
// The image is a JSON header naming the program and its entry points. The Go
// function bodies cannot be serialized, so Build also records the program in
// a process-global registry under a fresh UUID and the image carries only
// that ID. Images therefore load in the process that built them, which is
// all a host-memory backend can offer.
type Program struct {
	id      uuid.UUID
	kernels map[string]*kernelDef
	order   []string
}

var (
	programsMu sync.Mutex
	programs   = make(map[string]*Program)
)

// NewProgram returns an empty program builder.
func NewProgram() *Program {
	return &Program{
		id:      uuid.New(),
		kernels: make(map[string]*kernelDef),
	}
}

// Func adds a kernel entry point. It panics on a duplicate name, which is a
// builder bug and not a runtime condition.
func (p *Program) Func(name string, params []driver.ParamInfo, body KernelFunc) *Program {
	if _, found := p.kernels[name]; found {
		panic(fmt.Sprintf("cpu.Program: duplicate kernel %q", name))
	}
	p.kernels[name] = &kernelDef{name: name, params: params, body: body}
	p.order = append(p.order, name)
	return p
}

const imageMagic = "accelgo/cpu-program/v1"

type imageHeader struct {
	Magic   string       `json:"magic"`
	ID      string       `json:"id"`
	Entries []imageEntry `json:"entries"`
}

type imageEntry struct {
	Name   string       `json:"name"`
	Params []imageParam `json:"params"`
}

type imageParam struct {
	Class string `json:"class"`
	DType string `json:"dtype"`
}

// Build registers the program and returns its loadable image.
func (p *Program) Build() []byte {
	header := imageHeader{Magic: imageMagic, ID: p.id.String()}
	for _, name := range p.order {
		def := p.kernels[name]
		entry := imageEntry{Name: name}
		for _, pi := range def.params {
			entry.Params = append(entry.Params, imageParam{
				Class: pi.Class.String(),
				DType: pi.DType.String(),
			})
		}
		header.Entries = append(header.Entries, entry)
	}
	image, err := json.Marshal(&header)
	if err != nil {
		// Marshaling a plain struct of strings cannot fail.
		panic(errors.Wrap(err, "cpu.Program: encoding image header"))
	}
	programsMu.Lock()
	programs[p.id.String()] = p
	programsMu.Unlock()
	return image
}

// resolveImage parses an image and looks up its program.
func resolveImage(image []byte) (*Program, driver.Status) {
	var header imageHeader
	if err := json.Unmarshal(image, &header); err != nil {
		return nil, driver.StatusErrorInvalidImage
	}
	if header.Magic != imageMagic {
		return nil, driver.StatusErrorInvalidImage
	}
	programsMu.Lock()
	prog, found := programs[header.ID]
	programsMu.Unlock()
	if !found {
		return nil, driver.StatusErrorInvalidImage
	}
	return prog, driver.StatusSuccess
}

// paramBytes is the marshaled size of one argument slot.
func paramBytes(pi driver.ParamInfo) int {
	if pi.Class == driver.ParamScalar {
		return pi.DType.Size()
	}
	return int(unsafe.Sizeof(driver.Pointer(0)))
}

// snapshotArgs copies the pointed-to argument values at launch time.
func snapshotArgs(params []driver.ParamInfo, src []unsafe.Pointer) Args {
	args := make(Args, len(src))
	for i, p := range src {
		n := paramBytes(params[i])
		buf := make([]byte, n)
		copy(buf, unsafe.Slice((*byte)(p), n))
		args[i] = unsafe.Pointer(unsafe.SliceData(buf))
	}
	return args
}

// runGrid executes one launch: blocks concurrently, threads within a block
// sequentially. A trapped Assert fails the launch with an assertion status;
// any other panic is reported as a launch failure.
func runGrid(def *kernelDef, grid, block Dim3, args Args) driver.Status {
	var wg sync.WaitGroup
	var mu sync.Mutex
	result := driver.StatusSuccess

	fail := func(st driver.Status) {
		mu.Lock()
		if result == driver.StatusSuccess {
			result = st
		}
		mu.Unlock()
	}

	for bz := 0; bz < grid.Z; bz++ {
		for by := 0; by < grid.Y; by++ {
			for bx := 0; bx < grid.X; bx++ {
				wg.Add(1)
				blockIdx := Dim3{X: bx, Y: by, Z: bz}
				go func() {
					defer wg.Done()
					defer func() {
						if r := recover(); r != nil {
							if af, ok := r.(assertFailure); ok {
								klog.V(1).Infof("kernel %s: assertion failed: %s", def.name, af.msg)
								fail(driver.StatusErrorAssert)
								return
							}
							klog.Errorf("kernel %s: panic in block %v: %v", def.name, blockIdx, r)
							fail(driver.StatusErrorLaunchFailed)
						}
					}()
					runBlock(def, grid, block, blockIdx, args)
				}()
			}
		}
	}
	wg.Wait()
	return result
}

func runBlock(def *kernelDef, grid, block, blockIdx Dim3, args Args) {
	t := Thread{
		BlockIdx: blockIdx,
		BlockDim: block,
		GridDim:  grid,
	}
	for tz := 0; tz < block.Z; tz++ {
		for ty := 0; ty < block.Y; ty++ {
			for tx := 0; tx < block.X; tx++ {
				t.ThreadIdx = Dim3{X: tx, Y: ty, Z: tz}
				def.body(t, args)
			}
		}
	}
}
