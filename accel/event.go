package accel

import (
	"runtime"
	"sync"

	"k8s.io/klog/v2"

	"github.com/accelkit/accelgo/driver"
)

// Event tracks one asynchronous operation issued on a private stream.
// Await blocks until completion; TryWait polls. Exactly one of them should
// eventually be called to completion, or Destroy to abandon the result.
type Event struct {
	ctx *Context

	mu     sync.Mutex
	stream driver.Stream
	done   bool
	err    error

	// keep pins the operation's operands until the stream completed, so the
	// garbage collector cannot finalize a memory mid-transfer.
	keep []any
}

// newEvent creates a stream, runs issue against it, and wraps the stream in
// an Event. On issue failure the stream is torn down immediately.
func newEvent(ctx *Context, issue func(api driver.API, stream driver.Stream) error, keep ...any) (*Event, error) {
	var stream driver.Stream
	err := ctx.contexted(func(api driver.API) error {
		var err error
		s, st := api.StreamCreate(0)
		stream, err = newCall("StreamCreate", s, st)
		if err != nil {
			return err
		}
		if err := issue(api, stream); err != nil {
			if st := api.StreamDestroy(stream); st != driver.StatusSuccess {
				klog.Errorf("accel: destroying stream after failed issue: %s", st)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e := &Event{ctx: ctx, stream: stream, keep: keep}
	runtime.SetFinalizer(e, func(e *Event) {
		e.mu.Lock()
		pending := !e.done
		e.mu.Unlock()
		if pending {
			klog.Warningf("accel: event garbage collected before Await, synchronizing now")
			if err := e.Destroy(); err != nil {
				klog.Errorf("accel: finalizing leaked event: %+v", err)
			}
		}
	})
	return e, nil
}

// Await blocks until the operation completed and returns its result.
// Subsequent calls return the same result.
func (e *Event) Await() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return e.err
	}
	e.err = e.ctx.contexted(func(api driver.API) error {
		err := call("StreamSynchronize", api.StreamSynchronize(e.stream))
		if st := api.StreamDestroy(e.stream); st != driver.StatusSuccess && err == nil {
			err = call("StreamDestroy", st)
		}
		return err
	})
	e.finishLocked()
	return e.err
}

// TryWait returns ErrAsyncOperationNotReady while the operation is in
// flight, and its final result once it completed.
func (e *Event) TryWait() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return e.err
	}
	var st driver.Status
	err := e.ctx.contexted(func(api driver.API) error {
		st = api.StreamQuery(e.stream)
		return nil
	})
	if err != nil {
		return err
	}
	if st == driver.StatusErrorNotReady {
		return call("StreamQuery", st)
	}
	e.err = e.ctx.contexted(func(api driver.API) error {
		err := call("StreamQuery", st)
		if dst := api.StreamDestroy(e.stream); dst != driver.StatusSuccess && err == nil {
			err = call("StreamDestroy", dst)
		}
		return err
	})
	e.finishLocked()
	return e.err
}

// Destroy abandons the event, waiting for the operation if still pending.
// Idempotent.
func (e *Event) Destroy() error {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()
	return e.Await()
}

// finishLocked must be called with e.mu held.
func (e *Event) finishLocked() {
	e.done = true
	e.stream = 0
	e.keep = nil
	runtime.SetFinalizer(e, nil)
}
