package accel

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/accelkit/accelgo/driver"
)

var (
	// ErrDeviceAssertionFailed is reported when a kernel tripped a
	// device-side assertion. The owning context is poisoned: further work on
	// it keeps failing until it is destroyed.
	ErrDeviceAssertionFailed = errors.New("device-side assertion failed")

	// ErrAsyncOperationNotReady is returned by Event.TryWait while the
	// associated work is still in flight.
	ErrAsyncOperationNotReady = errors.New("asynchronous operation has not completed")

	// ErrAliasedCopy is returned by Copy when source and destination are the
	// same allocation.
	ErrAliasedCopy = errors.New("source and destination memory alias each other")
)

// DeviceError is a raw backend failure: the entry point that failed and the
// status it returned. Most runtime errors bottom out in one of these.
type DeviceError struct {
	APIName string
	Code    driver.Status
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s failed with %s (%d)", e.APIName, e.Code, int32(e.Code))
}

// ContextError reports a failure to bind or restore the current context.
// These are not recoverable by retrying the operation.
type ContextError struct {
	APIName string
	Code    driver.Status
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("context operation %s failed with %s (%d)", e.APIName, e.Code, int32(e.Code))
}

// SizeMismatchError reports a copy between memories of different element
// counts. The destination is left untouched.
type SizeMismatchError struct {
	Dst, Src int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("destination holds %d elements but source holds %d", e.Dst, e.Src)
}

// DeviceNotFoundError reports a device ordinal outside the installed range.
type DeviceNotFoundError struct {
	ID    int
	Count int
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("device #%d not found, backend reports %d device(s)", e.ID, e.Count)
}

// call is the single point where backend statuses become errors. Every
// driver invocation in this package goes through call or newCall.
func call(apiName string, st driver.Status) error {
	switch st {
	case driver.StatusSuccess:
		return nil
	case driver.StatusErrorAssert:
		return errors.WithMessagef(ErrDeviceAssertionFailed, "%s", apiName)
	case driver.StatusErrorNotReady:
		return errors.WithMessagef(ErrAsyncOperationNotReady, "%s", apiName)
	}
	return &DeviceError{APIName: apiName, Code: st}
}

// newCall adapts the (value, status) return shape of constructor-like
// entry points.
func newCall[T any](apiName string, value T, st driver.Status) (T, error) {
	if err := call(apiName, st); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}
