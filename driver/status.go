package driver

import "fmt"

// Status is the native result code returned by every catalog entry point.
// The numbering leaves gaps on purpose: codes are grouped by subsystem the
// way device drivers number theirs, and backends may surface codes the
// runtime does not interpret beyond "generic failure".
type Status int32

const (
	StatusSuccess             Status = 0
	StatusErrorInvalidValue   Status = 1
	StatusErrorOutOfMemory    Status = 2
	StatusErrorNotInitialized Status = 3

	StatusErrorNoDevice Status = 100

	StatusErrorInvalidImage   Status = 200
	StatusErrorInvalidContext Status = 201

	StatusErrorInvalidHandle Status = 400

	StatusErrorNotFound Status = 500

	StatusErrorNotReady Status = 600

	StatusErrorAssert       Status = 710
	StatusErrorLaunchFailed Status = 719

	StatusErrorUnknown Status = 999
)

var statusNames = map[Status]string{
	StatusSuccess:             "SUCCESS",
	StatusErrorInvalidValue:   "ERROR_INVALID_VALUE",
	StatusErrorOutOfMemory:    "ERROR_OUT_OF_MEMORY",
	StatusErrorNotInitialized: "ERROR_NOT_INITIALIZED",
	StatusErrorNoDevice:       "ERROR_NO_DEVICE",
	StatusErrorInvalidImage:   "ERROR_INVALID_IMAGE",
	StatusErrorInvalidContext: "ERROR_INVALID_CONTEXT",
	StatusErrorInvalidHandle:  "ERROR_INVALID_HANDLE",
	StatusErrorNotFound:       "ERROR_NOT_FOUND",
	StatusErrorNotReady:       "ERROR_NOT_READY",
	StatusErrorAssert:         "ERROR_ASSERT",
	StatusErrorLaunchFailed:   "ERROR_LAUNCH_FAILED",
	StatusErrorUnknown:        "ERROR_UNKNOWN",
}

// String implements fmt.Stringer. Unlisted codes keep their raw value so
// diagnostics never lose information.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}
