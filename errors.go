package dieselvk

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Error categories. Precondition violations mean the machine cannot run the
// engine at all; driver faults are unexpected results from the GPU API. Both
// are fatal and unwind to the process entry point.
var (
	ErrPrecondition = errors.New("precondition violated")
	ErrDriverFault  = errors.New("driver fault")
)

var (
	ErrAllocation       = errors.Mark(errors.New("no memory type satisfies the requested properties"), ErrPrecondition)
	ErrNoDepthFormat    = errors.Mark(errors.New("no supported depth format"), ErrPrecondition)
	ErrValidationLayers = errors.Mark(errors.New("validation layers requested but not available"), ErrPrecondition)
	ErrNoDevice         = errors.Mark(errors.New("no suitable GPU device"), ErrPrecondition)
	ErrNoSurfaceFormat  = errors.Mark(errors.New("surface reports no pixel formats"), ErrPrecondition)

	// ErrFrameState is returned when a frame slot is driven through an
	// illegal state transition.
	ErrFrameState = errors.New("illegal frame slot transition")
)

// NewError converts a vulkan result into an error. Success maps to nil.
func NewError(ret vk.Result) error {
	if !isError(ret) {
		return nil
	}
	return errors.Mark(errors.Newf("vulkan error: %s (%d)", resultString(ret), ret), ErrDriverFault)
}

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

func resultString(ret vk.Result) string {
	if err := vk.Error(ret); err != nil {
		return err.Error()
	}
	return "success"
}

// IsPrecondition reports whether err signals a misconfigured environment.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition)
}

// IsDriverFault reports whether err came from an unexpected driver result.
func IsDriverFault(err error) bool {
	return errors.Is(err, ErrDriverFault)
}

// checkErr recovers a panic raised through orPanic into *err.
func checkErr(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok {
			*err = e
			return
		}
		*err = errors.Newf("%+v", v)
	}
}

func orPanic(err error, finalizers ...func()) {
	if err != nil {
		for _, fn := range finalizers {
			fn()
		}
		panic(err)
	}
}
