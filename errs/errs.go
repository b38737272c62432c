// Package errs defines the render core's error taxonomy.
//
// Frame-critical operations (device init, render graph compile) return a
// *RenderError; per-object operations (pool/handle lookups) return a
// sentinel value instead and never panic on well-formed input.
package errs

import "fmt"

// Kind names one of the error categories this core distinguishes.
type Kind int

const (
	// Initialization means HAL creation failed at startup; fatal to the renderer.
	Initialization Kind = iota
	// OutOfMemory means a pool or transient allocation failed.
	OutOfMemory
	// InvalidHandle means a generation mismatch or index out of bounds.
	InvalidHandle
	// GraphCompile means a render graph failed to compile (cycle, undefined
	// resource, descriptor conflict).
	GraphCompile
	// GpuTimeout means a fence or swapchain-acquire wait timed out.
	GpuTimeout
	// SwapchainLost means the presentation surface became invalid.
	SwapchainLost
)

func (k Kind) String() string {
	switch k {
	case Initialization:
		return "Initialization"
	case OutOfMemory:
		return "OutOfMemory"
	case InvalidHandle:
		return "InvalidHandle"
	case GraphCompile:
		return "GraphCompile"
	case GpuTimeout:
		return "GpuTimeout"
	case SwapchainLost:
		return "SwapchainLost"
	default:
		return "Unknown"
	}
}

// RenderError wraps a Kind with context. Nothing in the core panics under
// well-formed input; this is the only error type frame-critical operations
// return.
type RenderError struct {
	Kind    Kind
	Message string
	Wrapped error
}

func New(kind Kind, message string) *RenderError {
	return &RenderError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *RenderError {
	return &RenderError{Kind: kind, Message: message, Wrapped: err}
}

func (e *RenderError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RenderError) Unwrap() error { return e.Wrapped }

// Is allows errors.Is(err, &errs.RenderError{Kind: errs.OutOfMemory}) style
// matching against a Kind: any *RenderError target with the same Kind
// matches, whatever its Message and Wrapped fields.
func (e *RenderError) Is(target error) bool {
	other, ok := target.(*RenderError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the Kind, defaulting to Initialization when err is not a
// *RenderError (treated as unexpected/fatal).
func KindOf(err error) (Kind, bool) {
	re, ok := err.(*RenderError)
	if !ok {
		return 0, false
	}
	return re.Kind, true
}
