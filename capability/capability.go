// Package capability implements the function calling subsystem that lets the
// router expose structured capabilities (APIs, computations, side effects) to
// language models with schema validated arguments and consistent error
// handling.
//
// Capabilities are registered via Descriptors. A shared descriptor contributes
// stateless functions registered once per cached engine; an instance
// descriptor is bound to the current thread every turn, its functions
// replacing whatever the previous turn registered under the same descriptor.
package capability

import (
	"fmt"

	"github.com/botrelay/botrelay/core"
	"github.com/botrelay/botrelay/internal/util"
)

// Capability defines a single callable function exposed to the model.
//
// Implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Define a proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be safe for concurrent use when shared
type Capability interface {
	// Name returns the unique identifier for this function.
	Name() string

	// Description returns a human-readable description provided to the LLM to
	// help it understand when and how to use the function.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the function with validated arguments and a CallContext
	// giving access to the thread, state and response suppression.
	Call(callCtx *core.CallContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// CapabilityError represents errors that occur during capability execution.
type CapabilityError struct {
	Capability string `json:"capability"`        // Name of the function that failed
	Message    string `json:"message"`           // Error message
	Code       string `json:"code"`              // Error code for categorization
	Details    any    `json:"details,omitempty"` // Additional error details
}

func (e *CapabilityError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("capability error [%s] in %s: %s", e.Code, e.Capability, e.Message)
	}
	return fmt.Sprintf("capability error in %s: %s", e.Capability, e.Message)
}

// NewCapabilityError creates a new CapabilityError with the specified details.
func NewCapabilityError(capability, message, code string) *CapabilityError {
	return &CapabilityError{Capability: capability, Message: message, Code: code}
}

// ConstructionError reports an instance descriptor whose bind function could
// not produce capabilities for the current thread.
type ConstructionError struct {
	Descriptor string
	Err        error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("capability construction failed for %q: %v", e.Descriptor, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ConstructionError) Unwrap() error { return e.Err }
