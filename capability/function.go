package capability

import (
	"fmt"
	"time"

	"github.com/botrelay/botrelay/core"
	"github.com/botrelay/botrelay/internal/util"
)

// FunctionCapability is a generic adapter that exposes a plain Go function as
// a callable capability.
//
// Responsibilities:
//   - Holds a lightweight JSON-Schema-like parameter specification
//   - Validates model supplied arguments against that schema before execution
//   - Invokes the wrapped function with a *core.CallContext giving access to
//     the thread, state and response suppression
//   - Normalizes error handling so callers receive *CapabilityError with
//     consistent codes:
//     VALIDATION_ERROR  -> schema / argument mismatch
//     EXECUTION_ERROR   -> underlying function returned an error
//     (custom codes preserved if the function returns *CapabilityError directly)
//
// A FunctionCapability has no internal mutable state after construction and is
// safe for concurrent use by multiple goroutines.
type FunctionCapability struct {
	// Function identifier (snake_case recommended)
	name string
	// Human-readable description shown to models
	description string
	// JSON schema describing accepted arguments
	parameters map[string]any
	// User supplied implementation
	fn func(callCtx *core.CallContext, args map[string]any) (any, error)
}

// NewFunctionCapability constructs a FunctionCapability from explicit schema
// and function.
//
// Example:
//
//	sum := NewFunctionCapability(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(cc *core.CallContext, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionCapability(
	name, description string,
	parameters map[string]any,
	fn func(callCtx *core.CallContext, args map[string]any) (any, error),
) *FunctionCapability {
	return &FunctionCapability{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionCapabilityFromStruct derives the parameter schema from a struct
// using reflection, equivalent to util.SchemaFromStruct(structType).
func NewFunctionCapabilityFromStruct(
	name, description string,
	structType any,
	fn func(callCtx *core.CallContext, args map[string]any) (any, error),
) *FunctionCapability {
	return NewFunctionCapability(name, description, util.SchemaFromStruct(structType), fn)
}

// Name returns the unique function name used in tool declarations and routing.
func (c *FunctionCapability) Name() string { return c.name }

// Description returns the short natural language description exposed to models.
func (c *FunctionCapability) Description() string { return c.description }

// Parameters returns the (minimal) JSON schema describing expected arguments.
func (c *FunctionCapability) Parameters() map[string]any { return c.parameters }

// Call validates the provided args against the declared schema then invokes
// the underlying function. Validation or execution failures are wrapped (or
// passed through) as *CapabilityError for uniform downstream handling.
func (c *FunctionCapability) Call(callCtx *core.CallContext, args map[string]any) (any, error) {
	logger := callCtx.Logger()
	start := time.Now()

	logger.Debug("capability.call.start", "capability", c.name, "fc_id", callCtx.FunctionCallID())

	if err := util.ValidateParameters(args, c.parameters); err != nil {
		logger.Warn("capability.call.validation_failed", "capability", c.name, "error", err.Error())

		return nil, &CapabilityError{
			Capability: c.name,
			Message:    fmt.Sprintf("parameter validation failed: %v", err),
			Code:       "VALIDATION_ERROR",
			Details:    err,
		}
	}

	result, err := c.fn(callCtx, args)
	if err != nil {
		if capErr, ok := err.(*CapabilityError); ok {
			logger.Error("capability.call.error", "capability", c.name, "error", capErr.Message)
			return nil, capErr
		}

		logger.Error("capability.call.error", "capability", c.name, "error", err.Error())

		return nil, &CapabilityError{
			Capability: c.name,
			Message:    err.Error(),
			Code:       "EXECUTION_ERROR",
		}
	}

	logger.Info("capability.call.success", "capability", c.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
