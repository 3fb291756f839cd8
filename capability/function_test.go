package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botrelay/botrelay/core"
)

func callCtx() *core.CallContext {
	thread := core.NewThread("user-1", "wf-1", "support", "support_agent", "t1", core.InboundMessage{Text: "hi"})
	return core.NewCallContext(context.Background(), thread, "call_1", nil)
}

func sumCapability() *FunctionCapability {
	return NewFunctionCapability(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(cc *core.CallContext, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)
}

func TestFunctionCapability_Call(t *testing.T) {
	result, err := sumCapability().Call(callCtx(), map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionCapability_MissingRequiredArgument(t *testing.T) {
	_, err := sumCapability().Call(callCtx(), map[string]any{"a": 2.0})
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "VALIDATION_ERROR", capErr.Code)
	assert.Equal(t, "calculate_sum", capErr.Capability)
}

func TestFunctionCapability_WrongArgumentType(t *testing.T) {
	_, err := sumCapability().Call(callCtx(), map[string]any{"a": "two", "b": 3.0})
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "VALIDATION_ERROR", capErr.Code)
}

func TestFunctionCapability_ExecutionErrorWrapped(t *testing.T) {
	failing := NewFunctionCapability("failing", "always fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(cc *core.CallContext, args map[string]any) (any, error) {
			return nil, errors.New("backend unavailable")
		},
	)

	_, err := failing.Call(callCtx(), map[string]any{})
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "EXECUTION_ERROR", capErr.Code)
	assert.Equal(t, "backend unavailable", capErr.Message)
}

func TestFunctionCapability_CustomErrorPreserved(t *testing.T) {
	custom := NewFunctionCapability("custom", "returns a typed error",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(cc *core.CallContext, args map[string]any) (any, error) {
			return nil, NewCapabilityError("custom", "quota exceeded", "RATE_LIMIT")
		},
	)

	_, err := custom.Call(callCtx(), map[string]any{})
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "RATE_LIMIT", capErr.Code)
}

func TestNewFunctionCapabilityFromStruct(t *testing.T) {
	type params struct {
		City string `json:"city" description:"City name"`
		Days int    `json:"days,omitempty"`
	}

	fc := NewFunctionCapabilityFromStruct("get_weather", "Weather lookup", params{},
		func(cc *core.CallContext, args map[string]any) (any, error) { return "sunny", nil },
	)

	schema := fc.Parameters()
	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "city")
	assert.Contains(t, props, "days")
}
