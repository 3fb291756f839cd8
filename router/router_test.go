package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botrelay/botrelay/capability"
	"github.com/botrelay/botrelay/config"
	"github.com/botrelay/botrelay/core"
	"github.com/botrelay/botrelay/intercept"
	"github.com/botrelay/botrelay/model"
	"github.com/botrelay/botrelay/store"
)

func mockOptions() config.RouterOptions {
	return config.RouterOptions{
		Provider: "mock",
		APIKey:   "test-key",
		Model:    "mock-model",
	}
}

func newTestRouter(t *testing.T, mock model.Model) *Router {
	t.Helper()
	r, err := New(func(o *Options) {
		o.Store = store.NewInMemoryStore()
		o.MockModel = mock
	})
	require.NoError(t, err)
	return r
}

func newThread(text string) *core.Thread {
	return core.NewThread("user-1", "wf-1", "support", "support_agent", "t1", core.InboundMessage{Text: text})
}

func TestRoute_AnswersWithText(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.AddResponse("hello", "hi there")

	r := newTestRouter(t, mock)

	outcome, err := r.Route(context.Background(), newThread("hello"), "You are helpful.", mockOptions(), nil)
	require.NoError(t, err)
	assert.False(t, outcome.Suppressed)
	assert.Equal(t, "hi there", outcome.Text)
}

func TestRoute_SystemPromptBecomesInstructions(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	r := newTestRouter(t, mock)

	_, err := r.Route(context.Background(), newThread("hello"), "You are terse.", mockOptions(), nil)
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "You are terse.", reqs[0].Instructions)
	// The current message is the trailing user turn, appearing exactly once.
	count := 0
	for _, m := range reqs[0].Messages {
		if m.Role == core.RoleUser && m.Text == "hello" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRoute_SkipResponseSuppressesAndResets(t *testing.T) {
	notify := capability.NewFunctionCapability("notify", "Delivers the reply itself",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(cc *core.CallContext, args map[string]any) (any, error) {
			cc.SkipResponse()
			return "delivered", nil
		},
	)
	caps, err := capability.NewRegistry(capability.Descriptor{
		Name: "notifier", Shared: true, Functions: []capability.Capability{notify},
	})
	require.NoError(t, err)

	mock := model.NewMockModel("test", "mock")
	mock.Script(
		model.Response{ToolCalls: []model.ToolCall{{
			ID: "call_1", Type: "function",
			Function: model.ToolCallFunction{Name: "notify", Arguments: []byte("{}")},
		}}},
		model.Response{Text: "this reply is suppressed"},
	)

	r := newTestRouter(t, mock)

	thread := newThread("tell them")
	outcome, err := r.Route(context.Background(), thread, "sys", mockOptions(), caps)
	require.NoError(t, err)
	assert.True(t, outcome.Suppressed)
	assert.Empty(t, outcome.Text)
	// The flag is consumed; the next turn on the same thread answers normally.
	assert.False(t, thread.SkipResponse())

	mock.Script(model.Response{Text: "normal answer"})
	outcome, err = r.Route(context.Background(), thread, "sys", mockOptions(), caps)
	require.NoError(t, err)
	assert.False(t, outcome.Suppressed)
	assert.Equal(t, "normal answer", outcome.Text)
}

func TestRoute_FailingInterceptorDoesNotBreakTurn(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.AddResponse("hello", "hi there")

	r := newTestRouter(t, mock)

	bad := intercept.Funcs{
		Incoming: func(ctx context.Context, thread *core.Thread) (*core.Thread, error) {
			return nil, errors.New("incoming hook broken")
		},
		Outgoing: func(ctx context.Context, thread *core.Thread, response string) (string, error) {
			panic("outgoing hook broken")
		},
	}

	outcome, err := r.Route(context.Background(), newThread("hello"), "sys", mockOptions(), nil, bad)
	require.NoError(t, err)
	assert.Equal(t, "hi there", outcome.Text)
}

func TestRoute_OutgoingInterceptorRewritesReply(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.AddResponse("hello", "hi there")

	r := newTestRouter(t, mock)

	redact := intercept.Funcs{
		Outgoing: func(ctx context.Context, thread *core.Thread, response string) (string, error) {
			return "[filtered] " + response, nil
		},
	}

	outcome, err := r.Route(context.Background(), newThread("hello"), "sys", mockOptions(), nil, redact)
	require.NoError(t, err)
	assert.Equal(t, "[filtered] hi there", outcome.Text)
}

func TestRoute_MissingConfigurationFailsFast(t *testing.T) {
	for _, key := range []string{
		config.EnvProvider, config.EnvAPIKey, config.EnvModel, config.EnvDeployment,
	} {
		t.Setenv(key, "")
	}

	mock := model.NewMockModel("test", "mock")
	r := newTestRouter(t, mock)

	_, err := r.Route(context.Background(), newThread("hello"), "sys", config.RouterOptions{Provider: "mock", APIKey: "k"}, nil)
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "model name", cfgErr.Field)
	assert.Empty(t, mock.Requests())
}

func TestRoute_HistoryFromStoreReachesModel(t *testing.T) {
	st := store.NewInMemoryStore()
	st.Append(core.PersistedMessage{ThreadID: "t1", Direction: core.DirectionIncoming, Text: "what is my order status?"})
	st.Append(core.PersistedMessage{ThreadID: "t1", Direction: core.DirectionOutgoing, Text: "it shipped yesterday"})

	mock := model.NewMockModel("test", "mock")
	r, err := New(func(o *Options) {
		o.Store = st
		o.MockModel = mock
	})
	require.NoError(t, err)

	_, err = r.Route(context.Background(), newThread("thanks!"), "sys", mockOptions(), nil)
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	msgs := reqs[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, "what is my order status?", msgs[0].Text)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "thanks!", msgs[2].Text)
}

func TestRoute_SameWorkflowTypeSharesEngine(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	r := newTestRouter(t, mock)

	weather := capability.NewFunctionCapability("get_weather", "Weather lookup",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(cc *core.CallContext, args map[string]any) (any, error) { return "sunny", nil },
	)
	caps, err := capability.NewRegistry(capability.Descriptor{
		Name: "weather", Shared: true, Functions: []capability.Capability{weather},
	})
	require.NoError(t, err)

	_, err = r.Route(context.Background(), newThread("a"), "sys", mockOptions(), caps)
	require.NoError(t, err)
	_, err = r.Route(context.Background(), newThread("b"), "sys", mockOptions(), caps)
	require.NoError(t, err)

	// Shared registration is idempotent across turns: the tool list never grows.
	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[0].Tools, 1)
	assert.Len(t, reqs[1].Tools, 1)
}

func TestComplete_BareCompletion(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.AddResponse("2+2?", "4")

	r := newTestRouter(t, mock)

	got, err := r.Complete(context.Background(), "2+2?", "You are a calculator.", mockOptions())
	require.NoError(t, err)
	assert.Equal(t, "4", got)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "You are a calculator.", reqs[0].Instructions)
	assert.Empty(t, reqs[0].Tools)
}

func TestMergeOptions_OverridesNonZeroFieldsOnly(t *testing.T) {
	defaults := config.DefaultRouterOptions()
	merged := mergeOptions(defaults, config.RouterOptions{Model: "gpt-4o", MaxTokens: 100})

	assert.Equal(t, "gpt-4o", merged.Model)
	assert.Equal(t, int64(100), merged.MaxTokens)
	assert.Equal(t, defaults.Temperature, merged.Temperature)
	assert.Equal(t, defaults.HistorySize, merged.HistorySize)
}
