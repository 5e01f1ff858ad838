package modelbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopercore/looper/internal/looper/model"
)

type stubClient struct {
	text  string
	usage model.TokenUsage
	err   error
}

func (s stubClient) Complete(context.Context, string, string, int) (string, model.TokenUsage, error) {
	return s.text, s.usage, s.err
}

func TestLocal_Detect_ParsesContractAndForwardsUsage(t *testing.T) {
	t.Parallel()
	client := stubClient{
		text:  `some preamble {"surprising_indices": [0, 2], "rationale": "because"} trailing`,
		usage: model.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}
	local := Local{Client: client}

	result, err := local.Detect(context.Background(), []model.Percept{{Content: "a"}, {Content: "b"}, {Content: "c"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, result.SurprisingIndices)
	assert.Equal(t, "because", result.Rationale)
	assert.Equal(t, model.TokenUsage{InputTokens: 10, OutputTokens: 5}, result.Usage)
}

func TestLocal_Detect_PropagatesClientError(t *testing.T) {
	t.Parallel()
	local := Local{Client: stubClient{err: assert.AnError}}
	_, err := local.Detect(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "local reasoner completion")
}

func TestLocal_Detect_MalformedContractIsAnError(t *testing.T) {
	t.Parallel()
	local := Local{Client: stubClient{text: "not json at all"}}
	_, err := local.Detect(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "parse local reasoner contract")
}

func TestFrontier_Plan_DecodesChatAndWebSearchActions(t *testing.T) {
	t.Parallel()
	client := stubClient{text: `{"actions": [
		{"actuator_name": "chat", "keyword": "chat", "payload": {"message": "hi"}},
		{"actuator_name": "web_search", "keyword": "web_search", "payload": {"query": "q"}}
	], "rationale": "plan"}`}
	frontier := Frontier{Client: client}

	result, err := frontier.Plan(context.Background(), []model.Percept{{Content: "surprising"}})
	require.NoError(t, err)
	require.Len(t, result.Actions, 2)
	assert.Equal(t, model.ActionChat, result.Actions[0].Action.Kind)
	assert.Equal(t, "hi", result.Actions[0].Action.Message)
	assert.Equal(t, model.ActionWebSearch, result.Actions[1].Action.Kind)
	assert.Equal(t, "q", result.Actions[1].Action.Query)
}

func TestFrontier_Plan_UnknownKeywordIsAnError(t *testing.T) {
	t.Parallel()
	client := stubClient{text: `{"actions": [{"actuator_name": "x", "keyword": "teleport", "payload": {}}]}`}
	_, err := Frontier{Client: client}.Plan(context.Background(), nil)
	assert.ErrorContains(t, err, "unknown action keyword")
}

func TestExtractJSON_StripsSurroundingProse(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `{"a":1}`, extractJSON(`here you go: {"a":1} thanks`))
	assert.Equal(t, "no braces here", extractJSON("no braces here"))
}

func TestDecodeAction_ShellAndUnknownKeyword(t *testing.T) {
	t.Parallel()
	action, err := decodeAction("shell", []byte(`{"command":"ls -la"}`))
	require.NoError(t, err)
	assert.Equal(t, model.ActionShell, action.Kind)
	assert.Equal(t, "ls -la", action.Command)

	_, err = decodeAction("unknown", nil)
	assert.Error(t, err)
}
