package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/comigor/mindfulmate/internal/config"
	"github.com/comigor/mindfulmate/pkg/tools"
)

type mockLLM struct {
	calls    []openai.ChatCompletionResponse
	err      error
	requests []openai.ChatCompletionRequest
}

func (m *mockLLM) CreateChatCompletion(ctx context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, r)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if len(m.calls) == 0 {
		panic("mockLLM: no more responses configured for request: " + r.Messages[0].Content)
	}
	resp := m.calls[0]
	m.calls = m.calls[1:]
	return resp, nil
}

type stubTool struct {
	name   string
	out    string
	err    error
	gotArg string
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub " + s.name }
func (s *stubTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}}}`)
}
func (s *stubTool) Run(_ context.Context, args string) (string, error) {
	s.gotArg = args
	return s.out, s.err
}

func contentResponse(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text},
	}}}
}

func toolCallResponse(id, name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:       id,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: name, Arguments: args},
			}},
		},
	}}}
}

var testCfg = config.Config{LLM: config.LLMConfig{Model: "gpt", ResearchModel: "gpt-research"}}

// TestAgentProcess_LLMRespondsDirectly tests the scenario where the LLM responds directly without tool usage.
func TestAgentProcess_LLMRespondsDirectly(t *testing.T) {
	mockLLMClient := &mockLLM{calls: []openai.ChatCompletionResponse{contentResponse(`{"topic":"x"}`)}}
	a := New(mockLLMClient, testCfg, nil)

	out, err := a.Process(context.Background(), "research x")
	require.NoError(t, err)
	require.Equal(t, `{"topic":"x"}`, out)

	require.Len(t, mockLLMClient.requests, 1)
	req := mockLLMClient.requests[0]
	require.Equal(t, "gpt-research", req.Model)
	require.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	require.Contains(t, req.Messages[0].Content, "research assistant")
	require.Equal(t, "research x", req.Messages[1].Content)
	require.Empty(t, req.Tools)
}

// TestAgentProcess_ToolCallSuccess tests the full flow: the LLM requests a tool, the
// tool runs, and the LLM gives the final answer.
func TestAgentProcess_ToolCallSuccess(t *testing.T) {
	search := &stubTool{name: "search", out: "Meditation lowers cortisol."}
	mgr := tools.NewToolManager()
	require.NoError(t, mgr.RegisterTool(search))

	final := `{"topic":"meditation","summary":"It helps.","sources":["example.org"],"tools_used":["search"]}`
	mockLLMClient := &mockLLM{calls: []openai.ChatCompletionResponse{
		toolCallResponse("call_123", "search", `{"query":"meditation stress"}`),
		contentResponse(final),
	}}
	a := New(mockLLMClient, testCfg, mgr)

	out, err := a.Process(context.Background(), "research meditation")
	require.NoError(t, err)
	require.Equal(t, final, out)
	require.Equal(t, `{"query":"meditation stress"}`, search.gotArg)

	require.Len(t, mockLLMClient.requests, 2)
	require.Len(t, mockLLMClient.requests[0].Tools, 1)
	second := mockLLMClient.requests[1].Messages
	require.Len(t, second, 4)
	require.Equal(t, openai.ChatMessageRoleAssistant, second[2].Role)
	require.Equal(t, openai.ChatMessageRoleTool, second[3].Role)
	require.Equal(t, "call_123", second[3].ToolCallID)
	require.Equal(t, "Meditation lowers cortisol.", second[3].Content)
}

// TestAgentProcess_ToolFails tests that tool errors are handed back to the LLM.
func TestAgentProcess_ToolFails(t *testing.T) {
	broken := &stubTool{name: "broken_tool", err: errors.New("tool execution failed badly")}
	mgr := tools.NewToolManager()
	require.NoError(t, mgr.RegisterTool(broken))

	mockLLMClient := &mockLLM{calls: []openai.ChatCompletionResponse{
		toolCallResponse("call_456", "broken_tool", `{}`),
		toolCallResponse("call_789", "missing_tool", `{}`),
		contentResponse("Sorry, the tools failed."),
	}}
	a := New(mockLLMClient, testCfg, mgr)

	out, err := a.Process(context.Background(), "use the broken tool")
	require.NoError(t, err)
	require.Equal(t, "Sorry, the tools failed.", out)

	msgs := mockLLMClient.requests[2].Messages
	require.Equal(t, "Error: tool execution failed badly", msgs[3].Content)
	require.Equal(t, "Error: tool not found: missing_tool", msgs[5].Content)
}

func TestAgentProcess_LLMError(t *testing.T) {
	a := New(&mockLLM{err: context.DeadlineExceeded}, testCfg, nil)
	_, err := a.Process(context.Background(), "hi")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAgentProcess_MaxTurns(t *testing.T) {
	mgr := tools.NewToolManager()
	require.NoError(t, mgr.RegisterTool(&stubTool{name: "search", out: "more"}))

	cfg := testCfg
	cfg.Research.MaxTurns = 2
	mockLLMClient := &mockLLM{calls: []openai.ChatCompletionResponse{
		toolCallResponse("c1", "search", `{}`),
		toolCallResponse("c2", "search", `{}`),
	}}
	a := New(mockLLMClient, cfg, mgr)

	_, err := a.Process(context.Background(), "loop forever")
	require.ErrorIs(t, err, ErrMaxTurns)
	require.Len(t, mockLLMClient.requests, 2)
}

func TestNew_PromptsAndDefaults(t *testing.T) {
	a := New(&mockLLM{}, config.Config{LLM: config.LLMConfig{Model: "gpt"}}, nil, "Cite peer-reviewed work.")
	require.Equal(t, "gpt", a.model)
	require.Equal(t, defaultMaxTurns, a.maxTurns)
	require.True(t, strings.HasSuffix(a.systemPrompt, "\n\nCite peer-reviewed work."))

	cfg := config.Config{Research: config.ResearchConfig{SystemPrompt: "custom"}}
	a = New(&mockLLM{}, cfg, nil)
	require.Equal(t, "custom", a.systemPrompt)
}
