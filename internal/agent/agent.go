// Package agent implements the research assistant: a tool-calling loop over
// the chat-completion API, driven by a finite state machine.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/mindfulmate/internal/config"
	"github.com/comigor/mindfulmate/internal/llm"
	"github.com/comigor/mindfulmate/internal/logger"
	"github.com/comigor/mindfulmate/pkg/tools"
)

// FSM states
const (
	StateIdle           = "Idle"
	StateReadyToCallLLM = "ReadyToCallLLM"
	StateExecutingTools = "ExecutingTools"
	StateDone           = "Done"  // terminal: final answer received
	StateError          = "Error" // terminal: lastError is set
)

// FSM triggers
const (
	TriggerProcessInput            = "ProcessInput"
	TriggerLLMRespondedWithContent = "LLMRespondedWithContent"
	TriggerLLMRequestedTools       = "LLMRequestedTools"
	TriggerToolsExecutionCompleted = "ToolsExecutionCompleted"
	TriggerErrorOccurred           = "ErrorOccurred"
)

// ErrMaxTurns is returned when the model keeps requesting tools past the turn limit.
var ErrMaxTurns = errors.New("exceeded maximum interaction turns")

const defaultMaxTurns = 5

const defaultSystemPrompt = `You are a research assistant that will help generate a research paper. Answer the user query and use necessary tools.
Wrap the output in this format and provide no other text:
{"topic": "string", "summary": "string", "sources": ["string"], "tools_used": ["string"]}`

// Agent answers research questions, calling tools as the model requests them.
type Agent struct {
	llmClient    llm.Client
	model        string
	tools        *tools.ToolManager
	systemPrompt string
	maxTurns     int
}

// New creates a research agent. extraPrompts (e.g. discovered on MCP servers)
// are appended to the system prompt.
func New(llmClient llm.Client, cfg config.Config, toolManager *tools.ToolManager, extraPrompts ...string) *Agent {
	prompt := defaultSystemPrompt
	if cfg.Research.SystemPrompt != "" {
		prompt = cfg.Research.SystemPrompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	for _, p := range extraPrompts {
		b.WriteString("\n\n")
		b.WriteString(p)
	}

	maxTurns := cfg.Research.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	model := cfg.LLM.ResearchModel
	if model == "" {
		model = cfg.LLM.Model
	}
	if toolManager == nil {
		toolManager = tools.NewToolManager()
	}

	return &Agent{
		llmClient:    llmClient,
		model:        model,
		tools:        toolManager,
		systemPrompt: b.String(),
		maxTurns:     maxTurns,
	}
}

// Process runs the research loop for one query and returns the model's final text.
func (a *Agent) Process(ctx context.Context, request string) (string, error) {
	type fsmContext struct {
		messages     []openai.ChatCompletionMessage
		llmResponse  *openai.ChatCompletionResponse
		finalContent string
		lastError    error
		currentTurn  int
	}

	fsmCtx := &fsmContext{
		messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: a.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: request},
		},
	}
	availableTools := a.tools.OpenAITools()

	fsm := stateless.NewStateMachine(StateIdle)

	fsm.Configure(StateIdle).
		Permit(TriggerProcessInput, StateReadyToCallLLM)

	fsm.Configure(StateReadyToCallLLM).
		OnEntry(func(ctx context.Context, _ ...any) error {
			if fsmCtx.currentTurn >= a.maxTurns {
				logger.L.Warn("max interaction turns reached", "maxTurns", a.maxTurns)
				fsmCtx.lastError = ErrMaxTurns
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			fsmCtx.currentTurn++
			logger.L.Debug("FSM: entering ReadyToCallLLM", "turn", fsmCtx.currentTurn)

			llmResp, err := a.llmClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:    a.model,
				Messages: fsmCtx.messages,
				Tools:    availableTools,
			})
			if err != nil {
				logger.L.Error("LLM call failed", "error", err)
				fsmCtx.lastError = fmt.Errorf("research completion: %w", err)
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			if len(llmResp.Choices) == 0 {
				fsmCtx.lastError = llm.ErrEmptyCompletion
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			fsmCtx.llmResponse = &llmResp

			if len(llmResp.Choices[0].Message.ToolCalls) > 0 {
				return fsm.FireCtx(ctx, TriggerLLMRequestedTools)
			}
			return fsm.FireCtx(ctx, TriggerLLMRespondedWithContent)
		}).
		Permit(TriggerLLMRequestedTools, StateExecutingTools).
		Permit(TriggerLLMRespondedWithContent, StateDone).
		Permit(TriggerErrorOccurred, StateError)

	fsm.Configure(StateExecutingTools).
		OnEntry(func(ctx context.Context, _ ...any) error {
			logger.L.Debug("FSM: entering ExecutingTools")
			assistantMsg := fsmCtx.llmResponse.Choices[0].Message
			fsmCtx.messages = append(fsmCtx.messages, assistantMsg)

			for _, toolCall := range assistantMsg.ToolCalls {
				fsmCtx.messages = append(fsmCtx.messages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    a.executeTool(ctx, toolCall),
					ToolCallID: toolCall.ID,
					Name:       toolCall.Function.Name,
				})
			}
			return fsm.FireCtx(ctx, TriggerToolsExecutionCompleted)
		}).
		Permit(TriggerToolsExecutionCompleted, StateReadyToCallLLM)

	fsm.Configure(StateDone).
		OnEntry(func(context.Context, ...any) error {
			fsmCtx.finalContent = fsmCtx.llmResponse.Choices[0].Message.Content
			return nil
		})

	fsm.Configure(StateError).
		OnEntry(func(context.Context, ...any) error {
			logger.L.Debug("FSM: entering Error", "error", fsmCtx.lastError)
			return nil
		})

	if err := fsm.FireCtx(ctx, TriggerProcessInput); err != nil {
		if fsmCtx.lastError != nil {
			return "", fsmCtx.lastError
		}
		return "", fmt.Errorf("research state machine: %w", err)
	}

	state, err := fsm.State(ctx)
	if err != nil {
		return "", fmt.Errorf("research state machine: %w", err)
	}
	switch state {
	case StateDone:
		return fsmCtx.finalContent, nil
	case StateError:
		return "", fsmCtx.lastError
	default:
		return "", fmt.Errorf("research state machine ended in unexpected state: %v", state)
	}
}

// executeTool runs one requested tool. Failures are reported back to the
// model as the tool output so it can recover.
func (a *Agent) executeTool(ctx context.Context, call openai.ToolCall) string {
	tool, err := a.tools.GetTool(call.Function.Name)
	if err != nil {
		logger.L.Warn("LLM requested unknown tool", "tool", call.Function.Name)
		return "Error: " + err.Error()
	}

	logger.L.Debug("executing tool", "tool", call.Function.Name, "arguments", call.Function.Arguments)
	out, err := tool.Run(ctx, call.Function.Arguments)
	if err != nil {
		logger.L.Warn("tool execution failed", "tool", call.Function.Name, "error", err)
		return "Error: " + err.Error()
	}
	return out
}
