package tools

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ToolManager manages the available tools
type ToolManager struct {
	tools map[string]Tool
	order []string
}

// NewToolManager creates a new ToolManager
func NewToolManager() *ToolManager {
	return &ToolManager{
		tools: make(map[string]Tool),
	}
}

// RegisterTool registers a new tool. Names are unique; the first registration wins.
func (m *ToolManager) RegisterTool(tool Tool) error {
	if _, exists := m.tools[tool.Name()]; exists {
		return fmt.Errorf("tool already registered: %s", tool.Name())
	}
	m.tools[tool.Name()] = tool
	m.order = append(m.order, tool.Name())
	return nil
}

// GetTool retrieves a tool by name
func (m *ToolManager) GetTool(name string) (Tool, error) {
	tool, ok := m.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool, nil
}

// List returns all registered tools in registration order
func (m *ToolManager) List() []Tool {
	ts := make([]Tool, 0, len(m.order))
	for _, name := range m.order {
		ts = append(ts, m.tools[name])
	}
	return ts
}

// OpenAITools describes every registered tool as an OpenAI function tool.
func (m *ToolManager) OpenAITools() []openai.Tool {
	out := make([]openai.Tool, 0, len(m.order))
	for _, t := range m.List() {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return out
}
