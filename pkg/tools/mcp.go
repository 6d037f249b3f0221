package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/comigor/mindfulmate/internal/config"
	"github.com/comigor/mindfulmate/internal/logger"
)

var emptyObjectSchema = json.RawMessage(`{"type": "object", "properties": {}}`)

// MCPClient is the subset of the mcp-go client used to discover and call tools.
type MCPClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	ListPrompts(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error)
	GetPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// MCPSet holds the tools and system prompts discovered on MCP servers.
type MCPSet struct {
	Tools   []Tool
	Prompts []string
	clients []MCPClient
	names   map[string]bool
}

// ConnectMCP connects to every configured server. ctx bounds discovery only;
// transports stay open until Close. Servers that fail to start or initialize
// are logged and skipped.
func ConnectMCP(ctx context.Context, servers []config.MCPServerConfig) *MCPSet {
	set := &MCPSet{names: make(map[string]bool)}

	for _, serverCfg := range servers {
		var mcpC *client.Client
		var err error

		switch serverCfg.Type {
		case config.ClientTypeSSE:
			var sseOpts []transport.ClientOption
			if len(serverCfg.Headers) > 0 {
				sseOpts = append(sseOpts, transport.WithHeaders(serverCfg.Headers))
			}
			mcpC, err = client.NewSSEMCPClient(serverCfg.URL, sseOpts...)
		case config.ClientTypeStreamableHTTP:
			var httpOpts []transport.StreamableHTTPCOption
			if len(serverCfg.Headers) > 0 {
				httpOpts = append(httpOpts, transport.WithHTTPHeaders(serverCfg.Headers))
			}
			mcpC, err = client.NewStreamableHttpClient(serverCfg.URL, httpOpts...)
		case config.ClientTypeStdio:
			var env []string
			for k, v := range serverCfg.Env {
				env = append(env, fmt.Sprintf("%s=%s", k, v))
			}
			mcpC, err = client.NewStdioMCPClient(serverCfg.Command, env, serverCfg.Args...)
		default:
			logger.L.Warn("unsupported MCP server type, skipping", "type", serverCfg.Type, "name", serverCfg.Name)
			continue
		}
		if err != nil {
			logger.L.Error("failed to create MCP client", "name", serverCfg.Name, "error", err)
			continue
		}

		// stdio clients are started by their constructor. The SSE stream is
		// bound to the Start context, so it must outlive ctx.
		if serverCfg.Type != config.ClientTypeStdio {
			if err := mcpC.Start(context.WithoutCancel(ctx)); err != nil {
				logger.L.Error("failed to start MCP client transport", "name", serverCfg.Name, "error", err)
				if cerr := mcpC.Close(); cerr != nil {
					logger.L.Warn("MCP client close error after start failure", "error", cerr)
				}
				continue
			}
		}

		if err := set.Add(ctx, serverCfg.Name, mcpC); err != nil {
			logger.L.Error("failed to initialize MCP client", "name", serverCfg.Name, "error", err)
			if cerr := mcpC.Close(); cerr != nil {
				logger.L.Warn("MCP client close error after init failure", "error", cerr)
			}
		}
	}

	if len(set.clients) == 0 && len(servers) > 0 {
		logger.L.Warn("no MCP clients were initialized despite servers configured", "configured", len(servers))
	}
	return set
}

// Add initializes c and registers its prompts and tools. A tool whose name is
// already taken by an earlier server is skipped.
func (s *MCPSet) Add(ctx context.Context, server string, c MCPClient) error {
	if s.names == nil {
		s.names = make(map[string]bool)
	}

	initResult, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{Capabilities: mcp.ClientCapabilities{}},
	})
	if err != nil {
		return err
	}
	s.clients = append(s.clients, c)
	logger.L.Info("MCP server initialized", "name", server)

	if initResult != nil && initResult.Capabilities.Prompts != nil {
		if prompt := firstSystemPrompt(ctx, server, c); prompt != "" {
			s.Prompts = append(s.Prompts, prompt)
			logger.L.Info("discovered system prompt from MCP server", "name", server)
		}
	}

	listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil || listed == nil {
		logger.L.Warn("failed to list tools for MCP client", "name", server, "error", err)
		return nil
	}
	for _, tool := range listed.Tools {
		if s.names[tool.Name] {
			logger.L.Warn("tool already registered by another MCP server, skipping", "tool", tool.Name, "name", server)
			continue
		}
		s.names[tool.Name] = true
		s.Tools = append(s.Tools, &MCPTool{client: c, tool: tool, server: server})
		logger.L.Info("registered tool from MCP server", "tool", tool.Name, "name", server)
	}
	return nil
}

// Close closes every connected client.
func (s *MCPSet) Close() error {
	var errs []error
	for _, c := range s.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// firstSystemPrompt returns the assistant text of the first prompt that takes
// no arguments.
func firstSystemPrompt(ctx context.Context, server string, c MCPClient) string {
	prompts, err := c.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil || prompts == nil {
		logger.L.Warn("failed to list prompts", "name", server, "error", err)
		return ""
	}
	idx := slices.IndexFunc(prompts.Prompts, func(p mcp.Prompt) bool {
		return len(p.Arguments) == 0
	})
	if idx == -1 {
		return ""
	}

	got, err := c.GetPrompt(ctx, mcp.GetPromptRequest{
		Params: mcp.GetPromptParams{Name: prompts.Prompts[idx].Name},
	})
	if err != nil || got == nil {
		logger.L.Warn("failed to get prompt", "name", server, "error", err)
		return ""
	}
	for _, m := range got.Messages {
		if m.Role != mcp.RoleAssistant {
			continue
		}
		if content, ok := m.Content.(mcp.TextContent); ok {
			return content.Text
		}
	}
	return ""
}

// MCPTool exposes a tool hosted on an MCP server.
type MCPTool struct {
	client MCPClient
	tool   mcp.Tool
	server string
}

func (t *MCPTool) Name() string        { return t.tool.Name }
func (t *MCPTool) Description() string { return t.tool.Description }

func (t *MCPTool) Parameters() json.RawMessage {
	if len(t.tool.RawInputSchema) > 0 && string(t.tool.RawInputSchema) != "null" {
		return t.tool.RawInputSchema
	}
	b, err := json.Marshal(t.tool.InputSchema)
	var probe struct {
		Type string `json:"type"`
	}
	if err != nil || json.Unmarshal(b, &probe) != nil || probe.Type == "" {
		return emptyObjectSchema
	}
	return b
}

func (t *MCPTool) Run(ctx context.Context, args string) (string, error) {
	var toolArgs map[string]any
	if args != "" {
		if err := json.Unmarshal([]byte(args), &toolArgs); err != nil {
			return "", fmt.Errorf("could not parse arguments for tool %s: %w", t.tool.Name, err)
		}
	}

	result, err := t.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: t.tool.Name, Arguments: toolArgs},
	})
	if err != nil {
		return "", fmt.Errorf("mcp %s: %w", t.server, err)
	}
	if result == nil {
		return "", fmt.Errorf("mcp %s: empty result for %s", t.server, t.tool.Name)
	}

	text := firstText(result.Content)
	if result.IsError {
		logger.L.Warn("MCP tool executed with IsError=true", "tool", t.tool.Name, "content", text)
		if text == "" {
			text = "Tool execution resulted in an error without specific text."
		}
		return text, nil
	}
	if text == "" {
		b, err := json.Marshal(result)
		if err != nil {
			return "Tool executed successfully, but result could not be formatted.", nil
		}
		text = string(b)
	}
	return text, nil
}

func firstText(content []mcp.Content) string {
	for _, item := range content {
		if tc, ok := item.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
