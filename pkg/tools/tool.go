package tools

import (
	"context"
	"encoding/json"
	"strings"
)

// Tool is the interface for all tools offered to the research agent
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON schema of the arguments object.
	Parameters() json.RawMessage
	// Run executes the tool with the raw JSON arguments chosen by the model.
	Run(ctx context.Context, args string) (string, error)
}

// stringArg extracts a single string argument. Models sometimes send the bare
// value instead of an object, so non-object input is returned trimmed.
func stringArg(args, key string) string {
	var obj map[string]any
	if err := json.Unmarshal([]byte(args), &obj); err == nil {
		if v, ok := obj[key].(string); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}
	var s string
	if err := json.Unmarshal([]byte(args), &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(args)
}

func singleStringSchema(key, description string) json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			key: map[string]any{"type": "string", "description": description},
		},
		"required": []string{key},
	}
	b, _ := json.Marshal(schema)
	return b
}
