package agent

import (
	"encoding/json"
	"strings"
)

// ResearchResponse is the structured answer the research prompt asks for.
type ResearchResponse struct {
	Topic     string   `json:"topic"`
	Summary   string   `json:"summary"`
	Sources   []string `json:"sources"`
	ToolsUsed []string `json:"tools_used"`
}

// ParseResearch decodes the model's final text. Models often wrap JSON in a
// markdown fence or surround it with prose, so the outermost object is used.
func ParseResearch(text string) (ResearchResponse, bool) {
	var r ResearchResponse
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return r, false
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &r); err != nil {
		return r, false
	}
	return r, true
}

// Format renders the response as prose followed by its sources.
func (r ResearchResponse) Format() string {
	summary := r.Summary
	if summary == "" {
		summary = "No summary available"
	}
	out := "Here's what I found:\n\n" + summary
	if len(r.Sources) > 0 {
		out += "\n\nSources: " + strings.Join(r.Sources, ", ")
	}
	return out
}
