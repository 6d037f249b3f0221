// Package intent decides whether a message asks for research or for a chat.
package intent

import "strings"

// Intent is the flow a message is routed to.
type Intent string

const (
	Chat     Intent = "chat"
	Research Intent = "research"
)

// ResearchKeywords switch a message to the research flow when any of them
// appears in it, regardless of case.
var ResearchKeywords = []string{
	"research", "find information", "look up", "search for",
	"what is", "who is", "when was", "how does", "tell me about",
}

// Classify returns Research if text contains a research keyword, Chat otherwise.
func Classify(text string) Intent {
	lower := strings.ToLower(text)
	for _, kw := range ResearchKeywords {
		if strings.Contains(lower, kw) {
			return Research
		}
	}
	return Chat
}
