// Package crisis flags messages that mention self-harm.
//
// Matching is a plain case-insensitive substring search: there is no stemming
// and no negation handling, so "I do not want to die" is flagged as well.
package crisis

import "strings"

// Keywords are matched against the lower-cased message.
var Keywords = []string{
	"suicide", "kill myself", "end my life", "don't want to live",
	"hurt myself", "self-harm", "die", "death",
}

// Resources is appended to the reply whenever a message is flagged.
const Resources = `
If you're experiencing a crisis or having thoughts of harming yourself:
- National Suicide Prevention Lifeline: 988 or 1-800-273-8255
- Crisis Text Line: Text HOME to 741741
- Emergency Services: Call 911 or go to your nearest emergency room
- International Association for Suicide Prevention: https://www.iasp.info/resources/Crisis_Centres/
`

// Detect reports whether text contains any crisis keyword.
func Detect(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Annotate appends the crisis resources block to reply.
func Annotate(reply string) string {
	return reply + "\n\n" + Resources
}
