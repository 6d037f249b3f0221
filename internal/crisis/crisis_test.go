package crisis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"I want to kill myself", true},
		{"I've been thinking about SUICIDE lately", true},
		{"sometimes I don't want to live anymore", true},
		{"I do not want to die", true},
		{"my studies feel like death by homework", true},
		{"I think about self-harm", true},
		{"The diet is going well", true}, // "die" inside "diet"
		{"I had a rough day at work", false},
		{"", false},
		{"Can you help me sleep better?", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Detect(tc.text), "text=%q", tc.text)
	}
}

func TestDetect_EveryKeyword(t *testing.T) {
	for _, kw := range Keywords {
		require.True(t, Detect("prefix "+strings.ToUpper(kw)+" suffix"), kw)
	}
}

func TestAnnotate(t *testing.T) {
	out := Annotate("I'm here for you.")
	require.True(t, strings.HasPrefix(out, "I'm here for you.\n\n"))
	require.True(t, strings.HasSuffix(out, Resources))
	require.Contains(t, out, "988")
}
