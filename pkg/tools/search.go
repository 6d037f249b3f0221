package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const noSearchResult = "No good DuckDuckGo Search Result was found"

// SearchTool searches the web through DuckDuckGo's HTML endpoint.
type SearchTool struct {
	endpoint   string
	client     *http.Client
	maxResults int
}

// NewSearchTool creates a SearchTool querying endpoint
// (https://html.duckduckgo.com/html/ in production).
func NewSearchTool(endpoint string) *SearchTool {
	return &SearchTool{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: 15 * time.Second},
		maxResults: 5,
	}
}

func (t *SearchTool) Name() string { return "search" }

func (t *SearchTool) Description() string { return "Search the web for information" }

func (t *SearchTool) Parameters() json.RawMessage {
	return singleStringSchema("query", "The search query")
}

func (t *SearchTool) Run(ctx context.Context, args string) (string, error) {
	query := stringArg(args, "query")
	if query == "" {
		return "", fmt.Errorf("search: empty query")
	}

	u := t.endpoint + "?" + url.Values{"q": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; mindfulmate/1.0)")
	req.Header.Set("Accept", "text/html")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	results := extractResults(doc, t.maxResults)
	if len(results) == 0 {
		return noSearchResult, nil
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		switch {
		case r.title != "" && r.snippet != "":
			lines = append(lines, r.title+": "+r.snippet)
		case r.snippet != "":
			lines = append(lines, r.snippet)
		default:
			lines = append(lines, r.title)
		}
	}
	return strings.Join(lines, "\n"), nil
}

type searchResult struct {
	title   string
	snippet string
}

// extractResults walks a DuckDuckGo result page. Each "result__a" anchor opens
// a result and the following "result__snippet" element fills its snippet.
func extractResults(doc *html.Node, limit int) []searchResult {
	var out []searchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(out) > limit {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a"):
				out = append(out, searchResult{title: nodeText(n)})
				return
			case hasClass(n, "result__snippet"):
				if len(out) == 0 {
					out = append(out, searchResult{})
				}
				out[len(out)-1].snippet = nodeText(n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
