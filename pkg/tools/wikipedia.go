package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const noWikiResult = "No good Wikipedia Search Result was found"

// WikipediaTool looks a topic up through the MediaWiki API and returns the
// introduction of the best matching pages.
type WikipediaTool struct {
	endpoint string
	client   *http.Client
	topK     int
	maxChars int
}

// NewWikipediaTool creates a WikipediaTool for the api.php endpoint, keeping
// the top result and at most 100 characters of content.
func NewWikipediaTool(endpoint string) *WikipediaTool {
	return &WikipediaTool{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		topK:     1,
		maxChars: 100,
	}
}

func (t *WikipediaTool) Name() string { return "wikipedia" }

func (t *WikipediaTool) Description() string {
	return "A wrapper around Wikipedia. Useful for general questions about people, places, companies, facts, historical events, or other subjects. Input should be a search query."
}

func (t *WikipediaTool) Parameters() json.RawMessage {
	return singleStringSchema("query", "The topic to look up")
}

func (t *WikipediaTool) Run(ctx context.Context, args string) (string, error) {
	query := stringArg(args, "query")
	if query == "" {
		return "", fmt.Errorf("wikipedia: empty query")
	}

	titles, err := t.search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return noWikiResult, nil
	}

	var docs []string
	for _, title := range titles {
		extract, err := t.extract(ctx, title)
		if err != nil {
			return "", err
		}
		docs = append(docs, fmt.Sprintf("Page: %s\nSummary: %s", title, extract))
	}

	out := []rune(strings.Join(docs, "\n\n"))
	if len(out) > t.maxChars {
		out = out[:t.maxChars]
	}
	return string(out), nil
}

func (t *WikipediaTool) search(ctx context.Context, query string) ([]string, error) {
	var body struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprint(t.topK)},
		"format":   {"json"},
	}
	if err := t.get(ctx, params, &body); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(body.Query.Search))
	for _, s := range body.Query.Search {
		titles = append(titles, s.Title)
	}
	return titles, nil
}

func (t *WikipediaTool) extract(ctx context.Context, title string) (string, error) {
	var body struct {
		Query struct {
			Pages map[string]struct {
				Title   string `json:"title"`
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"redirects":   {"1"},
		"titles":      {title},
		"format":      {"json"},
	}
	if err := t.get(ctx, params, &body); err != nil {
		return "", err
	}
	for _, p := range body.Query.Pages {
		return strings.TrimSpace(p.Extract), nil
	}
	return "", nil
}

func (t *WikipediaTool) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mindfulmate/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
