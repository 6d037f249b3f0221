package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// SaveTool appends research output to a local text file. The file is only
// ever appended to.
type SaveTool struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewSaveTool creates a SaveTool writing to path.
func NewSaveTool(path string) *SaveTool {
	return &SaveTool{path: path, now: time.Now}
}

func (t *SaveTool) Name() string { return "save_text_to_file" }

func (t *SaveTool) Description() string {
	return "Saves structured research data to a text file."
}

func (t *SaveTool) Parameters() json.RawMessage {
	return singleStringSchema("data", "The research text to save")
}

func (t *SaveTool) Run(_ context.Context, args string) (string, error) {
	data := stringArg(args, "data")
	if data == "" {
		return "", fmt.Errorf("save_text_to_file: empty data")
	}
	if err := t.Save(data); err != nil {
		return "", err
	}
	return fmt.Sprintf("Data successfully saved to %s", t.path), nil
}

// Save appends one timestamped research entry.
func (t *SaveTool) Save(data string) error {
	entry := fmt.Sprintf("--- Research Output ---\nTimestamp: %s\n\n%s\n\n", t.now().Format("2006-01-02 15:04:05"), data)

	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open research output: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("write research output: %w", err)
	}
	return nil
}
