package history

import "time"

// Role tags a message with its author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single conversational message. It is never modified
// after it has been appended to a session.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the conversation memory of one user.
type Session struct {
	UserID    string    `json:"user_id"`
	History   []Message `json:"history"`
	CreatedAt time.Time `json:"created_at"`
}
