// Package router decides, per message, between the therapeutic chat persona
// and the research agent, and keeps the chat history of every user.
package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/mindfulmate/internal/agent"
	"github.com/comigor/mindfulmate/internal/crisis"
	"github.com/comigor/mindfulmate/internal/history"
	"github.com/comigor/mindfulmate/internal/intent"
	"github.com/comigor/mindfulmate/internal/llm"
	"github.com/comigor/mindfulmate/internal/logger"
)

// ChatModel produces the next assistant message of a conversation.
type ChatModel interface {
	Complete(ctx context.Context, msgs []openai.ChatCompletionMessage) (llm.Completion, error)
}

// Researcher answers a standalone research query.
type Researcher interface {
	Process(ctx context.Context, query string) (string, error)
}

// Reply is what the router hands back for one user message.
type Reply struct {
	Text     string
	Intent   intent.Intent
	IsCrisis bool
}

// Error wraps a downstream failure with the flow it happened in.
type Error struct {
	Intent intent.Intent
	Err    error
}

func (e *Error) Error() string { return fmt.Sprintf("%s flow: %v", e.Intent, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Router routes messages and owns the per-user locks.
type Router struct {
	store        history.Store
	chat         ChatModel
	researcher   Researcher
	systemPrompt string

	locks sync.Map // user id -> *sync.Mutex
}

// New creates a Router. An empty systemPrompt selects TherapeuticPrompt.
func New(store history.Store, chat ChatModel, researcher Researcher, systemPrompt string) *Router {
	if systemPrompt == "" {
		systemPrompt = TherapeuticPrompt
	}
	return &Router{
		store:        store,
		chat:         chat,
		researcher:   researcher,
		systemPrompt: systemPrompt,
	}
}

// Handle routes one message. Requests of the same user are processed one at
// a time so their history stays ordered.
func (r *Router) Handle(ctx context.Context, userID, message string) (Reply, error) {
	mu := r.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	isCrisis := crisis.Detect(message)
	logger.L.Debug("crisis check", "user_id", userID, "is_crisis", isCrisis)

	var (
		reply Reply
		err   error
	)
	switch intent.Classify(message) {
	case intent.Research:
		reply, err = r.research(ctx, message)
	default:
		reply, err = r.converse(ctx, userID, message)
	}
	if err != nil {
		return Reply{}, err
	}

	reply.IsCrisis = isCrisis
	if isCrisis {
		reply.Text = crisis.Annotate(reply.Text)
	}
	return reply, nil
}

// Session returns the stored conversation of userID.
func (r *Router) Session(ctx context.Context, userID string) (history.Session, error) {
	return r.store.Get(ctx, userID)
}

func (r *Router) converse(ctx context.Context, userID, message string) (Reply, error) {
	fail := func(err error) (Reply, error) {
		return Reply{}, &Error{Intent: intent.Chat, Err: err}
	}

	if _, err := r.store.GetOrCreate(ctx, userID, r.systemPrompt); err != nil {
		return fail(err)
	}
	if err := r.store.Append(ctx, userID, history.NewMessage(history.RoleUser, message)); err != nil {
		return fail(err)
	}
	if err := r.store.Trim(ctx, userID); err != nil {
		return fail(err)
	}
	sess, err := r.store.Get(ctx, userID)
	if err != nil {
		return fail(err)
	}

	logger.L.Debug("sending conversation history to LLM", "user_id", userID, "messages", len(sess.History))
	completion, err := r.chat.Complete(ctx, toOpenAI(sess.History))
	if err != nil {
		return fail(err)
	}

	if err := r.store.Append(ctx, userID, history.NewMessage(history.RoleAssistant, completion.Text)); err != nil {
		return fail(err)
	}
	return Reply{Text: completion.Text, Intent: intent.Chat}, nil
}

func (r *Router) research(ctx context.Context, message string) (Reply, error) {
	raw, err := r.researcher.Process(ctx, message)
	if err != nil {
		return Reply{}, &Error{Intent: intent.Research, Err: err}
	}

	text := raw
	if parsed, ok := agent.ParseResearch(raw); ok {
		text = parsed.Format()
	}
	return Reply{Text: text, Intent: intent.Research}, nil
}

func (r *Router) lockFor(userID string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func toOpenAI(msgs []history.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
