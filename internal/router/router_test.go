package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/comigor/mindfulmate/internal/crisis"
	"github.com/comigor/mindfulmate/internal/history"
	"github.com/comigor/mindfulmate/internal/intent"
	"github.com/comigor/mindfulmate/internal/llm"
)

type fakeChat struct {
	mu       sync.Mutex
	reply    string
	err      error
	received [][]openai.ChatCompletionMessage
}

func (f *fakeChat) Complete(_ context.Context, msgs []openai.ChatCompletionMessage) (llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, msgs)
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Text: f.reply}, nil
}

type fakeResearcher struct {
	out   string
	err   error
	query string
}

func (f *fakeResearcher) Process(_ context.Context, q string) (string, error) {
	f.query = q
	return f.out, f.err
}

func newRouter(chat *fakeChat, res *fakeResearcher) (*Router, *history.MemoryStore) {
	store := history.NewMemoryStore()
	return New(store, chat, res, ""), store
}

func TestHandle_ChatFlowKeepsHistory(t *testing.T) {
	chat := &fakeChat{reply: "That sounds hard."}
	r, store := newRouter(chat, &fakeResearcher{})
	ctx := context.Background()

	reply, err := r.Handle(ctx, "u1", "I feel stressed")
	require.NoError(t, err)
	require.Equal(t, "That sounds hard.", reply.Text)
	require.Equal(t, intent.Chat, reply.Intent)
	require.False(t, reply.IsCrisis)

	sent := chat.received[0]
	require.Len(t, sent, 2)
	require.Equal(t, openai.ChatMessageRoleSystem, sent[0].Role)
	require.Equal(t, TherapeuticPrompt, sent[0].Content)
	require.Equal(t, "I feel stressed", sent[1].Content)

	sess, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sess.History, 3)
	require.Equal(t, history.RoleAssistant, sess.History[2].Role)
	require.Equal(t, "That sounds hard.", sess.History[2].Content)
}

func TestHandle_HistoryIsTrimmed(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	r, store := newRouter(chat, &fakeResearcher{})
	ctx := context.Background()

	for i := 1; i <= 8; i++ {
		_, err := r.Handle(ctx, "u1", fmt.Sprintf("note %d", i))
		require.NoError(t, err)
	}

	for _, sent := range chat.received {
		require.LessOrEqual(t, len(sent), history.MaxMessages)
		require.Equal(t, openai.ChatMessageRoleSystem, sent[0].Role)
	}
	last := chat.received[len(chat.received)-1]
	require.Len(t, last, history.MaxMessages)
	require.Equal(t, "note 8", last[len(last)-1].Content)

	sess, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, history.RoleSystem, sess.History[0].Role)
	require.LessOrEqual(t, len(sess.History), history.MaxMessages+1)
}

func TestHandle_CrisisAppendsResources(t *testing.T) {
	chat := &fakeChat{reply: "I'm really sorry you're feeling this way."}
	r, store := newRouter(chat, &fakeResearcher{})
	ctx := context.Background()

	reply, err := r.Handle(ctx, "u1", "I want to kill myself")
	require.NoError(t, err)
	require.True(t, reply.IsCrisis)
	require.Equal(t, "I'm really sorry you're feeling this way.\n\n"+crisis.Resources, reply.Text)

	sess, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "I'm really sorry you're feeling this way.", sess.History[2].Content,
		"resources are not stored in the history")
}

func TestHandle_ResearchFlow(t *testing.T) {
	res := &fakeResearcher{out: `{"topic":"CBT","summary":"CBT is a talking therapy.","sources":["nhs.uk"],"tools_used":["wikipedia"]}`}
	chat := &fakeChat{}
	r, store := newRouter(chat, res)
	ctx := context.Background()

	reply, err := r.Handle(ctx, "u1", "What is CBT?")
	require.NoError(t, err)
	require.Equal(t, intent.Research, reply.Intent)
	require.Equal(t, "Here's what I found:\n\nCBT is a talking therapy.\n\nSources: nhs.uk", reply.Text)
	require.Equal(t, "What is CBT?", res.query)
	require.Empty(t, chat.received)

	_, err = store.Get(ctx, "u1")
	require.ErrorIs(t, err, history.ErrSessionNotFound, "research keeps no history")

	res.out = "Unstructured answer."
	reply, err = r.Handle(ctx, "u1", "tell me about sleep")
	require.NoError(t, err)
	require.Equal(t, "Unstructured answer.", reply.Text)
}

func TestHandle_Errors(t *testing.T) {
	chat := &fakeChat{err: errors.New("error, status code: 401, message: invalid key")}
	res := &fakeResearcher{err: errors.New("search down")}
	r, _ := newRouter(chat, res)
	ctx := context.Background()

	_, err := r.Handle(ctx, "u1", "hello")
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, intent.Chat, rerr.Intent)
	require.True(t, llm.IsAuthError(err))

	_, err = r.Handle(ctx, "u1", "research sleep")
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, intent.Research, rerr.Intent)
	require.True(t, strings.Contains(err.Error(), "search down"))
}

func TestHandle_ConcurrentSameUser(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	r, store := newRouter(chat, &fakeResearcher{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Handle(ctx, "same", fmt.Sprintf("m%d", i))
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	sess, err := store.Get(ctx, "same")
	require.NoError(t, err)
	require.Len(t, sess.History, 9)
	for i := 1; i < len(sess.History); i += 2 {
		require.Equal(t, history.RoleUser, sess.History[i].Role)
		require.Equal(t, history.RoleAssistant, sess.History[i+1].Role)
	}
}
