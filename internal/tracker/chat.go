package tracker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/support-console/backend/internal/metrics"
	"github.com/support-console/backend/internal/storage/models"
	"github.com/support-console/backend/internal/store"
	"github.com/support-console/backend/pkg/logger"
	"go.uber.org/zap"
)

const Greeting = "Hello! I'm your AI customer support assistant. How can I help you today?"

var ErrEmptyMessage = errors.New("message is empty")

type ChatState struct {
	Messages []models.ChatMessage `json:"messages"`
	Pending  int                  `json:"pending"`
}

// Chat is the append-only conversation. Every submission gets its own
// outbound call and its own AI reply; nothing is deduplicated.
type Chat struct {
	runner Runner
	render func(string) string
	state  *store.Slice[ChatState]
	wg     sync.WaitGroup
}

// NewChat seeds the history with the greeting. render, when set, fills
// the HTML field of AI messages.
func NewChat(hub *store.Hub, runner Runner, render func(string) string) *Chat {
	c := &Chat{runner: runner, render: render}
	greeting := c.message(Greeting, models.SenderAI, false)
	c.state = store.NewSlice(hub, store.SliceChat, ChatState{Messages: []models.ChatMessage{greeting}})
	return c
}

func (c *Chat) State() ChatState {
	return c.state.Get()
}

func (c *Chat) Version() uint64 {
	return c.state.Version()
}

func (c *Chat) Messages() []models.ChatMessage {
	return c.state.Get().Messages
}

// Submit appends the user message right away and answers it in the
// background. The user message stays even when the call fails.
func (c *Chat) Submit(ctx context.Context, text string) (models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatMessage{}, ErrEmptyMessage
	}

	userMsg := c.message(text, models.SenderUser, false)
	c.state.Update(func(s ChatState) ChatState {
		return ChatState{Messages: appendMessage(s.Messages, userMsg), Pending: s.Pending + 1}
	})
	metrics.ChatMessages.WithLabelValues(string(models.SenderUser)).Inc()

	c.wg.Add(1)
	go c.answer(context.WithoutCancel(ctx), text)

	return userMsg, nil
}

func (c *Chat) answer(ctx context.Context, text string) {
	defer c.wg.Done()

	reply, err := c.runner.Run(ctx, text)
	failed := err != nil
	if failed {
		logger.Warn("Chat answer failed", zap.Error(err))
		reply = FailureText(err)
	}

	aiMsg := c.message(reply, models.SenderAI, failed)
	c.state.Update(func(s ChatState) ChatState {
		return ChatState{Messages: appendMessage(s.Messages, aiMsg), Pending: s.Pending - 1}
	})
	metrics.ChatMessages.WithLabelValues(string(models.SenderAI)).Inc()
}

// Wait blocks until every outstanding answer has been appended.
func (c *Chat) Wait() {
	c.wg.Wait()
}

func (c *Chat) message(text string, sender models.Sender, failed bool) models.ChatMessage {
	msg := models.ChatMessage{
		ID:        uuid.New().String(),
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now(),
		Error:     failed,
	}
	if sender == models.SenderAI && c.render != nil {
		msg.HTML = c.render(text)
	}
	return msg
}

func appendMessage(messages []models.ChatMessage, msg models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, len(messages), len(messages)+1)
	copy(out, messages)
	return append(out, msg)
}
