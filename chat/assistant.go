// Package chat holds the shopping assistant conversation: the persisted
// session id, the local message log and the send/reset flow against the
// chat backend.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"shopassist/domain"
	"shopassist/util"
)

// Canned assistant texts.
const (
	GreetingText = "Welcome to your AI Shopping Assistant! Ask me things like " +
		"\"Show me gaming laptops under $1500\" or \"Find wireless headphones with good battery life\". " +
		"What can I help you find today?"
	ErrorText = "I'm sorry, I'm having trouble processing your request right now. Please try again later."
	ResetText = "Chat has been reset. How can I help you today?"
)

// Assistant is one conversation with the chat backend. It is safe for
// concurrent use but only one message may be in flight at a time.
type Assistant struct {
	svc     domain.ChatService
	store   domain.SessionStore
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time

	mu        sync.Mutex
	sessionID string
	messages  []domain.ChatMessage
	sending   bool
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithLogger sets the assistant's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) { a.logger = l }
}

// WithTimeout bounds each backend call. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(a *Assistant) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.now = now }
}

// NewAssistant returns an unmounted assistant. The session id is read from
// or written to store under domain.KeyChatSessionID.
func NewAssistant(svc domain.ChatService, store domain.SessionStore, opts ...Option) *Assistant {
	a := &Assistant{
		svc:     svc,
		store:   store,
		logger:  slog.Default(),
		timeout: 10 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Mount loads the persisted session id, creating and persisting one if
// absent, and starts the conversation with the greeting.
func (a *Assistant) Mount(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mountLocked(ctx)
}

func (a *Assistant) mountLocked(ctx context.Context) (string, error) {
	sid, err := a.store.Get(ctx, domain.KeyChatSessionID)
	switch {
	case err == nil && sid != "":
	case err == nil || domain.IsKeyNotFoundError(err):
		sid = util.NewSessionID()
		if err := a.store.Set(ctx, domain.KeyChatSessionID, sid); err != nil {
			return "", fmt.Errorf("persist chat session id: %w", err)
		}
		a.logger.Info("created chat session", "session_id", sid)
	default:
		return "", fmt.Errorf("load chat session id: %w", err)
	}

	a.sessionID = sid
	a.messages = []domain.ChatMessage{a.botMessage(GreetingText, domain.MessageGreeting, nil)}
	return sid, nil
}

// SessionID returns the mounted session id, or "" before Mount.
func (a *Assistant) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// Messages returns a copy of the conversation.
func (a *Assistant) Messages() []domain.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.ChatMessage(nil), a.messages...)
}

// Busy reports whether a message is in flight.
func (a *Assistant) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sending
}

// Send appends text as a user message and asks the backend for a reply.
// The returned message is the one appended for the assistant: the reply on
// success, or the canned error message alongside a non-nil error.
func (a *Assistant) Send(ctx context.Context, text string) (domain.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatMessage{}, domain.ErrEmptyMessage
	}

	a.mu.Lock()
	if a.sending {
		a.mu.Unlock()
		return domain.ChatMessage{}, domain.ErrChatBusy
	}
	if a.sessionID == "" {
		if _, err := a.mountLocked(ctx); err != nil {
			a.mu.Unlock()
			return domain.ChatMessage{}, err
		}
	}
	sid := a.sessionID
	a.sending = true
	a.messages = append(a.messages, domain.ChatMessage{
		ID:        util.NewMessageID(),
		Text:      text,
		IsUser:    true,
		Timestamp: a.now(),
	})
	a.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	reply, err := a.svc.SendMessage(reqCtx, text, sid)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.sending = false

	if err != nil {
		a.logger.Error("chat message failed", "session_id", sid, "error", err)
		msg := a.botMessage(ErrorText, domain.MessageError, nil)
		a.messages = append(a.messages, msg)
		return msg, err
	}

	msg := a.botMessage(reply.Response, reply.Type, reply.Products)
	a.messages = append(a.messages, msg)
	a.logger.Debug("chat reply received",
		"session_id", sid,
		"type", reply.Type,
		"products", len(reply.Products),
	)
	return msg, nil
}

// Reset clears the server conversation and replaces the local one with a
// system notice. The session id is kept. On failure the conversation is
// left untouched.
func (a *Assistant) Reset(ctx context.Context) error {
	a.mu.Lock()
	if a.sessionID == "" {
		if _, err := a.mountLocked(ctx); err != nil {
			a.mu.Unlock()
			return err
		}
	}
	sid := a.sessionID
	a.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if err := a.svc.ResetSession(reqCtx, sid); err != nil {
		a.logger.Error("error resetting chat", "session_id", sid, "error", err)
		return err
	}

	a.mu.Lock()
	a.messages = []domain.ChatMessage{a.botMessage(ResetText, domain.MessageSystem, nil)}
	a.mu.Unlock()
	return nil
}

// History returns the server's record of the current session.
func (a *Assistant) History(ctx context.Context) (domain.ChatHistory, error) {
	sid := a.SessionID()
	if sid == "" {
		var err error
		if sid, err = a.Mount(ctx); err != nil {
			return domain.ChatHistory{}, err
		}
	}
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.svc.History(reqCtx, sid)
}

// Sessions lists the conversations known to the backend.
func (a *Assistant) Sessions(ctx context.Context) ([]domain.ChatSessionInfo, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.svc.Sessions(reqCtx)
}

// ClearSession forgets the persisted session id. The next Mount creates a
// new one.
func (a *Assistant) ClearSession(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.Delete(ctx, domain.KeyChatSessionID); err != nil {
		return fmt.Errorf("clear chat session id: %w", err)
	}
	a.sessionID = ""
	a.messages = nil
	return nil
}

func (a *Assistant) botMessage(text, kind string, products []domain.Product) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        util.NewMessageID(),
		Text:      text,
		Timestamp: a.now(),
		Products:  products,
		Type:      kind,
	}
}
