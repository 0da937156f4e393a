package domain

import (
	"context"
	"time"
)

// Reply classification tags. They only affect rendering.
const (
	MessageGreeting = "greeting"
	MessageText     = "text"
	MessageError    = "error"
	MessageSystem   = "system"
)

// ChatReply is the assistant's answer to one message
type ChatReply struct {
	Response  string    `json:"response" validate:"required"`
	Type      string    `json:"type"`
	Products  []Product `json:"products" validate:"dive"`
	SessionID string    `json:"session_id"`
	MessageID int       `json:"message_id"`
}

// ChatMessage is one entry of the local conversation
type ChatMessage struct {
	ID        string
	Text      string
	IsUser    bool
	Timestamp time.Time
	Products  []Product
	Type      string
}

// ChatHistoryEntry is a stored message/response pair from the server
type ChatHistoryEntry struct {
	ID          int    `json:"id"`
	SessionID   int    `json:"session_id"`
	Message     string `json:"message"`
	Response    string `json:"response"`
	MessageType string `json:"message_type"`
	Timestamp   string `json:"timestamp"`
}

// ChatSessionInfo describes a server-side conversation
type ChatSessionInfo struct {
	ID           int    `json:"id"`
	UserID       *int   `json:"user_id,omitempty"`
	SessionID    string `json:"session_id" validate:"required"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}

// ChatHistory is the server's record of one session
type ChatHistory struct {
	Messages    []ChatHistoryEntry `json:"messages" validate:"required"`
	SessionInfo ChatSessionInfo    `json:"session_info"`
}

// ChatService is the external chat backend
type ChatService interface {
	SendMessage(ctx context.Context, text, sessionID string) (ChatReply, error)
	ResetSession(ctx context.Context, sessionID string) error
	History(ctx context.Context, sessionID string) (ChatHistory, error)
	Sessions(ctx context.Context) ([]ChatSessionInfo, error)
}
