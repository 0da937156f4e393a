package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"shopassist/domain"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type resetAck struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type sessionList struct {
	Sessions []domain.ChatSessionInfo `json:"sessions" validate:"required,dive"`
}

// SendMessage posts text to the assistant within sessionID.
func (c *Client) SendMessage(ctx context.Context, text, sessionID string) (domain.ChatReply, error) {
	var reply domain.ChatReply
	req := chatRequest{Message: text, SessionID: sessionID}
	if err := c.do(ctx, "chat_message", http.MethodPost, "/api/chat/message", nil, req, &reply); err != nil {
		return domain.ChatReply{}, err
	}
	if reply.Type == "" {
		reply.Type = domain.MessageText
	}
	return reply, nil
}

// ResetSession clears the server-side conversation. The id stays valid.
func (c *Client) ResetSession(ctx context.Context, sessionID string) error {
	var ack resetAck
	return c.do(ctx, "chat_reset", http.MethodPost, "/api/chat/reset/"+url.PathEscape(sessionID), nil, nil, &ack)
}

// History returns the stored messages of sessionID, oldest first.
func (c *Client) History(ctx context.Context, sessionID string) (domain.ChatHistory, error) {
	var h domain.ChatHistory
	if err := c.do(ctx, "chat_history", http.MethodGet, "/api/chat/history/"+url.PathEscape(sessionID), nil, nil, &h); err != nil {
		return domain.ChatHistory{}, err
	}
	return h, nil
}

// Sessions lists server-side conversations, most recently updated first.
func (c *Client) Sessions(ctx context.Context) ([]domain.ChatSessionInfo, error) {
	var out sessionList
	if err := c.do(ctx, "chat_sessions", http.MethodGet, "/api/chat/sessions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}
