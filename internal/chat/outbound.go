package chat

import (
	"time"

	"portfolio_chat/internal/domain"
)

// error codes carried by ErrorFrame.Error
const (
	CodeRecipientNotFound = "recipient_not_found"
	CodeInviteeOffline    = "invitee_offline"
	CodeNotGroupMember    = "not_group_member"
	CodeUnknownType       = "unknown_type"
	CodeMalformedFrame    = "malformed_frame"
	CodeRateLimited       = "rate_limited"
	CodeInternalError     = "internal_error"
)

type ConnectedFrame struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type ErrorFrame struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// MessageFrame is the rendered form of a persisted message.
type MessageFrame struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId,omitempty"`
	GroupID    string    `json:"groupId,omitempty"`
	ChatID     string    `json:"chatId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

type MessageSentFrame struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	ToUserID  string    `json:"toUserId"`
	Timestamp time.Time `json:"timestamp"`
}

type GroupInviteNotice struct {
	Type       string `json:"type"`
	GroupID    string `json:"groupId"`
	FromUserID string `json:"fromUserId"`
}

type InviteSentFrame struct {
	Type          string `json:"type"`
	GroupID       string `json:"groupId"`
	InvitedUserID string `json:"invitedUserId"`
}

func NewConnectedFrame(userID string) ConnectedFrame {
	return ConnectedFrame{Type: "connected", UserID: userID}
}

func NewMessageFrame(m *domain.Message) MessageFrame {
	return MessageFrame{
		ID:         m.ID,
		Type:       string(m.Type),
		FromUserID: m.FromUserID,
		ToUserID:   m.ToUserID,
		GroupID:    m.GroupID,
		ChatID:     m.ChatID,
		Content:    m.Content,
		Timestamp:  m.Timestamp.UTC(),
	}
}

func NewMessageSentFrame(m *domain.Message) MessageSentFrame {
	return MessageSentFrame{
		Type:      "message_sent",
		ID:        m.ID,
		ChatID:    m.ChatID,
		ToUserID:  m.ToUserID,
		Timestamp: m.Timestamp.UTC(),
	}
}
