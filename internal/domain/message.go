package domain

import "time"

type MessageKind string

const (
	MessageKindPrivate MessageKind = "private"
	MessageKindGroup   MessageKind = "group_message"
)

// Message is one chat utterance. ChatID is always set; ToUserID only for private
// messages and GroupID only for group messages.
type Message struct {
	ID         string      `json:"id"`
	Type       MessageKind `json:"type"`
	FromUserID string      `json:"fromUserId"`
	ToUserID   string      `json:"toUserId,omitempty"`
	GroupID    string      `json:"groupId,omitempty"`
	ChatID     string      `json:"chatId"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	EditedAt   *time.Time  `json:"editedAt,omitempty"`
	DeletedAt  *time.Time  `json:"deletedAt,omitempty"`
}

func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// IsBetween reports whether m is a private message exchanged between a and b in either direction.
func (m *Message) IsBetween(a, b string) bool {
	if m.Type != MessageKindPrivate {
		return false
	}
	return (m.FromUserID == a && m.ToUserID == b) || (m.FromUserID == b && m.ToUserID == a)
}
