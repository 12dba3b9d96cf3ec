package domain

import "time"

type HistoryAction string

const (
	ActionCreated HistoryAction = "CREATED"
	ActionUpdated HistoryAction = "UPDATED"
	ActionDeleted HistoryAction = "DELETED"
)

// MessageHistory is the append-only audit trail of one chat.
type MessageHistory struct {
	ChatID    string          `json:"chatId"`
	Entries   []*MessageEntry `json:"entries"`
	CreatedAt time.Time       `json:"createdAt"`
}

// MessageEntry caches the current state of one message next to its versions.
type MessageEntry struct {
	MessageID  string           `json:"messageId"`
	FromUserID string           `json:"fromUserId"`
	Content    string           `json:"content"`
	Deleted    bool             `json:"deleted"`
	Versions   []MessageVersion `json:"versions"`
}

type MessageVersion struct {
	Timestamp time.Time     `json:"timestamp"`
	Action    HistoryAction `json:"action"`
	Content   string        `json:"content"`
}

func (h *MessageHistory) Entry(messageID string) *MessageEntry {
	for _, e := range h.Entries {
		if e.MessageID == messageID {
			return e
		}
	}
	return nil
}

// Append adds a version and refreshes the cached fields. The timestamp is clamped so
// versions of one entry never go backwards.
func (e *MessageEntry) Append(at time.Time, action HistoryAction, content string) MessageVersion {
	if n := len(e.Versions); n > 0 && at.Before(e.Versions[n-1].Timestamp) {
		at = e.Versions[n-1].Timestamp
	}
	v := MessageVersion{Timestamp: at.UTC(), Action: action, Content: content}
	e.Versions = append(e.Versions, v)
	e.Content = content
	e.Deleted = action == ActionDeleted
	return v
}

func (e *MessageEntry) LastVersion() (MessageVersion, bool) {
	if len(e.Versions) == 0 {
		return MessageVersion{}, false
	}
	return e.Versions[len(e.Versions)-1], true
}
