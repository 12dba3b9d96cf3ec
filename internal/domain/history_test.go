package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessageEntry_AppendClampsTimestamps(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := &MessageEntry{MessageID: "m1"}

	e.Append(base, ActionCreated, "v1")
	v := e.Append(base.Add(-time.Hour), ActionUpdated, "v2")

	assert.Equal(t, base, v.Timestamp)
	assert.Equal(t, "v2", e.Content)
	assert.False(t, e.Deleted)

	e.Append(base.Add(time.Minute), ActionDeleted, "v2")
	assert.True(t, e.Deleted)

	last, ok := e.LastVersion()
	assert.True(t, ok)
	assert.Equal(t, ActionDeleted, last.Action)
}

func TestMessage_IsBetween(t *testing.T) {
	m := &Message{Type: MessageKindPrivate, FromUserID: "a", ToUserID: "b"}
	assert.True(t, m.IsBetween("a", "b"))
	assert.True(t, m.IsBetween("b", "a"))
	assert.False(t, m.IsBetween("a", "c"))

	g := &Message{Type: MessageKindGroup, FromUserID: "a", GroupID: "b", ChatID: "b"}
	assert.False(t, g.IsBetween("a", "b"))
}
