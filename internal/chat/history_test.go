package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"portfolio_chat/internal/domain"
)

func TestHistory_RecordsEveryVersion(t *testing.T) {
	f := newFixture(t, []string{"alice", "bob"})
	ctx := context.Background()
	f.history.now = steppingClock(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))

	msg := &domain.Message{
		ID: "m1", Type: domain.MessageKindPrivate, FromUserID: "alice", ToUserID: "bob",
		ChatID: "c1", Content: "v1", Timestamp: time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC),
	}

	_, err := f.history.Record(ctx, msg, domain.ActionCreated)
	require.NoError(t, err)
	msg.Content = "v2"
	_, err = f.history.Record(ctx, msg, domain.ActionUpdated)
	require.NoError(t, err)
	msg.Content = "v3"
	_, err = f.history.Record(ctx, msg, domain.ActionUpdated)
	require.NoError(t, err)
	_, err = f.history.Record(ctx, msg, domain.ActionDeleted)
	require.NoError(t, err)

	history, err := f.history.Get(ctx, "c1")
	require.NoError(t, err)
	entry := history.Entry("m1")
	require.NotNil(t, entry)

	require.Len(t, entry.Versions, 4)
	actions := make([]domain.HistoryAction, 0, 4)
	for i, v := range entry.Versions {
		actions = append(actions, v.Action)
		if i > 0 {
			assert.False(t, v.Timestamp.Before(entry.Versions[i-1].Timestamp))
		}
	}
	assert.Equal(t, []domain.HistoryAction{
		domain.ActionCreated, domain.ActionUpdated, domain.ActionUpdated, domain.ActionDeleted,
	}, actions)
	assert.Equal(t, msg.Timestamp, entry.Versions[0].Timestamp)

	last, _ := entry.LastVersion()
	assert.Equal(t, last.Content, entry.Content)
	assert.True(t, entry.Deleted)
}

func TestHistory_BackfillIsIdempotent(t *testing.T) {
	f := newFixture(t, []string{"alice", "bob"})
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	for i, chatID := range []string{"c1", "c1", "c2"} {
		require.NoError(t, f.messages.Create(ctx, &domain.Message{
			Type: domain.MessageKindPrivate, FromUserID: "alice", ToUserID: "bob",
			ChatID: chatID, Content: "m", Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	created, err := f.history.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = f.history.Backfill(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)

	history, err := f.history.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, history.Entries, 2)
	for _, e := range history.Entries {
		require.Len(t, e.Versions, 1)
		assert.Equal(t, domain.ActionCreated, e.Versions[0].Action)
	}
}

func TestHistory_BackfillSkipsExistingHistory(t *testing.T) {
	f := newFixture(t, []string{"alice", "bob"})
	ctx := context.Background()

	msg := &domain.Message{Type: domain.MessageKindPrivate, FromUserID: "alice", ToUserID: "bob", ChatID: "c1", Content: "a"}
	require.NoError(t, f.messages.Create(ctx, msg))
	_, err := f.history.Record(ctx, msg, domain.ActionCreated)
	require.NoError(t, err)

	created, err := f.history.Backfill(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)

	history, err := f.history.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, history.Entries, 1)
}
