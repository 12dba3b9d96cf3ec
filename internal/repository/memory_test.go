package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"portfolio_chat/internal/domain"
	apperrors "portfolio_chat/pkg/errors"
)

func TestMemoryUserRepository_AddChatIDIsIdempotent(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &domain.User{ID: "u1"}))

	require.NoError(t, repo.AddChatID(ctx, "u1", "c1"))
	require.NoError(t, repo.AddChatID(ctx, "u1", "c1"))
	require.NoError(t, repo.AddChatID(ctx, "u1", "c2"))

	user, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, user.ChatIDs)

	assert.ErrorIs(t, repo.AddChatID(ctx, "ghost", "c1"), apperrors.ErrUserNotFound)
}

func TestMemoryUserRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &domain.User{ID: "u1", ChatIDs: []string{"c1"}}))

	user, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	user.ChatIDs[0] = "mutated"

	again, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, again.ChatIDs)
}

func TestMemoryMessageRepository_OrdersByTimestamp(t *testing.T) {
	repo := NewMemoryMessageRepository()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &domain.Message{ID: "late", ChatID: "c1", Timestamp: base.Add(time.Minute)}))
	require.NoError(t, repo.Create(ctx, &domain.Message{ID: "early", ChatID: "c1", Timestamp: base}))

	messages, err := repo.GetByChatID(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "early", messages[0].ID)
	assert.Equal(t, "late", messages[1].ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrMessageNotFound)
}

func TestMemoryMessageRepository_UpdateKeepsMessageInChat(t *testing.T) {
	repo := NewMemoryMessageRepository()
	ctx := context.Background()
	msg := &domain.Message{ChatID: "c1", Content: "hi"}
	require.NoError(t, repo.Create(ctx, msg))
	require.NotEmpty(t, msg.ID)

	now := time.Now().UTC()
	msg.DeletedAt = &now
	require.NoError(t, repo.Update(ctx, msg))

	messages, err := repo.GetByChatID(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsDeleted())
}

func TestMemoryHistoryRepository_CreateFromMessagesOnce(t *testing.T) {
	repo := NewMemoryHistoryRepository()
	ctx := context.Background()
	messages := []*domain.Message{{ID: "m1", ChatID: "c1", Content: "a", Timestamp: time.Now()}}

	ok, err := repo.CreateFromMessages(ctx, "c1", messages)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CreateFromMessages(ctx, "c1", messages)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Get(ctx, "c2")
	assert.ErrorIs(t, err, apperrors.ErrChatNotFound)
}

func TestMemoryRateLimitRepository_WindowExpires(t *testing.T) {
	repo := NewMemoryRateLimitRepository().(*memoryRateLimitRepository)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_, err := repo.Increment(ctx, "k", time.Minute)
		require.NoError(t, err)
	}
	allowed, err := repo.CheckLimit(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	now = now.Add(time.Minute)
	allowed, err = repo.CheckLimit(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryUserRepository_CreateIfAbsentKeepsExisting(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &domain.User{ID: "u1", Email: "old@example.com", ChatIDs: []string{"c1"}}))

	created, err := repo.CreateIfAbsent(ctx, &domain.User{ID: "u1", Email: "new@example.com"})
	require.NoError(t, err)
	assert.False(t, created)

	user, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "old@example.com", user.Email)
	assert.Equal(t, []string{"c1"}, user.ChatIDs)

	created, err = repo.CreateIfAbsent(ctx, &domain.User{ID: "u2"})
	require.NoError(t, err)
	assert.True(t, created)
}
