package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"portfolio_chat/internal/domain"
)

func TestResolveOrCreatePrivateChatID_ReusesThreadInBothDirections(t *testing.T) {
	f := newFixture(t, []string{"alice", "bob"})
	ctx := context.Background()

	chatID, err := f.resolver.ResolveOrCreatePrivateChatID(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NoError(t, f.messages.Create(ctx, &domain.Message{
		Type: domain.MessageKindPrivate, FromUserID: "alice", ToUserID: "bob", ChatID: chatID, Content: "hi",
	}))

	again, err := f.resolver.ResolveOrCreatePrivateChatID(ctx, "alice", "bob")
	require.NoError(t, err)
	reverse, err := f.resolver.ResolveOrCreatePrivateChatID(ctx, "bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, chatID, again)
	assert.Equal(t, chatID, reverse)
	assert.Equal(t, []string{chatID}, f.user(t, "alice").ChatIDs)
	assert.Equal(t, []string{chatID}, f.user(t, "bob").ChatIDs)
}

func TestResolveOrCreatePrivateChatID_IgnoresSharedGroup(t *testing.T) {
	f := newFixture(t, []string{"alice", "bob"})
	ctx := context.Background()

	require.NoError(t, f.users.AddChatID(ctx, "alice", "g1"))
	require.NoError(t, f.users.AddChatID(ctx, "bob", "g1"))
	require.NoError(t, f.messages.Create(ctx, &domain.Message{
		Type: domain.MessageKindGroup, FromUserID: "alice", GroupID: "g1", ChatID: "g1", Content: "hello group",
	}))

	chatID, err := f.resolver.ResolveOrCreatePrivateChatID(ctx, "alice", "bob")
	require.NoError(t, err)

	assert.NotEqual(t, "g1", chatID)
	assert.Equal(t, []string{"g1", chatID}, f.user(t, "alice").ChatIDs)
	assert.Equal(t, []string{"g1", chatID}, f.user(t, "bob").ChatIDs)
}

func TestResolveOrCreatePrivateChatID_PicksThreadOfThisPair(t *testing.T) {
	f := newFixture(t, []string{"alice", "bob", "carol"})
	ctx := context.Background()

	// carol's thread with alice is visible on alice but not on bob
	require.NoError(t, f.users.AddChatID(ctx, "alice", "c-ac"))
	require.NoError(t, f.users.AddChatID(ctx, "carol", "c-ac"))
	require.NoError(t, f.messages.Create(ctx, &domain.Message{
		Type: domain.MessageKindPrivate, FromUserID: "carol", ToUserID: "alice", ChatID: "c-ac", Content: "x",
	}))
	require.NoError(t, f.users.AddChatID(ctx, "alice", "c-ab"))
	require.NoError(t, f.users.AddChatID(ctx, "bob", "c-ab"))
	require.NoError(t, f.messages.Create(ctx, &domain.Message{
		Type: domain.MessageKindPrivate, FromUserID: "bob", ToUserID: "alice", ChatID: "c-ab", Content: "y",
	}))

	chatID, err := f.resolver.ResolveOrCreatePrivateChatID(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "c-ab", chatID)
}

func TestResolveOrCreatePrivateChatID_UnknownUser(t *testing.T) {
	f := newFixture(t, []string{"alice"})

	_, err := f.resolver.ResolveOrCreatePrivateChatID(context.Background(), "alice", "ghost")
	assert.Error(t, err)
}

func TestResolveOrCreatePrivateChatID_SerializesPair(t *testing.T) {
	f := newFixture(t, []string{"alice", "bob"})
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []string
	)
	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		pair := pair
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := f.resolver.LockPair(pair[0], pair[1])
			defer unlock()

			chatID, err := f.resolver.resolve(ctx, pair[0], pair[1])
			if !assert.NoError(t, err) {
				return
			}
			assert.NoError(t, f.messages.Create(ctx, &domain.Message{
				Type: domain.MessageKindPrivate, FromUserID: pair[0], ToUserID: pair[1], ChatID: chatID,
				Content: "first", Timestamp: time.Now(),
			}))

			mu.Lock()
			ids = append(ids, chatID)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], ids[1])
	assert.Len(t, f.user(t, "alice").ChatIDs, 1)
}
