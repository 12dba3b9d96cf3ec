package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"portfolio_chat/internal/domain"
	"portfolio_chat/internal/repository"
	"portfolio_chat/pkg/logger"
)

// ChatIDResolver finds the private conversation shared by two users, allocating one
// when they have never exchanged a direct message.
type ChatIDResolver struct {
	users    repository.UserRepository
	messages repository.MessageRepository
	pairs    *keyedLocker
	newID    func() string
	log      logger.Logger
}

func NewChatIDResolver(users repository.UserRepository, messages repository.MessageRepository, log logger.Logger) *ChatIDResolver {
	return &ChatIDResolver{
		users:    users,
		messages: messages,
		pairs:    newKeyedLocker(),
		newID:    uuid.NewString,
		log:      log,
	}
}

// ResolveOrCreatePrivateChatID scans the chats both users belong to, in userA's order,
// and returns the first one holding a direct message between them. Shared membership
// alone is not enough: two members of one group share its chat id without having a
// private thread.
func (r *ChatIDResolver) ResolveOrCreatePrivateChatID(ctx context.Context, userA, userB string) (string, error) {
	unlock := r.LockPair(userA, userB)
	defer unlock()

	return r.resolve(ctx, userA, userB)
}

// LockPair serializes work on the private thread of two users. The router holds it until
// the first message is stored so a reply racing the first send finds the same chat.
func (r *ChatIDResolver) LockPair(userA, userB string) func() {
	return r.pairs.Lock(pairKey(userA, userB))
}

func (r *ChatIDResolver) resolve(ctx context.Context, userA, userB string) (string, error) {
	a, err := r.users.GetByID(ctx, userA)
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", userA, err)
	}
	b, err := r.users.GetByID(ctx, userB)
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", userB, err)
	}

	candidates := lo.Uniq(lo.Filter(a.ChatIDs, func(chatID string, _ int) bool {
		return lo.Contains(b.ChatIDs, chatID)
	}))

	for _, chatID := range candidates {
		messages, err := r.messages.GetByChatID(ctx, chatID)
		if err != nil {
			return "", fmt.Errorf("load messages of chat %s: %w", chatID, err)
		}
		if lo.ContainsBy(messages, func(m *domain.Message) bool { return m.IsBetween(userA, userB) }) {
			return chatID, nil
		}
	}

	chatID := r.newID()
	for _, userID := range lo.Uniq([]string{userA, userB}) {
		if err := r.users.AddChatID(ctx, userID, chatID); err != nil {
			return "", fmt.Errorf("attach chat %s to user %s: %w", chatID, userID, err)
		}
	}

	r.log.Debug("Allocated private chat", "chat_id", chatID, "user_a", userA, "user_b", userB)
	return chatID, nil
}
