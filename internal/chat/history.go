package chat

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"portfolio_chat/internal/domain"
	"portfolio_chat/internal/repository"
	"portfolio_chat/pkg/logger"
)

// History is the versioned audit log of every chat.
type History struct {
	repo     repository.HistoryRepository
	messages repository.MessageRepository
	chats    *keyedLocker
	workers  int
	now      func() time.Time
	log      logger.Logger
}

func NewHistory(repo repository.HistoryRepository, messages repository.MessageRepository, workers int, log logger.Logger) *History {
	if workers <= 0 {
		workers = 1
	}
	return &History{
		repo:     repo,
		messages: messages,
		chats:    newKeyedLocker(),
		workers:  workers,
		now:      time.Now,
		log:      log,
	}
}

// LockChat serializes writers of one chat. Whoever changes a stored message holds it
// across the store write and the matching Record so both orders agree.
func (h *History) LockChat(chatID string) func() {
	return h.chats.Lock(chatID)
}

// Record appends one version for message with its current content.
func (h *History) Record(ctx context.Context, message *domain.Message, action domain.HistoryAction) (domain.MessageVersion, error) {
	at := h.now().UTC()
	if action == domain.ActionCreated && !message.Timestamp.IsZero() {
		at = message.Timestamp.UTC()
	}

	version, err := h.repo.Append(ctx, message, action, at)
	if err != nil {
		return domain.MessageVersion{}, fmt.Errorf("record %s of message %s: %w", action, message.ID, err)
	}
	return version, nil
}

func (h *History) Get(ctx context.Context, chatID string) (*domain.MessageHistory, error) {
	return h.repo.Get(ctx, chatID)
}

// Backfill creates a history for every chat that has messages but none yet, one CREATED
// version per message. Chats that already have a history are left untouched, so it is
// safe to run on every start.
func (h *History) Backfill(ctx context.Context) (int, error) {
	chatIDs, err := h.messages.ListChatIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list chats: %w", err)
	}

	var created atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)

	for _, chatID := range chatIDs {
		chatID := chatID
		g.Go(func() error {
			exists, err := h.repo.Exists(ctx, chatID)
			if err != nil {
				return fmt.Errorf("check history of %s: %w", chatID, err)
			}
			if exists {
				return nil
			}

			messages, err := h.messages.GetByChatID(ctx, chatID)
			if err != nil {
				return fmt.Errorf("load messages of %s: %w", chatID, err)
			}

			ok, err := h.repo.CreateFromMessages(ctx, chatID, messages)
			if err != nil {
				return fmt.Errorf("backfill %s: %w", chatID, err)
			}
			if ok {
				created.Add(1)
				h.log.Debug("History backfilled", "chat_id", chatID, "messages", len(messages))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(created.Load()), err
	}

	h.log.Info("History backfill finished", "chats", len(chatIDs), "created", created.Load())
	return int(created.Load()), nil
}
