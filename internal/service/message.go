package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"portfolio_chat/internal/chat"
	"portfolio_chat/internal/domain"
	"portfolio_chat/internal/repository"
	apperrors "portfolio_chat/pkg/errors"
	"portfolio_chat/pkg/logger"
)

// MessageService serves chat reads and sender edits outside the websocket.
type MessageService interface {
	ListChats(ctx context.Context, userID string) ([]string, error)
	ListInvitations(ctx context.Context, userID string) ([]*domain.GroupInvitation, error)
	GetMessages(ctx context.Context, userID, chatID string) ([]*domain.Message, error)
	GetHistory(ctx context.Context, userID, chatID string) (*domain.MessageHistory, error)
	EditMessage(ctx context.Context, userID, messageID, content string) (*domain.Message, error)
	DeleteMessage(ctx context.Context, userID, messageID string) error
}

type messageService struct {
	userRepo       repository.UserRepository
	messageRepo    repository.MessageRepository
	invitationRepo repository.InvitationRepository
	history        *chat.History
	now            func() time.Time
	log            logger.Logger
}

func NewMessageService(
	userRepo repository.UserRepository,
	messageRepo repository.MessageRepository,
	invitationRepo repository.InvitationRepository,
	history *chat.History,
	log logger.Logger,
) MessageService {
	return &messageService{
		userRepo:       userRepo,
		messageRepo:    messageRepo,
		invitationRepo: invitationRepo,
		history:        history,
		now:            time.Now,
		log:            log,
	}
}

func (s *messageService) ListChats(ctx context.Context, userID string) ([]string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ChatIDs == nil {
		return []string{}, nil
	}
	return user.ChatIDs, nil
}

// ListInvitations returns the group invitations addressed to userID that have not expired
// from the store, newest last.
func (s *messageService) ListInvitations(ctx context.Context, userID string) ([]*domain.GroupInvitation, error) {
	invitations, err := s.invitationRepo.ListByInvitee(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, nil
}

func (s *messageService) GetMessages(ctx context.Context, userID, chatID string) ([]*domain.Message, error) {
	if err := s.requireParticipant(ctx, userID, chatID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return lo.Reject(messages, func(m *domain.Message, _ int) bool { return m.IsDeleted() }), nil
}

func (s *messageService) GetHistory(ctx context.Context, userID, chatID string) (*domain.MessageHistory, error) {
	if err := s.requireParticipant(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return s.history.Get(ctx, chatID)
}

func (s *messageService) EditMessage(ctx context.Context, userID, messageID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", apperrors.ErrBadRequest)
	}

	return s.modify(ctx, userID, messageID, domain.ActionUpdated, func(m *domain.Message, now time.Time) {
		m.Content = content
		m.EditedAt = &now
	})
}

func (s *messageService) DeleteMessage(ctx context.Context, userID, messageID string) error {
	_, err := s.modify(ctx, userID, messageID, domain.ActionDeleted, func(m *domain.Message, now time.Time) {
		m.DeletedAt = &now
	})
	return err
}

// modify applies change to a message owned by userID and records the matching version.
// The chat lock is taken before the message is reloaded so concurrent edits of one chat
// reach the store and the history in the same order.
func (s *messageService) modify(
	ctx context.Context,
	userID, messageID string,
	action domain.HistoryAction,
	change func(m *domain.Message, now time.Time),
) (*domain.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	unlock := s.history.LockChat(message.ChatID)
	defer unlock()

	message, err = s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.FromUserID != userID {
		return nil, apperrors.ErrNotMessageSender
	}
	if message.IsDeleted() {
		return nil, apperrors.ErrMessageDeleted
	}

	change(message, s.now().UTC())
	if err := s.messageRepo.Update(ctx, message); err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}

	if _, err := s.history.Record(ctx, message, action); err != nil {
		s.log.Error("Failed to record message history", "error", err, "message_id", message.ID, "action", action)
	}

	s.log.Info("Message modified", "message_id", message.ID, "chat_id", message.ChatID, "action", action)
	return message, nil
}

func (s *messageService) requireParticipant(ctx context.Context, userID, chatID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasChat(chatID) {
		return apperrors.ErrForbidden
	}
	return nil
}
