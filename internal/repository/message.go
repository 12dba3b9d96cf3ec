package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"portfolio_chat/internal/domain"
	apperrors "portfolio_chat/pkg/errors"
	"portfolio_chat/pkg/logger"
)

type MessageRepository interface {
	// Create assigns the identifier (and the timestamp when unset) and stores the message.
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	// GetByChatID returns every message of the chat, deleted ones included, oldest first.
	GetByChatID(ctx context.Context, chatID string) ([]*domain.Message, error)
	Update(ctx context.Context, message *domain.Message) error
	ListChatIDs(ctx context.Context) ([]string, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

const messageColumns = `id, type, from_user_id, to_user_id, group_id, chat_id, content, created_at, edited_at, deleted_at`

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	prepareMessage(message)

	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		message.ID, message.Type, message.FromUserID, message.ToUserID, message.GroupID,
		message.ChatID, message.Content, message.Timestamp, message.EditedAt, message.DeletedAt,
	)
	if err != nil {
		r.log.Error("Failed to create message", "error", err, "chat_id", message.ChatID)
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	message, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		r.log.Error("Failed to get message", "error", err, "message_id", id)
		return nil, err
	}

	return message, nil
}

func (r *messageRepository) GetByChatID(ctx context.Context, chatID string) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, chatID)
	if err != nil {
		r.log.Error("Failed to get messages", "error", err, "chat_id", chatID)
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

func (r *messageRepository) Update(ctx context.Context, message *domain.Message) error {
	query := `
		UPDATE messages
		SET content = $2, edited_at = $3, deleted_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, message.ID, message.Content, message.EditedAt, message.DeletedAt)
	if err != nil {
		r.log.Error("Failed to update message", "error", err, "message_id", message.ID)
		return fmt.Errorf("failed to update message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMessageNotFound
	}

	return nil
}

func (r *messageRepository) ListChatIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT chat_id FROM messages ORDER BY chat_id`)
	if err != nil {
		r.log.Error("Failed to list chat ids", "error", err)
		return nil, err
	}
	defer rows.Close()

	var chatIDs []string
	for rows.Next() {
		var chatID string
		if err := rows.Scan(&chatID); err != nil {
			return nil, err
		}
		chatIDs = append(chatIDs, chatID)
	}

	return chatIDs, rows.Err()
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	message := &domain.Message{}
	var toUserID, groupID *string
	err := row.Scan(
		&message.ID, &message.Type, &message.FromUserID, &toUserID, &groupID,
		&message.ChatID, &message.Content, &message.Timestamp, &message.EditedAt, &message.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if toUserID != nil {
		message.ToUserID = *toUserID
	}
	if groupID != nil {
		message.GroupID = *groupID
	}
	message.Timestamp = message.Timestamp.UTC()
	return message, nil
}

func prepareMessage(message *domain.Message) {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
}
