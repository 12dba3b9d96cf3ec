package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"portfolio_chat/internal/domain"
	apperrors "portfolio_chat/pkg/errors"
	"portfolio_chat/pkg/logger"
)

type HistoryRepository interface {
	Get(ctx context.Context, chatID string) (*domain.MessageHistory, error)
	Exists(ctx context.Context, chatID string) (bool, error)
	// Append locates or creates the history of message.ChatID and the entry of message.ID,
	// then appends one version. It is atomic per call.
	Append(ctx context.Context, message *domain.Message, action domain.HistoryAction, at time.Time) (domain.MessageVersion, error)
	// CreateFromMessages builds a history with one CREATED version per message.
	// It reports false and writes nothing when the chat already has a history.
	CreateFromMessages(ctx context.Context, chatID string, messages []*domain.Message) (bool, error)
}

type historyRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewHistoryRepository(db *pgxpool.Pool, log logger.Logger) HistoryRepository {
	return &historyRepository{db: db, log: log}
}

func (r *historyRepository) Get(ctx context.Context, chatID string) (*domain.MessageHistory, error) {
	history := &domain.MessageHistory{ChatID: chatID}
	err := r.db.QueryRow(ctx, `SELECT created_at FROM message_histories WHERE chat_id = $1`, chatID).Scan(&history.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrChatNotFound
		}
		r.log.Error("Failed to get history", "error", err, "chat_id", chatID)
		return nil, err
	}

	query := `
		SELECT e.message_id, e.from_user_id, e.content, e.deleted, v.recorded_at, v.action, v.content
		FROM message_entries e
		JOIN message_versions v ON v.message_id = e.message_id
		WHERE e.chat_id = $1
		ORDER BY e.seq ASC, v.id ASC
	`

	rows, err := r.db.Query(ctx, query, chatID)
	if err != nil {
		r.log.Error("Failed to get history entries", "error", err, "chat_id", chatID)
		return nil, err
	}
	defer rows.Close()

	var current *domain.MessageEntry
	for rows.Next() {
		var entry domain.MessageEntry
		var version domain.MessageVersion
		if err := rows.Scan(
			&entry.MessageID, &entry.FromUserID, &entry.Content, &entry.Deleted,
			&version.Timestamp, &version.Action, &version.Content,
		); err != nil {
			r.log.Error("Failed to scan history entry", "error", err)
			return nil, err
		}
		if current == nil || current.MessageID != entry.MessageID {
			current = &entry
			history.Entries = append(history.Entries, current)
		}
		version.Timestamp = version.Timestamp.UTC()
		current.Versions = append(current.Versions, version)
	}

	return history, rows.Err()
}

func (r *historyRepository) Exists(ctx context.Context, chatID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM message_histories WHERE chat_id = $1)`, chatID).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check history existence", "error", err, "chat_id", chatID)
		return false, err
	}
	return exists, nil
}

func (r *historyRepository) Append(ctx context.Context, message *domain.Message, action domain.HistoryAction, at time.Time) (domain.MessageVersion, error) {
	var version domain.MessageVersion

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO message_histories (chat_id, created_at) VALUES ($1, $2)
			ON CONFLICT (chat_id) DO NOTHING
		`, message.ChatID, at); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO message_entries (message_id, chat_id, from_user_id, content, deleted)
			VALUES ($1, $2, $3, $4, FALSE)
			ON CONFLICT (message_id) DO NOTHING
		`, message.ID, message.ChatID, message.FromUserID, message.Content); err != nil {
			return err
		}

		// lock the entry so concurrent appends for one message are serialized
		entry := &domain.MessageEntry{MessageID: message.ID}
		if _, err := tx.Exec(ctx, `SELECT 1 FROM message_entries WHERE message_id = $1 FOR UPDATE`, message.ID); err != nil {
			return err
		}

		var last time.Time
		err := tx.QueryRow(ctx, `
			SELECT recorded_at FROM message_versions WHERE message_id = $1 ORDER BY id DESC LIMIT 1
		`, message.ID).Scan(&last)
		switch {
		case err == nil:
			entry.Versions = []domain.MessageVersion{{Timestamp: last}}
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}

		version = entry.Append(at, action, message.Content)

		if _, err := tx.Exec(ctx, `
			INSERT INTO message_versions (message_id, recorded_at, action, content) VALUES ($1, $2, $3, $4)
		`, message.ID, version.Timestamp, version.Action, version.Content); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE message_entries SET content = $2, deleted = $3 WHERE message_id = $1
		`, message.ID, entry.Content, entry.Deleted)
		return err
	})
	if err != nil {
		r.log.Error("Failed to append history version", "error", err, "chat_id", message.ChatID, "message_id", message.ID)
		return domain.MessageVersion{}, fmt.Errorf("failed to append history: %w", err)
	}

	return version, nil
}

func (r *historyRepository) CreateFromMessages(ctx context.Context, chatID string, messages []*domain.Message) (bool, error) {
	created := false

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `
			INSERT INTO message_histories (chat_id, created_at) VALUES ($1, $2)
			ON CONFLICT (chat_id) DO NOTHING
			RETURNING chat_id
		`, chatID, time.Now().UTC()).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, m := range messages {
			batch.Queue(`
				INSERT INTO message_entries (message_id, chat_id, from_user_id, content, deleted)
				VALUES ($1, $2, $3, $4, FALSE)
				ON CONFLICT (message_id) DO NOTHING
			`, m.ID, chatID, m.FromUserID, m.Content)
			batch.Queue(`
				INSERT INTO message_versions (message_id, recorded_at, action, content) VALUES ($1, $2, $3, $4)
			`, m.ID, m.Timestamp, domain.ActionCreated, m.Content)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}

		created = true
		return nil
	})
	if err != nil {
		r.log.Error("Failed to backfill history", "error", err, "chat_id", chatID)
		return false, fmt.Errorf("failed to backfill history: %w", err)
	}

	return created, nil
}
