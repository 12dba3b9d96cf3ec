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

// UserRepository is the narrow view of the profile store the chat core needs.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
	// CreateIfAbsent inserts user unless the id is taken. An existing record is left untouched.
	CreateIfAbsent(ctx context.Context, user *domain.User) (bool, error)
	// AddChatID adds chatID to the user's set. Adding an id that is already present is a no-op.
	AddChatID(ctx context.Context, userID, chatID string) error
}

type userRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewUserRepository(db *pgxpool.Pool, log logger.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, display_name, global_role, chat_ids, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user := &domain.User{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.GlobalRole,
		&user.ChatIDs, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		r.log.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, err
	}

	return user, nil
}

func (r *userRepository) Save(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, display_name, global_role, chat_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, display_name = EXCLUDED.display_name,
		    global_role = EXCLUDED.global_role, chat_ids = EXCLUDED.chat_ids, updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	chatIDs := user.ChatIDs
	if chatIDs == nil {
		chatIDs = []string{}
	}

	err := r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.DisplayName, user.GlobalRole, chatIDs, time.Now().UTC(),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to save user", "error", err, "user_id", user.ID)
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func (r *userRepository) CreateIfAbsent(ctx context.Context, user *domain.User) (bool, error) {
	query := `
		INSERT INTO users (id, email, display_name, global_role, chat_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '{}', $5, $5)
		ON CONFLICT (id) DO NOTHING
	`

	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx, query, user.ID, user.Email, user.DisplayName, user.GlobalRole, now)
	if err != nil {
		r.log.Error("Failed to create user", "error", err, "user_id", user.ID)
		return false, fmt.Errorf("failed to create user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	user.ChatIDs = []string{}
	user.CreatedAt, user.UpdatedAt = now, now
	return true, nil
}

func (r *userRepository) AddChatID(ctx context.Context, userID, chatID string) error {
	// single statement so concurrent additions for the same user cannot drop each other
	query := `
		UPDATE users
		SET chat_ids = array_append(chat_ids, $2), updated_at = NOW()
		WHERE id = $1 AND NOT ($2 = ANY(chat_ids))
	`

	tag, err := r.db.Exec(ctx, query, userID, chatID)
	if err != nil {
		r.log.Error("Failed to add chat id", "error", err, "user_id", userID, "chat_id", chatID)
		return fmt.Errorf("failed to add chat id: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		r.log.Error("Failed to check user existence", "error", err, "user_id", userID)
		return err
	}
	if !exists {
		return apperrors.ErrUserNotFound
	}

	return nil
}
