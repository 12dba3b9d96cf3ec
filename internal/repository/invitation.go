package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"portfolio_chat/internal/domain"
	"portfolio_chat/pkg/logger"
)

const (
	// sorted set of invitations per invitee, scored by creation time in ms
	InvitationsKeyPrefix = "chat:invitations:%s"
)

type InvitationRepository interface {
	Save(ctx context.Context, invitation *domain.GroupInvitation) error
	ListByInvitee(ctx context.Context, inviteeID string) ([]*domain.GroupInvitation, error)
}

type invitationRepository struct {
	rdb *redis.Client
	ttl time.Duration
	log logger.Logger
}

func NewInvitationRepository(rdb *redis.Client, ttl time.Duration, log logger.Logger) InvitationRepository {
	return &invitationRepository{rdb: rdb, ttl: ttl, log: log}
}

func (r *invitationRepository) key(inviteeID string) string {
	return fmt.Sprintf(InvitationsKeyPrefix, inviteeID)
}

func (r *invitationRepository) Save(ctx context.Context, invitation *domain.GroupInvitation) error {
	key := r.key(invitation.InviteeID)

	payload, err := json.Marshal(invitation)
	if err != nil {
		return fmt.Errorf("failed to marshal invitation: %w", err)
	}

	err = r.rdb.ZAdd(ctx, key, redis.Z{
		Score:  float64(invitation.CreatedAt.UnixMilli()),
		Member: payload,
	}).Err()
	if err != nil {
		r.log.Error("Failed to save invitation to Redis", "error", err, "invitee_id", invitation.InviteeID)
		return fmt.Errorf("failed to save invitation: %w", err)
	}

	if r.ttl > 0 {
		if err := r.rdb.Expire(ctx, key, r.ttl).Err(); err != nil {
			r.log.Warn("Failed to set TTL on invitation key", "error", err)
		}
	}

	return nil
}

func (r *invitationRepository) ListByInvitee(ctx context.Context, inviteeID string) ([]*domain.GroupInvitation, error) {
	members, err := r.rdb.ZRange(ctx, r.key(inviteeID), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []*domain.GroupInvitation{}, nil
		}
		r.log.Error("Failed to list invitations", "error", err, "invitee_id", inviteeID)
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	invitations := make([]*domain.GroupInvitation, 0, len(members))
	for _, member := range members {
		var invitation domain.GroupInvitation
		if err := json.Unmarshal([]byte(member), &invitation); err != nil {
			r.log.Warn("Failed to unmarshal invitation", "error", err)
			continue
		}
		invitations = append(invitations, &invitation)
	}

	return invitations, nil
}
