package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"portfolio_chat/pkg/logger"
)

type Repositories struct {
	User       UserRepository
	Message    MessageRepository
	History    HistoryRepository
	Invitation InvitationRepository
	RateLimit  RateLimitRepository
}

// NewRepositories wires the Postgres stores. A nil Redis client keeps invitations and
// rate limit counters in process memory.
func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, invitationTTL time.Duration, log logger.Logger) *Repositories {
	repos := &Repositories{
		User:    NewUserRepository(db, log),
		Message: NewMessageRepository(db, log),
		History: NewHistoryRepository(db, log),
	}
	withRedis(repos, rdb, invitationTTL, log)
	return repos
}

func NewMemoryRepositories(rdb *redis.Client, invitationTTL time.Duration, log logger.Logger) *Repositories {
	repos := &Repositories{
		User:    NewMemoryUserRepository(),
		Message: NewMemoryMessageRepository(),
		History: NewMemoryHistoryRepository(),
	}
	withRedis(repos, rdb, invitationTTL, log)
	log.Warn("Using in-memory chat storage, data is lost on restart")
	return repos
}

func withRedis(repos *Repositories, rdb *redis.Client, invitationTTL time.Duration, log logger.Logger) {
	if rdb == nil {
		repos.Invitation = NewMemoryInvitationRepository()
		repos.RateLimit = NewMemoryRateLimitRepository()
		log.Info("Redis disabled, invitations and rate limits kept in memory")
		return
	}
	repos.Invitation = NewInvitationRepository(rdb, invitationTTL, log)
	repos.RateLimit = NewRateLimitRepository(rdb, log)
}
