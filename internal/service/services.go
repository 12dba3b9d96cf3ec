package service

import (
	"portfolio_chat/internal/chat"
	"portfolio_chat/internal/config"
	"portfolio_chat/internal/repository"
	"portfolio_chat/pkg/logger"
)

type Services struct {
	Auth      AuthService
	Identity  *IdentityResolver
	Message   MessageService
	RateLimit RateLimitService
}

func NewServices(repos *repository.Repositories, history *chat.History, cfg *config.Config, log logger.Logger) *Services {
	var auth AuthService
	if cfg.Auth.ServiceURL != "" {
		log.Info("Validating tokens through the auth service", "url", cfg.Auth.ServiceURL)
		auth = NewRemoteAuthService(NewAuthServiceClient(cfg.Auth.ServiceURL, cfg.Auth.Timeout), repos.User, log)
	} else {
		auth = NewAuthService(repos.User, cfg.JWT, log)
	}

	return &Services{
		Auth:      auth,
		Identity:  NewIdentityResolver(auth),
		Message:   NewMessageService(repos.User, repos.Message, repos.Invitation, history, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
	}
}
