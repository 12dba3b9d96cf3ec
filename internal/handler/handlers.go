package handler

import (
	"portfolio_chat/internal/chat"
	"portfolio_chat/internal/config"
	"portfolio_chat/internal/service"
	"portfolio_chat/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Chat      *ChatHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, router *chat.Router, registry *chat.Registry, checks map[string]Pinger, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(registry, checks),
		Chat:      NewChatHandler(services.Message, log),
		WebSocket: NewWebSocketHandler(router, services.Identity, services.RateLimit, cfg.Chat, cfg.Server.AllowedOrigins, log),
	}
}
