package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"portfolio_chat/internal/chat"
)

// Pinger is satisfied by *pgxpool.Pool and by the adapter around *redis.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	registry *chat.Registry
	checks   map[string]Pinger
}

func NewHealthHandler(registry *chat.Registry, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		checks:   checks,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":       state,
		"service":      "portfolio-chat",
		"online_users": h.registry.Count(),
		"dependencies": deps,
	})
}
