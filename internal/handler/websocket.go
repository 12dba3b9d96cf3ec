package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"portfolio_chat/internal/chat"
	"portfolio_chat/internal/config"
	"portfolio_chat/internal/realtime"
	"portfolio_chat/internal/service"
	"portfolio_chat/pkg/logger"
)

type WebSocketHandler struct {
	upgrader  websocket.Upgrader
	router    *chat.Router
	identity  *service.IdentityResolver
	rateLimit service.RateLimitService
	chatCfg   config.ChatConfig
	log       logger.Logger
}

func NewWebSocketHandler(
	router *chat.Router,
	identity *service.IdentityResolver,
	rateLimit service.RateLimitService,
	chatCfg config.ChatConfig,
	allowedOrigins []string,
	log logger.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		router:    router,
		identity:  identity,
		rateLimit: rateLimit,
		chatCfg:   chatCfg,
		log:       log,
	}
}

// HandleChat upgrades first and authenticates second, so a rejected client still gets a
// close frame with a readable reason instead of a bare HTTP status.
func (h *WebSocketHandler) HandleChat(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	userID, err := h.identity.Resolve(c.Request.Context(), c.Request.Header, c.Request.URL.Query())
	if err != nil {
		h.log.Warn("Rejected chat connection", "error", err, "remote", c.ClientIP())
		realtime.Reject(ws, "authentication failed")
		return
	}

	conn := realtime.NewConnection(userID, ws, realtime.Options{
		SendBuffer:    h.chatCfg.SendBuffer,
		MaxFrameBytes: h.chatCfg.MaxFrameBytes,
	}, h.log)
	conn.Start()

	h.router.Connect(userID, conn)
	defer func() {
		h.router.Disconnect(userID, conn)
		conn.Close(websocket.CloseNormalClosure, "")
	}()

	ctx := c.Request.Context()

	err = conn.ReadLoop(func(payload []byte) {
		if !h.allow(ctx, userID) {
			h.router.SendError(userID, chat.CodeRateLimited)
			return
		}
		h.router.Handle(ctx, userID, payload)
	})
	if err != nil {
		h.log.Debug("Chat connection closed unexpectedly", "error", err, "user_id", userID)
	}
}

// originChecker admits requests without an Origin header (non-browser clients), any origin
// when the list holds "*", and otherwise only the listed origins.
func originChecker(allowedOrigins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSpace(o)] = struct{}{}
	}
	_, allowAll := allowed["*"]

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

func (h *WebSocketHandler) allow(ctx context.Context, userID string) bool {
	ok, err := h.rateLimit.Allow(ctx, service.FrameRateKey(userID), h.chatCfg.RateLimit, h.chatCfg.RateWindow)
	if err != nil {
		// a broken limiter must not take chat down with it
		h.log.Error("Frame rate limit check failed", "error", err, "user_id", userID)
		return true
	}
	return ok
}
