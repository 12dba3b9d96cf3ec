package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"portfolio_chat/internal/service"
	apperrors "portfolio_chat/pkg/errors"
	"portfolio_chat/pkg/logger"
)

type ChatHandler struct {
	messageService service.MessageService
	log            logger.Logger
}

func NewChatHandler(messageService service.MessageService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		messageService: messageService,
		log:            log,
	}
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	chatIDs, err := h.messageService.ListChats(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chatIds": chatIDs})
}

func (h *ChatHandler) ListInvitations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	invitations, err := h.messageService.ListInvitations(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	messages, err := h.messageService.GetMessages(c.Request.Context(), userID, c.Param("chatId"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	history, err := h.messageService.GetHistory(c.Request.Context(), userID, c.Param("chatId"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *ChatHandler) EditMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messageService.EditMessage(c.Request.Context(), userID, c.Param("id"), req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, message)
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.messageService.DeleteMessage(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) fail(c *gin.Context, err error) {
	status := apperrors.HTTPStatusFromError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Chat request failed", "error", err, "path", c.FullPath())
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return "", false
	}
	return userID, true
}
