package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ai-chat/internal/llm"
	"ai-chat/internal/service"
)

// ConversationHandler mantiene dependencias para endpoints de conversaciones
// y el catálogo de modelos.
type ConversationHandler struct {
	logger   *zap.Logger
	convServ *service.ConversationService
	registry *llm.Registry
}

func NewConversationHandler(logger *zap.Logger, convServ *service.ConversationService, registry *llm.Registry) *ConversationHandler {
	return &ConversationHandler{
		logger:   logger,
		convServ: convServ,
		registry: registry,
	}
}

// ListConversations maneja GET /conversations.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conversations, err := h.convServ.List(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list conversations failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, conversations)
}

// DeleteConversation maneja DELETE /conversations?id=.
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation id required"})
		return
	}

	if err := h.convServ.Delete(c.Request.Context(), id, claims.UserID); err != nil {
		if errors.Is(err, service.ErrConversationInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		h.logger.Error("delete conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RenameConversation maneja PATCH /conversations.
func (h *ConversationHandler) RenameConversation(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		ID    string `json:"id" binding:"required"`
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid rename request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and title required"})
		return
	}

	conversation, err := h.convServ.Rename(c.Request.Context(), req.ID, claims.UserID, req.Title)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "id and title required"})
		case errors.Is(err, service.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		default:
			h.logger.Error("rename conversation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// ListMessages maneja GET /conversations/:id/messages.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	messages, err := h.convServ.ListMessages(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound),
			errors.Is(err, service.ErrConversationInvalidInput):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		default:
			h.logger.Error("list messages failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, messages)
}

// ListModels maneja GET /models: el catálogo estático para el selector.
func (h *ConversationHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.registry.Providers()})
}
