package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ai-chat/internal/llm"
	"ai-chat/internal/service"
)

// ConversationIDHeader lleva el id de la conversación resuelta. Se fija
// antes del primer byte del body para que el cliente pueda etiquetar el
// primer fragmento.
const ConversationIDHeader = "X-Conversation-Id"

// ChatHandler adapta un turno del orquestador a un intercambio HTTP con
// body en streaming.
type ChatHandler struct {
	logger      *zap.Logger
	chatServ    *service.ChatService
	turnTimeout time.Duration
}

func NewChatHandler(logger *zap.Logger, chatServ *service.ChatService, turnTimeout time.Duration) *ChatHandler {
	if turnTimeout <= 0 {
		turnTimeout = 30 * time.Second
	}
	return &ChatHandler{
		logger:      logger,
		chatServ:    chatServ,
		turnTimeout: turnTimeout,
	}
}

// PostChat maneja POST /chat.
func (h *ChatHandler) PostChat(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Messages       []llm.ChatMessage `json:"messages" binding:"required"`
		ConversationID string            `json:"conversation_id"`
		ModelProvider  string            `json:"model_provider" binding:"required"`
		ModelName      string            `json:"model_name" binding:"required"`
		Title          string            `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	// Techo fijo para el turno completo; el contexto del request ya cancela
	// el stream upstream si el cliente se desconecta.
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.turnTimeout)
	defer cancel()

	sink := &streamSink{c: c}
	result, err := h.chatServ.RunTurn(ctx, service.TurnInput{
		CallerID:       claims.UserID,
		ConversationID: req.ConversationID,
		ProviderID:     req.ModelProvider,
		ModelID:        req.ModelName,
		Title:          req.Title,
		Messages:       req.Messages,
	}, sink)
	if err != nil {
		h.handleTurnError(c, sink, err)
		return
	}

	h.logger.Info("chat turn completed",
		zap.String("conversation_id", result.ConversationID),
		zap.String("model_provider", req.ModelProvider),
		zap.String("model_name", req.ModelName),
		zap.Int("assistant_chars", len(result.AssistantText)),
	)
}

// handleTurnError traduce errores del orquestador. Si el body ya empezó a
// salir no hay status que corregir: se aborta la conexión sin el chunk
// terminal para que el cliente distinga el corte de un final limpio.
// Un proveedor desconocido es una falla upstream como cualquier otra: 500.
func (h *ChatHandler) handleTurnError(c *gin.Context, sink *streamSink, err error) {
	if sink.streaming {
		h.logger.Error("chat stream aborted", zap.Error(err))
		panic(http.ErrAbortHandler)
	}

	switch {
	case errors.Is(err, service.ErrTurnInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, service.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	default:
		h.logger.Error("chat turn failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// streamSink implementa service.TurnSink sobre la respuesta HTTP: header con
// el id de conversación primero, luego fragmentos escritos y flusheados uno
// a uno, sin buffering propio.
type streamSink struct {
	c         *gin.Context
	streaming bool
}

func (s *streamSink) ConversationResolved(conversationID string) {
	s.c.Header(ConversationIDHeader, conversationID)
}

func (s *streamSink) Chunk(delta string) error {
	if !s.streaming {
		s.c.Header("Content-Type", "text/plain; charset=utf-8")
		s.c.Status(http.StatusOK)
		s.streaming = true
	}
	if _, err := s.c.Writer.WriteString(delta); err != nil {
		return err
	}
	s.c.Writer.Flush()
	return nil
}
