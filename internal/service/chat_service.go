package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"ai-chat/internal/domain"
	"ai-chat/internal/llm"
	"ai-chat/internal/repository"
)

const (
	defaultConversationTitle = "New Chat"
	derivedTitleMaxRunes     = 50
)

var (
	ErrChatServiceNotConfigured = errors.New("chat service not configured")
	ErrTurnInvalidInput         = errors.New("turn invalid input")
)

// ModelResolver entrega un handle invocable para un par proveedor/modelo.
type ModelResolver interface {
	Resolve(providerID, modelID string) (llm.ModelHandle, error)
}

// TurnSink recibe los eventos de un turno en orden: primero el id de la
// conversación resuelta, luego cada fragmento del stream.
type TurnSink interface {
	ConversationResolved(conversationID string)
	Chunk(delta string) error
}

// TurnInput es la entrada completa de un turno; todo el estado de ruteo
// viaja como argumento explícito, nunca como estado ambiente.
type TurnInput struct {
	CallerID       string
	ConversationID string
	ProviderID     string
	ModelID        string
	Title          string
	Messages       []llm.ChatMessage
}

// TurnResult resume un turno completado.
type TurnResult struct {
	ConversationID string
	AssistantText  string
}

// ChatService ejecuta turnos de chat: resuelve la conversación, persiste el
// mensaje del usuario, abre el stream del modelo y persiste la respuesta.
type ChatService struct {
	logger        *zap.Logger
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	models        ModelResolver
}

func NewChatService(
	logger *zap.Logger,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	models ModelResolver,
) *ChatService {
	return &ChatService{
		logger:        logger,
		conversations: conversations,
		messages:      messages,
		models:        models,
	}
}

// RunTurn ejecuta exactamente un turno. Garantías:
//   - el mensaje del usuario queda persistido antes de llamar al modelo,
//     así no se pierde aunque el upstream falle;
//   - sink.ConversationResolved corre antes de cualquier Chunk;
//   - el texto del asistente se persiste solo si el stream terminó limpio.
//
// Dos turnos simultáneos sobre la misma conversación no se serializan; los
// appends individuales son transaccionales pero el intercalado entre turnos
// queda a cargo del cliente.
func (s *ChatService) RunTurn(ctx context.Context, input TurnInput, sink TurnSink) (TurnResult, error) {
	if s == nil || s.conversations == nil || s.messages == nil || s.models == nil {
		return TurnResult{}, ErrChatServiceNotConfigured
	}
	if sink == nil {
		return TurnResult{}, ErrChatServiceNotConfigured
	}

	input.CallerID = strings.TrimSpace(input.CallerID)
	input.ConversationID = strings.TrimSpace(input.ConversationID)
	input.ProviderID = strings.TrimSpace(input.ProviderID)
	input.ModelID = strings.TrimSpace(input.ModelID)

	if input.CallerID == "" || input.ProviderID == "" || input.ModelID == "" {
		return TurnResult{}, ErrTurnInvalidInput
	}
	userMessage, ok := trailingUserMessage(input.Messages)
	if !ok {
		return TurnResult{}, ErrTurnInvalidInput
	}

	conversation, err := s.resolveConversation(ctx, input, userMessage)
	if err != nil {
		return TurnResult{}, err
	}
	sink.ConversationResolved(conversation.ID)

	if err := s.messages.Create(ctx, domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		Role:           domain.RoleUser,
		Content:        userMessage.Content,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		return TurnResult{}, fmt.Errorf("persist user message: %w", err)
	}

	handle, err := s.models.Resolve(input.ProviderID, input.ModelID)
	if err != nil {
		return TurnResult{}, err
	}

	fullText, err := s.streamReply(ctx, handle, input.Messages, sink)
	if err != nil {
		return TurnResult{}, err
	}

	if err := s.messages.Create(ctx, domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		Role:           domain.RoleAssistant,
		Content:        fullText,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		return TurnResult{}, fmt.Errorf("persist assistant message: %w", err)
	}

	return TurnResult{
		ConversationID: conversation.ID,
		AssistantText:  fullText,
	}, nil
}

// resolveConversation crea una conversación nueva cuando no viene id, o
// devuelve la existente solo si pertenece al caller.
func (s *ChatService) resolveConversation(ctx context.Context, input TurnInput, userMessage llm.ChatMessage) (domain.Conversation, error) {
	if input.ConversationID != "" {
		conversation, err := s.conversations.GetByIDAndUser(ctx, input.ConversationID, input.CallerID)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Conversation{}, ErrConversationNotFound
		}
		if err != nil {
			return domain.Conversation{}, fmt.Errorf("get conversation: %w", err)
		}
		return conversation, nil
	}

	now := time.Now().UTC()
	conversation := domain.Conversation{
		ID:            uuid.NewString(),
		UserID:        input.CallerID,
		Title:         deriveTitle(input.Title, userMessage.Content),
		ModelProvider: input.ProviderID,
		ModelName:     input.ModelID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return domain.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return conversation, nil
}

// streamReply consume el stream del modelo reenviando cada fragmento al sink
// apenas llega, sin cola intermedia, y devuelve el texto concatenado.
func (s *ChatService) streamReply(ctx context.Context, handle llm.ModelHandle, messages []llm.ChatMessage, sink TurnSink) (string, error) {
	stream, err := handle.StreamChat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("open model stream: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		delta := stream.Content()
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if err := sink.Chunk(delta); err != nil {
			return "", fmt.Errorf("forward chunk: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("model stream: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("turn aborted: %w", err)
	}
	return sb.String(), nil
}

// trailingUserMessage devuelve el último mensaje si es del usuario y tiene
// contenido; ese es el mensaje nuevo del turno.
func trailingUserMessage(messages []llm.ChatMessage) (llm.ChatMessage, bool) {
	if len(messages) == 0 {
		return llm.ChatMessage{}, false
	}
	last := messages[len(messages)-1]
	if strings.TrimSpace(last.Content) == "" {
		return llm.ChatMessage{}, false
	}
	if last.Role != "" && last.Role != domain.RoleUser {
		return llm.ChatMessage{}, false
	}
	return last, true
}

// deriveTitle usa el título del cliente, o los primeros 50 caracteres del
// primer mensaje del usuario, o "New Chat".
func deriveTitle(title, firstMessage string) string {
	title = strings.TrimSpace(title)
	if title != "" {
		return title
	}
	firstMessage = strings.TrimSpace(firstMessage)
	if firstMessage == "" {
		return defaultConversationTitle
	}
	runes := []rune(firstMessage)
	if len(runes) > derivedTitleMaxRunes {
		return string(runes[:derivedTitleMaxRunes])
	}
	return firstMessage
}
