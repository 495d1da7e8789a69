package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"ai-chat/internal/domain"
	"ai-chat/internal/repository"
)

var (
	ErrConversationServiceNotConfigured = errors.New("conversation service not configured")
	ErrConversationInvalidInput         = errors.New("conversation invalid input")

	// ErrConversationNotFound cubre tanto la conversación inexistente como
	// la ajena: un no-dueño nunca distingue entre ambas.
	ErrConversationNotFound = errors.New("conversation not found")
)

// ConversationService aplica la guarda de pertenencia y las reglas de CRUD
// sobre conversaciones y sus mensajes.
type ConversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
}

func NewConversationService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
	}
}

// List devuelve las conversaciones del usuario, actividad más reciente primero.
func (s *ConversationService) List(ctx context.Context, userID string) ([]domain.Conversation, error) {
	if s == nil || s.conversations == nil {
		return nil, ErrConversationServiceNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrConversationInvalidInput
	}
	conversations, err := s.conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if conversations == nil {
		conversations = []domain.Conversation{}
	}
	return conversations, nil
}

// Get devuelve la conversación solo si pertenece al usuario.
func (s *ConversationService) Get(ctx context.Context, id, userID string) (domain.Conversation, error) {
	if s == nil || s.conversations == nil {
		return domain.Conversation{}, ErrConversationServiceNotConfigured
	}
	id = strings.TrimSpace(id)
	userID = strings.TrimSpace(userID)
	if id == "" || userID == "" {
		return domain.Conversation{}, ErrConversationInvalidInput
	}
	conversation, err := s.conversations.GetByIDAndUser(ctx, id, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return conversation, nil
}

// Rename cambia solo el título y avanza updated_at.
func (s *ConversationService) Rename(ctx context.Context, id, userID, title string) (domain.Conversation, error) {
	if s == nil || s.conversations == nil {
		return domain.Conversation{}, ErrConversationServiceNotConfigured
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Conversation{}, ErrConversationInvalidInput
	}

	conversation, err := s.Get(ctx, id, userID)
	if err != nil {
		return domain.Conversation{}, err
	}

	now := time.Now().UTC()
	if err := s.conversations.UpdateTitle(ctx, conversation.ID, userID, title, now); err != nil {
		return domain.Conversation{}, fmt.Errorf("rename conversation: %w", err)
	}
	conversation.Title = title
	conversation.UpdatedAt = now
	return conversation, nil
}

// Delete borra la conversación y sus mensajes si pertenece al usuario.
// Sobre una conversación ajena no borra nada y no devuelve error.
func (s *ConversationService) Delete(ctx context.Context, id, userID string) error {
	if s == nil || s.conversations == nil {
		return ErrConversationServiceNotConfigured
	}
	id = strings.TrimSpace(id)
	userID = strings.TrimSpace(userID)
	if id == "" || userID == "" {
		return ErrConversationInvalidInput
	}
	if err := s.conversations.Delete(ctx, id, userID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// ListMessages devuelve los mensajes en orden de creación, previa guarda de
// pertenencia.
func (s *ConversationService) ListMessages(ctx context.Context, id, userID string) ([]domain.Message, error) {
	if s == nil || s.conversations == nil || s.messages == nil {
		return nil, ErrConversationServiceNotConfigured
	}
	conversation, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.ListByConversationID(ctx, conversation.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}
