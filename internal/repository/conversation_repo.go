package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ai-chat/internal/domain"
)

// ConversationRepository define el contrato de persistencia para conversaciones.
// Las lecturas y mutaciones van siempre acotadas por el usuario dueño.
type ConversationRepository interface {
	Create(ctx context.Context, conversation domain.Conversation) error
	GetByIDAndUser(ctx context.Context, id, userID string) (domain.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Conversation, error)
	UpdateTitle(ctx context.Context, id, userID, title string, updatedAt time.Time) error
	Delete(ctx context.Context, id, userID string) error
}

// PgConversationRepository implementa ConversationRepository usando pgxpool.
type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

func (r *PgConversationRepository) Create(ctx context.Context, conversation domain.Conversation) error {
	const query = `
		INSERT INTO conversations (id, user_id, title, model_provider, model_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		conversation.ID,
		conversation.UserID,
		conversation.Title,
		conversation.ModelProvider,
		conversation.ModelName,
		conversation.CreatedAt,
		conversation.UpdatedAt,
	)
	return err
}

// GetByIDAndUser devuelve pgx.ErrNoRows tanto si la conversación no existe
// como si pertenece a otro usuario.
func (r *PgConversationRepository) GetByIDAndUser(ctx context.Context, id, userID string) (domain.Conversation, error) {
	const query = `
		SELECT id, user_id, title, model_provider, model_name, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND user_id = $2
	`
	var c domain.Conversation
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&c.ID,
		&c.UserID,
		&c.Title,
		&c.ModelProvider,
		&c.ModelName,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.Conversation{}, err
	}
	return c, nil
}

func (r *PgConversationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	const query = `
		SELECT id, user_id, title, model_provider, model_name, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		err = rows.Scan(
			&c.ID,
			&c.UserID,
			&c.Title,
			&c.ModelProvider,
			&c.ModelName,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return conversations, nil
}

func (r *PgConversationRepository) UpdateTitle(ctx context.Context, id, userID, title string, updatedAt time.Time) error {
	const query = `
		UPDATE conversations
		SET title = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2
	`
	_, err := r.pool.Exec(ctx, query, id, userID, title, updatedAt)
	return err
}

// Delete elimina la conversación y sus mensajes en una transacción.
// Si la conversación no pertenece al usuario no borra nada y no falla.
func (r *PgConversationRepository) Delete(ctx context.Context, id, userID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const deleteMessages = `
		DELETE FROM messages
		WHERE conversation_id IN (
			SELECT id FROM conversations WHERE id = $1 AND user_id = $2
		)
	`
	if _, err = tx.Exec(ctx, deleteMessages, id, userID); err != nil {
		return err
	}

	const deleteConversation = `
		DELETE FROM conversations
		WHERE id = $1 AND user_id = $2
	`
	if _, err = tx.Exec(ctx, deleteConversation, id, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
