package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ai-chat/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Upsert(ctx context.Context, user domain.User) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

// Upsert crea el usuario en su primer inicio de sesión y refresca
// nombre/email/imagen en los siguientes.
func (r *PgUserRepository) Upsert(ctx context.Context, user domain.User) (domain.User, error) {
	const query = `
		INSERT INTO users (id, name, email, image, auth_provider, auth_subject, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (auth_provider, auth_subject) DO UPDATE
		SET name = EXCLUDED.name,
		    email = EXCLUDED.email,
		    image = EXCLUDED.image,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, name, email, image, auth_provider, auth_subject, created_at, updated_at
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Image,
		user.AuthProvider,
		user.AuthSubject,
		user.UpdatedAt,
	).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Image,
		&u.AuthProvider,
		&u.AuthSubject,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT id, name, email, image, auth_provider, auth_subject, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Image,
		&u.AuthProvider,
		&u.AuthSubject,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}
