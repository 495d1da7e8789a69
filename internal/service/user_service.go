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
	"ai-chat/internal/repository"
)

var (
	ErrUserServiceNotConfigured = errors.New("user service not configured")
	ErrSignInInvalid            = errors.New("sign in invalid input")
	ErrUserNotFound             = errors.New("user not found")
)

// UserService maneja el alta/refresco de usuarios en el inicio de sesión.
type UserService struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewUserService(logger *zap.Logger, users repository.UserRepository) *UserService {
	return &UserService{
		logger: logger,
		users:  users,
	}
}

// SignInInput es el perfil verificado que entrega el proveedor OAuth.
type SignInInput struct {
	Provider string
	Subject  string
	Email    string
	Name     string
	Image    string
}

// SignIn crea el usuario en su primer inicio de sesión y refresca sus datos
// de perfil en los siguientes. Fuera de este camino el usuario es inmutable.
func (s *UserService) SignIn(ctx context.Context, input SignInInput) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, ErrUserServiceNotConfigured
	}

	input.Provider = strings.TrimSpace(input.Provider)
	input.Subject = strings.TrimSpace(input.Subject)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Provider == "" || input.Subject == "" || input.Email == "" {
		return domain.User{}, ErrSignInInvalid
	}

	user, err := s.users.Upsert(ctx, domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		Image:        strings.TrimSpace(input.Image),
		AuthProvider: input.Provider,
		AuthSubject:  input.Subject,
		UpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("user signed in",
			zap.String("user_id", user.ID),
			zap.String("auth_provider", user.AuthProvider),
		)
	}
	return user, nil
}

// GetByID devuelve un usuario existente.
func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, ErrUserServiceNotConfigured
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, ErrUserNotFound
	}
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
