package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"ai-chat/internal/domain"
)

type fakeUserRepo struct {
	byKey map[string]domain.User // auth_provider + "/" + auth_subject
	byID  map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byKey: make(map[string]domain.User),
		byID:  make(map[string]domain.User),
	}
}

func (f *fakeUserRepo) Upsert(_ context.Context, user domain.User) (domain.User, error) {
	key := user.AuthProvider + "/" + user.AuthSubject
	if existing, ok := f.byKey[key]; ok {
		existing.Name = user.Name
		existing.Email = user.Email
		existing.Image = user.Image
		existing.UpdatedAt = user.UpdatedAt
		f.byKey[key] = existing
		f.byID[existing.ID] = existing
		return existing, nil
	}
	f.byKey[key] = user
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func TestUserSignIn_CreatesThenRefreshes(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(zap.NewNop(), repo)

	first, err := svc.SignIn(context.Background(), SignInInput{
		Provider: "google",
		Subject:  "sub-1",
		Email:    "User@Example.com",
		Name:     "Usuario",
	})
	if err != nil {
		t.Fatalf("first signin: %v", err)
	}
	if first.Email != "user@example.com" {
		t.Fatalf("expected lowercased email, got %q", first.Email)
	}

	second, err := svc.SignIn(context.Background(), SignInInput{
		Provider: "google",
		Subject:  "sub-1",
		Email:    "user@example.com",
		Name:     "Nuevo Nombre",
	})
	if err != nil {
		t.Fatalf("second signin: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same user on repeat signin, got %q vs %q", second.ID, first.ID)
	}
	if second.Name != "Nuevo Nombre" {
		t.Fatalf("expected refreshed profile, got %q", second.Name)
	}
}

func TestUserSignIn_Validation(t *testing.T) {
	svc := NewUserService(zap.NewNop(), newFakeUserRepo())

	cases := []SignInInput{
		{Subject: "sub", Email: "a@b.com"},
		{Provider: "google", Email: "a@b.com"},
		{Provider: "google", Subject: "sub"},
		{Provider: "  ", Subject: "sub", Email: "a@b.com"},
	}
	for i, input := range cases {
		if _, err := svc.SignIn(context.Background(), input); !errors.Is(err, ErrSignInInvalid) {
			t.Fatalf("case %d expected ErrSignInInvalid, got %v", i, err)
		}
	}
}

func TestUserGetByID(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(zap.NewNop(), repo)

	created, err := svc.SignIn(context.Background(), SignInInput{
		Provider: "github",
		Subject:  "sub-2",
		Email:    "dev@example.com",
	})
	if err != nil {
		t.Fatalf("signin: %v", err)
	}

	got, err := svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected %q, got %q", created.ID, got.ID)
	}

	if _, err := svc.GetByID(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
