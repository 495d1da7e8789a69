package http

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"ai-chat/internal/domain"
	"ai-chat/internal/llm"
	"ai-chat/internal/service"
)

type fakeConversationRepo struct {
	conversations map[string]domain.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: make(map[string]domain.Conversation)}
}

func (f *fakeConversationRepo) Create(_ context.Context, conversation domain.Conversation) error {
	f.conversations[conversation.ID] = conversation
	return nil
}

func (f *fakeConversationRepo) GetByIDAndUser(_ context.Context, id, userID string) (domain.Conversation, error) {
	c, ok := f.conversations[id]
	if !ok || c.UserID != userID {
		return domain.Conversation{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeConversationRepo) ListByUser(_ context.Context, userID string) ([]domain.Conversation, error) {
	var out []domain.Conversation
	for _, c := range f.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) UpdateTitle(_ context.Context, id, userID, title string, updatedAt time.Time) error {
	c, ok := f.conversations[id]
	if ok && c.UserID == userID {
		c.Title = title
		c.UpdatedAt = updatedAt
		f.conversations[id] = c
	}
	return nil
}

func (f *fakeConversationRepo) Delete(_ context.Context, id, userID string) error {
	c, ok := f.conversations[id]
	if ok && c.UserID == userID {
		delete(f.conversations, id)
	}
	return nil
}

type fakeMessageRepo struct {
	messages []domain.Message
}

func (f *fakeMessageRepo) Create(_ context.Context, message domain.Message) error {
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeMessageRepo) ListByConversationID(_ context.Context, conversationID string) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]domain.User)}
}

func (f *fakeUserRepo) Upsert(_ context.Context, user domain.User) (domain.User, error) {
	key := user.AuthProvider + "/" + user.AuthSubject
	if existing, ok := f.users[key]; ok {
		existing.Name = user.Name
		existing.Email = user.Email
		existing.Image = user.Image
		f.users[key] = existing
		return existing, nil
	}
	f.users[key] = user
	return user, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

type stubResolver struct {
	handle llm.ModelHandle
	err    error
}

func (r *stubResolver) Resolve(_, _ string) (llm.ModelHandle, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.handle, nil
}

// fixture arma el router completo con repos en memoria y un modelo simulado.
type fixture struct {
	router   *gin.Engine
	jwtSvc   *service.JWTService
	convRepo *fakeConversationRepo
	msgRepo  *fakeMessageRepo
	resolver *stubResolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	convRepo := newFakeConversationRepo()
	msgRepo := &fakeMessageRepo{}
	resolver := &stubResolver{handle: &llm.MockHandle{Chunks: []string{"Hola", " mundo"}}}

	jwtSvc := service.NewJWTService("test-secret", time.Minute, time.Hour)
	userSvc := service.NewUserService(logger, newFakeUserRepo())
	chatSvc := service.NewChatService(logger, convRepo, msgRepo, resolver)
	convSvc := service.NewConversationService(convRepo, msgRepo)
	registry := llm.NewRegistry(llm.Credentials{})

	authH := NewAuthHandler(logger, userSvc, jwtSvc)
	chatH := NewChatHandler(logger, chatSvc, time.Second)
	convH := NewConversationHandler(logger, convSvc, registry)

	router := NewRouter(logger, jwtSvc, authH, chatH, convH, nil)

	return &fixture{
		router:   router,
		jwtSvc:   jwtSvc,
		convRepo: convRepo,
		msgRepo:  msgRepo,
		resolver: resolver,
	}
}

func (f *fixture) accessToken(t *testing.T, userID string) string {
	t.Helper()
	pair, err := f.jwtSvc.GeneratePair(domain.User{ID: userID, Email: userID + "@example.com"})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return pair.AccessToken
}
