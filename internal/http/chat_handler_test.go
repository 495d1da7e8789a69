package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-chat/internal/domain"
	"ai-chat/internal/llm"
	"ai-chat/internal/service"
)

func postChat(t *testing.T, f *fixture, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestPostChat_NewConversationFullTurn(t *testing.T) {
	f := newFixture(t)
	token := f.accessToken(t, "u1")

	w := postChat(t, f, token, `{
		"messages": [{"role": "user", "content": "hi"}],
		"model_provider": "google",
		"model_name": "gemini-2.5-flash"
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	conversationID := w.Header().Get(ConversationIDHeader)
	if conversationID == "" {
		t.Fatalf("expected %s header", ConversationIDHeader)
	}
	if got := w.Body.String(); got != "Hola mundo" {
		t.Fatalf("expected streamed body, got %q", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain content type, got %q", ct)
	}

	// El turno completo queda persistido: mensaje del usuario y respuesta.
	req := httptest.NewRequest(http.MethodGet, "/conversations/"+conversationID+"/messages", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w2 := httptest.NewRecorder()
	f.router.ServeHTTP(w2, req)

	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 listing messages, got %d", w2.Code)
	}
	var messages []domain.Message
	if err := json.Unmarshal(w2.Body.Bytes(), &messages); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != domain.RoleUser || messages[0].Content != "hi" {
		t.Fatalf("unexpected user message: %+v", messages[0])
	}
	if messages[1].Role != domain.RoleAssistant || messages[1].Content != "Hola mundo" {
		t.Fatalf("unexpected assistant message: %+v", messages[1])
	}
}

func TestPostChat_ExistingConversation(t *testing.T) {
	f := newFixture(t)
	token := f.accessToken(t, "u1")
	f.convRepo.conversations["c1"] = domain.Conversation{ID: "c1", UserID: "u1", Title: "t"}

	w := postChat(t, f, token, `{
		"messages": [{"role": "user", "content": "sigue"}],
		"conversation_id": "c1",
		"model_provider": "google",
		"model_name": "gemini-2.5-flash"
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get(ConversationIDHeader); got != "c1" {
		t.Fatalf("expected conversation id c1, got %q", got)
	}
}

func TestPostChat_RequiresToken(t *testing.T) {
	f := newFixture(t)

	w := postChat(t, f, "", `{"messages":[{"role":"user","content":"hi"}],"model_provider":"google","model_name":"m"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestPostChat_InvalidBody(t *testing.T) {
	f := newFixture(t)
	token := f.accessToken(t, "u1")

	cases := []string{
		`{}`,
		`{"messages":[{"role":"user","content":"hi"}]}`,
		`{"messages":[{"role":"user","content":"hi"}],"model_provider":"google"}`,
		`not json`,
	}
	for i, body := range cases {
		if w := postChat(t, f, token, body); w.Code != http.StatusBadRequest {
			t.Fatalf("case %d expected 400, got %d", i, w.Code)
		}
	}
}

func TestPostChat_ForeignConversationIs404(t *testing.T) {
	f := newFixture(t)
	token := f.accessToken(t, "intruder")
	f.convRepo.conversations["c1"] = domain.Conversation{ID: "c1", UserID: "owner"}

	w := postChat(t, f, token, `{
		"messages": [{"role": "user", "content": "hi"}],
		"conversation_id": "c1",
		"model_provider": "google",
		"model_name": "gemini-2.5-flash"
	}`)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if got := w.Header().Get(ConversationIDHeader); got != "" {
		t.Fatalf("expected no conversation header, got %q", got)
	}
}

func TestPostChat_UnknownProviderIs500(t *testing.T) {
	f := newFixture(t)
	token := f.accessToken(t, "u1")
	f.resolver.err = llm.ErrUnknownProvider

	w := postChat(t, f, token, `{
		"messages": [{"role": "user", "content": "hi"}],
		"model_provider": "acme",
		"model_name": "m1"
	}`)

	// Un proveedor no registrado es una falla upstream previa al stream.
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPostChat_StreamFailureBeforeFirstChunkIs500(t *testing.T) {
	f := newFixture(t)
	token := f.accessToken(t, "u1")
	f.resolver.handle = &llm.MockHandle{OpenErr: errors.New("upstream down")}

	w := postChat(t, f, token, `{
		"messages": [{"role": "user", "content": "hi"}],
		"model_provider": "google",
		"model_name": "gemini-2.5-flash"
	}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestPostChat_MidStreamFailureCutsConnection(t *testing.T) {
	f := newFixture(t)
	token := f.accessToken(t, "u1")
	f.resolver.handle = &llm.MockHandle{Chunks: []string{"parcial"}, Err: errors.New("upstream reset")}

	server := httptest.NewServer(f.router)
	defer server.Close()

	req, err := http.NewRequest(http.MethodPost, server.URL+"/chat", strings.NewReader(`{
		"messages": [{"role": "user", "content": "hi"}],
		"model_provider": "google",
		"model_name": "gemini-2.5-flash"
	}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	// Los headers ya salieron con 200; el corte debe verse al leer el body:
	// la conexión se cierra sin el chunk terminal y la lectura falla, así el
	// cliente nunca confunde una respuesta truncada con una completa.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 (already streaming), got %d", resp.StatusCode)
	}
	body, readErr := io.ReadAll(resp.Body)
	if readErr == nil {
		t.Fatalf("expected abnormal stream termination, got clean EOF with body %q", body)
	}
	if got := string(body); got != "parcial" {
		t.Fatalf("expected partial body, got %q", got)
	}

	// Solo el mensaje del usuario quedó persistido.
	for _, m := range f.msgRepo.messages {
		if m.Role == domain.RoleAssistant {
			t.Fatalf("expected no assistant message after mid-stream failure")
		}
	}
}

func TestPostChat_DerivedTitle(t *testing.T) {
	f := newFixture(t)
	token := f.accessToken(t, "u1")

	w := postChat(t, f, token, `{
		"messages": [{"role": "user", "content": "cómo configuro el pool de conexiones"}],
		"model_provider": "google",
		"model_name": "gemini-2.5-flash"
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	conversationID := w.Header().Get(ConversationIDHeader)
	conversation, ok := f.convRepo.conversations[conversationID]
	if !ok {
		t.Fatalf("expected conversation persisted")
	}
	if conversation.Title != "cómo configuro el pool de conexiones" {
		t.Fatalf("expected derived title, got %q", conversation.Title)
	}
}

var _ service.TurnSink = (*streamSink)(nil)
