package llm

import "context"

// ChatMessage es un mensaje del contexto enviado al modelo.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatStream expone la respuesta del modelo como fragmentos incrementales.
// El consumidor llama Next/Content hasta agotar el stream y luego Err.
type ChatStream interface {
	Next() bool
	Content() string
	Err() error
	Close() error
}

// ModelHandle representa un modelo concreto de un proveedor, listo para
// abrir un stream de chat con el contexto completo de la conversación.
type ModelHandle interface {
	StreamChat(ctx context.Context, messages []ChatMessage) (ChatStream, error)
}
