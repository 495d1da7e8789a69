package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

const (
	xaiAPIURL            = "https://api.x.ai/v1"
	openAIRequestTimeout = 60 * time.Second
)

// OpenAIHandle implementa ModelHandle contra un API compatible con OpenAI.
// xAI expone el mismo protocolo, así que comparte este handle con otra
// base URL.
type OpenAIHandle struct {
	client openai.Client
	model  string
	apiKey string
}

// NewOpenAIHandle crea un handle para un modelo concreto. baseURL vacío usa
// el API de OpenAI.
func NewOpenAIHandle(apiKey, baseURL, model string) *OpenAIHandle {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: openAIRequestTimeout}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIHandle{
		client: openai.NewClient(opts...),
		model:  model,
		apiKey: apiKey,
	}
}

func (h *OpenAIHandle) StreamChat(ctx context.Context, messages []ChatMessage) (ChatStream, error) {
	if strings.TrimSpace(h.apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(h.model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, msg := range messages {
		switch strings.ToLower(strings.TrimSpace(msg.Role)) {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}

	stream := h.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
}

func (s *openAIStream) Next() bool {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		return true
	}
	return false
}

func (s *openAIStream) Content() string {
	chunk := s.stream.Current()
	if len(chunk.Choices) == 0 {
		return ""
	}
	return chunk.Choices[0].Delta.Content
}

func (s *openAIStream) Err() error {
	return s.stream.Err()
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

var _ ModelHandle = (*OpenAIHandle)(nil)
