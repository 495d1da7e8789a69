package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"
	anthropicMaxTokens  = 4096
	anthropicTimeout    = 60 * time.Second
)

// AnthropicHandle implementa ModelHandle contra el messages API de Anthropic
// usando SSE sobre net/http.
type AnthropicHandle struct {
	apiKey     string
	model      string
	apiURL     string
	httpClient *http.Client
}

func NewAnthropicHandle(apiKey, model string) *AnthropicHandle {
	return &AnthropicHandle{
		apiKey:     apiKey,
		model:      model,
		apiURL:     anthropicAPIURL,
		httpClient: &http.Client{Timeout: anthropicTimeout},
	}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Stream    bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta,omitempty"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (h *AnthropicHandle) StreamChat(ctx context.Context, messages []ChatMessage) (ChatStream, error) {
	if strings.TrimSpace(h.apiKey) == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	reqBody, err := h.buildRequest(messages)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.apiURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", h.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("anthropic api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return &anthropicStream{
		reader: bufio.NewReader(resp.Body),
		body:   resp.Body,
	}, nil
}

func (h *AnthropicHandle) buildRequest(messages []ChatMessage) (*anthropicRequest, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	var systemPrompt string
	converted := make([]anthropicMessage, 0, len(messages))
	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if role == "system" {
			systemPrompt = msg.Content
			continue
		}
		if role != "user" && role != "assistant" {
			role = "user"
		}
		converted = append(converted, anthropicMessage{Role: role, Content: msg.Content})
	}
	if len(converted) == 0 {
		return nil, fmt.Errorf("at least one user or assistant message is required")
	}

	return &anthropicRequest{
		Model:     h.model,
		Messages:  converted,
		MaxTokens: anthropicMaxTokens,
		System:    systemPrompt,
		Stream:    true,
	}, nil
}

type anthropicStream struct {
	reader  *bufio.Reader
	body    io.ReadCloser
	current string
	err     error
	done    bool
}

func (s *anthropicStream) Next() bool {
	if s.done || s.err != nil {
		return false
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				s.done = true
			} else {
				s.err = err
			}
			return false
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				s.current = event.Delta.Text
				return true
			}
		case "error":
			s.err = fmt.Errorf("anthropic stream error: %s", event.Error.Message)
			return false
		case "message_stop":
			s.done = true
			return false
		}
	}
}

func (s *anthropicStream) Content() string {
	return s.current
}

func (s *anthropicStream) Err() error {
	return s.err
}

func (s *anthropicStream) Close() error {
	return s.body.Close()
}

var _ ModelHandle = (*AnthropicHandle)(nil)
