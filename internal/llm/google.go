package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"
)

// GoogleHandle implementa ModelHandle usando el SDK nativo de Google AI.
type GoogleHandle struct {
	apiKey string
	model  string
}

func NewGoogleHandle(apiKey, model string) *GoogleHandle {
	return &GoogleHandle{apiKey: apiKey, model: model}
}

func (h *GoogleHandle) StreamChat(ctx context.Context, messages []ChatMessage) (ChatStream, error) {
	if strings.TrimSpace(h.apiKey) == "" {
		return nil, fmt.Errorf("google api key is required")
	}

	contents, systemInstruction, err := buildGoogleContents(messages)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  h.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create google client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
	}

	stream := client.Models.GenerateContentStream(ctx, h.model, contents, config)
	return newGoogleStream(stream), nil
}

func buildGoogleContents(messages []ChatMessage) ([]*genai.Content, *genai.Content, error) {
	if len(messages) == 0 {
		return nil, nil, fmt.Errorf("messages are required")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemParts []string

	for _, msg := range messages {
		switch strings.ToLower(strings.TrimSpace(msg.Role)) {
		case "system":
			if content := strings.TrimSpace(msg.Content); content != "" {
				systemParts = append(systemParts, content)
			}
		case "assistant":
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("at least one user or assistant message is required")
	}

	var systemInstruction *genai.Content
	if len(systemParts) > 0 {
		systemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}

	return contents, systemInstruction, nil
}

type googleStreamEvent struct {
	delta string
	err   error
	done  bool
}

// googleStream bombea el iterador del SDK hacia un canal para exponer la
// interfaz pull de ChatStream.
type googleStream struct {
	events  chan googleStreamEvent
	current string
	output  string
	err     error
	done    bool
}

func newGoogleStream(stream iter.Seq2[*genai.GenerateContentResponse, error]) *googleStream {
	s := &googleStream{
		events: make(chan googleStreamEvent, 32),
	}
	go func() {
		defer close(s.events)
		for resp, err := range stream {
			if err != nil {
				s.events <- googleStreamEvent{err: err}
				return
			}
			fullText := googleVisibleText(resp)
			if fullText == "" {
				continue
			}

			// Algunos modelos reenvían el texto acumulado; quedarse con el delta.
			delta := fullText
			if strings.HasPrefix(fullText, s.output) {
				delta = fullText[len(s.output):]
				s.output = fullText
			} else {
				s.output += delta
			}

			if delta != "" {
				s.events <- googleStreamEvent{delta: delta}
			}
		}
		s.events <- googleStreamEvent{done: true}
	}()
	return s
}

func (s *googleStream) Next() bool {
	if s.done || s.err != nil {
		return false
	}

	for ev := range s.events {
		if ev.err != nil {
			s.err = ev.err
			s.done = true
			return false
		}
		if ev.done {
			s.done = true
			return false
		}
		if ev.delta == "" {
			continue
		}
		s.current = ev.delta
		return true
	}

	s.done = true
	return false
}

func (s *googleStream) Content() string {
	return s.current
}

func (s *googleStream) Err() error {
	return s.err
}

func (s *googleStream) Close() error {
	if s.done {
		return nil
	}
	// Drenar eventos restantes para que la goroutine productora termine.
	for range s.events {
	}
	s.done = true
	return nil
}

var _ ModelHandle = (*GoogleHandle)(nil)

func googleVisibleText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
