package llm

import "context"

// MockHandle permite tests sin llamar a un proveedor real. Reproduce los
// Chunks en orden y termina con Err si está seteado.
type MockHandle struct {
	Chunks  []string
	Err     error
	OpenErr error
}

func (m *MockHandle) StreamChat(ctx context.Context, _ []ChatMessage) (ChatStream, error) {
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	return &MockStream{chunks: m.Chunks, err: m.Err, ctx: ctx}, nil
}

// MockStream recorre una lista fija de fragmentos.
type MockStream struct {
	chunks  []string
	err     error
	ctx     context.Context
	pos     int
	current string
	failed  bool
	Closed  bool
}

func (s *MockStream) Next() bool {
	if s.ctx != nil && s.ctx.Err() != nil {
		s.err = s.ctx.Err()
		s.failed = true
		return false
	}
	if s.pos >= len(s.chunks) {
		if s.err != nil {
			s.failed = true
		}
		return false
	}
	s.current = s.chunks[s.pos]
	s.pos++
	return true
}

func (s *MockStream) Content() string {
	return s.current
}

func (s *MockStream) Err() error {
	if s.failed {
		return s.err
	}
	return nil
}

func (s *MockStream) Close() error {
	s.Closed = true
	return nil
}

var _ ModelHandle = (*MockHandle)(nil)
