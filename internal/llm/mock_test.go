package llm

import (
	"context"
	"sync"
)

// mockProvider returns a canned reply and records requests
type mockProvider struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []CompletionRequest
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) IsAvailable(ctx context.Context) bool { return m.err == nil }

func (m *mockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &CompletionResponse{Text: m.reply, Model: "mock-1"}, nil
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
