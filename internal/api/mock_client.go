package api

import (
	"context"
	"sync"

	"github.com/diogo/imagestudio/internal/models"
)

// MockClient is a canned transport for tests
type MockClient struct {
	mu sync.Mutex

	// Mock return values
	Body []byte
	Err  error

	// Hook runs before returning, for tests that need to block or inspect
	Hook func(ctx context.Context, req *models.Request)

	// Call recorders
	Calls       int
	LastAPIKey  string
	LastRequest *models.Request
}

// Complete records the call and returns Body or Err
func (m *MockClient) Complete(ctx context.Context, apiKey string, req *models.Request) ([]byte, error) {
	m.mu.Lock()
	m.Calls++
	m.LastAPIKey = apiKey
	m.LastRequest = req
	hook := m.Hook
	body, err := m.Body, m.Err
	m.mu.Unlock()

	if hook != nil {
		hook(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// CallCount returns how many times Complete ran
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}
