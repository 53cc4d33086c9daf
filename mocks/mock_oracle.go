package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invox/internal/port"
)

// MockOracle is a mock implementation of port.Oracle.
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
