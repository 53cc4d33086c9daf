package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invox/internal/domain"
)

// MockNotifier is a mock implementation of port.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendExtractionFinished(ctx context.Context, toEmail string, inv *domain.Invoice) error {
	args := m.Called(ctx, toEmail, inv)
	return args.Error(0)
}
