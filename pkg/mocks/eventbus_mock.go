package mocks

import (
	"context"

	"github.com/dukex/graphflow/pkg/eventbus"
	"github.com/stretchr/testify/mock"
)

// MockEventPublisher is a mock implementation of eventbus.EventPublisher interface.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}
