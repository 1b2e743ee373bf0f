package mocks

import (
	"context"

	"github.com/dukex/graphflow/pkg/queue"
	"github.com/stretchr/testify/mock"
)

// MockWorkQueue is a mock implementation of queue.WorkQueue interface.
type MockWorkQueue struct {
	mock.Mock
}

func (m *MockWorkQueue) Enqueue(ctx context.Context, item queue.WorkItem) error {
	args := m.Called(ctx, item)

	return args.Error(0)
}

func (m *MockWorkQueue) Consume(ctx context.Context, handler queue.Handler) error {
	args := m.Called(ctx, handler)

	return args.Error(0)
}

func (m *MockWorkQueue) Close() error {
	args := m.Called()

	return args.Error(0)
}
