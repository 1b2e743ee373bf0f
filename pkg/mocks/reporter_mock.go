package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockReporter is a mock implementation of worker.Reporter interface.
type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) JobCompleted(ctx context.Context, pipelineID, jobID string, output map[string]any) error {
	args := m.Called(ctx, pipelineID, jobID, output)

	return args.Error(0)
}

func (m *MockReporter) JobFailed(ctx context.Context, pipelineID, jobID string, cause error) error {
	args := m.Called(ctx, pipelineID, jobID, cause)

	return args.Error(0)
}
