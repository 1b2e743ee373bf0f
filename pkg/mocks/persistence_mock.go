package mocks

import (
	"context"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPipelineRepository is a mock implementation of persistence.PipelineRepository interface.
type MockPipelineRepository struct {
	mock.Mock
}

func (m *MockPipelineRepository) Save(ctx context.Context, pipeline *models.Pipeline) error {
	args := m.Called(ctx, pipeline)

	return args.Error(0)
}

func (m *MockPipelineRepository) GetByID(ctx context.Context, id string) (*models.Pipeline, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Pipeline), args.Error(1)
}

func (m *MockPipelineRepository) ListByStatus(ctx context.Context, statuses ...models.PipelineStatus) ([]*models.Pipeline, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Pipeline), args.Error(1)
}

func (m *MockPipelineRepository) UpdateStatus(ctx context.Context, id string, from, to models.PipelineStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)

	return args.Bool(0), args.Error(1)
}

// MockJobRepository is a mock implementation of persistence.JobRepository interface.
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Save(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)

	return args.Error(0)
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *MockJobRepository) ListByPipeline(ctx context.Context, pipelineID string) ([]*models.Job, error) {
	args := m.Called(ctx, pipelineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Job), args.Error(1)
}

func (m *MockJobRepository) UpdateStatus(ctx context.Context, id string, from, to models.JobStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)

	return args.Bool(0), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	pipelineRepo *MockPipelineRepository
	jobRepo      *MockJobRepository

	// LockErr, when set, is returned by LockPipeline. Otherwise locking
	// always succeeds without recording a call.
	LockErr error
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		pipelineRepo: &MockPipelineRepository{},
		jobRepo:      &MockJobRepository{},
	}
}

func (m *MockPersistence) GetMockPipelineRepository() *MockPipelineRepository {
	return m.pipelineRepo
}

func (m *MockPersistence) GetMockJobRepository() *MockJobRepository {
	return m.jobRepo
}

func (m *MockPersistence) PipelineRepository() persistence.PipelineRepository {
	return m.pipelineRepo
}

func (m *MockPersistence) JobRepository() persistence.JobRepository {
	return m.jobRepo
}

func (m *MockPersistence) LockPipeline(_ context.Context, _ string) (func(), error) {
	if m.LockErr != nil {
		return nil, m.LockErr
	}

	return func() {}, nil
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
