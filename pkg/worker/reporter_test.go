package worker

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/graphflow/pkg/mocks"
	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/persistence/file"
	"github.com/dukex/graphflow/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProcess_ReportFailureIsNotFatal(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	item := seed(t, store, nil)

	reporter := &mocks.MockReporter{}
	reporter.On("JobCompleted", mock.Anything, "p1", "j2", map[string]any{"ok": true}).
		Return(errors.New("orchestrator unavailable")).Once()

	nodes := executorFunc(func(context.Context, models.ExecuteRequest) (*models.ExecuteResult, error) {
		return &models.ExecuteResult{Output: map[string]any{"ok": true}}, nil
	})

	NewWorker(store, nil, nodes, reporter, slog.Default(), Config{}).Process(context.Background(), item)

	reporter.AssertExpectations(t)
	reporter.AssertNotCalled(t, "JobFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStart_ConsumeErrors(t *testing.T) {
	tests := []struct {
		name       string
		consumeErr error
		wantErr    bool
	}{
		{name: "cancelled", consumeErr: context.Canceled},
		{name: "queue closed", consumeErr: queue.ErrQueueClosed, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workQueue := &mocks.MockWorkQueue{}
			workQueue.On("Consume", mock.Anything, mock.Anything).Return(tt.consumeErr)

			w := NewWorker(file.NewPersistence(t.TempDir()), workQueue, nil, &mocks.MockReporter{}, slog.Default(), Config{})

			err := w.Start(context.Background())
			if tt.wantErr {
				require.ErrorIs(t, err, tt.consumeErr)
			} else {
				assert.NoError(t, err)
			}

			workQueue.AssertExpectations(t)
		})
	}
}
