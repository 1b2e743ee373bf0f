package registry

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepyNode struct{ id string }

func (n *sleepyNode) ID() string   { return n.id }
func (n *sleepyNode) Type() string { return "sleepy" }

func (n *sleepyNode) Execute(ctx context.Context, _ protocol.NodeInput) (map[string]any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second):
		return map[string]any{}, nil
	}
}

type sleepyFactory struct{}

func (sleepyFactory) Create(_ context.Context, id string, _ map[string]any) (protocol.Node, error) {
	return &sleepyNode{id: id}, nil
}
func (sleepyFactory) ID() string             { return "sleepy" }
func (sleepyFactory) Name() string           { return "Sleepy" }
func (sleepyFactory) Description() string    { return "waits" }
func (sleepyFactory) Schema() map[string]any { return map[string]any{"type": "object"} }

func TestRegistry_Resolve(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterDefaultNodes()

	descriptor, err := registry.Resolve("condition")
	require.NoError(t, err)
	assert.Equal(t, "conditional", descriptor.ExecutorID)
	assert.NotEmpty(t, descriptor.Schema)

	_, err = registry.Resolve("nope")
	require.ErrorIs(t, err, ErrNodeNotRegistered)

	assert.Contains(t, registry.NodeTypes(), "gateway")
	assert.Contains(t, registry.NodeTypes(), "log")
}

func TestRegistry_Execute(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterDefaultNodes()

	result, err := registry.Execute(context.Background(), models.ExecuteRequest{
		ExecutionID: "exec-1",
		NodeID:      "t1",
		ExecutorID:  "transform",
		Config:      map[string]any{"expression": `{"greeting": "hello {{.input.name}}"}`},
		Inputs:      map[string]any{"name": "graph"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello graph", result.Output["greeting"])
	assert.GreaterOrEqual(t, result.ExecutionTimeMs, int64(0))
}

func TestRegistry_Execute_InvalidConfigIsNonRetryable(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterDefaultNodes()

	_, err := registry.Execute(context.Background(), models.ExecuteRequest{
		NodeID:     "t1",
		ExecutorID: "transform",
		Config:     map[string]any{},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, protocol.ErrInvalidConfig))
	assert.True(t, errors.Is(err, protocol.ErrNonRetryable))
}

func TestRegistry_Execute_Timeout(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterNode(sleepyFactory{})
	registry.SetExecutionTimeout(10 * time.Millisecond)

	_, err := registry.Execute(context.Background(), models.ExecuteRequest{NodeID: "s", ExecutorID: "sleepy"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistry_LoadNodePlugins_EmptyDir(t *testing.T) {
	registry := NewRegistry(slog.Default())

	factories, err := registry.LoadNodePlugins(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, factories)
}
