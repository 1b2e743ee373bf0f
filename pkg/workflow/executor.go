// Package workflow runs compiled plans synchronously, one node at a time.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/graphflow/pkg/branch"
	"github.com/dukex/graphflow/pkg/compiler"
	"github.com/dukex/graphflow/pkg/dataflow"
	"github.com/dukex/graphflow/pkg/eventbus"
	"github.com/dukex/graphflow/pkg/events"
	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NodeExecutor runs a single node invocation.
type NodeExecutor interface {
	Execute(ctx context.Context, req models.ExecuteRequest) (*models.ExecuteResult, error)
}

// NodeExecutionError wraps the first failure of a synchronous run. The cause
// is either the executor error or a *dataflow.Error.
type NodeExecutionError struct {
	ExecutionID string
	NodeID      string
	ExecutorID  string
	Err         error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %s (%s) failed in execution %s: %v", e.NodeID, e.ExecutorID, e.ExecutionID, e.Err)
}

func (e *NodeExecutionError) Unwrap() error {
	return e.Err
}

// RunResult aggregates a synchronous run. On failure it holds whatever was
// produced before the failing node.
type RunResult struct {
	ExecutionID     string                    `json:"execution_id"`
	Results         map[string]map[string]any `json:"results"`
	ExecutedNodeIDs []string                  `json:"executed_node_ids"`
	SkippedNodeIDs  []string                  `json:"skipped_node_ids"`
	GatewayOutputs  map[string]string         `json:"gateway_outputs"`
	// Timeline records every visited node in execution order.
	Timeline    []models.NodeResult `json:"timeline"`
	ElapsedTime time.Duration       `json:"elapsed_time"`
}

func (r *RunResult) record(nodeID string, status models.NodeStatus, data map[string]any, err error) {
	entry := models.NodeResult{
		NodeID:    nodeID,
		Data:      data,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}

	if err != nil {
		entry.Error = err.Error()
	}

	r.Timeline = append(r.Timeline, entry)
}

type Executor struct {
	nodes    NodeExecutor
	compiler *compiler.Compiler
	resolver *dataflow.Resolver
	notifier *eventbus.Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewExecutor(
	nodes NodeExecutor,
	comp *compiler.Compiler,
	notifier *eventbus.Notifier,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		nodes:    nodes,
		compiler: comp,
		resolver: dataflow.NewResolver(logger),
		notifier: notifier,
		logger:   logger.With("module", "workflow_executor"),
		tracer:   otelhelper.Tracer("graphflow/workflow"),
	}
}

// RunGraph compiles g and runs it. Graphs that fail to compile, cycles
// included, are never run.
func (e *Executor) RunGraph(ctx context.Context, g *models.Graph, initialData map[string]any) (*RunResult, error) {
	plan, err := e.compiler.Compile(ctx, g)
	if err != nil {
		return nil, err
	}

	return e.Run(ctx, plan, initialData)
}

// Run executes plan in its execution order. The first node failure aborts the
// run and is returned as a *NodeExecutionError together with the partial result.
func (e *Executor) Run(ctx context.Context, plan *models.CompiledPlan, initialData map[string]any) (*RunResult, error) {
	started := time.Now()
	execCtx := models.NewExecutionContext(uuid.New().String(), initialData)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.GraphIDKey, plan.GraphID),
		attribute.String(otelhelper.ExecutionIDKey, execCtx.ID))
	defer span.End()

	logger := e.logger.With("execution_id", execCtx.ID, "graph_id", plan.GraphID)
	logger.InfoContext(ctx, "Starting synchronous run", "nodes", len(plan.ExecutionOrder))

	result := &RunResult{
		ExecutionID:     execCtx.ID,
		Results:         execCtx.NodeOutputs,
		ExecutedNodeIDs: []string{},
		SkippedNodeIDs:  []string{},
		GatewayOutputs:  make(map[string]string),
		Timeline:        []models.NodeResult{},
	}

	executed := make(map[string]bool, len(plan.ExecutionOrder))

	for _, nodeID := range plan.ExecutionOrder {
		if err := ctx.Err(); err != nil {
			result.ElapsedTime = time.Since(started)

			return result, err
		}

		decision := branch.Evaluate(nodeID, result.GatewayOutputs, plan.EdgeIndex, executed)
		if !decision.Execute {
			result.SkippedNodeIDs = append(result.SkippedNodeIDs, nodeID)
			result.record(nodeID, models.NodeStatusSkipped, nil, nil)

			logger.DebugContext(ctx, "Skipping node", "node_id", nodeID, "reason", decision.Reason)
			e.notifier.Notify(ctx, execCtx.ID, events.NodeSkipped{
				BaseEvent: events.NewBaseEvent(events.NodeSkippedEvent, execCtx.ID),
				NodeID:    nodeID,
				Reason:    decision.Reason,
			})

			continue
		}

		output, err := e.runNode(ctx, plan, execCtx, nodeID)
		if err != nil {
			result.ElapsedTime = time.Since(started)
			result.record(nodeID, models.NodeStatusError, nil, err)

			otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, nodeID))
			logger.ErrorContext(ctx, "Node failed, aborting run", "node_id", nodeID, "error", err)

			return result, err
		}

		if err := execCtx.StoreOutput(nodeID, output); err != nil {
			result.ElapsedTime = time.Since(started)

			return result, err
		}

		executed[nodeID] = true
		result.ExecutedNodeIDs = append(result.ExecutedNodeIDs, nodeID)
		result.record(nodeID, models.NodeStatusSuccess, output, nil)

		if active, ok := branch.GatewayOutputFrom(output); ok {
			result.GatewayOutputs[nodeID] = active
		}
	}

	result.ElapsedTime = time.Since(started)

	logger.InfoContext(ctx, "Synchronous run finished",
		"executed", len(result.ExecutedNodeIDs),
		"skipped", len(result.SkippedNodeIDs),
		"elapsed", result.ElapsedTime)

	return result, nil
}

func (e *Executor) runNode(
	ctx context.Context,
	plan *models.CompiledPlan,
	execCtx *models.ExecutionContext,
	nodeID string,
) (map[string]any, error) {
	mapping := plan.NodeMappings[nodeID]

	nodeErr := func(err error) error {
		e.notifier.Notify(ctx, execCtx.ID, events.NodeFailed{
			BaseEvent: events.NewBaseEvent(events.NodeFailedEvent, execCtx.ID),
			NodeID:    nodeID,
			TypeID:    mapping.TypeID,
			Error:     err.Error(),
		})

		return &NodeExecutionError{
			ExecutionID: execCtx.ID,
			NodeID:      nodeID,
			ExecutorID:  mapping.ExecutorID,
			Err:         err,
		}
	}

	inputs, err := e.resolver.Prepare(nodeID, execCtx, plan.InputMappings[nodeID], mapping.Config)
	if err != nil {
		return nil, nodeErr(err)
	}

	e.notifier.Notify(ctx, execCtx.ID, events.NodeStarted{
		BaseEvent: events.NewBaseEvent(events.NodeStartedEvent, execCtx.ID),
		NodeID:    nodeID,
		TypeID:    mapping.TypeID,
		Inputs:    inputs,
	})

	res, err := e.nodes.Execute(ctx, models.ExecuteRequest{
		ExecutionID: execCtx.ID,
		NodeID:      nodeID,
		ExecutorID:  mapping.ExecutorID,
		Inputs:      inputs,
		Config:      mapping.Config,
		InitialData: execCtx.InitialData,
		Attempt:     1,
	})
	if err != nil {
		return nil, nodeErr(err)
	}

	if res == nil {
		res = &models.ExecuteResult{Output: map[string]any{}}
	}

	e.notifier.Notify(ctx, execCtx.ID, events.NodeCompleted{
		BaseEvent:  events.NewBaseEvent(events.NodeCompletedEvent, execCtx.ID),
		NodeID:     nodeID,
		TypeID:     mapping.TypeID,
		Output:     res.Output,
		DurationMs: res.ExecutionTimeMs,
	})

	return res.Output, nil
}
