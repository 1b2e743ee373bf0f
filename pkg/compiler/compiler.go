// Package compiler turns a workflow graph into an immutable execution plan.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/dukex/graphflow/pkg/graph"
	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/otelhelper"
	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Resolver maps a node type id to its executor.
type Resolver interface {
	Resolve(typeID string) (protocol.Descriptor, error)
}

// Compiler validates graphs and builds execution plans.
type Compiler struct {
	resolver Resolver
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewCompiler(resolver Resolver, logger *slog.Logger) *Compiler {
	return &Compiler{
		resolver: resolver,
		logger:   logger.With("module", "compiler"),
		tracer:   otelhelper.Tracer("graphflow/compiler"),
	}
}

// Compile validates the graph, orders its nodes and resolves every node to an
// executor. It fails with a *CompileError; cycles additionally carry a
// *CyclicGraphError.
func (c *Compiler) Compile(ctx context.Context, g *models.Graph) (*models.CompiledPlan, error) {
	graphID := ""
	if g != nil {
		graphID = g.ID
	}

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "compiler.compile", attribute.String(otelhelper.GraphIDKey, graphID))
	defer span.End()

	plan, err := c.compile(g)
	if err != nil {
		otelhelper.SetError(span, err)
		c.logger.WarnContext(ctx, "graph failed to compile", "graph_id", graphID, "error", err)

		return nil, err
	}

	c.logger.DebugContext(ctx, "graph compiled",
		"graph_id", graphID,
		"nodes", len(plan.ExecutionOrder),
		"order", strings.Join(plan.ExecutionOrder, ","))

	return plan, nil
}

func (c *Compiler) compile(g *models.Graph) (*models.CompiledPlan, error) {
	if err := graph.Validate(g); err != nil {
		return nil, structureError(g, err)
	}

	order, remaining := topologicalOrder(g)
	if len(remaining) > 0 {
		cycle := findCycle(g, remaining)

		return nil, &CompileError{
			Kind:    KindCyclicGraph,
			GraphID: g.ID,
			NodeID:  cycle[0],
			Err:     &CyclicGraphError{NodeID: cycle[0], Cycle: cycle},
		}
	}

	plan := &models.CompiledPlan{
		GraphID:        g.ID,
		ExecutionOrder: order,
		NodeMappings:   make(map[string]models.NodeMapping, len(g.Nodes)),
		InputMappings:  make(map[string]models.InputMapping, len(g.Nodes)),
		EdgeIndex:      make(models.EdgeIndex, len(g.Nodes)),
	}

	for _, node := range g.Nodes {
		mapping, err := c.mapNode(g.ID, node)
		if err != nil {
			return nil, err
		}

		plan.NodeMappings[node.ID] = mapping
		plan.EdgeIndex[node.ID] = models.EdgeMetadata{}
	}

	for _, edge := range g.Edges {
		meta := edgeMeta(edge)

		source := plan.EdgeIndex[edge.Source]
		source.Outgoing = append(source.Outgoing, meta)
		plan.EdgeIndex[edge.Source] = source

		target := plan.EdgeIndex[edge.Target]
		target.Incoming = append(target.Incoming, meta)
		plan.EdgeIndex[edge.Target] = target

		// Trigger edges order execution but carry no data.
		if edge.IsTrigger {
			continue
		}

		plan.InputMappings[edge.Target] = plan.InputMappings[edge.Target].Add(edge.Source, models.PortMapping{
			EdgeID:     edge.ID,
			SourcePort: meta.SourcePort,
			TargetPort: meta.TargetPort,
		})
	}

	return plan, nil
}

func (c *Compiler) mapNode(graphID string, node *models.Node) (models.NodeMapping, error) {
	descriptor, err := c.resolver.Resolve(node.TypeID)
	if err != nil {
		return models.NodeMapping{}, &CompileError{Kind: KindUnknownExecutor, GraphID: graphID, NodeID: node.ID, Err: err}
	}

	config := maps.Clone(node.Config)
	if config == nil {
		config = make(map[string]any)
	}

	if err := validateConfig(descriptor.Schema, config); err != nil {
		return models.NodeMapping{}, &CompileError{Kind: KindInvalidConfig, GraphID: graphID, NodeID: node.ID, Err: err}
	}

	return models.NodeMapping{
		NodeID:     node.ID,
		TypeID:     node.TypeID,
		ExecutorID: descriptor.ExecutorID,
		Label:      node.Label,
		Config:     config,
	}, nil
}

func validateConfig(schema map[string]any, config map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}

	return errors.New(strings.Join(msgs, "; "))
}

func edgeMeta(edge *models.Edge) models.EdgeMeta {
	sourcePort, _ := models.HandlePort(edge.SourceHandle, models.PortDirectionOutput)
	targetPort, _ := models.HandlePort(edge.TargetHandle, models.PortDirectionInput)

	return models.EdgeMeta{
		EdgeID:     edge.ID,
		Source:     edge.Source,
		Target:     edge.Target,
		SourcePort: sourcePort,
		TargetPort: targetPort,
		IsTrigger:  edge.IsTrigger,
		BranchName: edge.BranchName,
	}
}

func structureError(g *models.Graph, err error) error {
	compileErr := &CompileError{Kind: KindMalformedGraph, Err: err}
	if g != nil {
		compileErr.GraphID = g.ID
	}

	var validationErr *graph.ValidationError
	if errors.As(err, &validationErr) && len(validationErr.Problems) > 0 {
		first := validationErr.Problems[0]
		compileErr.NodeID = first.NodeID
		compileErr.EdgeID = first.EdgeID

		if errors.Is(first.Err, graph.ErrMalformedEdge) {
			compileErr.Kind = KindMalformedEdge
		}
	}

	return compileErr
}
