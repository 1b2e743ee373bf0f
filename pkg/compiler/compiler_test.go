package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/dukex/graphflow/pkg/registry"
	"github.com/dukex/graphflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnknownType = errors.New("unknown type")

type staticResolver map[string]protocol.Descriptor

func (r staticResolver) Resolve(typeID string) (protocol.Descriptor, error) {
	descriptor, ok := r[typeID]
	if !ok {
		return protocol.Descriptor{}, errUnknownType
	}

	return descriptor, nil
}

func newTestCompiler() *Compiler {
	return NewCompiler(staticResolver{
		"task":           {ExecutorID: "task"},
		"trigger:manual": {ExecutorID: "trigger:manual"},
		"gateway":        {ExecutorID: "switch"},
		"strict": {ExecutorID: "strict", Schema: map[string]any{
			"type":     "object",
			"required": []string{"message"},
			"properties": map[string]any{
				"message": map[string]any{"type": "string"},
			},
		}},
	}, slog.Default())
}

func node(id, typeID string) *models.Node {
	return &models.Node{ID: id, TypeID: typeID}
}

func edge(id, source, target string) *models.Edge {
	return &models.Edge{ID: id, Source: source, Target: target}
}

func assertTopological(t *testing.T, g *models.Graph, order []string) {
	t.Helper()

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	require.Len(t, position, len(g.Nodes))

	for _, e := range g.Edges {
		assert.Less(t, position[e.Source], position[e.Target], "edge %s must go forward", e.ID)
	}
}

func TestCompile_LinearOrderAndMappings(t *testing.T) {
	g := &models.Graph{
		ID:    "g1",
		Nodes: []*models.Node{node("c", "task"), node("b", "task"), node("a", "trigger:manual")},
		Edges: []*models.Edge{
			{ID: "e1", Source: "a", Target: "b", IsTrigger: true},
			{ID: "e2", Source: "b", Target: "c", SourceHandle: "b-output-body", TargetHandle: "c-input-payload"},
			{ID: "e3", Source: "a", Target: "c", SourceHandle: "garbage"},
		},
	}

	plan, err := newTestCompiler().Compile(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, plan.ExecutionOrder)
	assert.Equal(t, "g1", plan.GraphID)
	assert.Equal(t, "task", plan.NodeMappings["b"].ExecutorID)
	assert.NotNil(t, plan.NodeMappings["a"].Config)

	assert.Empty(t, plan.InputMappings["b"], "trigger edges carry no data")
	require.Len(t, plan.InputMappings["c"], 2)
	assert.Equal(t, []string{"b", "a"}, plan.InputMappings["c"].Sources())
	assert.Equal(t, models.PortMapping{EdgeID: "e2", SourcePort: "body", TargetPort: "payload"}, plan.InputMappings["c"][0].Ports[0])
	assert.Equal(t, models.PortMapping{EdgeID: "e3"}, plan.InputMappings["c"][1].Ports[0])
	assert.Empty(t, plan.InputMappings["a"])

	assert.True(t, plan.EdgeIndex["b"].Incoming[0].IsTrigger)
	assert.Len(t, plan.EdgeIndex["b"].Outgoing, 1)
	assert.True(t, plan.IsSink("c"))
}

func TestCompile_TieBreakByDeclarationOrder(t *testing.T) {
	g := &models.Graph{
		Nodes: []*models.Node{node("root", "task"), node("z", "task"), node("m", "task"), node("a", "task")},
		Edges: []*models.Edge{edge("e1", "root", "a"), edge("e2", "root", "z"), edge("e3", "root", "m")},
	}

	for range 5 {
		plan, err := newTestCompiler().Compile(context.Background(), g)
		require.NoError(t, err)
		assert.Equal(t, []string{"root", "z", "m", "a"}, plan.ExecutionOrder)
	}
}

func TestCompile_RandomAcyclicGraphsAreTopologicallyOrdered(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iteration := range 50 {
		size := 2 + rng.Intn(12)
		g := &models.Graph{}

		for i := range size {
			g.Nodes = append(g.Nodes, node(fmt.Sprintf("n%d", i), "task"))
		}

		rng.Shuffle(len(g.Nodes), func(i, j int) { g.Nodes[i], g.Nodes[j] = g.Nodes[j], g.Nodes[i] })

		for i := range size {
			for j := i + 1; j < size; j++ {
				if rng.Intn(3) == 0 {
					id := fmt.Sprintf("e%d-%d", i, j)
					g.Edges = append(g.Edges, edge(id, fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", j)))
				}
			}
		}

		plan, err := newTestCompiler().Compile(context.Background(), g)
		require.NoError(t, err, "iteration %d", iteration)
		assertTopological(t, g, plan.ExecutionOrder)
	}
}

func TestCompile_Cycle(t *testing.T) {
	tests := []struct {
		name    string
		graph   *models.Graph
		members []string
	}{
		{
			name: "three node cycle behind a root",
			graph: &models.Graph{
				Nodes: []*models.Node{node("start", "task"), node("a", "task"), node("b", "task"), node("c", "task")},
				Edges: []*models.Edge{edge("e0", "start", "a"), edge("e1", "a", "b"), edge("e2", "b", "c"), edge("e3", "c", "a")},
			},
			members: []string{"a", "b", "c"},
		},
		{
			name: "self loop",
			graph: &models.Graph{
				Nodes: []*models.Node{node("a", "task")},
				Edges: []*models.Edge{edge("e1", "a", "a")},
			},
			members: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestCompiler().Compile(context.Background(), tt.graph)
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, KindCyclicGraph, compileErr.Kind)
			assert.Contains(t, tt.members, compileErr.NodeID)

			var cycleErr *CyclicGraphError
			require.ErrorAs(t, err, &cycleErr)
			assert.ElementsMatch(t, tt.members, cycleErr.Cycle)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		graph  *models.Graph
		kind   ErrorKind
		nodeID string
		edgeID string
	}{
		{
			name:   "unknown executor",
			graph:  &models.Graph{Nodes: []*models.Node{node("a", "task"), node("b", "mystery")}},
			kind:   KindUnknownExecutor,
			nodeID: "b",
		},
		{
			name:   "invalid config",
			graph:  &models.Graph{Nodes: []*models.Node{node("a", "strict")}},
			kind:   KindInvalidConfig,
			nodeID: "a",
		},
		{
			name: "edge to unknown node",
			graph: &models.Graph{
				Nodes: []*models.Node{node("a", "task")},
				Edges: []*models.Edge{edge("e9", "a", "ghost")},
			},
			kind:   KindMalformedEdge,
			edgeID: "e9",
		},
		{
			name:  "empty graph",
			graph: &models.Graph{},
			kind:  KindMalformedGraph,
		},
		{
			name: "nil graph",
			kind: KindMalformedGraph,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestCompiler().Compile(context.Background(), tt.graph)
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.kind, compileErr.Kind)
			assert.Equal(t, tt.nodeID, compileErr.NodeID)
			assert.Equal(t, tt.edgeID, compileErr.EdgeID)
		})
	}
}

func TestCompile_WithRegistry(t *testing.T) {
	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultNodes()

	g := &models.Graph{
		Nodes: []*models.Node{
			node("start", models.NodeTypeTriggerManual),
			{ID: "route", TypeID: "gateway", Config: map[string]any{"value": "{{.input.kind}}"}},
			{ID: "say", TypeID: "log", Config: map[string]any{"message": "hi"}},
			{ID: "broken", TypeID: "log", Config: map[string]any{"level": "info"}},
		},
		Edges: []*models.Edge{edge("e1", "start", "route"), edge("e2", "route", "say")},
	}

	_, err := NewCompiler(reg, slog.Default()).Compile(context.Background(), g)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, KindInvalidConfig, compileErr.Kind)
	assert.Equal(t, "broken", compileErr.NodeID)

	g.Nodes = g.Nodes[:3]

	plan, err := NewCompiler(reg, slog.Default()).Compile(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, "switch", plan.NodeMappings["route"].ExecutorID)
	assert.Equal(t, "gateway", plan.NodeMappings["route"].TypeID)
}

func TestCompile_BranchAndTriggerEdges(t *testing.T) {
	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultNodes()

	g := testutil.CreateTestGraph(
		[]*models.Node{
			testutil.CreateTestNode("start", testutil.WithManualTrigger()),
			testutil.CreateTestNode("route", testutil.WithType("gateway"), testutil.WithConfig(map[string]any{"value": "{{.input.kind}}"})),
			testutil.CreateTestNode("yes"),
			testutil.CreateTestNode("no"),
		},
		testutil.CreateTestEdge("start", "route", testutil.AsTrigger()),
		testutil.CreateTestEdge("route", "yes", testutil.OnBranch("yes")),
		testutil.CreateTestEdge("route", "no", testutil.OnBranch("no"), testutil.WithPorts("result", "payload")),
	)

	plan, err := NewCompiler(reg, slog.Default()).Compile(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, "start", plan.ExecutionOrder[0])
	assert.Len(t, plan.EdgeIndex.TriggerEdges("route"), 1)
	assert.True(t, plan.IsSink("yes"))
	assert.True(t, plan.IsSink("no"))
	assert.Equal(t, []string{"route"}, plan.Dependencies("no"))
	assert.Empty(t, plan.InputMappings["route"])
	assert.Equal(t, []string{"route"}, plan.InputMappings["no"].Sources())
}
