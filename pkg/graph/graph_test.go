package graph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlGraph = `
id: approval
name: Approval flow
nodes:
  - id: start
    typeId: trigger:manual
  - id: route
    typeId: gateway
    config:
      value: "{{.input.decision}}"
      cases:
        - value: approve
          branch: approve
  - id: notify
    typeId: log
    config:
      message: approved
edges:
  - id: e1
    source: start
    target: route
    isTrigger: true
  - id: e2
    source: route
    target: notify
    sourceHandle: route-output-data
    targetHandle: notify-input-payload
    isTrigger: true
    branchName: approve
`

func TestDecode_YAML(t *testing.T) {
	g, err := Decode(strings.NewReader(yamlGraph), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "approval", g.ID)
	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)

	assert.Equal(t, "approve", g.Edges[1].BranchName)
	assert.True(t, g.Edges[1].IsTrigger)

	cases, ok := g.Nodes[1].Config["cases"].([]any)
	require.True(t, ok)
	assert.Equal(t, "approve", cases[0].(map[string]any)["branch"])
}

func TestDecode_JSON(t *testing.T) {
	doc := `{"id": "g", "nodes": [{"id": "a", "typeId": "log", "config": {"message": "x"}}], "edges": []}`

	g, err := Decode(strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "log", g.Nodes[0].TypeID)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"nodes": [`), FormatJSON)
	require.ErrorIs(t, err, ErrMalformedGraph)

	_, err = Decode(strings.NewReader(`{}`), "toml")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestValidate(t *testing.T) {
	node := func(id, typeID string) *models.Node { return &models.Node{ID: id, TypeID: typeID} }
	edge := func(id, source, target string) *models.Edge {
		return &models.Edge{ID: id, Source: source, Target: target}
	}

	tests := []struct {
		name    string
		graph   *models.Graph
		wantErr error
	}{
		{
			name:  "valid",
			graph: &models.Graph{Nodes: []*models.Node{node("a", "log"), node("b", "log")}, Edges: []*models.Edge{edge("e1", "a", "b")}},
		},
		{
			name:  "self loop left to compiler",
			graph: &models.Graph{Nodes: []*models.Node{node("a", "log")}, Edges: []*models.Edge{edge("e1", "a", "a")}},
		},
		{
			name:    "nil graph",
			wantErr: ErrMalformedGraph,
		},
		{
			name:    "no nodes",
			graph:   &models.Graph{},
			wantErr: ErrMalformedGraph,
		},
		{
			name:    "missing type id",
			graph:   &models.Graph{Nodes: []*models.Node{node("a", "")}},
			wantErr: ErrMalformedGraph,
		},
		{
			name:    "duplicate node id",
			graph:   &models.Graph{Nodes: []*models.Node{node("a", "log"), node("a", "log")}},
			wantErr: ErrMalformedGraph,
		},
		{
			name:    "unknown target",
			graph:   &models.Graph{Nodes: []*models.Node{node("a", "log")}, Edges: []*models.Edge{edge("e1", "a", "z")}},
			wantErr: ErrMalformedEdge,
		},
		{
			name:    "edge missing id",
			graph:   &models.Graph{Nodes: []*models.Node{node("a", "log"), node("b", "log")}, Edges: []*models.Edge{edge("", "a", "b")}},
			wantErr: ErrMalformedEdge,
		},
		{
			name: "duplicate edge id",
			graph: &models.Graph{
				Nodes: []*models.Node{node("a", "log"), node("b", "log")},
				Edges: []*models.Edge{edge("e1", "a", "b"), edge("e1", "b", "a")},
			},
			wantErr: ErrMalformedEdge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.graph)
			if tt.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.NotEmpty(t, validationErr.Problems)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "approval-flow.yml")

	doc := strings.Replace(yamlGraph, "id: approval\n", "", 1)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	g, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "approval-flow", g.ID)

	_, err = LoadFile(filepath.Join(dir, "graph.txt"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
