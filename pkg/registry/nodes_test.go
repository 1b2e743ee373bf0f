package registry

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestRegisterDefaultNodes(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterDefaultNodes()

	expectedNodes := []string{
		"conditional",
		"httprequest",
		"log",
		"merge",
		"switch",
		"transform",
		"trigger:manual",
		"trigger:scheduler",
		"trigger:webhook",
	}

	availableNodes := registry.GetAvailableNodes()
	if len(availableNodes) != len(expectedNodes) {
		t.Fatalf("Expected %d nodes, got %d", len(expectedNodes), len(availableNodes))
	}

	for i, expectedType := range expectedNodes {
		if availableNodes[i].ID() != expectedType {
			t.Errorf("Expected node type '%s' at %d, got '%s'", expectedType, i, availableNodes[i].ID())
		}
	}
}

func TestCreateNode_Transform(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterDefaultNodes()

	node, err := registry.CreateNode(context.Background(), "transform", "transform-node-1", map[string]any{
		"expression": `{"result": "{{.input.value}}"}`,
	})
	if err != nil {
		t.Fatalf("Failed to create transform node: %v", err)
	}

	if node.ID() != "transform-node-1" {
		t.Errorf("Expected node ID 'transform-node-1', got: %s", node.ID())
	}

	if node.Type() != "transform" {
		t.Errorf("Expected node type 'transform', got: %s", node.Type())
	}
}

func TestCreateNode_Alias(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterDefaultNodes()

	node, err := registry.CreateNode(context.Background(), "gateway", "gw", map[string]any{
		"value": "{{.input.kind}}",
	})
	if err != nil {
		t.Fatalf("Failed to create gateway node: %v", err)
	}

	if node.Type() != "switch" {
		t.Errorf("Expected gateway to resolve to 'switch', got: %s", node.Type())
	}
}

func TestCreateNode_UnknownType(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterDefaultNodes()

	_, err := registry.CreateNode(context.Background(), "unknown_type", "test-node", map[string]any{})
	if err == nil {
		t.Fatal("Expected error when creating node with unknown type")
	}

	if !errors.Is(err, ErrNodeNotRegistered) {
		t.Errorf("Expected ErrNodeNotRegistered, got: %v", err)
	}
}
