package trigger

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/protocol"
)

var allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

// WebhookTriggerNode passes a received webhook payload into the graph.
type WebhookTriggerNode struct {
	id     string
	config WebhookTriggerConfig
}

// WebhookTriggerConfig defines the configuration for webhook trigger nodes.
type WebhookTriggerConfig struct {
	WebhookPath    string   `json:"webhook_path"`
	Method         string   `json:"method"`
	RequiredFields []string `json:"required_fields"`
}

// NewWebhookTriggerNode creates a new webhook trigger node.
func NewWebhookTriggerNode(id string, config map[string]any) (*WebhookTriggerNode, error) {
	webhookConfig := WebhookTriggerConfig{
		Method: "POST",
	}

	if webhookPath, ok := config["webhook_path"].(string); ok {
		webhookConfig.WebhookPath = webhookPath
	}

	if method, ok := config["method"].(string); ok {
		if !slices.Contains(allowedMethods, method) {
			return nil, errors.New("method must be one of: GET, POST, PUT, DELETE, PATCH")
		}

		webhookConfig.Method = method
	}

	if fields, ok := config["required_fields"].([]any); ok {
		for _, field := range fields {
			if name, ok := field.(string); ok {
				webhookConfig.RequiredFields = append(webhookConfig.RequiredFields, name)
			}
		}
	}

	return &WebhookTriggerNode{
		id:     id,
		config: webhookConfig,
	}, nil
}

// ID returns the node ID.
func (n *WebhookTriggerNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *WebhookTriggerNode) Type() string {
	return models.NodeTypeTriggerWebhook
}

// Execute checks required payload fields and passes the payload through.
func (n *WebhookTriggerNode) Execute(_ context.Context, input protocol.NodeInput) (map[string]any, error) {
	data := payload(input)

	for _, field := range n.config.RequiredFields {
		if _, ok := data[field]; !ok {
			return nil, fmt.Errorf("webhook payload missing required field %q", field)
		}
	}

	return data, nil
}
