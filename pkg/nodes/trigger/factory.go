package trigger

import (
	"context"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/protocol"
)

// ManualTriggerNodeFactory creates ManualTriggerNode instances.
type ManualTriggerNodeFactory struct{}

// NewManualTriggerNodeFactory creates a new manual trigger node factory.
func NewManualTriggerNodeFactory() protocol.NodeFactory {
	return &ManualTriggerNodeFactory{}
}

// Create creates a new ManualTriggerNode instance.
func (f *ManualTriggerNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewManualTriggerNode(id, config)
}

// ID returns the factory ID.
func (f *ManualTriggerNodeFactory) ID() string {
	return models.NodeTypeTriggerManual
}

// Name returns the factory name.
func (f *ManualTriggerNodeFactory) Name() string {
	return "Manual Trigger"
}

// Description returns the factory description.
func (f *ManualTriggerNodeFactory) Description() string {
	return "Starts workflow execution with data supplied by an operator"
}

// Schema returns the JSON schema for manual trigger node configuration.
func (f *ManualTriggerNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// WebhookTriggerNodeFactory creates WebhookTriggerNode instances.
type WebhookTriggerNodeFactory struct{}

// NewWebhookTriggerNodeFactory creates a new webhook trigger node factory.
func NewWebhookTriggerNodeFactory() protocol.NodeFactory {
	return &WebhookTriggerNodeFactory{}
}

// Create creates a new WebhookTriggerNode instance.
func (f *WebhookTriggerNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewWebhookTriggerNode(id, config)
}

// ID returns the factory ID.
func (f *WebhookTriggerNodeFactory) ID() string {
	return models.NodeTypeTriggerWebhook
}

// Name returns the factory name.
func (f *WebhookTriggerNodeFactory) Name() string {
	return "Webhook Trigger"
}

// Description returns the factory description.
func (f *WebhookTriggerNodeFactory) Description() string {
	return "Receives webhook events from external sources and starts workflow execution"
}

// Schema returns the JSON schema for webhook trigger node configuration.
func (f *WebhookTriggerNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"webhook_path": map[string]any{
				"type":        "string",
				"description": "The webhook endpoint path that will receive HTTP requests",
				"examples": []string{
					"/webhook/orders",
					"/webhook/github-push",
				},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method allowed for the webhook",
				"default":     "POST",
				"enum":        []string{"GET", "POST", "PUT", "DELETE", "PATCH"},
			},
			"required_fields": map[string]any{
				"type":        "array",
				"description": "Payload fields that must be present",
				"items":       map[string]any{"type": "string"},
			},
		},
	}
}

// SchedulerTriggerNodeFactory creates SchedulerTriggerNode instances.
type SchedulerTriggerNodeFactory struct{}

// NewSchedulerTriggerNodeFactory creates a new scheduler trigger node factory.
func NewSchedulerTriggerNodeFactory() protocol.NodeFactory {
	return &SchedulerTriggerNodeFactory{}
}

// Create creates a new SchedulerTriggerNode instance.
func (f *SchedulerTriggerNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewSchedulerTriggerNode(id, config)
}

// ID returns the factory ID.
func (f *SchedulerTriggerNodeFactory) ID() string {
	return models.NodeTypeTriggerScheduler
}

// Name returns the factory name.
func (f *SchedulerTriggerNodeFactory) Name() string {
	return "Scheduler Trigger"
}

// Description returns the factory description.
func (f *SchedulerTriggerNodeFactory) Description() string {
	return "Starts workflow execution on a cron schedule"
}

// Schema returns the JSON schema for scheduler trigger node configuration.
func (f *SchedulerTriggerNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cron_expression": map[string]any{
				"type":        "string",
				"description": "Standard five field cron expression",
				"examples":    []string{"0 * * * *", "*/5 * * * *", "@daily"},
			},
			"timezone": map[string]any{
				"type":        "string",
				"description": "IANA timezone the schedule is evaluated in",
				"default":     "UTC",
			},
		},
		"required": []string{"cron_expression"},
	}
}
