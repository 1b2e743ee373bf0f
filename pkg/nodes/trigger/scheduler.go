package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/robfig/cron/v3"
)

// SchedulerTriggerNode starts a run on a cron schedule. The node annotates the
// payload with the schedule it fired for.
type SchedulerTriggerNode struct {
	id       string
	config   SchedulerTriggerConfig
	schedule cron.Schedule
	location *time.Location
	now      func() time.Time
}

// SchedulerTriggerConfig defines the configuration for scheduler trigger nodes.
type SchedulerTriggerConfig struct {
	CronExpression string `json:"cron_expression"`
	Timezone       string `json:"timezone"`
}

// NewSchedulerTriggerNode creates a new scheduler trigger node.
func NewSchedulerTriggerNode(id string, config map[string]any) (*SchedulerTriggerNode, error) {
	schedulerConfig := SchedulerTriggerConfig{
		Timezone: "UTC",
	}

	cronExpr, ok := config["cron_expression"].(string)
	if !ok || cronExpr == "" {
		return nil, errors.New("cron_expression is required")
	}

	schedulerConfig.CronExpression = cronExpr

	if timezone, ok := config["timezone"].(string); ok && timezone != "" {
		schedulerConfig.Timezone = timezone
	}

	location, err := time.LoadLocation(schedulerConfig.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", schedulerConfig.Timezone, err)
	}

	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron_expression %q: %w", cronExpr, err)
	}

	return &SchedulerTriggerNode{
		id:       id,
		config:   schedulerConfig,
		schedule: schedule,
		location: location,
		now:      time.Now,
	}, nil
}

// ID returns the node ID.
func (n *SchedulerTriggerNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *SchedulerTriggerNode) Type() string {
	return models.NodeTypeTriggerScheduler
}

// Execute passes the payload through with fired_at and next_run_at added.
func (n *SchedulerTriggerNode) Execute(_ context.Context, input protocol.NodeInput) (map[string]any, error) {
	data := payload(input)
	now := n.now().In(n.location)

	if _, ok := data["fired_at"]; !ok {
		data["fired_at"] = now.Format(time.RFC3339)
	}

	data["next_run_at"] = n.schedule.Next(now).Format(time.RFC3339)
	data["cron_expression"] = n.config.CronExpression

	return data, nil
}
