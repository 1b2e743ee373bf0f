// Package registry provides node factory registration for the registry system.
package registry

import (
	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/nodes/conditional"
	"github.com/dukex/graphflow/pkg/nodes/httprequest"
	"github.com/dukex/graphflow/pkg/nodes/log"
	"github.com/dukex/graphflow/pkg/nodes/merge"
	switchnode "github.com/dukex/graphflow/pkg/nodes/switch"
	"github.com/dukex/graphflow/pkg/nodes/transform"
	"github.com/dukex/graphflow/pkg/nodes/trigger"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
func (r *Registry) RegisterDefaultNodes() {
	r.RegisterNode(httprequest.NewHTTPRequestNodeFactory())
	r.RegisterNode(transform.NewTransformNodeFactory())
	r.RegisterNode(log.NewLogNodeFactory(r.logger))
	r.RegisterNode(conditional.NewConditionalNodeFactory())
	r.RegisterNode(switchnode.NewSwitchNodeFactory())
	r.RegisterNode(merge.NewMergeNodeFactory(r.logger))

	r.RegisterNode(trigger.NewManualTriggerNodeFactory())
	r.RegisterNode(trigger.NewWebhookTriggerNodeFactory())
	r.RegisterNode(trigger.NewSchedulerTriggerNodeFactory())

	r.RegisterAlias(models.NodeTypeGateway, switchnode.NodeType)
	r.RegisterAlias("condition", conditional.NodeType)
	r.RegisterAlias("action", log.NodeType)
}
