// Package dataflow maps upstream node outputs onto downstream inputs and
// validates, transforms and merges field-level data.
package dataflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/dukex/graphflow/pkg/models"
)

// Node config keys understood by Prepare.
const (
	ConfigInputSchema    = "input_schema"
	ConfigInputTransform = "input_transform"
	ConfigMergeStrategy  = "merge_strategy"
)

// Resolver resolves node inputs. It holds no per-run state.
type Resolver struct {
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{logger: logger.With("module", "dataflow")}
}

// ResolveInputs builds the input record of nodeID from the outputs recorded
// in execCtx. A node without dependencies receives a copy of the initial data.
// Dependencies that produced no output, because they were skipped, contribute
// nothing.
func (r *Resolver) ResolveInputs(
	nodeID string,
	execCtx *models.ExecutionContext,
	mappings models.InputMapping,
	strategy Strategy,
) (map[string]any, error) {
	if len(mappings) == 0 {
		return maps.Clone(execCtx.InitialData), nil
	}

	sources := make([]map[string]any, 0, len(mappings))

	for _, dep := range mappings {
		output, ok := execCtx.Output(dep.Source)
		if !ok {
			r.logger.Debug("Dependency has no output", "node_id", nodeID, "dependency", dep.Source)

			continue
		}

		sources = append(sources, contribution(output, dep.Ports))
	}

	return r.Merge(strategy, sources...), nil
}

// contribution extracts what one upstream output feeds into the target node.
// A named source port missing from the output leaves its field absent so
// schema defaults can apply.
func contribution(output map[string]any, ports []models.PortMapping) map[string]any {
	result := make(map[string]any)

	for _, port := range ports {
		var value any = output

		if port.SourcePort != "" {
			portValue, ok := output[port.SourcePort]
			if !ok {
				continue
			}

			value = portValue
		}

		switch {
		case port.TargetPort != "":
			result[port.TargetPort] = value
		default:
			if record, ok := value.(map[string]any); ok {
				maps.Copy(result, record)
			} else {
				result[port.SourcePort] = value
			}
		}
	}

	return result
}

// Prepare resolves the inputs of a node and applies the node's declared data
// contract: input_transform rules first, then input_schema validation.
func (r *Resolver) Prepare(
	nodeID string,
	execCtx *models.ExecutionContext,
	mappings models.InputMapping,
	config map[string]any,
) (map[string]any, error) {
	strategy, _ := config[ConfigMergeStrategy].(string)

	inputs, err := r.ResolveInputs(nodeID, execCtx, mappings, Strategy(strategy))
	if err != nil {
		return nil, err
	}

	transformSchema, ok, err := SchemaFromConfig(config, ConfigInputTransform)
	if err != nil {
		return nil, &Error{NodeID: nodeID, Err: err}
	}

	if ok {
		inputs, err = Transform(inputs, transformSchema)
		if err != nil {
			var dfErr *Error
			if errors.As(err, &dfErr) {
				dfErr.NodeID = nodeID
			}

			return nil, err
		}
	}

	validationSchema, ok, err := SchemaFromConfig(config, ConfigInputSchema)
	if err != nil {
		return nil, &Error{NodeID: nodeID, Err: err}
	}

	if ok {
		violations := Validate(inputs, validationSchema)
		if len(violations) > 0 {
			return nil, &Error{NodeID: nodeID, Violations: violations, Err: ErrSchemaViolation}
		}
	}

	return inputs, nil
}

// SchemaFromConfig decodes the field schema stored under key in a node config.
func SchemaFromConfig(config map[string]any, key string) (models.Schema, bool, error) {
	raw, ok := config[key]
	if !ok || raw == nil {
		return nil, false, nil
	}

	if schema, ok := raw.(models.Schema); ok {
		return schema, true, nil
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, key, err)
	}

	var schema models.Schema

	err = json.Unmarshal(encoded, &schema)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, key, err)
	}

	return schema, true, nil
}
