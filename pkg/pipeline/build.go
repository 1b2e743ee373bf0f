// Package pipeline turns compiled plans into persisted pipelines of jobs and
// orchestrates their asynchronous execution.
package pipeline

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/google/uuid"
)

// Request describes one asynchronous execution. Either Graph or Plan must be set;
// zero-valued limits fall back to the orchestrator defaults. A negative
// MaxRetries disables retries.
type Request struct {
	Name              string                  `json:"name,omitempty"`
	Graph             *models.Graph           `json:"graph,omitempty"`
	Plan              *models.CompiledPlan    `json:"-"`
	InputData         map[string]any          `json:"input_data,omitempty"`
	MaxConcurrentJobs int                     `json:"max_concurrent_jobs,omitempty"`
	PriorityStrategy  models.PriorityStrategy `json:"job_priority_strategy,omitempty"`
	RetryStrategy     models.RetryStrategy    `json:"retry_strategy,omitempty"`
	MaxRetries        int                     `json:"max_retries,omitempty"`
	MaxIterations     int                     `json:"max_iterations,omitempty"`
	Metadata          map[string]any          `json:"metadata,omitempty"`
}

const (
	scorePerDependency = 10
	scoreNodeKindShift = 50
	// ConfigPriority lets a node override its static priority under the priority strategy.
	ConfigPriority = "priority"
)

// Build instantiates a pending pipeline with one pending job per plan node, in
// execution order. Non-trigger edges become dependencies, trigger edges become
// trigger dependencies evaluated with OR semantics at readiness time.
func Build(plan *models.CompiledPlan, req Request, now time.Time) *models.Pipeline {
	pipeline := &models.Pipeline{
		ID:                  uuid.New().String(),
		ExecutionID:         uuid.New().String(),
		GraphID:             plan.GraphID,
		Name:                req.Name,
		Status:              models.PipelineStatusPending,
		MaxConcurrentJobs:   req.MaxConcurrentJobs,
		JobPriorityStrategy: req.PriorityStrategy,
		RetryStrategy:       req.RetryStrategy,
		MaxIterations:       req.MaxIterations,
		InputData:           maps.Clone(req.InputData),
		Metadata:            maps.Clone(req.Metadata),
		CreatedAt:           now,
	}

	if pipeline.InputData == nil {
		pipeline.InputData = make(map[string]any)
	}

	jobIDs := make(map[string]string, len(plan.ExecutionOrder))
	for _, nodeID := range plan.ExecutionOrder {
		jobIDs[nodeID] = uuid.New().String()
	}

	for seq, nodeID := range plan.ExecutionOrder {
		mapping := plan.NodeMappings[nodeID]
		incoming := slices.Clone(plan.EdgeIndex[nodeID].Incoming)

		job := &models.Job{
			ID:            jobIDs[nodeID],
			PipelineID:    pipeline.ID,
			NodeID:        nodeID,
			ExecutorID:    mapping.ExecutorID,
			TypeID:        mapping.TypeID,
			Label:         mapping.Label,
			Config:        mapping.Config,
			Status:        models.JobStatusPending,
			MaxRetries:    req.MaxRetries,
			Sequence:      seq,
			Dependencies:  []string{},
			IncomingEdges: incoming,
			InputMappings: plan.InputMappings[nodeID],
			CreatedAt:     now,
		}

		for _, edge := range incoming {
			depID, ok := jobIDs[edge.Source]
			if !ok {
				continue
			}

			if edge.IsTrigger {
				if !slices.Contains(job.TriggerDependencies, depID) {
					job.TriggerDependencies = append(job.TriggerDependencies, depID)
				}

				continue
			}

			if !slices.Contains(job.Dependencies, depID) {
				job.Dependencies = append(job.Dependencies, depID)
			}
		}

		job.Priority = staticPriority(job)
		pipeline.Jobs = append(pipeline.Jobs, job)
	}

	return pipeline
}

func staticPriority(job *models.Job) int {
	if override, ok := intValue(job.Config[ConfigPriority]); ok {
		return override
	}

	return dependencyScore(job, len(job.Dependencies)+len(job.TriggerDependencies))
}

// dependencyScore ranks jobs for the dependency_order strategy: fewer
// unresolved dependencies first, input-like nodes early, output-like nodes last.
func dependencyScore(job *models.Job, unresolved int) int {
	score := unresolved * scorePerDependency

	kind := strings.ToLower(job.TypeID + " " + job.Label)

	switch {
	case strings.Contains(kind, "output"):
		score += scoreNodeKindShift
	case strings.Contains(kind, "input"):
		score -= scoreNodeKindShift
	}

	return score
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
