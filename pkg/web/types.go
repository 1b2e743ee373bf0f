// Package web provides the HTTP API for starting and controlling pipelines.
package web

import (
	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/pipeline"
)

// OrchestrateRequest is the body of POST /pipelines.
type OrchestrateRequest struct {
	Name                string         `json:"name,omitempty"`
	Graph               *models.Graph  `json:"graph"                           validate:"required"`
	InputData           map[string]any `json:"input_data,omitempty"`
	MaxConcurrentJobs   int            `json:"max_concurrent_jobs,omitempty"   validate:"omitempty,min=1"`
	JobPriorityStrategy string         `json:"job_priority_strategy,omitempty" validate:"omitempty,oneof=dependency_order fifo priority"`
	RetryStrategy       string         `json:"retry_strategy,omitempty"        validate:"omitempty,oneof=individual stop_on_failure"`
	MaxRetries          int            `json:"max_retries,omitempty"`
	MaxIterations       int            `json:"max_iterations,omitempty"        validate:"omitempty,min=1"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

func (r OrchestrateRequest) toPipelineRequest() pipeline.Request {
	return pipeline.Request{
		Name:              r.Name,
		Graph:             r.Graph,
		InputData:         r.InputData,
		MaxConcurrentJobs: r.MaxConcurrentJobs,
		PriorityStrategy:  models.PriorityStrategy(r.JobPriorityStrategy),
		RetryStrategy:     models.RetryStrategy(r.RetryStrategy),
		MaxRetries:        r.MaxRetries,
		MaxIterations:     r.MaxIterations,
		Metadata:          r.Metadata,
	}
}

// RunRequest is the body of POST /runs, a synchronous execution.
type RunRequest struct {
	Graph     *models.Graph  `json:"graph"                validate:"required"`
	InputData map[string]any `json:"input_data,omitempty"`
}

// JobSummary is the per-job view returned with a pipeline status.
type JobSummary struct {
	ID           string           `json:"id"`
	NodeID       string           `json:"node_id"`
	Status       models.JobStatus `json:"status"`
	RetryCount   int              `json:"retry_count"`
	ErrorMessage string           `json:"error_message,omitempty"`
	OutputData   map[string]any   `json:"output_data,omitempty"`
}

// PipelineResponse is the status document of a pipeline.
type PipelineResponse struct {
	ID           string                `json:"id"`
	ExecutionID  string                `json:"execution_id"`
	GraphID      string                `json:"graph_id"`
	Name         string                `json:"name,omitempty"`
	Status       models.PipelineStatus `json:"status"`
	Iterations   int                   `json:"iterations"`
	ErrorMessage string                `json:"error_message,omitempty"`
	OutputData   map[string]any        `json:"output_data,omitempty"`
	JobCounts    map[string]int        `json:"job_counts"`
	Jobs         []JobSummary          `json:"jobs"`
}

// TransformPipelineResponse flattens a pipeline and its jobs into the API view.
func TransformPipelineResponse(p *models.Pipeline) PipelineResponse {
	response := PipelineResponse{
		ID:           p.ID,
		ExecutionID:  p.ExecutionID,
		GraphID:      p.GraphID,
		Name:         p.Name,
		Status:       p.Status,
		Iterations:   p.Iterations,
		ErrorMessage: p.ErrorMessage,
		OutputData:   p.OutputData,
		JobCounts:    make(map[string]int),
		Jobs:         make([]JobSummary, 0, len(p.Jobs)),
	}

	for _, job := range p.Jobs {
		response.JobCounts[string(job.Status)]++
		response.Jobs = append(response.Jobs, JobSummary{
			ID:           job.ID,
			NodeID:       job.NodeID,
			Status:       job.Status,
			RetryCount:   job.RetryCount,
			ErrorMessage: job.ErrorMessage,
			OutputData:   job.OutputData,
		})
	}

	return response
}
