package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/persistence"
	"github.com/dukex/graphflow/pkg/pipeline"
	"github.com/dukex/graphflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// Orchestrator is the pipeline control surface the API exposes.
type Orchestrator interface {
	Orchestrate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Status(ctx context.Context, pipelineID string) (*models.Pipeline, error)
	Pause(ctx context.Context, pipelineID string) (*models.Pipeline, error)
	Resume(ctx context.Context, pipelineID string) (*models.Pipeline, error)
	Cancel(ctx context.Context, pipelineID string) (*models.Pipeline, error)
}

// GraphRunner executes a graph synchronously.
type GraphRunner interface {
	RunGraph(ctx context.Context, g *models.Graph, initialData map[string]any) (*workflow.RunResult, error)
}

type APIHandlers struct {
	orchestrator Orchestrator
	runner       GraphRunner
	persistence  persistence.Persistence
	validator    *validator.Validate
}

func NewAPIHandlers(
	orchestrator Orchestrator,
	runner GraphRunner,
	persistence persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		orchestrator: orchestrator,
		runner:       runner,
		persistence:  persistence,
		validator:    validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK
	storeCheck := "ok"

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
		storeCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"persistence": storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// CreatePipeline compiles the posted graph, persists a pipeline and dispatches
// its first jobs. The pipeline keeps running after the response is sent.
func (h *APIHandlers) CreatePipeline(c fiber.Ctx) error {
	var req OrchestrateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.orchestrator.Orchestrate(c.Context(), req.toPipelineRequest())
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(result)
}

func (h *APIHandlers) GetPipeline(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	p, err := h.orchestrator.Status(c.Context(), id)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(TransformPipelineResponse(p))
}

func (h *APIHandlers) PausePipeline(c fiber.Ctx) error {
	return h.control(c, h.orchestrator.Pause)
}

func (h *APIHandlers) ResumePipeline(c fiber.Ctx) error {
	return h.control(c, h.orchestrator.Resume)
}

func (h *APIHandlers) CancelPipeline(c fiber.Ctx) error {
	return h.control(c, h.orchestrator.Cancel)
}

func (h *APIHandlers) control(c fiber.Ctx, apply func(context.Context, string) (*models.Pipeline, error)) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	p, err := apply(c.Context(), id)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(TransformPipelineResponse(p))
}

// RunGraph executes the posted graph synchronously and returns every node output.
func (h *APIHandlers) RunGraph(c fiber.Ctx) error {
	var req RunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.runner.RunGraph(c.Context(), req.Graph, req.InputData)
	if err != nil {
		var nodeErr *workflow.NodeExecutionError
		if errors.As(err, &nodeErr) && result != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"type":    "node_execution_failed",
				"status":  fiber.StatusUnprocessableEntity,
				"detail":  nodeErr.Error(),
				"node_id": nodeErr.NodeID,
				"result":  result,
			})
		}

		return handleError(c, err)
	}

	return c.JSON(result)
}
