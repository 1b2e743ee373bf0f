package web

import (
	"errors"

	"github.com/dukex/graphflow/pkg/compiler"
	"github.com/dukex/graphflow/pkg/graph"
	"github.com/dukex/graphflow/pkg/persistence"
	"github.com/dukex/graphflow/pkg/pipeline"
	"github.com/dukex/graphflow/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func statusProblem(c fiber.Ctx, status int, problemType string, detail string) error {
	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(problem)
}

// handleError maps engine errors to RFC 7807 problem documents.
func handleError(c fiber.Ctx, err error) error {
	var (
		validationErr *graph.ValidationError
		compileErr    *compiler.CompileError
		nodeErr       *workflow.NodeExecutionError
	)

	switch {
	case errors.As(err, &validationErr):
		return badRequest(c, validationErr.Error())

	case errors.As(err, &compileErr):
		return statusProblem(c, fiber.StatusUnprocessableEntity, "compile_error", compileErr.Error())

	case errors.As(err, &nodeErr):
		return statusProblem(c, fiber.StatusUnprocessableEntity, "node_execution_failed", nodeErr.Error())

	case errors.Is(err, persistence.ErrInvalidID):
		return badRequest(c, err.Error())

	case persistence.IsPipelineNotFound(err):
		return statusProblem(c, fiber.StatusNotFound, "pipeline_not_found", "pipeline not found")

	case errors.Is(err, pipeline.ErrPipelineTerminal):
		return statusProblem(c, fiber.StatusConflict, "conflict", err.Error())

	default:
		problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}
