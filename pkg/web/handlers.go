// Package web exposes the REST API over workflow definitions and the
// runner. Stored definitions are managed against the persistence layer;
// registered workflows are controlled through the runner, which is the
// only path to the engine.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/taskmaster-io/taskmaster/pkg/config"
	"github.com/taskmaster-io/taskmaster/pkg/models"
	"github.com/taskmaster-io/taskmaster/pkg/persistence"
	"github.com/taskmaster-io/taskmaster/pkg/workflow"
)

type APIHandlers struct {
	persistence persistence.Persistence
	loader      *config.Loader
	runner      *workflow.Runner
	validator   *validator.Validate
}

func NewAPIHandlers(
	persistence persistence.Persistence,
	loader *config.Loader,
	runner *workflow.Runner,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		persistence: persistence,
		loader:      loader,
		runner:      runner,
		validator:   validator,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	if status := c.Query("status"); status != "" {
		filtered := make([]*models.Workflow, 0, len(workflows))

		for _, def := range workflows {
			if string(def.Status) == status {
				filtered = append(filtered, def)
			}
		}

		workflows = filtered
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	def, err := h.persistence.WorkflowByID(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	if def == nil {
		return notFound(c, "Workflow not found")
	}

	return c.JSON(def)
}

// CreateWorkflow stores a new definition. It is only accepted when it
// builds: every referenced type must be registered and the dependency
// graph must be acyclic.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	def := &models.Workflow{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Actions:     req.Actions,
		Triggers:    req.Triggers,
		Variables:   req.Variables,
		Metadata:    req.Metadata,
	}

	if def.ID == "" {
		def.ID = uuid.New().String()
	}

	if def.Status == "" {
		def.Status = models.WorkflowStatusInactive
	}

	existing, err := h.persistence.WorkflowByID(c.Context(), def.ID)
	if err != nil {
		return internalError(c, err)
	}

	if existing != nil {
		return conflict(c, "Workflow "+def.ID+" already exists")
	}

	if err := h.loader.Validate(def); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.SaveWorkflow(c.Context(), def); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(def)
}

// UpdateWorkflow applies a partial update to a stored definition. The
// merged definition must still build before it is written back. A
// registered copy in the runner is not touched; re-register to pick up
// changes.
func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.WorkflowByID(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	if existing == nil {
		return notFound(c, "Workflow not found")
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Status != nil {
		existing.Status = *req.Status
	}

	if req.Actions != nil {
		existing.Actions = req.Actions
	}

	if req.Triggers != nil {
		existing.Triggers = req.Triggers
	}

	if req.Variables != nil {
		existing.Variables = req.Variables
	}

	if req.Metadata != nil {
		existing.Metadata = req.Metadata
	}

	if err := h.loader.Validate(existing); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.SaveWorkflow(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(existing)
}

// DeleteWorkflow removes a stored definition. A copy registered with the
// runner is unregistered first so its triggers stop listening.
func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	def, err := h.persistence.WorkflowByID(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	if def == nil {
		return notFound(c, "Workflow not found")
	}

	if _, err := h.runner.Get(id); err == nil {
		if err := h.runner.Unregister(c.Context(), id); err != nil {
			return internalError(c, err)
		}
	}

	if err := h.persistence.DeleteWorkflow(c.Context(), id); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RegisterWorkflow builds the stored definition and hands it to the
// runner. Registration alone starts no trigger.
func (h *APIHandlers) RegisterWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	def, err := h.persistence.WorkflowByID(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	if def == nil {
		return notFound(c, "Workflow not found")
	}

	wf, err := h.loader.Build(def)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.runner.Register(wf); err != nil {
		return handleRunnerError(c, err)
	}

	summary, err := h.runner.Status(id)
	if err != nil {
		return handleRunnerError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(summary)
}

// UnregisterWorkflow deactivates the workflow and drops it from the
// runner. The stored definition is untouched.
func (h *APIHandlers) UnregisterWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.runner.Unregister(c.Context(), id); err != nil {
		return handleRunnerError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// StartWorkflow activates the registered workflow's triggers.
func (h *APIHandlers) StartWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.runner.Start(c.Context(), id); err != nil {
		return handleRunnerError(c, err)
	}

	summary, err := h.runner.Status(id)
	if err != nil {
		return handleRunnerError(c, err)
	}

	return c.JSON(summary)
}

// StopWorkflow deactivates the registered workflow's triggers.
func (h *APIHandlers) StopWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.runner.Stop(c.Context(), id); err != nil {
		return handleRunnerError(c, err)
	}

	summary, err := h.runner.Status(id)
	if err != nil {
		return handleRunnerError(c, err)
	}

	return c.JSON(summary)
}

// RunWorkflow executes the registered workflow immediately, active or
// not, and returns the per-action outcome map.
func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req RunWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	result, err := h.runner.RunNow(c.Context(), id, req.TriggerData)
	if err != nil {
		return handleRunnerError(c, err)
	}

	return c.JSON(result)
}

// GetWorkflowStatus reports the runner's view of one registered
// workflow.
func (h *APIHandlers) GetWorkflowStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	summary, err := h.runner.Status(id)
	if err != nil {
		return handleRunnerError(c, err)
	}

	return c.JSON(summary)
}

// GetRunnerStatus reports the runner and every workflow registered on
// it.
func (h *APIHandlers) GetRunnerStatus(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"runner_id": h.runner.ID(),
		"workflows": h.runner.List(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck := "ok"
	healthy := true

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		repositoryCheck = err.Error()
		healthy = false
	}

	status := "unhealthy"
	message := "Taskmaster API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if healthy {
		status = "healthy"
		message = "Taskmaster API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
			"runner": fiber.Map{
				"runner_id": h.runner.ID(),
				"workflows": len(h.runner.List()),
			},
		},
		"timestamp": time.Now().UTC(),
	})
}
