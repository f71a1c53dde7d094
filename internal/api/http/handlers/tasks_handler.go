package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intern-service/internal/api/dto"
	"github.com/spec-kit/intern-service/internal/auth"
	"github.com/spec-kit/intern-service/internal/domain"
	"github.com/spec-kit/intern-service/internal/service"
)

// TasksHandler manages the admin task catalog endpoints.
type TasksHandler struct {
	catalog *service.CatalogService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(catalogService *service.CatalogService) *TasksHandler {
	return &TasksHandler{catalog: catalogService}
}

// AddTask POST /api/add-task.
func (h *TasksHandler) AddTask(c *fiber.Ctx) error {
	var req dto.CreateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	task, err := h.catalog.CreateTask(c.UserContext(), actorSession(c), service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Domain:      domain.Domain(strings.TrimSpace(req.Domain)),
		Level:       int(req.Level),
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Task added successfully",
		"task":    dto.NewTaskResponse(task),
	})
}

// AllTasks GET /api/all-tasks.
func (h *TasksHandler) AllTasks(c *fiber.Ctx) error {
	tasks, err := h.catalog.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTaskList(tasks))
}

// DeleteTask DELETE /api/delete-task/:id.
func (h *TasksHandler) DeleteTask(c *fiber.Ctx) error {
	if err := h.catalog.DeleteTask(c.UserContext(), actorSession(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Task deleted successfully"})
}

func actorSession(c *fiber.Ctx) *domain.Session {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil
	}
	session := principal.Session
	return &session
}
