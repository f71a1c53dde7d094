package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intern-service/internal/api/dto"
	"github.com/spec-kit/intern-service/internal/domain"
	"github.com/spec-kit/intern-service/internal/service"
	apperrors "github.com/spec-kit/intern-service/pkg/util"
)

// AssignmentsHandler exposes the assignment, submission and grading endpoints.
type AssignmentsHandler struct {
	ledger *service.AssignmentService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(ledger *service.AssignmentService) *AssignmentsHandler {
	return &AssignmentsHandler{ledger: ledger}
}

// AssignTasks POST /api/assign-tasks.
func (h *AssignmentsHandler) AssignTasks(c *fiber.Ctx) error {
	var req dto.DomainRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireSelf(c, req.Email, ""); err != nil {
		return err
	}
	assignments, created, err := h.ledger.AssignDomainTasks(c.UserContext(), actorSession(c), req.Email, domain.Domain(strings.TrimSpace(req.Domain)))
	if err != nil {
		return err
	}
	message := "Tasks already assigned"
	if created {
		message = fmt.Sprintf("Assigned %d task(s) successfully", len(assignments))
	}
	return c.JSON(fiber.Map{
		"message":     message,
		"assignments": dto.NewAssignmentList(assignments),
	})
}

// DomainTasks GET /api/domain-tasks?email=.
func (h *AssignmentsHandler) DomainTasks(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return apperrors.NewValidationError("email is required", nil)
	}
	if err := requireSelf(c, email, ""); err != nil {
		return err
	}
	_, views, err := h.ledger.ListForEmail(c.UserContext(), email)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAssignmentViewList(views))
}

// SubmitTask POST /api/submit-task.
func (h *AssignmentsHandler) SubmitTask(c *fiber.Ctx) error {
	var req dto.SubmitTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireSelf(c, "", req.UserID); err != nil {
		return err
	}
	assignment, err := h.ledger.Submit(c.UserContext(), actorSession(c), req.TaskID, req.UserID, req.GithubLink, req.DeploymentLink)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":    "Task submitted successfully",
		"assignment": dto.NewAssignmentResponse(assignment),
	})
}

// Submissions GET /api/submissions.
func (h *AssignmentsHandler) Submissions(c *fiber.Ctx) error {
	views, err := h.ledger.ListSubmitted(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSubmissionList(views))
}

// Feedback POST /api/submissions/feedback.
func (h *AssignmentsHandler) Feedback(c *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	assignment, err := h.ledger.Grade(c.UserContext(), actorSession(c), req.Email, req.TaskID, req.Grade, req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":    "Feedback submitted successfully",
		"assignment": dto.NewAssignmentResponse(assignment),
	})
}
