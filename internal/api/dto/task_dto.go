package dto

import (
	"time"

	"github.com/spec-kit/intern-service/internal/domain"
)

// CreateTaskRequest payload for add-task.
type CreateTaskRequest struct {
	Title       string      `json:"title" validate:"required"`
	Description string      `json:"description"`
	Domain      string      `json:"domain" validate:"required"`
	Level       FlexibleInt `json:"level"`
	CreatedBy   string      `json:"createdBy"`
}

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Domain      string    `json:"domain"`
	Level       int       `json:"level"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewTaskResponse maps a domain task.
func NewTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Domain:      string(t.Domain),
		Level:       t.Level,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
	}
}

// NewTaskList maps a slice of tasks.
func NewTaskList(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, NewTaskResponse(&tasks[i]))
	}
	return out
}
