package events

import (
	"time"

	"github.com/spec-kit/intern-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskCreated   EventType = "task_created"
	EventTaskDeleted   EventType = "task_deleted"
	EventTasksAssigned EventType = "tasks_assigned"
	EventTaskSubmitted EventType = "task_submitted"
	EventTaskGraded    EventType = "task_graded"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Email  string      `json:"email,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TaskCreatedPayload payload.
type TaskCreatedPayload struct {
	Title     string        `json:"title"`
	Domain    domain.Domain `json:"domain"`
	Level     int           `json:"level"`
	CreatedBy string        `json:"created_by"`
}

// TaskDeletedPayload payload.
type TaskDeletedPayload struct {
	TaskID string `json:"task_id"`
}

// TasksAssignedPayload payload.
type TasksAssignedPayload struct {
	Domain  domain.Domain `json:"domain"`
	TaskIDs []string      `json:"task_ids"`
}

// TaskSubmittedPayload payload.
type TaskSubmittedPayload struct {
	TaskID         string  `json:"task_id"`
	GithubLink     string  `json:"github_link"`
	DeploymentLink *string `json:"deployment_link,omitempty"`
	Resubmission   bool    `json:"resubmission"`
}

// TaskGradedPayload payload.
type TaskGradedPayload struct {
	TaskID    string       `json:"task_id"`
	UserEmail string       `json:"user_email"`
	Grade     domain.Grade `json:"grade"`
}
