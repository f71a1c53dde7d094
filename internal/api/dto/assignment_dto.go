package dto

import (
	"time"

	"github.com/spec-kit/intern-service/internal/domain"
)

// SubmitTaskRequest payload for submit-task.
type SubmitTaskRequest struct {
	TaskID         string `json:"taskId" validate:"required"`
	UserID         string `json:"userId" validate:"required"`
	GithubLink     string `json:"githubLink"`
	DeploymentLink string `json:"deploymentLink"`
}

// FeedbackRequest payload for grading a submission.
type FeedbackRequest struct {
	Email    string `json:"email" validate:"required,email"`
	TaskID   string `json:"taskId" validate:"required"`
	Grade    string `json:"grade" validate:"required"`
	Feedback string `json:"feedback" validate:"required"`
}

// AssignmentResponse is the raw ledger record.
// GithubLink and DeploymentLink keep the capitalised keys existing clients read.
type AssignmentResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	TaskID         string    `json:"taskId"`
	Status         string    `json:"status"`
	GithubLink     *string   `json:"GithubLink"`
	DeploymentLink *string   `json:"DeploymentLink"`
	Feedback       *string   `json:"feedback"`
	Grade          *string   `json:"grade"`
	AssignedAt     time.Time `json:"assignedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewAssignmentResponse maps a ledger record.
func NewAssignmentResponse(a *domain.Assignment) AssignmentResponse {
	resp := AssignmentResponse{
		ID:             a.ID,
		UserID:         a.UserID,
		TaskID:         a.TaskID,
		Status:         string(a.Status),
		GithubLink:     a.GithubLink,
		DeploymentLink: a.DeploymentLink,
		Feedback:       a.Feedback,
		AssignedAt:     a.AssignedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if a.Grade != nil {
		g := string(*a.Grade)
		resp.Grade = &g
	}
	return resp
}

// NewAssignmentList maps ledger records.
func NewAssignmentList(assignments []domain.Assignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		out = append(out, NewAssignmentResponse(&assignments[i]))
	}
	return out
}

// AssignmentViewResponse flattens an assignment and its task. ID is the task id.
type AssignmentViewResponse struct {
	ID             string    `json:"id"`
	AssignmentID   string    `json:"assignmentId"`
	UserID         string    `json:"userId"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Domain         string    `json:"domain"`
	Level          int       `json:"level"`
	Status         string    `json:"status"`
	AssignedAt     time.Time `json:"assignedAt"`
	GithubLink     *string   `json:"GithubLink"`
	DeploymentLink *string   `json:"DeploymentLink"`
	Feedback       *string   `json:"feedback"`
	Grade          *string   `json:"grade"`
	CreatedBy      string    `json:"createdBy"`
}

// SubmissionResponse is a view with the owner's email.
type SubmissionResponse struct {
	AssignmentViewResponse
	UserEmail string `json:"userEmail"`
}

// NewAssignmentViewResponse maps a joined view.
func NewAssignmentViewResponse(v *domain.AssignmentView) AssignmentViewResponse {
	a := NewAssignmentResponse(&v.Assignment)
	return AssignmentViewResponse{
		ID:             v.Task.ID,
		AssignmentID:   a.ID,
		UserID:         a.UserID,
		Title:          v.Task.Title,
		Description:    v.Task.Description,
		Domain:         string(v.Task.Domain),
		Level:          v.Task.Level,
		Status:         a.Status,
		AssignedAt:     a.AssignedAt,
		GithubLink:     a.GithubLink,
		DeploymentLink: a.DeploymentLink,
		Feedback:       a.Feedback,
		Grade:          a.Grade,
		CreatedBy:      v.Task.CreatedBy,
	}
}

// NewAssignmentViewList maps joined views.
func NewAssignmentViewList(views []domain.AssignmentView) []AssignmentViewResponse {
	out := make([]AssignmentViewResponse, 0, len(views))
	for i := range views {
		out = append(out, NewAssignmentViewResponse(&views[i]))
	}
	return out
}

// NewSubmissionList maps submitted views.
func NewSubmissionList(views []domain.SubmissionView) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(views))
	for i := range views {
		out = append(out, SubmissionResponse{
			AssignmentViewResponse: NewAssignmentViewResponse(&views[i].AssignmentView),
			UserEmail:              views[i].UserEmail,
		})
	}
	return out
}
