package domain

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// AssignmentStatus enumerates the grading lifecycle of an assignment.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentSubmitted AssignmentStatus = "submitted"
	AssignmentGraded    AssignmentStatus = "graded"
)

// Grade is a letter outcome recorded by an admin.
type Grade string

// Grades is ordered best first.
var Grades = []Grade{"A", "A-", "B+", "B", "B-", "C+", "C", "D", "F"}

// ParseGrade returns the grade matching s exactly.
func ParseGrade(s string) (Grade, bool) {
	s = strings.TrimSpace(s)
	for _, g := range Grades {
		if string(g) == s {
			return g, true
		}
	}
	return "", false
}

var (
	ErrMissingRepositoryLink = errors.New("github link required")
	ErrMissingGrade          = errors.New("grade required")
)

// TransitionError is returned when the state machine refuses a move.
type TransitionError struct {
	From AssignmentStatus
	To   AssignmentStatus
}

func (e *TransitionError) Error() string {
	return "invalid assignment transition from " + string(e.From) + " to " + string(e.To)
}

// Assignment links one user to one task.
type Assignment struct {
	ID             string
	UserID         string
	TaskID         string
	Status         AssignmentStatus
	GithubLink     *string
	DeploymentLink *string
	Feedback       *string
	Grade          *Grade
	AssignedAt     time.Time
	UpdatedAt      time.Time
}

// NewPendingAssignment builds the initial record for a (user, task) pair.
func NewPendingAssignment(userID, taskID string, at time.Time) Assignment {
	return Assignment{
		UserID:     userID,
		TaskID:     taskID,
		Status:     AssignmentPending,
		AssignedAt: at,
		UpdatedAt:  at,
	}
}

// SubmittableFrom lists the statuses submit may start from.
func SubmittableFrom() []AssignmentStatus {
	return []AssignmentStatus{AssignmentPending, AssignmentSubmitted}
}

// GradableFrom lists the statuses grade may start from.
func GradableFrom() []AssignmentStatus {
	return []AssignmentStatus{AssignmentSubmitted}
}

// Submit records the submission links and moves the assignment to submitted.
// A submitted assignment may be re-submitted; a graded one is frozen.
func (a *Assignment) Submit(githubLink, deploymentLink string) error {
	githubLink = strings.TrimSpace(githubLink)
	if githubLink == "" {
		return ErrMissingRepositoryLink
	}
	if a.Status != AssignmentPending && a.Status != AssignmentSubmitted {
		return &TransitionError{From: a.Status, To: AssignmentSubmitted}
	}
	a.GithubLink = &githubLink
	deploymentLink = strings.TrimSpace(deploymentLink)
	switch {
	case deploymentLink != "":
		a.DeploymentLink = &deploymentLink
	case a.DeploymentLink == nil:
		empty := ""
		a.DeploymentLink = &empty
	}
	a.Status = AssignmentSubmitted
	return nil
}

// Evaluate records the grade and feedback and moves the assignment to graded.
func (a *Assignment) Evaluate(grade Grade, feedback string) error {
	if grade == "" {
		return ErrMissingGrade
	}
	if a.Status != AssignmentSubmitted {
		return &TransitionError{From: a.Status, To: AssignmentGraded}
	}
	a.Grade = &grade
	a.Feedback = &feedback
	a.Status = AssignmentGraded
	return nil
}

// AssignmentView is an assignment joined with its task.
type AssignmentView struct {
	Assignment Assignment
	Task       Task
}

// SubmissionView is a submitted assignment joined with its task and owner email.
type SubmissionView struct {
	AssignmentView
	UserEmail string
}

// SortAssignmentViews orders views most recently assigned first, then easiest task first.
func SortAssignmentViews(views []AssignmentView) {
	sort.SliceStable(views, func(i, j int) bool {
		ai, aj := views[i].Assignment.AssignedAt, views[j].Assignment.AssignedAt
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		if views[i].Task.Level != views[j].Task.Level {
			return views[i].Task.Level < views[j].Task.Level
		}
		return views[i].Task.CreatedAt.Before(views[j].Task.CreatedAt)
	})
}
