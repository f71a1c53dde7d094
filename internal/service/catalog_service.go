package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/intern-service/internal/domain"
	"github.com/spec-kit/intern-service/internal/events"
	"github.com/spec-kit/intern-service/internal/repository"
	apperrors "github.com/spec-kit/intern-service/pkg/util"
)

// CreateTaskInput describes a new catalog entry. Level 0 means "not provided".
type CreateTaskInput struct {
	Title       string
	Description string
	Domain      domain.Domain
	Level       int
	CreatedBy   string
}

// CatalogService manages the task catalog.
type CatalogService struct {
	tasks      repository.TaskRepository
	dispatcher events.Dispatcher
}

// CatalogDependencies bundles repositories.
type CatalogDependencies struct {
	TaskRepo   repository.TaskRepository
	Dispatcher events.Dispatcher
}

// NewCatalogService creates the service.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	return &CatalogService{
		tasks:      deps.TaskRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTask validates and stores a task.
func (s *CatalogService) CreateTask(ctx context.Context, actor *domain.Session, in CreateTaskInput) (*domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.Domain == "" {
		return nil, apperrors.NewValidationError("title and domain are required", nil)
	}
	if !in.Domain.Valid() {
		return nil, apperrors.NewValidationError("unknown domain", map[string]any{"domain": string(in.Domain), "allowed": domain.Domains})
	}
	level := in.Level
	if level == 0 {
		level = domain.DefaultTaskLevel
	}
	if level < domain.MinTaskLevel || level > domain.MaxTaskLevel {
		return nil, apperrors.NewValidationError("level out of range", map[string]any{
			"level": in.Level,
			"min":   domain.MinTaskLevel,
			"max":   domain.MaxTaskLevel,
		})
	}
	createdBy := strings.ToLower(strings.TrimSpace(in.CreatedBy))
	if createdBy == "" {
		createdBy = domain.DefaultCreatedBy
	}

	task := &domain.Task{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Domain:      in.Domain,
		Level:       level,
		CreatedBy:   createdBy,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventTaskCreated, task.ID, actor, events.TaskCreatedPayload{
		Title:     task.Title,
		Domain:    task.Domain,
		Level:     task.Level,
		CreatedBy: task.CreatedBy,
	})
	return task, nil
}

// ListAll returns every task, newest first.
func (s *CatalogService) ListAll(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.tasks.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(tasks) == 0 {
		return nil, apperrors.NewNotFound("tasks", nil)
	}
	return tasks, nil
}

// ListByDomain returns the domain's tasks in assignment order.
func (s *CatalogService) ListByDomain(ctx context.Context, d domain.Domain) ([]domain.Task, error) {
	if !d.Valid() {
		return nil, apperrors.NewValidationError("unknown domain", map[string]any{"domain": string(d)})
	}
	tasks, err := s.tasks.ListByDomain(ctx, d)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tasks, nil
}

// DeleteTask removes a task. Existing assignments of the task are kept.
func (s *CatalogService) DeleteTask(ctx context.Context, actor *domain.Session, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("task id is required", nil)
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("task", map[string]any{"task_id": id})
		}
		return apperrors.MapError(err)
	}
	s.publish(ctx, events.EventTaskDeleted, id, actor, events.TaskDeletedPayload{TaskID: id})
	return nil
}

func (s *CatalogService) publish(ctx context.Context, eventType events.EventType, subjectID string, actor *domain.Session, payload interface{}) {
	publishEvent(ctx, s.dispatcher, eventType, subjectID, actor, payload)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, eventType events.EventType, subjectID string, actor *domain.Session, payload interface{}) {
	if dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
	if actor != nil {
		event.Actor = events.Actor{UserID: actor.UserID, Email: actor.Email, Role: actor.Role}
	}
	_ = dispatcher.Publish(ctx, event)
}
