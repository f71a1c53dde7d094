package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/intern-service/internal/config"
	"github.com/spec-kit/intern-service/internal/domain"
	"github.com/spec-kit/intern-service/internal/events"
	"github.com/spec-kit/intern-service/internal/repository"
	apperrors "github.com/spec-kit/intern-service/pkg/util"
)

// Locker serialises work on a named resource across service instances.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), err error)
}

// lockUser takes the per-user ledger lock shared by bulk assignment and domain selection.
// A nil locker yields a no-op release.
func lockUser(ctx context.Context, locker Locker, ttl time.Duration, user *domain.User) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}
	release, err := locker.Acquire(ctx, "assign-lock:"+user.ID, ttl)
	if err != nil {
		return nil, apperrors.NewConflict("another update for this user is in progress", map[string]any{"email": user.Email})
	}
	return release, nil
}

// AssignmentService runs the task assignment ledger.
type AssignmentService struct {
	users       repository.UserRepository
	catalog     *CatalogService
	assignments repository.AssignmentRepository
	locker      Locker
	lockTTL     time.Duration
	dispatcher  events.Dispatcher
	now         func() time.Time
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	UserRepo       repository.UserRepository
	Catalog        *CatalogService
	AssignmentRepo repository.AssignmentRepository
	Locker         Locker
	Dispatcher     events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(cfg config.Config, deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		users:       deps.UserRepo,
		catalog:     deps.Catalog,
		assignments: deps.AssignmentRepo,
		locker:      deps.Locker,
		lockTTL:     cfg.Assignment.LockTTL(),
		dispatcher:  deps.Dispatcher,
		now:         time.Now,
	}
}

// AssignDomainTasks gives the user one pending assignment per task of the domain.
// A user who already holds assignments gets the existing set back with created=false.
func (s *AssignmentService) AssignDomainTasks(ctx context.Context, actor *domain.Session, email string, d domain.Domain) ([]domain.Assignment, bool, error) {
	if strings.TrimSpace(email) == "" || d == "" {
		return nil, false, apperrors.NewValidationError("email and domain are required", nil)
	}
	if !d.Valid() {
		return nil, false, apperrors.NewValidationError("unknown domain", map[string]any{"domain": string(d), "allowed": domain.Domains})
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}

	release, err := lockUser(ctx, s.locker, s.lockTTL, user)
	if err != nil {
		return nil, false, err
	}
	defer release()

	// The domain may have changed while waiting for the lock.
	user, err = s.users.GetByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, false, apperrors.MapError(err)
	}

	existing, err := s.assignments.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, false, apperrors.MapError(err)
	}
	if len(existing) > 0 {
		return existing, false, nil
	}

	if user.DomainValue() != d {
		return nil, false, domainMismatch(d, user.DomainValue())
	}

	tasks, err := s.catalog.ListByDomain(ctx, d)
	if err != nil {
		return nil, false, err
	}
	if len(tasks) == 0 {
		return nil, false, apperrors.NewEmptyCatalog(string(d))
	}

	at := s.now().UTC()
	batch := make([]domain.Assignment, 0, len(tasks))
	taskIDs := make([]string, 0, len(tasks))
	for _, task := range tasks {
		batch = append(batch, domain.NewPendingAssignment(user.ID, task.ID, at))
		taskIDs = append(taskIDs, task.ID)
	}

	result, created, err := s.assignments.CreateBatchForUser(ctx, user.ID, d, batch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDomainMismatch):
			current, lookupErr := s.users.GetByID(ctx, user.ID)
			if lookupErr != nil {
				return nil, false, apperrors.MapError(lookupErr)
			}
			return nil, false, domainMismatch(d, current.DomainValue())
		case errors.Is(err, pgx.ErrNoRows):
			return nil, false, apperrors.NewNotFound("user", map[string]any{"email": email})
		case errors.Is(err, repository.ErrDuplicate):
			existing, listErr := s.assignments.ListByUser(ctx, user.ID)
			if listErr != nil {
				return nil, false, apperrors.MapError(listErr)
			}
			return existing, false, nil
		}
		return nil, false, apperrors.MapError(err)
	}
	if created {
		publishEvent(ctx, s.dispatcher, events.EventTasksAssigned, user.ID, actor, events.TasksAssignedPayload{
			Domain:  d,
			TaskIDs: taskIDs,
		})
	}
	return result, created, nil
}

// Submit records the intern's links for one assignment.
func (s *AssignmentService) Submit(ctx context.Context, actor *domain.Session, taskID, userID, githubLink, deploymentLink string) (*domain.Assignment, error) {
	if strings.TrimSpace(taskID) == "" || strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewValidationError("task id and user id are required", nil)
	}
	assignment, err := s.assignments.GetByUserAndTask(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task assignment", map[string]any{"task_id": taskID, "user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}

	resubmission := assignment.Status == domain.AssignmentSubmitted
	if err := assignment.Submit(githubLink, deploymentLink); err != nil {
		return nil, transitionErr(err)
	}
	if err := s.assignments.UpdateState(ctx, assignment, domain.SubmittableFrom()); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, apperrors.NewInvalidTransition(string(domain.AssignmentGraded), string(domain.AssignmentSubmitted))
		}
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.EventTaskSubmitted, assignment.ID, actor, events.TaskSubmittedPayload{
		TaskID:         taskID,
		GithubLink:     *assignment.GithubLink,
		DeploymentLink: assignment.DeploymentLink,
		Resubmission:   resubmission,
	})
	return assignment, nil
}

// ListSubmitted returns every assignment awaiting a grade.
func (s *AssignmentService) ListSubmitted(ctx context.Context) ([]domain.SubmissionView, error) {
	views, err := s.assignments.ListSubmitted(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(views) == 0 {
		return nil, apperrors.NewNoSubmissions()
	}
	return views, nil
}

// Grade closes a submitted assignment with a grade and feedback.
func (s *AssignmentService) Grade(ctx context.Context, actor *domain.Session, email, taskID, grade, feedback string) (*domain.Assignment, error) {
	feedback = strings.TrimSpace(feedback)
	if strings.TrimSpace(email) == "" || strings.TrimSpace(taskID) == "" || strings.TrimSpace(grade) == "" || feedback == "" {
		return nil, apperrors.NewValidationError("email, task id, grade and feedback are required", nil)
	}
	parsed, ok := domain.ParseGrade(grade)
	if !ok {
		return nil, apperrors.NewValidationError("unknown grade", map[string]any{"grade": grade, "allowed": domain.Grades})
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	notFound := apperrors.NewNotFound("submission", map[string]any{"email": user.Email, "task_id": taskID})
	assignment, err := s.assignments.GetByUserAndTask(ctx, user.ID, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, apperrors.MapError(err)
	}
	if assignment.Status != domain.AssignmentSubmitted {
		return nil, notFound
	}
	if err := assignment.Evaluate(parsed, feedback); err != nil {
		return nil, transitionErr(err)
	}
	if err := s.assignments.UpdateState(ctx, assignment, domain.GradableFrom()); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, notFound
		}
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.EventTaskGraded, assignment.ID, actor, events.TaskGradedPayload{
		TaskID:    taskID,
		UserEmail: user.Email,
		Grade:     parsed,
	})
	return assignment, nil
}

// ListForUser returns the user's assignments joined with their tasks.
func (s *AssignmentService) ListForUser(ctx context.Context, userID string) ([]domain.AssignmentView, error) {
	views, err := s.assignments.ListViewsByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	domain.SortAssignmentViews(views)
	return views, nil
}

// ListForEmail resolves the user and lists their assignments. An empty list is NotFound.
func (s *AssignmentService) ListForEmail(ctx context.Context, email string) (*domain.User, []domain.AssignmentView, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	views, err := s.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(views) == 0 {
		return nil, nil, apperrors.NewNotFound("tasks for user", map[string]any{"email": user.Email})
	}
	return user, views, nil
}

func (s *AssignmentService) userByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.NewValidationError("email is required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func transitionErr(err error) error {
	var transition *domain.TransitionError
	switch {
	case errors.As(err, &transition):
		return apperrors.NewInvalidTransition(string(transition.From), string(transition.To))
	case errors.Is(err, domain.ErrMissingRepositoryLink):
		return apperrors.NewValidationError("github link is required", nil)
	case errors.Is(err, domain.ErrMissingGrade):
		return apperrors.NewValidationError("grade is required", nil)
	default:
		return apperrors.MapError(err)
	}
}

func domainMismatch(requested, selected domain.Domain) error {
	if selected == "" {
		return apperrors.NewValidationError("select a domain before requesting tasks", map[string]any{"requested": string(requested)})
	}
	return apperrors.NewValidationError("domain does not match the selected domain", map[string]any{
		"requested": string(requested),
		"selected":  string(selected),
	})
}
