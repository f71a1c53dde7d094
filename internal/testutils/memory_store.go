// Package testutils provides in-memory stand-ins for the Postgres and Redis backed stores.
package testutils

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/intern-service/internal/domain"
	"github.com/spec-kit/intern-service/internal/repository"
)

// Clock hands out strictly increasing timestamps so ordering by creation time is stable.
type Clock struct {
	mu   sync.Mutex
	next time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{next: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

// Now returns the next tick.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = c.next.Add(time.Millisecond)
	return c.next
}

// Stores groups the in-memory repositories sharing one clock.
type Stores struct {
	Clock       *Clock
	Users       *UserStore
	Tasks       *TaskStore
	Assignments *AssignmentStore
}

// NewStores builds an empty set of repositories.
func NewStores() *Stores {
	clock := NewClock()
	users := &UserStore{clock: clock, byID: map[string]domain.User{}}
	tasks := &TaskStore{clock: clock, byID: map[string]domain.Task{}}
	assignments := &AssignmentStore{clock: clock, users: users, tasks: tasks}
	users.assignments = assignments
	return &Stores{
		Clock:       clock,
		Users:       users,
		Tasks:       tasks,
		Assignments: assignments,
	}
}

// UserStore implements repository.UserRepository.
type UserStore struct {
	mu          sync.RWMutex
	clock       *Clock
	byID        map[string]domain.User
	assignments *AssignmentStore
}

var _ repository.UserRepository = (*UserStore)(nil)

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if domain.NormalizeEmail(existing.Email) == domain.NormalizeEmail(user.Email) {
			return repository.ErrDuplicate
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = s.clock.Now()
	s.byID[user.ID] = cloneUser(*user)
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := cloneUser(user)
	return &clone, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.byID {
		if domain.NormalizeEmail(user.Email) == domain.NormalizeEmail(email) {
			clone := cloneUser(user)
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// UpdateDomain holds the assignment store lock across the check and the write,
// in the same order as AssignmentStore.CreateBatchForUser.
func (s *UserStore) UpdateDomain(_ context.Context, id string, d domain.Domain) error {
	if s.assignments != nil {
		s.assignments.mu.Lock()
		defer s.assignments.mu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if user.DomainValue() == d {
		return nil
	}
	if s.assignments != nil && len(s.assignments.byUserLocked(id)) > 0 {
		return repository.ErrDomainLocked
	}
	user.Domain = &d
	s.byID[id] = user
	return nil
}

// Delete removes a user, leaving their assignments behind.
func (s *UserStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

func (s *UserStore) email(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	return user.Email, ok
}

func (s *UserStore) domainOf(id string) (domain.Domain, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	return user.DomainValue(), ok
}

func cloneUser(u domain.User) domain.User {
	if u.Skills != nil {
		u.Skills = append([]string(nil), u.Skills...)
	}
	if u.Domain != nil {
		d := *u.Domain
		u.Domain = &d
	}
	return u
}

// TaskStore implements repository.TaskRepository.
type TaskStore struct {
	mu    sync.RWMutex
	clock *Clock
	byID  map[string]domain.Task
}

var _ repository.TaskRepository = (*TaskStore)(nil)

func (s *TaskStore) Create(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.ID = uuid.NewString()
	task.CreatedAt = s.clock.Now()
	s.byID[task.ID] = *task
	return nil
}

func (s *TaskStore) GetByID(_ context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &task, nil
}

func (s *TaskStore) ListAll(_ context.Context) ([]domain.Task, error) {
	tasks := s.filter(func(domain.Task) bool { return true })
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

func (s *TaskStore) ListByDomain(_ context.Context, d domain.Domain) ([]domain.Task, error) {
	tasks := s.filter(func(t domain.Task) bool { return t.Domain == d })
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

func (s *TaskStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.byID, id)
	return nil
}

func (s *TaskStore) filter(keep func(domain.Task) bool) []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Task
	for _, t := range s.byID {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// AssignmentStore implements repository.AssignmentRepository.
// CreateBatchForUser is atomic under the store mutex, mirroring the advisory lock of the SQL store.
// Lock order is AssignmentStore.mu before UserStore.mu.
type AssignmentStore struct {
	mu      sync.Mutex
	clock   *Clock
	users   *UserStore
	tasks   *TaskStore
	rows    []domain.Assignment
	inserts int
}

var _ repository.AssignmentRepository = (*AssignmentStore)(nil)

func (s *AssignmentStore) CreateBatchForUser(_ context.Context, userID string, d domain.Domain, assignments []domain.Assignment) ([]domain.Assignment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users.domainOf(userID)
	if !ok {
		return nil, false, pgx.ErrNoRows
	}
	if existing := s.byUserLocked(userID); len(existing) > 0 {
		return existing, false, nil
	}
	if current != d {
		return nil, false, repository.ErrDomainMismatch
	}
	seen := map[string]bool{}
	for _, a := range assignments {
		if seen[a.TaskID] {
			return nil, false, repository.ErrDuplicate
		}
		seen[a.TaskID] = true
	}

	created := make([]domain.Assignment, 0, len(assignments))
	for _, a := range assignments {
		a.ID = uuid.NewString()
		created = append(created, a)
	}
	s.rows = append(s.rows, created...)
	s.inserts++
	return append([]domain.Assignment(nil), created...), true, nil
}

func (s *AssignmentStore) ListByUser(_ context.Context, userID string) ([]domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byUserLocked(userID), nil
}

func (s *AssignmentStore) CountByUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUserLocked(userID)), nil
}

func (s *AssignmentStore) GetByUserAndTask(_ context.Context, userID, taskID string) (*domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.rows {
		if a.UserID == userID && a.TaskID == taskID {
			clone := cloneAssignment(a)
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *AssignmentStore) UpdateState(_ context.Context, a *domain.Assignment, from []domain.AssignmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID != a.ID {
			continue
		}
		allowed := false
		for _, status := range from {
			if s.rows[i].Status == status {
				allowed = true
				break
			}
		}
		if !allowed {
			return repository.ErrStaleState
		}
		a.UpdatedAt = s.clock.Now()
		s.rows[i] = cloneAssignment(*a)
		return nil
	}
	return repository.ErrStaleState
}

func (s *AssignmentStore) ListViewsByUser(ctx context.Context, userID string) ([]domain.AssignmentView, error) {
	assignments, _ := s.ListByUser(ctx, userID)
	var views []domain.AssignmentView
	for _, a := range assignments {
		task, err := s.tasks.GetByID(ctx, a.TaskID)
		if err != nil {
			continue
		}
		views = append(views, domain.AssignmentView{Assignment: a, Task: *task})
	}
	domain.SortAssignmentViews(views)
	return views, nil
}

func (s *AssignmentStore) ListSubmitted(ctx context.Context) ([]domain.SubmissionView, error) {
	s.mu.Lock()
	var submitted []domain.Assignment
	for _, a := range s.rows {
		if a.Status == domain.AssignmentSubmitted {
			submitted = append(submitted, cloneAssignment(a))
		}
	}
	s.mu.Unlock()

	views := make([]domain.AssignmentView, 0, len(submitted))
	for _, a := range submitted {
		task, err := s.tasks.GetByID(ctx, a.TaskID)
		if err != nil {
			continue
		}
		views = append(views, domain.AssignmentView{Assignment: a, Task: *task})
	}
	domain.SortAssignmentViews(views)

	var result []domain.SubmissionView
	for _, view := range views {
		email, ok := s.users.email(view.Assignment.UserID)
		if !ok {
			email = "Unknown"
		}
		result = append(result, domain.SubmissionView{AssignmentView: view, UserEmail: email})
	}
	return result, nil
}

// BatchInserts reports how many CreateBatchForUser calls wrote rows.
func (s *AssignmentStore) BatchInserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts
}

func (s *AssignmentStore) byUserLocked(userID string) []domain.Assignment {
	var out []domain.Assignment
	for _, a := range s.rows {
		if a.UserID == userID {
			out = append(out, cloneAssignment(a))
		}
	}
	return out
}

func cloneAssignment(a domain.Assignment) domain.Assignment {
	a.GithubLink = cloneString(a.GithubLink)
	a.DeploymentLink = cloneString(a.DeploymentLink)
	a.Feedback = cloneString(a.Feedback)
	if a.Grade != nil {
		g := *a.Grade
		a.Grade = &g
	}
	return a
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
