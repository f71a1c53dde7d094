package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/intern-service/internal/domain"
	"github.com/spec-kit/intern-service/internal/events"
	apperrors "github.com/spec-kit/intern-service/pkg/util"
)

func setupWebIntern(t *testing.T, h *harness, taskCount int) (*domain.User, []*domain.Task) {
	t.Helper()
	user := h.register(t, "jane@example.com")
	tasks := make([]*domain.Task, 0, taskCount)
	for i := 0; i < taskCount; i++ {
		tasks = append(tasks, h.addTask(t, "web task", domain.DomainWeb, taskCount-i))
	}
	h.addTask(t, "ai task", domain.DomainAI, 1)
	_, err := h.identity.SelectDomain(context.Background(), user.Email, domain.DomainWeb)
	require.NoError(t, err)
	return user, tasks
}

func TestAssignDomainTasksCreatesPendingSet(t *testing.T) {
	h := newHarness(t)
	user, tasks := setupWebIntern(t, h, 3)

	assignments, created, err := h.ledger.AssignDomainTasks(context.Background(), nil, user.Email, domain.DomainWeb)
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, assignments, 3)

	for i, a := range assignments {
		assert.Equal(t, user.ID, a.UserID)
		assert.Equal(t, tasks[i].ID, a.TaskID, "assignments follow catalog order")
		assert.Equal(t, domain.AssignmentPending, a.Status)
		assert.Nil(t, a.Grade)
		assert.Nil(t, a.GithubLink)
		assert.True(t, a.AssignedAt.Equal(assignments[0].AssignedAt), "one assignedAt for the whole set")
	}
	assert.Contains(t, h.eventTypes(), events.EventTasksAssigned)
}

func TestAssignDomainTasksIsIdempotent(t *testing.T) {
	h := newHarness(t)
	user, _ := setupWebIntern(t, h, 2)
	ctx := context.Background()

	first, created, err := h.ledger.AssignDomainTasks(ctx, nil, user.Email, domain.DomainWeb)
	require.NoError(t, err)
	require.True(t, created)

	h.addTask(t, "late addition", domain.DomainWeb, 1)

	second, created, err := h.ledger.AssignDomainTasks(ctx, nil, user.Email, domain.DomainWeb)
	require.NoError(t, err)
	assert.False(t, created)
	assert.ElementsMatch(t, ids(first), ids(second), "existing set returned unchanged")
	assert.Equal(t, 1, h.stores.Assignments.BatchInserts())
}

func TestAssignDomainTasksConcurrentCallsCreateOneSet(t *testing.T) {
	h := newHarness(t)
	user, _ := setupWebIntern(t, h, 4)
	const callers = 10

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		creators int
		results  [][]domain.Assignment
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assignments, created, err := h.ledger.AssignDomainTasks(context.Background(), nil, user.Email, domain.DomainWeb)
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			if created {
				creators++
			}
			results = append(results, assignments)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, creators)
	assert.Equal(t, 1, h.stores.Assignments.BatchInserts())
	count, err := h.stores.Assignments.CountByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	for _, r := range results {
		assert.Len(t, r, 4)
	}
	// one for the domain selection in setup
	assert.Equal(t, callers+1, h.locker.Acquisitions())
}

func TestAssignDomainTasksFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		h := newHarness(t)
		_, _, err := h.ledger.AssignDomainTasks(ctx, nil, "ghost@example.com", domain.DomainWeb)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	})

	t.Run("domain not selected", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, "jane@example.com")
		h.addTask(t, "x", domain.DomainWeb, 1)
		_, _, err := h.ledger.AssignDomainTasks(ctx, nil, "jane@example.com", domain.DomainWeb)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	})

	t.Run("domain mismatch", func(t *testing.T) {
		h := newHarness(t)
		user, _ := setupWebIntern(t, h, 1)
		_, _, err := h.ledger.AssignDomainTasks(ctx, nil, user.Email, domain.DomainAI)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
		count, _ := h.stores.Assignments.CountByUser(ctx, user.ID)
		assert.Zero(t, count)
	})

	t.Run("empty catalog", func(t *testing.T) {
		h := newHarness(t)
		user := h.register(t, "jane@example.com")
		_, err := h.identity.SelectDomain(ctx, user.Email, domain.DomainBlockchain)
		require.NoError(t, err)
		_, _, err = h.ledger.AssignDomainTasks(ctx, nil, user.Email, domain.DomainBlockchain)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeEmptyCatalog))
		assert.Equal(t, 404, apperrors.ToDomainError(err).HTTPStatus)
	})

	t.Run("lock wait cancelled", func(t *testing.T) {
		h := newHarness(t)
		user, _ := setupWebIntern(t, h, 1)
		release, err := h.locker.Acquire(ctx, "assign-lock:"+user.ID, time.Second)
		require.NoError(t, err)
		defer release()

		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, _, err = h.ledger.AssignDomainTasks(short, nil, user.Email, domain.DomainWeb)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	})
}

func TestSubmitTransitions(t *testing.T) {
	h := newHarness(t)
	user, tasks := setupWebIntern(t, h, 2)
	ctx := context.Background()
	_, _, err := h.ledger.AssignDomainTasks(ctx, nil, user.Email, domain.DomainWeb)
	require.NoError(t, err)
	taskID := tasks[0].ID

	_, err = h.ledger.Submit(ctx, nil, "missing-task", user.ID, "https://github.com/jane/x", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = h.ledger.Submit(ctx, nil, taskID, user.ID, "  ", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	stored, err := h.stores.Assignments.GetByUserAndTask(ctx, user.ID, taskID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentPending, stored.Status, "failed submit leaves status unchanged")

	submitted, err := h.ledger.Submit(ctx, nil, taskID, user.ID, "https://github.com/jane/x", "https://x.example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentSubmitted, submitted.Status)
	assert.Equal(t, "https://x.example.com", *submitted.DeploymentLink)

	resubmitted, err := h.ledger.Submit(ctx, nil, taskID, user.ID, "https://github.com/jane/x-v2", "")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/jane/x-v2", *resubmitted.GithubLink)
	assert.Equal(t, "https://x.example.com", *resubmitted.DeploymentLink)

	_, err = h.ledger.Grade(ctx, nil, user.Email, taskID, "A", "great")
	require.NoError(t, err)

	_, err = h.ledger.Submit(ctx, nil, taskID, user.ID, "https://github.com/jane/x-v3", "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	graded, err := h.stores.Assignments.GetByUserAndTask(ctx, user.ID, taskID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentGraded, graded.Status)
	assert.Equal(t, "https://github.com/jane/x-v2", *graded.GithubLink, "graded submissions are frozen")
}

func TestGrade(t *testing.T) {
	h := newHarness(t)
	user, tasks := setupWebIntern(t, h, 2)
	ctx := context.Background()
	_, _, err := h.ledger.AssignDomainTasks(ctx, nil, user.Email, domain.DomainWeb)
	require.NoError(t, err)

	_, err = h.ledger.Grade(ctx, nil, user.Email, tasks[0].ID, "B+", "ok")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "pending assignments cannot be graded")

	_, err = h.ledger.Submit(ctx, nil, tasks[0].ID, user.ID, "https://github.com/jane/x", "")
	require.NoError(t, err)

	_, err = h.ledger.Grade(ctx, nil, user.Email, tasks[0].ID, "E", "ok")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = h.ledger.Grade(ctx, nil, user.Email, tasks[0].ID, "B+", "  ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = h.ledger.Grade(ctx, nil, "ghost@example.com", tasks[0].ID, "B+", "ok")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	graded, err := h.ledger.Grade(ctx, nil, "JANE@example.com", tasks[0].ID, "B+", "solid work")
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentGraded, graded.Status)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, domain.Grade("B+"), *graded.Grade)
	assert.Equal(t, "solid work", *graded.Feedback)

	_, err = h.ledger.Grade(ctx, nil, user.Email, tasks[0].ID, "A", "again")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "a graded assignment is no longer a submission")

	stored, err := h.stores.Assignments.GetByUserAndTask(ctx, user.ID, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Grade("B+"), *stored.Grade)
	assert.Contains(t, h.eventTypes(), events.EventTaskGraded)
}

func TestListSubmitted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ledger.ListSubmitted(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoSubmissions))
	assert.Equal(t, 403, apperrors.ToDomainError(err).HTTPStatus)

	user, tasks := setupWebIntern(t, h, 2)
	_, _, err = h.ledger.AssignDomainTasks(ctx, nil, user.Email, domain.DomainWeb)
	require.NoError(t, err)
	_, err = h.ledger.Submit(ctx, nil, tasks[1].ID, user.ID, "https://github.com/jane/y", "")
	require.NoError(t, err)

	views, err := h.ledger.ListSubmitted(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, user.Email, views[0].UserEmail)
	assert.Equal(t, tasks[1].Title, views[0].Task.Title)

	h.stores.Users.Delete(user.ID)
	views, err = h.ledger.ListSubmitted(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Unknown", views[0].UserEmail)
}

func TestListForUserOrdering(t *testing.T) {
	h := newHarness(t)
	user, tasks := setupWebIntern(t, h, 3)
	ctx := context.Background()

	_, _, err := h.ledger.ListForEmail(ctx, user.Email)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, _, err = h.ledger.AssignDomainTasks(ctx, nil, user.Email, domain.DomainWeb)
	require.NoError(t, err)

	_, views, err := h.ledger.ListForEmail(ctx, user.Email)
	require.NoError(t, err)
	require.Len(t, views, 3)
	// tasks were created with levels 3, 2, 1
	assert.Equal(t, tasks[2].ID, views[0].Task.ID)
	assert.Equal(t, tasks[1].ID, views[1].Task.ID)
	assert.Equal(t, tasks[0].ID, views[2].Task.ID)
	for _, v := range views {
		assert.Equal(t, domain.AssignmentPending, v.Assignment.Status)
		assert.Equal(t, "web task", v.Task.Title)
	}
}

func ids(assignments []domain.Assignment) []string {
	out := make([]string, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, a.ID)
	}
	return out
}
