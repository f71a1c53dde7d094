//go:build integration

package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/intern-service/internal/domain"
	"github.com/spec-kit/intern-service/internal/persistence"
	"github.com/spec-kit/intern-service/internal/repository"
)

// Run with: INTERN_TEST_POSTGRES_DSN=postgres://... go test -tags integration ./internal/repository/...
type pgFixture struct {
	pool        *pgxpool.Pool
	users       repository.UserRepository
	tasks       repository.TaskRepository
	assignments repository.AssignmentRepository
}

func connectTestDB(t *testing.T) *pgFixture {
	t.Helper()

	dsn := os.Getenv("INTERN_TEST_POSTGRES_DSN")
	if dsn == "" {
		dsn = os.Getenv("POSTGRES_DSN")
	}
	if dsn == "" {
		t.Skip("missing test DB: set INTERN_TEST_POSTGRES_DSN (or POSTGRES_DSN)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()))

	return &pgFixture{
		pool:        pool,
		users:       repository.NewUserRepository(pool),
		tasks:       repository.NewTaskRepository(pool),
		assignments: repository.NewAssignmentRepository(pool),
	}
}

func (f *pgFixture) createUser(t *testing.T, d domain.Domain) *domain.User {
	t.Helper()
	user := &domain.User{
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        "it-" + uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleIntern,
	}
	if d != "" {
		user.Domain = &d
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = f.pool.Exec(ctx, `DELETE FROM task_assignments WHERE user_id=$1`, user.ID)
		_, _ = f.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, user.ID)
	})
	return user
}

func (f *pgFixture) createTask(t *testing.T, d domain.Domain, level int) *domain.Task {
	t.Helper()
	task := &domain.Task{Title: "task " + uuid.NewString(), Domain: d, Level: level, CreatedBy: "admin"}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	t.Cleanup(func() {
		_, _ = f.pool.Exec(context.Background(), `DELETE FROM tasks WHERE id=$1`, task.ID)
	})
	return task
}

func pendingBatch(userID string, at time.Time, tasks ...*domain.Task) []domain.Assignment {
	batch := make([]domain.Assignment, 0, len(tasks))
	for _, task := range tasks {
		batch = append(batch, domain.NewPendingAssignment(userID, task.ID, at))
	}
	return batch
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func TestCreateBatchForUserConcurrentCallsInsertOnce(t *testing.T) {
	f := connectTestDB(t)
	user := f.createUser(t, domain.DomainWeb)
	tasks := []*domain.Task{
		f.createTask(t, domain.DomainWeb, 1),
		f.createTask(t, domain.DomainWeb, 2),
		f.createTask(t, domain.DomainWeb, 3),
	}
	at := now()

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		creators int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, created, err := f.assignments.CreateBatchForUser(context.Background(), user.ID, domain.DomainWeb, pendingBatch(user.ID, at, tasks...))
			assert.NoError(t, err)
			assert.Len(t, result, len(tasks))
			if created {
				mu.Lock()
				creators++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, creators)
	count, err := f.assignments.CountByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, len(tasks), count)
}

func TestCreateBatchForUserChecksStoredDomain(t *testing.T) {
	f := connectTestDB(t)
	ctx := context.Background()
	task := f.createTask(t, domain.DomainWeb, 1)

	unset := f.createUser(t, "")
	_, _, err := f.assignments.CreateBatchForUser(ctx, unset.ID, domain.DomainWeb, pendingBatch(unset.ID, now(), task))
	assert.ErrorIs(t, err, repository.ErrDomainMismatch)

	other := f.createUser(t, domain.DomainAI)
	_, _, err = f.assignments.CreateBatchForUser(ctx, other.ID, domain.DomainWeb, pendingBatch(other.ID, now(), task))
	assert.ErrorIs(t, err, repository.ErrDomainMismatch)

	count, err := f.assignments.CountByUser(ctx, other.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, _, err = f.assignments.CreateBatchForUser(ctx, uuid.NewString(), domain.DomainWeb, nil)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestUpdateDomainAndBatchInsertSerialise(t *testing.T) {
	f := connectTestDB(t)
	ctx := context.Background()
	task := f.createTask(t, domain.DomainWeb, 1)

	for i := 0; i < 10; i++ {
		user := f.createUser(t, domain.DomainWeb)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = f.assignments.CreateBatchForUser(ctx, user.ID, domain.DomainWeb, pendingBatch(user.ID, now(), task))
		}()
		go func() {
			defer wg.Done()
			_ = f.users.UpdateDomain(ctx, user.ID, domain.DomainAI)
		}()
		wg.Wait()

		stored, err := f.users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		count, err := f.assignments.CountByUser(ctx, user.ID)
		require.NoError(t, err)
		if count > 0 {
			assert.Equal(t, domain.DomainWeb, stored.DomainValue(), "assigned user kept the task domain")
		} else {
			assert.Equal(t, domain.DomainAI, stored.DomainValue())
		}
	}
}

func TestUpdateDomainLockedByAssignments(t *testing.T) {
	f := connectTestDB(t)
	ctx := context.Background()
	user := f.createUser(t, domain.DomainWeb)
	task := f.createTask(t, domain.DomainWeb, 1)

	require.NoError(t, f.users.UpdateDomain(ctx, user.ID, domain.DomainWeb))
	_, created, err := f.assignments.CreateBatchForUser(ctx, user.ID, domain.DomainWeb, pendingBatch(user.ID, now(), task))
	require.NoError(t, err)
	require.True(t, created)

	assert.ErrorIs(t, f.users.UpdateDomain(ctx, user.ID, domain.DomainAI), repository.ErrDomainLocked)
	assert.NoError(t, f.users.UpdateDomain(ctx, user.ID, domain.DomainWeb))
	assert.ErrorIs(t, f.users.UpdateDomain(ctx, uuid.NewString(), domain.DomainAI), pgx.ErrNoRows)
}

func TestUpdateStateIsConditional(t *testing.T) {
	f := connectTestDB(t)
	ctx := context.Background()
	user := f.createUser(t, domain.DomainWeb)
	task := f.createTask(t, domain.DomainWeb, 1)
	_, _, err := f.assignments.CreateBatchForUser(ctx, user.ID, domain.DomainWeb, pendingBatch(user.ID, now(), task))
	require.NoError(t, err)

	a, err := f.assignments.GetByUserAndTask(ctx, user.ID, task.ID)
	require.NoError(t, err)
	require.NoError(t, a.Submit("https://github.com/jane/site", ""))

	assert.ErrorIs(t, f.assignments.UpdateState(ctx, a, []domain.AssignmentStatus{domain.AssignmentSubmitted}), repository.ErrStaleState)
	require.NoError(t, f.assignments.UpdateState(ctx, a, domain.SubmittableFrom()))

	stored, err := f.assignments.GetByUserAndTask(ctx, user.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentSubmitted, stored.Status)
	require.NotNil(t, stored.GithubLink)
	assert.Equal(t, "https://github.com/jane/site", *stored.GithubLink)

	require.NoError(t, stored.Evaluate("A", "great"))
	require.NoError(t, f.assignments.UpdateState(ctx, stored, domain.GradableFrom()))
	assert.ErrorIs(t, f.assignments.UpdateState(ctx, stored, domain.GradableFrom()), repository.ErrStaleState)
}

func TestListViewsByUserOrdersAndHidesOrphans(t *testing.T) {
	f := connectTestDB(t)
	ctx := context.Background()
	user := f.createUser(t, domain.DomainWeb)
	hard := f.createTask(t, domain.DomainWeb, 3)
	easy := f.createTask(t, domain.DomainWeb, 1)
	doomed := f.createTask(t, domain.DomainWeb, 2)

	_, _, err := f.assignments.CreateBatchForUser(ctx, user.ID, domain.DomainWeb, pendingBatch(user.ID, now(), hard, easy, doomed))
	require.NoError(t, err)
	require.NoError(t, f.tasks.Delete(ctx, doomed.ID))

	views, err := f.assignments.ListViewsByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, easy.ID, views[0].Task.ID)
	assert.Equal(t, hard.ID, views[1].Task.ID)

	count, err := f.assignments.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "deleting a task keeps its assignment")
}

func TestListSubmittedReportsUnknownOwner(t *testing.T) {
	f := connectTestDB(t)
	ctx := context.Background()
	user := f.createUser(t, domain.DomainWeb)
	task := f.createTask(t, domain.DomainWeb, 1)
	_, _, err := f.assignments.CreateBatchForUser(ctx, user.ID, domain.DomainWeb, pendingBatch(user.ID, now(), task))
	require.NoError(t, err)
	a, err := f.assignments.GetByUserAndTask(ctx, user.ID, task.ID)
	require.NoError(t, err)
	require.NoError(t, a.Submit("https://github.com/jane/site", "https://jane.dev"))
	require.NoError(t, f.assignments.UpdateState(ctx, a, domain.SubmittableFrom()))

	find := func() (domain.SubmissionView, bool) {
		views, err := f.assignments.ListSubmitted(ctx)
		require.NoError(t, err)
		for _, v := range views {
			if v.Assignment.ID == a.ID {
				return v, true
			}
		}
		return domain.SubmissionView{}, false
	}

	view, ok := find()
	require.True(t, ok)
	assert.Equal(t, user.Email, view.UserEmail)

	// Removing the owner under the foreign key needs replication mode, which only superusers may set.
	conn, err := f.pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()
	if _, err := conn.Exec(ctx, `SET session_replication_role = replica`); err != nil {
		t.Skipf("cannot bypass the users foreign key: %v", err)
	}
	_, err = conn.Exec(ctx, `DELETE FROM users WHERE id=$1`, user.ID)
	_, _ = conn.Exec(ctx, `SET session_replication_role = origin`)
	require.NoError(t, err)

	view, ok = find()
	require.True(t, ok)
	assert.Equal(t, "Unknown", view.UserEmail)
}
