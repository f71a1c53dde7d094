package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/intern-service/internal/domain"
)

// TaskRepository encapsulates task catalog persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListAll(ctx context.Context) ([]domain.Task, error)
	ListByDomain(ctx context.Context, d domain.Domain) ([]domain.Task, error)
	Delete(ctx context.Context, id string) error
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, title, description, domain, level, created_by, created_at`

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (title, description, domain, level, created_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		task.Title,
		task.Description,
		string(task.Domain),
		task.Level,
		task.CreatedBy,
	).Scan(&task.ID, &task.CreatedAt)
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id=$1`
	var task domain.Task
	if err := scanTask(r.pool.QueryRow(ctx, query, id), &task); err != nil {
		return nil, normalizeLookupErr(err)
	}
	return &task, nil
}

func (r *taskRepository) ListAll(ctx context.Context) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC, id`
	return r.list(ctx, query)
}

func (r *taskRepository) ListByDomain(ctx context.Context, d domain.Domain) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE domain=$1 ORDER BY created_at ASC, id`
	return r.list(ctx, query, string(d))
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return normalizeLookupErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) list(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Task
	for rows.Next() {
		var task domain.Task
		if err := scanTask(rows, &task); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

func scanTask(row pgx.Row, task *domain.Task) error {
	var taskDomain string
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&taskDomain,
		&task.Level,
		&task.CreatedBy,
		&task.CreatedAt,
	); err != nil {
		return err
	}
	task.Domain = domain.Domain(taskDomain)
	return nil
}
