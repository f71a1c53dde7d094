package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/intern-service/internal/domain"
)

// AssignmentRepository persists the task assignment ledger.
type AssignmentRepository interface {
	// CreateBatchForUser inserts assignments for a user who has none, all in one transaction.
	// When the user already holds assignments nothing is written and the existing set is
	// returned with created=false. The user's stored domain must equal d (ErrDomainMismatch).
	CreateBatchForUser(ctx context.Context, userID string, d domain.Domain, assignments []domain.Assignment) (result []domain.Assignment, created bool, err error)
	ListByUser(ctx context.Context, userID string) ([]domain.Assignment, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	GetByUserAndTask(ctx context.Context, userID, taskID string) (*domain.Assignment, error)
	// UpdateState writes the mutable fields of a, provided the stored status is one of from.
	UpdateState(ctx context.Context, a *domain.Assignment, from []domain.AssignmentStatus) error
	ListViewsByUser(ctx context.Context, userID string) ([]domain.AssignmentView, error)
	ListSubmitted(ctx context.Context) ([]domain.SubmissionView, error)
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository builds repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

const assignmentColumns = `a.id, a.user_id, a.task_id, a.status, a.github_link, a.deployment_link,
        a.feedback, a.grade, a.assigned_at, a.updated_at`

func (r *assignmentRepository) CreateBatchForUser(ctx context.Context, userID string, d domain.Domain, assignments []domain.Assignment) ([]domain.Assignment, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Same key as userRepository.UpdateDomain.
	if err := lockUserLedger(ctx, tx, userID); err != nil {
		return nil, false, err
	}

	var current *string
	if err := tx.QueryRow(ctx, `SELECT domain FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&current); err != nil {
		return nil, false, normalizeLookupErr(err)
	}

	existing, err := listAssignments(ctx, tx, userID)
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		return existing, false, nil
	}
	if current == nil || *current != string(d) {
		return nil, false, ErrDomainMismatch
	}

	const insert = `
        INSERT INTO task_assignments (user_id, task_id, status, assigned_at, updated_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`

	batch := &pgx.Batch{}
	for i := range assignments {
		a := assignments[i]
		if a.UserID != userID {
			return nil, false, fmt.Errorf("assignment for user %s in batch of %s", a.UserID, userID)
		}
		batch.Queue(insert, a.UserID, a.TaskID, string(a.Status), a.AssignedAt, a.UpdatedAt)
	}

	results := tx.SendBatch(ctx, batch)
	created := make([]domain.Assignment, 0, len(assignments))
	for i := range assignments {
		a := assignments[i]
		if err := results.QueryRow().Scan(&a.ID); err != nil {
			_ = results.Close()
			if isUniqueViolation(err) {
				return nil, false, ErrDuplicate
			}
			return nil, false, err
		}
		created = append(created, a)
	}
	if err := results.Close(); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (r *assignmentRepository) ListByUser(ctx context.Context, userID string) ([]domain.Assignment, error) {
	result, err := listAssignments(ctx, r.pool, userID)
	return result, normalizeLookupErr(err)
}

func (r *assignmentRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM task_assignments WHERE user_id=$1`, userID).Scan(&count)
	if err != nil {
		if normalizeLookupErr(err) == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (r *assignmentRepository) GetByUserAndTask(ctx context.Context, userID, taskID string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM task_assignments a WHERE a.user_id=$1 AND a.task_id=$2`
	var a domain.Assignment
	if err := scanAssignment(r.pool.QueryRow(ctx, query, userID, taskID), &a); err != nil {
		return nil, normalizeLookupErr(err)
	}
	return &a, nil
}

func (r *assignmentRepository) UpdateState(ctx context.Context, a *domain.Assignment, from []domain.AssignmentStatus) error {
	const query = `
        UPDATE task_assignments
        SET status=$1, github_link=$2, deployment_link=$3, feedback=$4, grade=$5, updated_at=NOW()
        WHERE id=$6 AND status = ANY($7)
        RETURNING updated_at`

	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}
	var grade *string
	if a.Grade != nil {
		g := string(*a.Grade)
		grade = &g
	}

	err := r.pool.QueryRow(ctx, query,
		string(a.Status),
		a.GithubLink,
		a.DeploymentLink,
		a.Feedback,
		grade,
		a.ID,
		allowed,
	).Scan(&a.UpdatedAt)
	if err == pgx.ErrNoRows {
		return ErrStaleState
	}
	return err
}

func (r *assignmentRepository) ListViewsByUser(ctx context.Context, userID string) ([]domain.AssignmentView, error) {
	query := `SELECT ` + assignmentColumns + `, ` + joinedTaskColumns + `
        FROM task_assignments a
        JOIN tasks t ON t.id = a.task_id
        WHERE a.user_id=$1
        ORDER BY a.assigned_at DESC, t.level ASC, t.created_at ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, normalizeLookupErr(err)
	}
	defer rows.Close()

	var result []domain.AssignmentView
	for rows.Next() {
		var view domain.AssignmentView
		if err := scanView(rows, &view); err != nil {
			return nil, err
		}
		result = append(result, view)
	}
	return result, rows.Err()
}

func (r *assignmentRepository) ListSubmitted(ctx context.Context) ([]domain.SubmissionView, error) {
	query := `SELECT ` + assignmentColumns + `, ` + joinedTaskColumns + `, COALESCE(u.email, 'Unknown')
        FROM task_assignments a
        JOIN tasks t ON t.id = a.task_id
        LEFT JOIN users u ON u.id = a.user_id
        WHERE a.status=$1
        ORDER BY a.assigned_at DESC, t.level ASC, t.created_at ASC`

	rows, err := r.pool.Query(ctx, query, string(domain.AssignmentSubmitted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SubmissionView
	for rows.Next() {
		var view domain.SubmissionView
		if err := scanView(rows, &view.AssignmentView, &view.UserEmail); err != nil {
			return nil, err
		}
		result = append(result, view)
	}
	return result, rows.Err()
}

const joinedTaskColumns = `t.id, t.title, t.description, t.domain, t.level, t.created_by, t.created_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listAssignments(ctx context.Context, q querier, userID string) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM task_assignments a WHERE a.user_id=$1 ORDER BY a.assigned_at DESC, a.id`
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := scanAssignment(rows, &a); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func scanAssignment(row pgx.Row, a *domain.Assignment, extra ...any) error {
	var (
		status string
		grade  *string
	)
	dest := []any{
		&a.ID,
		&a.UserID,
		&a.TaskID,
		&status,
		&a.GithubLink,
		&a.DeploymentLink,
		&a.Feedback,
		&grade,
		&a.AssignedAt,
		&a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	a.Status = domain.AssignmentStatus(status)
	if grade != nil {
		g := domain.Grade(*grade)
		a.Grade = &g
	}
	return nil
}

func scanView(row pgx.Row, view *domain.AssignmentView, extra ...any) error {
	var taskDomain string
	t := &view.Task
	dest := []any{
		&t.ID,
		&t.Title,
		&t.Description,
		&taskDomain,
		&t.Level,
		&t.CreatedBy,
		&t.CreatedAt,
	}
	if err := scanAssignment(row, &view.Assignment, append(dest, extra...)...); err != nil {
		return err
	}
	t.Domain = domain.Domain(taskDomain)
	return nil
}
