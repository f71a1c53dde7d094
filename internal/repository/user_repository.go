package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/intern-service/internal/domain"
)

// UserRepository defines persistence access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// UpdateDomain sets the user's domain. Moving a user who holds assignments to
	// another domain fails with ErrDomainLocked.
	UpdateDomain(ctx context.Context, id string, d domain.Domain) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, first_name, last_name, email, password_hash, phone_number, gender, date_of_birth,
        university, degree, year_of_study, skills, resume, linkedin, domain, role, created_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (first_name, last_name, email, password_hash, phone_number, gender, date_of_birth,
            university, degree, year_of_study, skills, resume, linkedin, domain, role)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, created_at`

	skills := user.Skills
	if skills == nil {
		skills = []string{}
	}
	err := r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.PhoneNumber,
		user.Gender,
		user.DateOfBirth,
		user.University,
		user.Degree,
		user.YearOfStudy,
		skills,
		user.Resume,
		user.LinkedIn,
		domainParam(user.Domain),
		string(user.Role),
	).Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email)=LOWER($1)`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) UpdateDomain(ctx context.Context, id string, d domain.Domain) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockUserLedger(ctx, tx, id); err != nil {
			return err
		}

		var current *string
		if err := tx.QueryRow(ctx, `SELECT domain FROM users WHERE id=$1 FOR UPDATE`, id).Scan(&current); err != nil {
			return normalizeLookupErr(err)
		}
		if current != nil && *current == string(d) {
			return nil
		}

		var held bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM task_assignments WHERE user_id=$1)`, id).Scan(&held); err != nil {
			return err
		}
		if held {
			return ErrDomainLocked
		}

		_, err := tx.Exec(ctx, `UPDATE users SET domain=$1 WHERE id=$2`, string(d), id)
		return err
	})
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		user    domain.User
		role    string
		userDom *string
	)
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.PhoneNumber,
		&user.Gender,
		&user.DateOfBirth,
		&user.University,
		&user.Degree,
		&user.YearOfStudy,
		&user.Skills,
		&user.Resume,
		&user.LinkedIn,
		&userDom,
		&role,
		&user.CreatedAt,
	); err != nil {
		return nil, normalizeLookupErr(err)
	}
	user.Role = domain.Role(role)
	if userDom != nil {
		d := domain.Domain(*userDom)
		user.Domain = &d
	}
	return &user, nil
}

func domainParam(d *domain.Domain) *string {
	if d == nil {
		return nil
	}
	s := string(*d)
	return &s
}
