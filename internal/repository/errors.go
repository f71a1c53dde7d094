package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")

	// ErrStaleState is returned when a conditional update finds the row in another state.
	ErrStaleState = errors.New("record changed state")

	// ErrDomainMismatch is returned when a user's stored domain differs from the one being assigned.
	ErrDomainMismatch = errors.New("user domain does not match")

	// ErrDomainLocked is returned when a user holding assignments would move to another domain.
	ErrDomainLocked = errors.New("user domain is locked by existing assignments")
)

const (
	pgUniqueViolation   = "23505"
	pgInvalidTextFormat = "22P02"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// normalizeLookupErr turns malformed identifiers into not-found.
func normalizeLookupErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextFormat {
		return pgx.ErrNoRows
	}
	return err
}

// lockUserLedger takes the per-user transaction lock shared by bulk assignment and domain changes.
func lockUserLedger(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID)
	return err
}
