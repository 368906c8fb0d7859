// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrCountryNotFound = errors.New("country not found")
	ErrEventNotFound   = errors.New("event not found")
	ErrReviewNotFound  = errors.New("review not found")
)

// DB is the querying surface shared by *pgxpool.Pool and pgx.Tx.
// Repositories are constructed over the pool; WithTx rebinds a repository
// to a transaction so a service can run a whole unit of work atomically.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Unique constraint violations are classified by the violated constraint
// name so handlers can present a specific collision reason.
const pgUniqueViolation = "23505"

// UniqueViolation reports whether err is a unique constraint violation,
// returning the violated constraint name when it is.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
