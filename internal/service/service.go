// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Common errors shared by the services.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCountryNotFound     = errors.New("country not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount: must be positive")
	ErrSelfTarget          = errors.New("cannot target self")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrBotTarget           = errors.New("bots cannot hold points")
)

// TxBeginner starts database transactions. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// withTx runs fn inside one transaction, committing on nil and rolling
// back on error or panic.
func withTx(ctx context.Context, db TxBeginner, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, db, fn)
}
