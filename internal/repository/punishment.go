package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"nation-game-bot/internal/model"
)

const punishmentColumns = `id, user_id, action_type, reason, admin_id, expires_at, is_active, created_at`

// PunishmentRepository handles user restrictions. Punishments are
// soft-deactivated with is_active, never deleted.
type PunishmentRepository struct {
	db DB
}

// NewPunishmentRepository creates a new PunishmentRepository instance.
func NewPunishmentRepository(db DB) *PunishmentRepository {
	return &PunishmentRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *PunishmentRepository) WithTx(tx pgx.Tx) *PunishmentRepository {
	return &PunishmentRepository{db: tx}
}

func scanPunishment(row pgx.Row) (*model.Punishment, error) {
	var p model.Punishment
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.ActionType,
		&p.Reason,
		&p.AdminID,
		&p.ExpiresAt,
		&p.IsActive,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Add creates a punishment, deactivating any prior active punishment of
// the same type first so at most one is active per (user, type).
func (r *PunishmentRepository) Add(ctx context.Context, userID int64, actionType, reason string, adminID *int64, expiresAt *time.Time) (*model.Punishment, error) {
	_, err := r.db.Exec(ctx, `
		UPDATE punishments SET is_active = FALSE
		WHERE user_id = $1 AND action_type = $2 AND is_active = TRUE
	`, userID, actionType)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate prior punishments: %w", err)
	}

	query := `
		INSERT INTO punishments (user_id, action_type, reason, admin_id, expires_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW())
		RETURNING ` + punishmentColumns

	p, err := scanPunishment(r.db.QueryRow(ctx, query, userID, actionType, reason, adminID, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to add punishment: %w", err)
	}
	return p, nil
}

// Deactivate lifts active punishments of a type for a user.
// Returns true if any row was deactivated.
func (r *PunishmentRepository) Deactivate(ctx context.Context, userID int64, actionType string) (bool, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE punishments SET is_active = FALSE
		WHERE user_id = $1 AND action_type = $2 AND is_active = TRUE
	`, userID, actionType)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate punishment: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// HasActive checks whether the user has an active punishment of the type.
// An expired punishment is deactivated on sight and reported as inactive.
func (r *PunishmentRepository) HasActive(ctx context.Context, userID int64, actionType string) (bool, error) {
	query := `
		SELECT ` + punishmentColumns + `
		FROM punishments
		WHERE user_id = $1 AND action_type = $2 AND is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1
	`

	p, err := scanPunishment(r.db.QueryRow(ctx, query, userID, actionType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check punishment: %w", err)
	}

	if p.ExpiresAt == nil || p.ExpiresAt.After(time.Now()) {
		return true, nil
	}

	// Lazy expiry
	_, err = r.db.Exec(ctx, `UPDATE punishments SET is_active = FALSE WHERE id = $1`, p.ID)
	if err != nil {
		return false, fmt.Errorf("failed to expire punishment: %w", err)
	}
	return false, nil
}

// ListActive retrieves all active punishments of a user.
func (r *PunishmentRepository) ListActive(ctx context.Context, userID int64) ([]*model.Punishment, error) {
	query := `
		SELECT ` + punishmentColumns + `
		FROM punishments
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list punishments: %w", err)
	}
	defer rows.Close()

	var punishments []*model.Punishment
	for rows.Next() {
		p, err := scanPunishment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan punishment: %w", err)
		}
		punishments = append(punishments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating punishments: %w", err)
	}
	return punishments, nil
}
