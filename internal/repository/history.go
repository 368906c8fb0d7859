package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nation-game-bot/internal/model"
)

// HistoryRepository handles the append-only audit trail. Rows are only
// ever inserted; there is deliberately no update or delete method.
type HistoryRepository struct {
	db DB
}

// NewHistoryRepository creates a new HistoryRepository instance.
func NewHistoryRepository(db DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *HistoryRepository) WithTx(tx pgx.Tx) *HistoryRepository {
	return &HistoryRepository{db: tx}
}

// Append records one point-affecting event.
func (r *HistoryRepository) Append(ctx context.Context, adminID *int64, targetID int64, eventType string, points int64, reason string) (*model.History, error) {
	const query = `
		INSERT INTO history (admin_id, target_id, event_type, points, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, admin_id, target_id, event_type, points, reason, created_at
	`

	var h model.History
	err := r.db.QueryRow(ctx, query, adminID, targetID, eventType, points, reason).Scan(
		&h.ID,
		&h.AdminID,
		&h.TargetID,
		&h.EventType,
		&h.Points,
		&h.Reason,
		&h.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append history: %w", err)
	}

	return &h, nil
}

// ListByTarget retrieves the most recent events for a user, newest first.
func (r *HistoryRepository) ListByTarget(ctx context.Context, targetID int64, limit int) ([]*model.History, error) {
	const query = `
		SELECT id, admin_id, target_id, event_type, points, reason, created_at
		FROM history
		WHERE target_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var records []*model.History
	for rows.Next() {
		var h model.History
		err := rows.Scan(
			&h.ID,
			&h.AdminID,
			&h.TargetID,
			&h.EventType,
			&h.Points,
			&h.Reason,
			&h.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		records = append(records, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return records, nil
}
