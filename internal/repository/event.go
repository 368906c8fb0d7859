package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nation-game-bot/internal/model"
)

const eventColumns = `id, admin_id, chat_id, title, description, reward_points, status, created_at`

// EventRepository handles roleplay event persistence.
type EventRepository struct {
	db DB
}

// NewEventRepository creates a new EventRepository instance.
func NewEventRepository(db DB) *EventRepository {
	return &EventRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *EventRepository) WithTx(tx pgx.Tx) *EventRepository {
	return &EventRepository{db: tx}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID,
		&e.AdminID,
		&e.ChatID,
		&e.Title,
		&e.Description,
		&e.RewardPoints,
		&e.Status,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return &e, nil
}

// Create opens a new active event.
func (r *EventRepository) Create(ctx context.Context, adminID, chatID int64, title string, description *string, rewardPoints int64) (*model.Event, error) {
	query := `
		INSERT INTO rp_events (admin_id, chat_id, title, description, reward_points, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + eventColumns

	return scanEvent(r.db.QueryRow(ctx, query, adminID, chatID, title, description, rewardPoints, model.EventStatusActive))
}

// GetByID retrieves an event by its ID.
// Returns ErrEventNotFound if the event does not exist.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM rp_events WHERE id = $1`
	return scanEvent(r.db.QueryRow(ctx, query, id))
}

// ActiveByAdmin retrieves the admin's currently running event, if any.
func (r *EventRepository) ActiveByAdmin(ctx context.Context, adminID int64) (*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM rp_events
		WHERE admin_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanEvent(r.db.QueryRow(ctx, query, adminID, model.EventStatusActive))
}

// ActiveInChat lists the events currently running in a chat.
func (r *EventRepository) ActiveInChat(ctx context.Context, chatID int64) ([]*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM rp_events
		WHERE chat_id = $1 AND status = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, chatID, model.EventStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// AddParticipant enrolls a user in an event. Joining twice is a no-op;
// returns true if the user was newly enrolled.
func (r *EventRepository) AddParticipant(ctx context.Context, eventID, userID int64) (bool, error) {
	const query = `
		INSERT INTO rp_participants (event_id, user_id, joined_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (event_id, user_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to add participant: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// RemoveParticipant removes a user from an event.
// Returns true if the user was enrolled.
func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, userID int64) (bool, error) {
	result, err := r.db.Exec(ctx,
		`DELETE FROM rp_participants WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove participant: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Participants lists the user IDs enrolled in an event, in join order.
func (r *EventRepository) Participants(ctx context.Context, eventID int64) ([]int64, error) {
	const query = `
		SELECT user_id FROM rp_participants
		WHERE event_id = $1
		ORDER BY joined_at
	`

	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return ids, nil
}

// Finish marks an event finished. Finishing twice returns ErrEventNotFound.
func (r *EventRepository) Finish(ctx context.Context, eventID int64) error {
	result, err := r.db.Exec(ctx,
		`UPDATE rp_events SET status = $2 WHERE id = $1 AND status = $3`,
		eventID, model.EventStatusFinished, model.EventStatusActive)
	if err != nil {
		return fmt.Errorf("failed to finish event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}
