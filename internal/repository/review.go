package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"nation-game-bot/internal/model"
)

// ReviewRepository handles country review persistence. A re-vote is a
// delete+insert so the (user, country) unique constraint always holds.
type ReviewRepository struct {
	db DB
}

// NewReviewRepository creates a new ReviewRepository instance.
func NewReviewRepository(db DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ReviewRepository) WithTx(tx pgx.Tx) *ReviewRepository {
	return &ReviewRepository{db: tx}
}

// LastReviewAt returns when the user last reviewed the country.
// Returns ErrReviewNotFound if they never have.
func (r *ReviewRepository) LastReviewAt(ctx context.Context, userID, countryID int64) (time.Time, error) {
	const query = `
		SELECT created_at FROM country_reviews
		WHERE user_id = $1 AND country_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var at time.Time
	err := r.db.QueryRow(ctx, query, userID, countryID).Scan(&at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrReviewNotFound
		}
		return time.Time{}, fmt.Errorf("failed to get last review: %w", err)
	}
	return at, nil
}

// Replace removes any previous review by the user for the country and
// inserts the new rating.
func (r *ReviewRepository) Replace(ctx context.Context, userID, countryID int64, rating int) (*model.Review, error) {
	_, err := r.db.Exec(ctx,
		`DELETE FROM country_reviews WHERE user_id = $1 AND country_id = $2`, userID, countryID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete old review: %w", err)
	}

	const query = `
		INSERT INTO country_reviews (user_id, country_id, rating, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, user_id, country_id, rating, created_at
	`

	var review model.Review
	err = r.db.QueryRow(ctx, query, userID, countryID, rating).Scan(
		&review.ID,
		&review.UserID,
		&review.CountryID,
		&review.Rating,
		&review.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert review: %w", err)
	}

	return &review, nil
}

// Aggregate recomputes the average rating and review count of a country.
func (r *ReviewRepository) Aggregate(ctx context.Context, countryID int64) (float64, int, error) {
	const query = `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM country_reviews
		WHERE country_id = $1
	`

	var avg float64
	var count int
	if err := r.db.QueryRow(ctx, query, countryID).Scan(&avg, &count); err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate reviews: %w", err)
	}
	return avg, count, nil
}

// DeleteFor removes all reviews of a country. Part of the deletion cascade.
func (r *ReviewRepository) DeleteFor(ctx context.Context, countryID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM country_reviews WHERE country_id = $1`, countryID); err != nil {
		return fmt.Errorf("failed to delete reviews: %w", err)
	}
	return nil
}
