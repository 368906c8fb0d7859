package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nation-game-bot/internal/model"
)

const countryColumns = `id, ruler_id, chat_id, name, memename, ideology, description,
	flag_file_id, map_url, country_url, tax_rate, treasury, influence_points,
	avg_rating, total_reviews, created_at`

// CountrySort orders for listing countries.
const (
	SortByInfluence = "influence"
	SortByRating    = "rating"
	SortByNewest    = "newest"
)

// CountryRepository handles meme country persistence.
type CountryRepository struct {
	db DB
}

// NewCountryRepository creates a new CountryRepository instance.
func NewCountryRepository(db DB) *CountryRepository {
	return &CountryRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *CountryRepository) WithTx(tx pgx.Tx) *CountryRepository {
	return &CountryRepository{db: tx}
}

func scanCountry(row pgx.Row) (*model.Country, error) {
	var c model.Country
	err := row.Scan(
		&c.ID,
		&c.RulerID,
		&c.ChatID,
		&c.Name,
		&c.Memename,
		&c.Ideology,
		&c.Description,
		&c.FlagFileID,
		&c.MapURL,
		&c.CountryURL,
		&c.TaxRate,
		&c.Treasury,
		&c.InfluencePoints,
		&c.AvgRating,
		&c.TotalReviews,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCountryNotFound
		}
		return nil, fmt.Errorf("failed to scan country: %w", err)
	}
	return &c, nil
}

// CreateParams holds the fields collected by the creation wizard.
type CreateParams struct {
	RulerID     int64
	ChatID      int64
	Name        string
	Memename    string
	Ideology    string
	Description string
	MapURL      *string
}

// Create inserts a new country. Unique violations on name, memename, or
// chat binding surface as *pgconn.PgError for the caller to classify.
func (r *CountryRepository) Create(ctx context.Context, p CreateParams) (*model.Country, error) {
	query := `
		INSERT INTO meme_countries (ruler_id, chat_id, name, memename, ideology, description, map_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING ` + countryColumns

	return scanCountry(r.db.QueryRow(ctx, query,
		p.RulerID, p.ChatID, p.Name, p.Memename, p.Ideology, p.Description, p.MapURL))
}

// GetByID retrieves a country by its ID.
func (r *CountryRepository) GetByID(ctx context.Context, id int64) (*model.Country, error) {
	query := `SELECT ` + countryColumns + ` FROM meme_countries WHERE id = $1`
	return scanCountry(r.db.QueryRow(ctx, query, id))
}

// GetByRulerID retrieves the country ruled by the given user.
func (r *CountryRepository) GetByRulerID(ctx context.Context, rulerID int64) (*model.Country, error) {
	query := `SELECT ` + countryColumns + ` FROM meme_countries WHERE ruler_id = $1`
	return scanCountry(r.db.QueryRow(ctx, query, rulerID))
}

// GetByChatID retrieves the country bound to the given external chat.
func (r *CountryRepository) GetByChatID(ctx context.Context, chatID int64) (*model.Country, error) {
	query := `SELECT ` + countryColumns + ` FROM meme_countries WHERE chat_id = $1`
	return scanCountry(r.db.QueryRow(ctx, query, chatID))
}

// GetByName finds a country by exact name, case-insensitive.
func (r *CountryRepository) GetByName(ctx context.Context, name string) (*model.Country, error) {
	query := `SELECT ` + countryColumns + ` FROM meme_countries WHERE LOWER(name) = LOWER($1)`
	return scanCountry(r.db.QueryRow(ctx, query, name))
}

// NameRef is the subset of country fields used for fuzzy matching.
type NameRef struct {
	ID       int64
	Name     string
	Memename string
}

// AllNames retrieves (id, name, memename) for every country. Used by the
// fuzzy lookup, which scores names in memory.
func (r *CountryRepository) AllNames(ctx context.Context) ([]NameRef, error) {
	const query = `SELECT id, name, memename FROM meme_countries`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query country names: %w", err)
	}
	defer rows.Close()

	var refs []NameRef
	for rows.Next() {
		var ref NameRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Memename); err != nil {
			return nil, fmt.Errorf("failed to scan country name: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating country names: %w", err)
	}
	return refs, nil
}

// List retrieves a page of countries with the given sort order.
func (r *CountryRepository) List(ctx context.Context, sortBy string, offset, limit int) ([]*model.Country, error) {
	order := "influence_points DESC"
	switch sortBy {
	case SortByRating:
		order = "avg_rating DESC"
	case SortByNewest:
		order = "created_at DESC"
	}

	query := `SELECT ` + countryColumns + ` FROM meme_countries
		ORDER BY ` + order + `, name ASC
		OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list countries: %w", err)
	}
	defer rows.Close()

	var countries []*model.Country
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, err
		}
		countries = append(countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating countries: %w", err)
	}
	return countries, nil
}

// Count returns the total number of countries.
func (r *CountryRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM meme_countries`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count countries: %w", err)
	}
	return count, nil
}

// PopulationExcludingRuler counts the citizens of a country minus its ruler.
// Deletion requires this to be zero.
func (r *CountryRepository) PopulationExcludingRuler(ctx context.Context, countryID, rulerID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE country_id = $1 AND telegram_id <> $2`

	var count int
	err := r.db.QueryRow(ctx, query, countryID, rulerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count population: %w", err)
	}
	return count, nil
}

// SetRuler reassigns the ruler of a country.
func (r *CountryRepository) SetRuler(ctx context.Context, countryID, rulerID int64) error {
	result, err := r.db.Exec(ctx,
		`UPDATE meme_countries SET ruler_id = $2 WHERE id = $1`, countryID, rulerID)
	if err != nil {
		return fmt.Errorf("failed to set ruler: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCountryNotFound
	}
	return nil
}

// SetTaxRate sets the tax rate. Range validation happens in the service.
func (r *CountryRepository) SetTaxRate(ctx context.Context, countryID int64, rate float64) error {
	result, err := r.db.Exec(ctx,
		`UPDATE meme_countries SET tax_rate = $2 WHERE id = $1`, countryID, rate)
	if err != nil {
		return fmt.Errorf("failed to set tax rate: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCountryNotFound
	}
	return nil
}

// TaxableSum computes the sum of floor(points * basisPoints / 10000) over
// every non-ruler citizen with a positive balance. The rate arrives in
// basis points so the estimate matches the collection sweep exactly.
// Citizens at or below zero contribute nothing: tax collection clamps at
// zero, never drives a balance negative.
func (r *CountryRepository) TaxableSum(ctx context.Context, countryID, rulerID, basisPoints int64) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(FLOOR(points::NUMERIC * $3 / 10000))::BIGINT, 0)
		FROM users
		WHERE country_id = $1 AND telegram_id <> $2 AND points > 0
	`

	var sum int64
	err := r.db.QueryRow(ctx, query, countryID, rulerID, basisPoints).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to compute taxable sum: %w", err)
	}
	return sum, nil
}

// AddInfluence credits influence points to a country.
func (r *CountryRepository) AddInfluence(ctx context.Context, countryID, amount int64) error {
	result, err := r.db.Exec(ctx,
		`UPDATE meme_countries SET influence_points = influence_points + $2 WHERE id = $1`,
		countryID, amount)
	if err != nil {
		return fmt.Errorf("failed to add influence: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCountryNotFound
	}
	return nil
}

// AddTreasury credits the country treasury (voluntary donations).
func (r *CountryRepository) AddTreasury(ctx context.Context, countryID, amount int64) error {
	result, err := r.db.Exec(ctx,
		`UPDATE meme_countries SET treasury = treasury + $2 WHERE id = $1`,
		countryID, amount)
	if err != nil {
		return fmt.Errorf("failed to add treasury: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCountryNotFound
	}
	return nil
}

// UpdateField sets one editable country field. Allowed fields are fixed at
// the call sites; the column name is never user input.
func (r *CountryRepository) UpdateField(ctx context.Context, countryID int64, column string, value any) error {
	query := fmt.Sprintf(`UPDATE meme_countries SET %s = $2 WHERE id = $1`, column)

	result, err := r.db.Exec(ctx, query, countryID, value)
	if err != nil {
		return fmt.Errorf("failed to update country %s: %w", column, err)
	}
	if result.RowsAffected() == 0 {
		return ErrCountryNotFound
	}
	return nil
}

// SetRating stores the recomputed review aggregate.
func (r *CountryRepository) SetRating(ctx context.Context, countryID int64, avg float64, total int) error {
	result, err := r.db.Exec(ctx,
		`UPDATE meme_countries SET avg_rating = $2, total_reviews = $3 WHERE id = $1`,
		countryID, avg, total)
	if err != nil {
		return fmt.Errorf("failed to set rating: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCountryNotFound
	}
	return nil
}

// Delete removes a country row. Reviews and blacklist entries must be
// cascaded by the caller inside the same transaction.
func (r *CountryRepository) Delete(ctx context.Context, countryID int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM meme_countries WHERE id = $1`, countryID)
	if err != nil {
		return fmt.Errorf("failed to delete country: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCountryNotFound
	}
	return nil
}

// All retrieves every country. Used by the daily bonus sweep.
func (r *CountryRepository) All(ctx context.Context) ([]*model.Country, error) {
	query := `SELECT ` + countryColumns + ` FROM meme_countries ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	var countries []*model.Country
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, err
		}
		countries = append(countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating countries: %w", err)
	}
	return countries, nil
}

// IsNameReserved checks the reserved names table, case-insensitive.
func (r *CountryRepository) IsNameReserved(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM reserved_country_names WHERE LOWER(name) = LOWER($1))`

	var reserved bool
	if err := r.db.QueryRow(ctx, query, name).Scan(&reserved); err != nil {
		return false, fmt.Errorf("failed to check reserved name: %w", err)
	}
	return reserved, nil
}

// IsBlacklisted checks whether a user is barred from joining a country.
func (r *CountryRepository) IsBlacklisted(ctx context.Context, countryID, userID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM country_blacklist WHERE country_id = $1 AND user_id = $2)`

	var blacklisted bool
	if err := r.db.QueryRow(ctx, query, countryID, userID).Scan(&blacklisted); err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return blacklisted, nil
}

// AddToBlacklist bars a user from joining a country.
func (r *CountryRepository) AddToBlacklist(ctx context.Context, countryID, userID int64) error {
	const query = `
		INSERT INTO country_blacklist (country_id, user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.Exec(ctx, query, countryID, userID); err != nil {
		return fmt.Errorf("failed to add to blacklist: %w", err)
	}
	return nil
}

// RemoveFromBlacklist lifts a join bar.
func (r *CountryRepository) RemoveFromBlacklist(ctx context.Context, countryID, userID int64) (bool, error) {
	result, err := r.db.Exec(ctx,
		`DELETE FROM country_blacklist WHERE country_id = $1 AND user_id = $2`, countryID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove from blacklist: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// DeleteBlacklistFor removes all blacklist entries of a country.
func (r *CountryRepository) DeleteBlacklistFor(ctx context.Context, countryID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM country_blacklist WHERE country_id = $1`, countryID); err != nil {
		return fmt.Errorf("failed to delete blacklist entries: %w", err)
	}
	return nil
}
