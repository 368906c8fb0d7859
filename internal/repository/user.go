package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"nation-game-bot/internal/model"
)

// userColumns is the scan order shared by every user query.
const userColumns = `telegram_id, username, full_name, points, admin_level, position,
	country_id, is_ruler, last_country_creation, lost_in_casino, created_at, updated_at`

// UserRepository handles user data persistence.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.TelegramID,
		&u.Username,
		&u.FullName,
		&u.Points,
		&u.AdminLevel,
		&u.Position,
		&u.CountryID,
		&u.IsRuler,
		&u.LastCountryCreation,
		&u.LostInCasino,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// Create creates a new user with zero points and the traveler role.
func (r *UserRepository) Create(ctx context.Context, telegramID int64, username, fullName string) (*model.User, error) {
	query := `
		INSERT INTO users (telegram_id, username, full_name, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + userColumns

	return scanUser(r.db.QueryRow(ctx, query, telegramID, username, fullName, model.PositionTraveler))
}

// GetByID retrieves a user by their Telegram ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, telegramID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	return scanUser(r.db.QueryRow(ctx, query, telegramID))
}

// GetByUsername finds a user by Telegram handle. A leading '@' is stripped.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1)`
	return scanUser(r.db.QueryRow(ctx, query, strings.TrimPrefix(username, "@")))
}

// GetOrCreate retrieves a user by Telegram ID, creating one if it doesn't
// exist. When the user already exists, only display fields are refreshed.
func (r *UserRepository) GetOrCreate(ctx context.Context, telegramID int64, username, fullName string) (*model.User, bool, error) {
	user, err := r.GetByID(ctx, telegramID)
	if err == nil {
		if (username != "" && user.Username != username) || (fullName != "" && user.FullName != fullName) {
			if err := r.UpdateDisplay(ctx, telegramID, username, fullName); err != nil {
				return nil, false, err
			}
			user.Username = username
			user.FullName = fullName
		}
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user, err = r.Create(ctx, telegramID, username, fullName)
	if err != nil {
		// Handle race condition: another update might have created the user
		user, err = r.GetByID(ctx, telegramID)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	}

	return user, true, nil
}

// UpdateDisplay refreshes the username and full name of an existing user.
func (r *UserRepository) UpdateDisplay(ctx context.Context, telegramID int64, username, fullName string) error {
	const query = `
		UPDATE users
		SET username = $2, full_name = $3, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.db.Exec(ctx, query, telegramID, username, fullName)
	if err != nil {
		return fmt.Errorf("failed to update display fields: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AddPoints applies a signed delta to a user's balance and returns the
// updated row.
func (r *UserRepository) AddPoints(ctx context.Context, telegramID int64, delta int64) (*model.User, error) {
	query := `
		UPDATE users
		SET points = points + $2, updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + userColumns

	return scanUser(r.db.QueryRow(ctx, query, telegramID, delta))
}

// SetAdminLevel sets a user's admin level (0-5).
func (r *UserRepository) SetAdminLevel(ctx context.Context, telegramID int64, level int) error {
	const query = `
		UPDATE users
		SET admin_level = $2, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.db.Exec(ctx, query, telegramID, level)
	if err != nil {
		return fmt.Errorf("failed to set admin level: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetCitizenship updates a user's country affiliation, role label, and
// ruler flag in one statement.
func (r *UserRepository) SetCitizenship(ctx context.Context, telegramID int64, countryID *int64, position string, isRuler bool) error {
	const query = `
		UPDATE users
		SET country_id = $2, position = $3, is_ruler = $4, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.db.Exec(ctx, query, telegramID, countryID, position, isRuler)
	if err != nil {
		return fmt.Errorf("failed to set citizenship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetPosition sets only the role label of a citizen.
func (r *UserRepository) SetPosition(ctx context.Context, telegramID int64, position string) error {
	const query = `
		UPDATE users
		SET position = $2, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.db.Exec(ctx, query, telegramID, position)
	if err != nil {
		return fmt.Errorf("failed to set position: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// StampCreationCooldown records the time of a successful country creation.
func (r *UserRepository) StampCreationCooldown(ctx context.Context, telegramID int64) error {
	const query = `
		UPDATE users
		SET last_country_creation = NOW(), updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.db.Exec(ctx, query, telegramID)
	if err != nil {
		return fmt.Errorf("failed to stamp creation cooldown: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AddCasinoLoss increments the lifetime casino loss counter.
func (r *UserRepository) AddCasinoLoss(ctx context.Context, telegramID int64, loss int64) error {
	const query = `
		UPDATE users
		SET lost_in_casino = lost_in_casino + $2, updated_at = NOW()
		WHERE telegram_id = $1
	`

	_, err := r.db.Exec(ctx, query, telegramID, loss)
	if err != nil {
		return fmt.Errorf("failed to add casino loss: %w", err)
	}
	return nil
}

// GetTopByPoints retrieves the top N users by point balance.
func (r *UserRepository) GetTopByPoints(ctx context.Context, limit int) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY points DESC LIMIT $1`
	return r.queryUsers(ctx, query, limit)
}

// GetTopCasinoLosers retrieves the users with the largest lifetime casino
// losses, most lost first.
func (r *UserRepository) GetTopCasinoLosers(ctx context.Context, limit int) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE lost_in_casino > 0
		ORDER BY lost_in_casino DESC
		LIMIT $1`
	return r.queryUsers(ctx, query, limit)
}

// CitizensOf retrieves every citizen of a country, including the ruler.
func (r *UserRepository) CitizensOf(ctx context.Context, countryID int64) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE country_id = $1 ORDER BY points DESC`
	return r.queryUsers(ctx, query, countryID)
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*model.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}
