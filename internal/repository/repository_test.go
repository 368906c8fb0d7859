// Package repository tests use testcontainers-go to spin up a
// PostgreSQL container and run against the real schema.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"nation-game-bot/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection
// pool. Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, applySchema(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}
	return pool, cleanup
}

// applySchema creates the tables under test.
func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE users (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			full_name VARCHAR(255) NOT NULL DEFAULT '',
			points BIGINT NOT NULL DEFAULT 0,
			admin_level INT NOT NULL DEFAULT 0,
			position VARCHAR(100) NOT NULL DEFAULT '',
			country_id BIGINT,
			is_ruler BOOLEAN NOT NULL DEFAULT FALSE,
			last_country_creation TIMESTAMPTZ,
			lost_in_casino BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE meme_countries (
			id BIGSERIAL PRIMARY KEY,
			ruler_id BIGINT NOT NULL REFERENCES users(telegram_id),
			chat_id BIGINT,
			name VARCHAR(100) NOT NULL,
			memename VARCHAR(100) NOT NULL,
			ideology VARCHAR(50) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			flag_file_id TEXT,
			map_url TEXT,
			country_url TEXT,
			tax_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			treasury BIGINT NOT NULL DEFAULT 0,
			influence_points BIGINT NOT NULL DEFAULT 0,
			avg_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_reviews INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX uq_countries_name ON meme_countries(LOWER(name));
		CREATE UNIQUE INDEX uq_countries_memename ON meme_countries(LOWER(memename));
		CREATE UNIQUE INDEX uq_countries_chat ON meme_countries(chat_id) WHERE chat_id IS NOT NULL;
		CREATE UNIQUE INDEX uq_countries_ruler ON meme_countries(ruler_id);
		CREATE TABLE history (
			id BIGSERIAL PRIMARY KEY,
			admin_id BIGINT,
			target_id BIGINT NOT NULL,
			event_type VARCHAR(50) NOT NULL,
			points BIGINT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE country_reviews (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			country_id BIGINT NOT NULL,
			rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, country_id)
		);
		CREATE TABLE punishments (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			action_type VARCHAR(50) NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			admin_id BIGINT,
			expires_at TIMESTAMPTZ,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE country_blacklist (
			country_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (country_id, user_id)
		);
		CREATE TABLE reserved_country_names (
			name VARCHAR(100) PRIMARY KEY
		);
		CREATE TABLE rp_events (
			id BIGSERIAL PRIMARY KEY,
			admin_id BIGINT NOT NULL,
			chat_id BIGINT NOT NULL,
			title VARCHAR(200) NOT NULL,
			description TEXT,
			reward_points BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE rp_participants (
			event_id BIGINT NOT NULL REFERENCES rp_events(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (event_id, user_id)
		);
	`)
	return err
}

func TestUserRepository_GetOrCreateIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	user, created, err := repo.GetOrCreate(ctx, 12345, "alice", "Alice A")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(0), user.Points)
	assert.Equal(t, model.PositionTraveler, user.Position)

	// Second call with changed display fields updates only those
	again, created, err := repo.GetOrCreate(ctx, 12345, "alice_new", "Alice B")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "alice_new", again.Username)
	assert.Equal(t, "Alice B", again.FullName)
	assert.Equal(t, user.Points, again.Points)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUserRepository_AddPoints(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, "u1", "User One")
	require.NoError(t, err)

	user, err := repo.AddPoints(ctx, 1, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(150), user.Points)

	user, err = repo.AddPoints(ctx, 1, -200)
	require.NoError(t, err)
	assert.Equal(t, int64(-50), user.Points)

	_, err = repo.AddPoints(ctx, 99, 10)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestHistoryRepository_Append(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserRepository(pool)
	history := NewHistoryRepository(pool)
	ctx := context.Background()

	_, err := users.Create(ctx, 1, "u1", "User One")
	require.NoError(t, err)

	adminID := int64(777)
	row, err := history.Append(ctx, &adminID, 1, model.EventPointsChange, 50, "за РП")
	require.NoError(t, err)
	assert.Equal(t, int64(50), row.Points)
	require.NotNil(t, row.AdminID)
	assert.Equal(t, adminID, *row.AdminID)

	_, err = history.Append(ctx, nil, 1, model.EventCasino, -20, "Казино")
	require.NoError(t, err)

	records, err := history.ListByTarget(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first
	assert.Equal(t, model.EventCasino, records[0].EventType)
}

func createTestCountry(t *testing.T, pool *pgxpool.Pool, rulerID int64, name string) *model.Country {
	t.Helper()
	ctx := context.Background()

	users := NewUserRepository(pool)
	countries := NewCountryRepository(pool)

	_, err := users.Create(ctx, rulerID, "ruler", "The Ruler")
	require.NoError(t, err)

	country, err := countries.Create(ctx, CreateParams{
		RulerID:  rulerID,
		ChatID:   rulerID * 100,
		Name:     name,
		Memename: name + "-meme",
		Ideology: "меметизм",
	})
	require.NoError(t, err)

	require.NoError(t, users.SetCitizenship(ctx, rulerID, &country.ID, model.PositionRuler, true))
	return country
}

func TestCountryRepository_UniqueViolationClassification(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	countries := NewCountryRepository(pool)
	ctx := context.Background()

	createTestCountry(t, pool, 1, "Лимония")

	users := NewUserRepository(pool)
	_, err := users.Create(ctx, 2, "ruler2", "Second Ruler")
	require.NoError(t, err)

	_, err = countries.Create(ctx, CreateParams{
		RulerID:  2,
		ChatID:   200,
		Name:     "лимония", // same name, different case
		Memename: "other-meme",
		Ideology: "иное",
	})
	require.Error(t, err)
	constraint, ok := UniqueViolation(err)
	assert.True(t, ok)
	assert.Contains(t, constraint, "name")
}

func TestCountryRepository_TaxableSum(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserRepository(pool)
	countries := NewCountryRepository(pool)
	ctx := context.Background()

	country := createTestCountry(t, pool, 1, "Налогия")

	// Two citizens with 100 and 250 points, one broke citizen
	for i, points := range []int64{100, 250, 0} {
		id := int64(10 + i)
		_, err := users.Create(ctx, id, "", "Citizen")
		require.NoError(t, err)
		require.NoError(t, users.SetCitizenship(ctx, id, &country.ID, model.PositionCitizen, false))
		if points != 0 {
			_, err = users.AddPoints(ctx, id, points)
			require.NoError(t, err)
		}
	}

	// 10% expressed in basis points
	sum, err := countries.TaxableSum(ctx, country.ID, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(35), sum)
}

func TestCountryRepository_DeleteCascade(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	countries := NewCountryRepository(pool)
	reviews := NewReviewRepository(pool)
	ctx := context.Background()

	country := createTestCountry(t, pool, 1, "Эфемерия")

	_, err := reviews.Replace(ctx, 42, country.ID, 5)
	require.NoError(t, err)
	require.NoError(t, countries.AddToBlacklist(ctx, country.ID, 43))

	require.NoError(t, reviews.DeleteFor(ctx, country.ID))
	require.NoError(t, countries.DeleteBlacklistFor(ctx, country.ID))
	require.NoError(t, countries.Delete(ctx, country.ID))

	_, err = countries.GetByID(ctx, country.ID)
	assert.ErrorIs(t, err, ErrCountryNotFound)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM country_reviews WHERE country_id = $1`, country.ID).Scan(&count))
	assert.Zero(t, count)
}

func TestReviewRepository_ReplaceRecomputesAggregate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	reviews := NewReviewRepository(pool)
	ctx := context.Background()

	country := createTestCountry(t, pool, 1, "Оценляндия")

	_, err := reviews.Replace(ctx, 10, country.ID, 5)
	require.NoError(t, err)
	_, err = reviews.Replace(ctx, 11, country.ID, 1)
	require.NoError(t, err)

	avg, total, err := reviews.Aggregate(ctx, country.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, avg, 1e-9)
	assert.Equal(t, 2, total)

	// Re-vote replaces, never duplicates
	_, err = reviews.Replace(ctx, 11, country.ID, 5)
	require.NoError(t, err)

	avg, total, err = reviews.Aggregate(ctx, country.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, avg, 1e-9)
	assert.Equal(t, 2, total)
}

func TestPunishmentRepository_SoftDeactivation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	punishments := NewPunishmentRepository(pool)
	ctx := context.Background()

	adminID := int64(1)
	_, err := punishments.Add(ctx, 5, model.PunishCountryCreationBan, "спам", &adminID, nil)
	require.NoError(t, err)

	// A second ban of the same type deactivates the first
	_, err = punishments.Add(ctx, 5, model.PunishCountryCreationBan, "рецидив", &adminID, nil)
	require.NoError(t, err)

	active, err := punishments.ListActive(ctx, 5)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "рецидив", active[0].Reason)

	// Rows are kept, not deleted
	var total int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM punishments WHERE user_id = 5`).Scan(&total))
	assert.Equal(t, 2, total)

	lifted, err := punishments.Deactivate(ctx, 5, model.PunishCountryCreationBan)
	require.NoError(t, err)
	assert.True(t, lifted)

	has, err := punishments.HasActive(ctx, 5, model.PunishCountryCreationBan)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPunishmentRepository_LazyExpiry(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	punishments := NewPunishmentRepository(pool)
	ctx := context.Background()

	expired := time.Now().Add(-time.Hour)
	_, err := punishments.Add(ctx, 5, model.PunishCountryCreationBan, "старое", nil, &expired)
	require.NoError(t, err)

	// The expired ban is deactivated on first sight
	has, err := punishments.HasActive(ctx, 5, model.PunishCountryCreationBan)
	require.NoError(t, err)
	assert.False(t, has)

	active, err := punishments.ListActive(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestEventRepository_Lifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	events := NewEventRepository(pool)
	ctx := context.Background()

	event, err := events.Create(ctx, 1, 100, "Большая охота", nil, 25)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusActive, event.Status)

	added, err := events.AddParticipant(ctx, event.ID, 10)
	require.NoError(t, err)
	assert.True(t, added)

	// Joining twice is a no-op
	added, err = events.AddParticipant(ctx, event.ID, 10)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = events.AddParticipant(ctx, event.ID, 11)
	require.NoError(t, err)

	ids, err := events.Participants(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, ids)

	require.NoError(t, events.Finish(ctx, event.ID))
	// Finishing twice reports not found
	assert.ErrorIs(t, events.Finish(ctx, event.ID), ErrEventNotFound)

	_, err = events.ActiveByAdmin(ctx, 1)
	assert.ErrorIs(t, err, ErrEventNotFound)
}
