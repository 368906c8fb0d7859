// Package main is the entry point for the nation game bot.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nation-game-bot/internal/bot"
	"nation-game-bot/internal/config"
	"nation-game-bot/internal/game"
	"nation-game-bot/internal/game/grid"
	"nation-game-bot/internal/game/reel"
	"nation-game-bot/internal/pkg/db"
	"nation-game-bot/internal/pkg/lock"
	"nation-game-bot/internal/repository"
	"nation-game-bot/internal/scheduler"
	"nation-game-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	countryRepo := repository.NewCountryRepository(dbPool.Pool)
	historyRepo := repository.NewHistoryRepository(dbPool.Pool)
	reviewRepo := repository.NewReviewRepository(dbPool.Pool)
	punishRepo := repository.NewPunishmentRepository(dbPool.Pool)
	eventRepo := repository.NewEventRepository(dbPool.Pool)

	// Build the weighted symbol table and register the slot machines
	table, err := game.GenerateTable(
		cfg.Casino.Symbols,
		cfg.Casino.BaseMultiplier,
		cfg.Casino.MultiplierStep,
		cfg.Casino.BaseWeight,
		cfg.Casino.WeightDivisor,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build casino symbol table")
	}

	registry := game.NewRegistry()
	if err := registry.Register(reel.New(table, cfg.Casino.MaxBet)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register reel machine")
	}
	if err := registry.Register(grid.New(table, cfg.Casino.MaxBet,
		cfg.Casino.GridLuckMin, cfg.Casino.GridLuckMax)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register grid machine")
	}

	log.Info().Int("machines", registry.Count()).Msg("Casino machines registered")

	userLock := lock.NewUserLock()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Initialize services
	accountService := service.NewAccountService(userRepo, countryRepo, historyRepo)
	ledgerService := service.NewLedgerService(dbPool.Pool, cfg, userRepo, countryRepo, historyRepo)
	countryService := service.NewCountryService(dbPool.Pool, cfg, userRepo, countryRepo, historyRepo, reviewRepo, punishRepo)
	reviewService := service.NewReviewService(dbPool.Pool, cfg, userRepo, countryRepo, reviewRepo)
	eventService := service.NewEventService(dbPool.Pool, userRepo, historyRepo, eventRepo)
	casinoService := service.NewCasinoService(dbPool.Pool, registry, userRepo, historyRepo, userLock, rng)

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:         cfg,
		AccountService: accountService,
		LedgerService:  ledgerService,
		CountryService: countryService,
		ReviewService:  reviewService,
		EventService:   eventService,
		CasinoService:  casinoService,
		PunishmentRepo: punishRepo,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Start the daily influence bonus scheduler
	daily := scheduler.New(
		dbPool.Pool,
		userRepo,
		countryRepo,
		historyRepo,
		telegramBot,
		log.Logger,
		cfg.Bonus.Hour,
		cfg.Bonus.Minute,
		cfg.Bonus.Ratio,
	)
	go daily.Run(ctx)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	cancel()
	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: users
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
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
		CREATE INDEX IF NOT EXISTS idx_users_points ON users(points DESC);
		CREATE INDEX IF NOT EXISTS idx_users_country ON users(country_id);
		CREATE INDEX IF NOT EXISTS idx_users_username ON users(LOWER(username));
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: meme_countries with classifiable unique constraints
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS meme_countries (
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
		CREATE UNIQUE INDEX IF NOT EXISTS uq_countries_name ON meme_countries(LOWER(name));
		CREATE UNIQUE INDEX IF NOT EXISTS uq_countries_memename ON meme_countries(LOWER(memename));
		CREATE UNIQUE INDEX IF NOT EXISTS uq_countries_chat ON meme_countries(chat_id) WHERE chat_id IS NOT NULL;
		CREATE UNIQUE INDEX IF NOT EXISTS uq_countries_ruler ON meme_countries(ruler_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: meme_countries table created")

	// Migration 3: history (append-only ledger)
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS history (
			id BIGSERIAL PRIMARY KEY,
			admin_id BIGINT,
			target_id BIGINT NOT NULL,
			event_type VARCHAR(50) NOT NULL,
			points BIGINT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_history_target_time ON history(target_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_history_type_time ON history(event_type, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: history table created")

	// Migration 4: country_reviews
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS country_reviews (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			country_id BIGINT NOT NULL,
			rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, country_id)
		);
		CREATE INDEX IF NOT EXISTS idx_reviews_country ON country_reviews(country_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: country_reviews table created")

	// Migration 5: punishments (soft-deactivated, never deleted)
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS punishments (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			action_type VARCHAR(50) NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			admin_id BIGINT,
			expires_at TIMESTAMPTZ,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_punishments_user_active ON punishments(user_id, action_type) WHERE is_active;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: punishments table created")

	// Migration 6: country_blacklist and reserved names
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS country_blacklist (
			country_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (country_id, user_id)
		);
		CREATE TABLE IF NOT EXISTS reserved_country_names (
			name VARCHAR(100) PRIMARY KEY
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 6: blacklist and reserved names tables created")

	// Migration 7: roleplay events
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rp_events (
			id BIGSERIAL PRIMARY KEY,
			admin_id BIGINT NOT NULL,
			chat_id BIGINT NOT NULL,
			title VARCHAR(200) NOT NULL,
			description TEXT,
			reward_points BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS rp_participants (
			event_id BIGINT NOT NULL REFERENCES rp_events(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (event_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_events_admin_status ON rp_events(admin_id, status);
		CREATE INDEX IF NOT EXISTS idx_events_chat_status ON rp_events(chat_id, status);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 7: roleplay event tables created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
