// Package scheduler runs the daily influence bonus sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"nation-game-bot/internal/model"
	"nation-game-bot/internal/repository"
)

// TxBeginner starts database transactions. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Notifier broadcasts sweep results to a country's bound chat. Called
// after the sweep transaction commits, never inside it.
type Notifier interface {
	NotifyBonus(chatID int64, countryName string, bonus int64, citizens int)
}

// Daily sleeps until a fixed wall-clock time each day, then credits
// every country's citizens with floor(influence / ratio) points.
type Daily struct {
	db          TxBeginner
	userRepo    *repository.UserRepository
	countryRepo *repository.CountryRepository
	historyRepo *repository.HistoryRepository
	notifier    Notifier
	logger      zerolog.Logger

	hour   int
	minute int
	ratio  int64
}

// New creates a new Daily scheduler. notifier may be nil.
func New(
	db TxBeginner,
	userRepo *repository.UserRepository,
	countryRepo *repository.CountryRepository,
	historyRepo *repository.HistoryRepository,
	notifier Notifier,
	logger zerolog.Logger,
	hour, minute int,
	ratio int64,
) *Daily {
	return &Daily{
		db:          db,
		userRepo:    userRepo,
		countryRepo: countryRepo,
		historyRepo: historyRepo,
		notifier:    notifier,
		logger:      logger,
		hour:        hour,
		minute:      minute,
		ratio:       ratio,
	}
}

// DelayUntil computes how long to sleep from now until the next
// occurrence of hour:minute. A time exactly on the mark waits a full day.
func DelayUntil(now time.Time, hour, minute int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// Run loops until the context is cancelled, sweeping once per day.
func (d *Daily) Run(ctx context.Context) {
	for {
		delay := DelayUntil(time.Now(), d.hour, d.minute)
		d.logger.Info().Dur("sleep", delay).Msg("Daily bonus scheduler waiting")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			d.logger.Info().Msg("Daily bonus scheduler stopped")
			return
		case <-timer.C:
		}

		if err := d.RunOnce(ctx); err != nil {
			d.logger.Error().Err(err).Msg("Daily bonus sweep failed")
		}
	}
}

// notification is a deferred chat broadcast collected during the sweep.
type notification struct {
	chatID   int64
	country  string
	bonus    int64
	citizens int
}

// RunOnce performs one sweep over every country in a single transaction:
// bonus = floor(influence / ratio), credited to each citizen including
// the ruler, one history row per citizen.
func (d *Daily) RunOnce(ctx context.Context) error {
	var pending []notification

	err := withTx(ctx, d.db, func(tx pgx.Tx) error {
		users := d.userRepo.WithTx(tx)
		countries := d.countryRepo.WithTx(tx)
		history := d.historyRepo.WithTx(tx)

		all, err := countries.All(ctx)
		if err != nil {
			return err
		}

		for _, country := range all {
			bonus := country.InfluencePoints / d.ratio
			if bonus <= 0 {
				continue
			}

			citizens, err := users.CitizensOf(ctx, country.ID)
			if err != nil {
				return err
			}
			for _, citizen := range citizens {
				if _, err := users.AddPoints(ctx, citizen.TelegramID, bonus); err != nil {
					return err
				}
				if _, err := history.Append(ctx, nil, citizen.TelegramID, model.EventDailyBonus, bonus,
					fmt.Sprintf("Ежедневный бонус страны «%s»", country.Name)); err != nil {
					return err
				}
			}

			d.logger.Info().
				Int64("country_id", country.ID).
				Int64("bonus", bonus).
				Int("citizens", len(citizens)).
				Msg("Daily bonus credited")

			if country.ChatID != nil && len(citizens) > 0 {
				pending = append(pending, notification{
					chatID:   *country.ChatID,
					country:  country.Name,
					bonus:    bonus,
					citizens: len(citizens),
				})
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bonus sweep: %w", err)
	}

	if d.notifier != nil {
		for _, n := range pending {
			d.notifier.NotifyBonus(n.chatID, n.country, n.bonus, n.citizens)
		}
	}
	return nil
}

func withTx(ctx context.Context, db TxBeginner, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, db, fn)
}
