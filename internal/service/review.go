package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"nation-game-bot/internal/config"
	"nation-game-bot/internal/model"
	"nation-game-bot/internal/repository"
)

// Review errors.
var (
	ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")
	ErrReviewCooldown   = errors.New("review cooldown active")
	ErrOwnCountryReview = errors.New("cannot review own country")
)

// ReviewService handles country ratings. A re-vote within the cooldown
// window is rejected; past it, the old vote is replaced and the
// country's aggregate recomputed.
type ReviewService struct {
	db          TxBeginner
	cfg         *config.Config
	userRepo    *repository.UserRepository
	countryRepo *repository.CountryRepository
	reviewRepo  *repository.ReviewRepository
}

// NewReviewService creates a new ReviewService instance.
func NewReviewService(
	db TxBeginner,
	cfg *config.Config,
	userRepo *repository.UserRepository,
	countryRepo *repository.CountryRepository,
	reviewRepo *repository.ReviewRepository,
) *ReviewService {
	return &ReviewService{
		db:          db,
		cfg:         cfg,
		userRepo:    userRepo,
		countryRepo: countryRepo,
		reviewRepo:  reviewRepo,
	}
}

// Rate records the user's 1-5 rating of a country and refreshes the
// country's average and review count in the same transaction.
func (s *ReviewService) Rate(ctx context.Context, userID, countryID int64, rating int) (*model.Country, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrRatingOutOfRange
	}

	country, err := s.countryRepo.GetByID(ctx, countryID)
	if err != nil {
		return nil, classifyCountryErr(err)
	}
	if country.RulerID == userID {
		return nil, ErrOwnCountryReview
	}

	last, err := s.reviewRepo.LastReviewAt(ctx, userID, countryID)
	if err == nil {
		cooldown := time.Duration(s.cfg.Economy.ReviewCooldownDays) * 24 * time.Hour
		if elapsed := time.Since(last); elapsed < cooldown {
			return nil, fmt.Errorf("%w: %s remaining", ErrReviewCooldown,
				(cooldown - elapsed).Round(time.Hour))
		}
	} else if !errors.Is(err, repository.ErrReviewNotFound) {
		return nil, err
	}

	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		reviews := s.reviewRepo.WithTx(tx)
		countries := s.countryRepo.WithTx(tx)

		if _, err := reviews.Replace(ctx, userID, countryID, rating); err != nil {
			return err
		}
		avg, total, err := reviews.Aggregate(ctx, countryID)
		if err != nil {
			return err
		}
		return countries.SetRating(ctx, countryID, avg, total)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rate country: %w", err)
	}

	return s.countryRepo.GetByID(ctx, countryID)
}
