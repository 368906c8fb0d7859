package service

import (
	"context"
	"fmt"

	"nation-game-bot/internal/model"
	"nation-game-bot/internal/repository"
)

// AccountService handles user account lookups and leaderboards.
type AccountService struct {
	userRepo    *repository.UserRepository
	countryRepo *repository.CountryRepository
	historyRepo *repository.HistoryRepository
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	userRepo *repository.UserRepository,
	countryRepo *repository.CountryRepository,
	historyRepo *repository.HistoryRepository,
) *AccountService {
	return &AccountService{
		userRepo:    userRepo,
		countryRepo: countryRepo,
		historyRepo: historyRepo,
	}
}

// EnsureUser ensures a user row exists, creating one lazily on first
// interaction. Returns the user and whether it was newly created.
func (s *AccountService) EnsureUser(ctx context.Context, telegramID int64, username, fullName string) (*model.User, bool, error) {
	user, created, err := s.userRepo.GetOrCreate(ctx, telegramID, username, fullName)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}
	return user, created, nil
}

// GetUser retrieves a user by their Telegram ID.
func (s *AccountService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, telegramID)
	if err != nil {
		return nil, classifyUserErr(err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by Telegram handle.
func (s *AccountService) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, classifyUserErr(err)
	}
	return user, nil
}

// Profile bundles a user with their country, when they have one.
type Profile struct {
	User    *model.User
	Country *model.Country
}

// GetProfile retrieves a user together with their country.
func (s *AccountService) GetProfile(ctx context.Context, telegramID int64) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, telegramID)
	if err != nil {
		return nil, classifyUserErr(err)
	}

	p := &Profile{User: user}
	if user.CountryID != nil {
		country, err := s.countryRepo.GetByID(ctx, *user.CountryID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user country: %w", err)
		}
		p.Country = country
	}
	return p, nil
}

// GetHistory retrieves a user's most recent ledger events, newest first.
func (s *AccountService) GetHistory(ctx context.Context, telegramID int64, limit int) ([]*model.History, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.historyRepo.ListByTarget(ctx, telegramID, limit)
}

// GetTopUsers retrieves the top users by point balance.
func (s *AccountService) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	return s.userRepo.GetTopByPoints(ctx, limit)
}

// GetTopLosers retrieves the casino-loss leaderboard, most lost first.
func (s *AccountService) GetTopLosers(ctx context.Context, limit int) ([]*model.User, error) {
	return s.userRepo.GetTopCasinoLosers(ctx, limit)
}
