package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nation-game-bot/internal/config"
	"nation-game-bot/internal/model"
	"nation-game-bot/internal/repository"
)

// Ledger-specific errors.
var (
	ErrZeroDelta          = errors.New("point adjustment must be non-zero")
	ErrLevelOutOfRange    = errors.New("admin level out of range")
	ErrHierarchyViolation = errors.New("actor level must exceed target level")
)

// LedgerService handles every direct point mutation: admin adjustments,
// peer transfers, treasury donations and admin level assignments. All
// writes pair the balance change with a history row in one transaction.
type LedgerService struct {
	db          TxBeginner
	cfg         *config.Config
	userRepo    *repository.UserRepository
	countryRepo *repository.CountryRepository
	historyRepo *repository.HistoryRepository
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(
	db TxBeginner,
	cfg *config.Config,
	userRepo *repository.UserRepository,
	countryRepo *repository.CountryRepository,
	historyRepo *repository.HistoryRepository,
) *LedgerService {
	return &LedgerService{
		db:          db,
		cfg:         cfg,
		userRepo:    userRepo,
		countryRepo: countryRepo,
		historyRepo: historyRepo,
	}
}

// canAct reports whether the actor may modify the target. The owner
// bypasses the hierarchy entirely; everyone else needs a strictly higher
// admin level than the target and may never target themselves.
func (s *LedgerService) canAct(actor, target *model.User) error {
	if s.cfg.IsOwner(actor.TelegramID) {
		return nil
	}
	if actor.AdminLevel < 1 {
		return ErrNotAuthorized
	}
	if actor.TelegramID == target.TelegramID {
		return ErrSelfTarget
	}
	if actor.AdminLevel <= target.AdminLevel {
		return ErrHierarchyViolation
	}
	return nil
}

// AdjustPoints applies a signed delta to the target's balance on behalf
// of an admin. Zero deltas are rejected, negative Telegram IDs (bots and
// channels) cannot hold points, and the admin hierarchy is enforced.
func (s *LedgerService) AdjustPoints(ctx context.Context, actorID, targetID, delta int64, reason string) (*model.User, error) {
	if delta == 0 {
		return nil, ErrZeroDelta
	}
	if targetID < 0 {
		return nil, ErrBotTarget
	}

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, classifyUserErr(err)
	}
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, classifyUserErr(err)
	}
	if err := s.canAct(actor, target); err != nil {
		return nil, err
	}

	var updated *model.User
	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		history := s.historyRepo.WithTx(tx)

		updated, err = users.AddPoints(ctx, targetID, delta)
		if err != nil {
			return err
		}
		_, err = history.Append(ctx, &actorID, targetID, model.EventPointsChange, delta, reason)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to adjust points: %w", err)
	}
	return updated, nil
}

// Transfer moves points between two users. The sum of both balances is
// conserved; a transfer never succeeds when the sender cannot cover it.
func (s *LedgerService) Transfer(ctx context.Context, fromID, toID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if fromID == toID {
		return ErrSelfTarget
	}
	if toID < 0 {
		return ErrBotTarget
	}

	sender, err := s.userRepo.GetByID(ctx, fromID)
	if err != nil {
		return classifyUserErr(err)
	}
	if sender.Points < amount {
		return ErrInsufficientBalance
	}
	if _, err := s.userRepo.GetByID(ctx, toID); err != nil {
		return classifyUserErr(err)
	}

	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		history := s.historyRepo.WithTx(tx)

		updated, err := users.AddPoints(ctx, fromID, -amount)
		if err != nil {
			return err
		}
		// Re-check under the row lock: a concurrent debit may have landed
		// between the read above and this update.
		if updated.Points < 0 {
			return ErrInsufficientBalance
		}
		if _, err := users.AddPoints(ctx, toID, amount); err != nil {
			return err
		}

		if _, err := history.Append(ctx, nil, fromID, model.EventTransfer, -amount,
			fmt.Sprintf("Перевод пользователю %d", toID)); err != nil {
			return err
		}
		_, err = history.Append(ctx, nil, toID, model.EventTransfer, amount,
			fmt.Sprintf("Перевод от пользователя %d", fromID))
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return ErrInsufficientBalance
		}
		return fmt.Errorf("failed to transfer: %w", err)
	}
	return nil
}

// Donate moves points from a citizen into their country's treasury.
func (s *LedgerService) Donate(ctx context.Context, userID, amount int64) (*model.Country, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, classifyUserErr(err)
	}
	if user.CountryID == nil {
		return nil, ErrCountryNotFound
	}
	if user.Points < amount {
		return nil, ErrInsufficientBalance
	}

	var country *model.Country
	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		countries := s.countryRepo.WithTx(tx)
		history := s.historyRepo.WithTx(tx)

		updated, err := users.AddPoints(ctx, userID, -amount)
		if err != nil {
			return err
		}
		if updated.Points < 0 {
			return ErrInsufficientBalance
		}
		if err := countries.AddTreasury(ctx, *user.CountryID, amount); err != nil {
			return err
		}
		if _, err := history.Append(ctx, nil, userID, model.EventDonation, -amount,
			"Пожертвование в казну страны"); err != nil {
			return err
		}

		country, err = countries.GetByID(ctx, *user.CountryID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to donate: %w", err)
	}
	return country, nil
}

// SetAdminLevel assigns an admin level to the target. The actor must
// outrank both the target's current level and the level being granted;
// only the owner can mint equals.
func (s *LedgerService) SetAdminLevel(ctx context.Context, actorID, targetID int64, level int) error {
	if level < 0 || level > model.MaxAdminLevel {
		return ErrLevelOutOfRange
	}
	if targetID < 0 {
		return ErrBotTarget
	}

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return classifyUserErr(err)
	}
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return classifyUserErr(err)
	}
	if err := s.canAct(actor, target); err != nil {
		return err
	}
	if !s.cfg.IsOwner(actorID) && level >= actor.AdminLevel {
		return ErrHierarchyViolation
	}

	if err := s.userRepo.SetAdminLevel(ctx, targetID, level); err != nil {
		return fmt.Errorf("failed to set admin level: %w", err)
	}
	return nil
}

func classifyUserErr(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return err
}
