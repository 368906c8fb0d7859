package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/jackc/pgx/v5"

	"nation-game-bot/internal/game"
	"nation-game-bot/internal/model"
	"nation-game-bot/internal/pkg/lock"
	"nation-game-bot/internal/repository"
)

// ErrUnknownGame is returned for commands with no registered machine.
var ErrUnknownGame = errors.New("unknown game")

// RoundOutcome is the settled result of one casino round.
type RoundOutcome struct {
	Result  *game.Result
	Bet     int64
	Net     int64 // payout - bet
	Balance int64 // balance after settlement
}

// CasinoService runs casino rounds. The bet is pre-debited and settled
// with the payout, history row and loss counter in one transaction, so a
// failure mid-round never leaves a user debited without an outcome.
type CasinoService struct {
	db          TxBeginner
	registry    *game.Registry
	userRepo    *repository.UserRepository
	historyRepo *repository.HistoryRepository
	locks       *lock.UserLock

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewCasinoService creates a new CasinoService instance. The rand source
// is injected so tests can seed deterministic rounds.
func NewCasinoService(
	db TxBeginner,
	registry *game.Registry,
	userRepo *repository.UserRepository,
	historyRepo *repository.HistoryRepository,
	locks *lock.UserLock,
	rng *rand.Rand,
) *CasinoService {
	return &CasinoService{
		db:          db,
		registry:    registry,
		userRepo:    userRepo,
		historyRepo: historyRepo,
		locks:       locks,
		rng:         rng,
	}
}

// Play runs one round of the machine registered under command for the
// user. Per-user locking serializes concurrent rounds by the same player.
func (s *CasinoService) Play(ctx context.Context, userID int64, command string, bet int64) (*RoundOutcome, error) {
	machine, ok := s.registry.Get(command)
	if !ok {
		return nil, ErrUnknownGame
	}
	if err := machine.ValidateBet(bet); err != nil {
		return nil, err
	}

	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, classifyUserErr(err)
	}
	if user.Points < bet {
		return nil, ErrInsufficientBalance
	}

	var outcome *RoundOutcome
	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		history := s.historyRepo.WithTx(tx)

		debited, err := users.AddPoints(ctx, userID, -bet)
		if err != nil {
			return err
		}
		if debited.Points < 0 {
			return ErrInsufficientBalance
		}

		result, err := s.draw(machine, bet)
		if err != nil {
			return err
		}

		net := result.Payout - bet
		balance := debited.Points
		if result.Payout > 0 {
			credited, err := users.AddPoints(ctx, userID, result.Payout)
			if err != nil {
				return err
			}
			balance = credited.Points
		}

		if _, err := history.Append(ctx, nil, userID, model.EventCasino, net,
			fmt.Sprintf("Казино (%s)", machine.Name())); err != nil {
			return err
		}
		if net < 0 {
			if err := users.AddCasinoLoss(ctx, userID, -net); err != nil {
				return err
			}
		}

		outcome = &RoundOutcome{
			Result:  result,
			Bet:     bet,
			Net:     net,
			Balance: balance,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to play round: %w", err)
	}
	return outcome, nil
}

// draw runs the machine's pure draw under the rand mutex; rand.Rand is
// not safe for concurrent use.
func (s *CasinoService) draw(machine game.Game, bet int64) (*game.Result, error) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return machine.Play(s.rng, bet)
}

// Machines lists the registered machines for the help surface.
func (s *CasinoService) Machines() []game.Game {
	return s.registry.List()
}
