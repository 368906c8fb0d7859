// Package reel implements the classic 1×3 slot machine.
package reel

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"nation-game-bot/internal/game"
)

// DefaultMaxBet is the maximum allowed bet when none is configured.
const DefaultMaxBet = 100000

// Errors for the reel machine.
var (
	ErrInvalidBet = errors.New("bet amount must be positive")
	ErrBetTooHigh = errors.New("bet exceeds maximum allowed")
)

// Machine implements the Game interface for the 1×3 reel.
type Machine struct {
	table  *game.Table
	maxBet int64
}

// New creates a reel machine drawing from the given symbol table.
func New(table *game.Table, maxBet int64) *Machine {
	if maxBet <= 0 {
		maxBet = DefaultMaxBet
	}
	return &Machine{table: table, maxBet: maxBet}
}

// Name returns the machine's display name.
func (m *Machine) Name() string {
	return "Казино"
}

// Command returns the command that triggers this machine.
func (m *Machine) Command() string {
	return "casino"
}

// Description returns a brief description of the machine.
func (m *Machine) Description() string {
	return "Три барабана: три совпадения — крупный выигрыш, два — возврат с множителем"
}

// MaxBet returns the maximum allowed bet.
func (m *Machine) MaxBet() int64 {
	return m.maxBet
}

// ValidateBet checks if the bet amount is valid.
func (m *Machine) ValidateBet(bet int64) error {
	if bet <= 0 {
		return ErrInvalidBet
	}
	if bet > m.maxBet {
		return fmt.Errorf("%w: max bet is %d", ErrBetTooHigh, m.maxBet)
	}
	return nil
}

// Play draws three symbols and evaluates the round.
func (m *Machine) Play(rng *rand.Rand, bet int64) (*game.Result, error) {
	if err := m.ValidateBet(bet); err != nil {
		return nil, err
	}

	draw := [3]int{m.table.Draw(rng), m.table.Draw(rng), m.table.Draw(rng)}
	payout := CalculatePayout(m.table, draw, bet)

	faces := make([]string, 3)
	for i, idx := range draw {
		faces[i] = m.table.Symbol(idx).Face
	}

	return &game.Result{
		Payout:  payout,
		Display: strings.Join(faces, " | "),
		Details: map[string]any{
			"draw": draw,
			"bet":  bet,
		},
	}, nil
}

// CalculatePayout computes the gross payout for one reel draw.
// Rules:
//   - all three match: payout = bet × multiplier × 3
//   - exactly two match: payout = bet × multiplier of the matched symbol
//   - no match: payout = 0, the pre-debited bet is lost
func CalculatePayout(table *game.Table, draw [3]int, bet int64) int64 {
	if draw[0] == draw[1] && draw[1] == draw[2] {
		return int64(float64(bet) * table.Symbol(draw[0]).Multiplier * 3)
	}

	switch {
	case draw[0] == draw[1] || draw[0] == draw[2]:
		return int64(float64(bet) * table.Symbol(draw[0]).Multiplier)
	case draw[1] == draw[2]:
		return int64(float64(bet) * table.Symbol(draw[1]).Multiplier)
	}

	return 0
}
