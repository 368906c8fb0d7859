// Package grid implements the 3×3 slot machine with line evaluation.
package grid

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"nation-game-bot/internal/game"
)

// DefaultMaxBet is the maximum allowed bet when none is configured.
const DefaultMaxBet = 100000

// Lines are the eight three-in-a-row paths over a 3×3 grid stored
// row-major: three rows, three columns, two diagonals.
var Lines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Errors for the grid machine.
var (
	ErrInvalidBet = errors.New("bet amount must be positive")
	ErrBetTooHigh = errors.New("bet exceeds maximum allowed")
)

// Machine implements the Game interface for the 3×3 grid.
type Machine struct {
	table   *game.Table
	maxBet  int64
	luckMin float64
	luckMax float64
}

// New creates a grid machine. Each round applies a global luck
// multiplier drawn uniformly from [luckMin, luckMax] to every winning line.
func New(table *game.Table, maxBet int64, luckMin, luckMax float64) *Machine {
	if maxBet <= 0 {
		maxBet = DefaultMaxBet
	}
	if luckMin <= 0 || luckMax < luckMin {
		luckMin, luckMax = 1.0, 1.0
	}
	return &Machine{table: table, maxBet: maxBet, luckMin: luckMin, luckMax: luckMax}
}

// Name returns the machine's display name.
func (m *Machine) Name() string {
	return "Казино 3×3"
}

// Command returns the command that triggers this machine.
func (m *Machine) Command() string {
	return "casino3"
}

// Description returns a brief description of the machine.
func (m *Machine) Description() string {
	return "Поле 3×3: линии, столбцы и диагонали суммируются"
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

// Play draws nine cells, rolls the round's luck and evaluates all lines.
func (m *Machine) Play(rng *rand.Rand, bet int64) (*game.Result, error) {
	if err := m.ValidateBet(bet); err != nil {
		return nil, err
	}

	var cells [9]int
	for i := range cells {
		cells[i] = m.table.Draw(rng)
	}

	luck := m.luckMin + rng.Float64()*(m.luckMax-m.luckMin)
	payout, wins := CalculatePayout(m.table, cells, bet, luck)

	return &game.Result{
		Payout:  payout,
		Display: render(m.table, cells),
		Details: map[string]any{
			"cells": cells,
			"luck":  luck,
			"lines": wins,
			"bet":   bet,
		},
	}, nil
}

// CalculatePayout evaluates every line of the grid. Each winning line
// contributes bet × symbol multiplier × luck; simultaneous lines stack
// additively. Returns the total gross payout and the winning line indexes.
func CalculatePayout(table *game.Table, cells [9]int, bet int64, luck float64) (int64, []int) {
	total := 0.0
	var wins []int
	for i, line := range Lines {
		a, b, c := cells[line[0]], cells[line[1]], cells[line[2]]
		if a == b && b == c {
			total += float64(bet) * table.Symbol(a).Multiplier * luck
			wins = append(wins, i)
		}
	}
	return int64(total), wins
}

func render(table *game.Table, cells [9]int) string {
	var sb strings.Builder
	for row := 0; row < 3; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for col := 0; col < 3; col++ {
			if col > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(table.Symbol(cells[row*3+col]).Face)
		}
	}
	return sb.String()
}
