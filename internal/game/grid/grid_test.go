package grid

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"nation-game-bot/internal/game"
)

func newTestTable(t *testing.T) *game.Table {
	t.Helper()
	table, err := game.GenerateTable([]string{"🍒", "🍋", "🦷", "⭐", "👼🏿"}, 1.0, 0.5, 100.0, 1.6)
	require.NoError(t, err)
	return table
}

func TestCalculatePayout(t *testing.T) {
	table := newTestTable(t)

	tests := []struct {
		name      string
		cells     [9]int
		bet       int64
		luck      float64
		expected  int64
		wantLines int
	}{
		{
			// Top row of symbol 0 (multiplier 1.0), luck neutral
			name:      "single row win",
			cells:     [9]int{0, 0, 0, 1, 2, 3, 4, 1, 2},
			bet:       100,
			luck:      1.0,
			expected:  100,
			wantLines: 1,
		},
		{
			// Middle column of symbol 2 (multiplier 2.0)
			name:      "single column win",
			cells:     [9]int{0, 2, 1, 3, 2, 4, 1, 2, 0},
			bet:       100,
			luck:      1.0,
			expected:  200,
			wantLines: 1,
		},
		{
			// Full grid of symbol 0: 8 lines × bet × 1.0
			name:      "full grid stacks all lines",
			cells:     [9]int{0, 0, 0, 0, 0, 0, 0, 0, 0},
			bet:       100,
			luck:      1.0,
			expected:  800,
			wantLines: 8,
		},
		{
			name:      "luck scales the win",
			cells:     [9]int{0, 0, 0, 1, 2, 3, 4, 1, 2},
			bet:       100,
			luck:      1.2,
			expected:  120,
			wantLines: 1,
		},
		{
			name:      "no win",
			cells:     [9]int{0, 1, 2, 3, 4, 0, 1, 2, 3},
			bet:       100,
			luck:      1.2,
			expected:  0,
			wantLines: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payout, wins := CalculatePayout(table, tt.cells, tt.bet, tt.luck)
			assert.Equal(t, tt.expected, payout)
			assert.Len(t, wins, tt.wantLines)
		})
	}
}

func TestMachine_ValidateBet(t *testing.T) {
	m := New(newTestTable(t), 500, 0.8, 1.2)

	assert.NoError(t, m.ValidateBet(500))
	assert.ErrorIs(t, m.ValidateBet(0), ErrInvalidBet)
	assert.Error(t, m.ValidateBet(501))
}

func TestMachine_Play(t *testing.T) {
	m := New(newTestTable(t), 0, 0.8, 1.2)
	rng := rand.New(rand.NewSource(3))

	result, err := m.Play(rng, 100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Payout, int64(0))
	assert.NotEmpty(t, result.Display)

	luck, ok := result.Details["luck"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, luck, 0.8)
	assert.LessOrEqual(t, luck, 1.2)
}

// Property: payout is zero iff no line matches, and winning lines stack
// additively under any luck value.
func TestCalculatePayout_Property(t *testing.T) {
	table := newTestTable(t)

	rapid.Check(t, func(t *rapid.T) {
		var cells [9]int
		for i := range cells {
			cells[i] = rapid.IntRange(0, table.Len()-1).Draw(t, "cell")
		}
		bet := rapid.Int64Range(1, 100000).Draw(t, "bet")
		luck := rapid.Float64Range(0.8, 1.2).Draw(t, "luck")

		payout, wins := CalculatePayout(table, cells, bet, luck)
		if len(wins) == 0 {
			assert.Zero(t, payout)
		} else {
			assert.Positive(t, payout)
		}

		// Recompute the stacked total independently
		expected := 0.0
		for _, li := range wins {
			line := Lines[li]
			sym := cells[line[0]]
			expected += float64(bet) * table.Symbol(sym).Multiplier * luck
		}
		assert.Equal(t, int64(expected), payout)
	})
}
