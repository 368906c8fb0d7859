package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testFaces = []string{"🍒", "🍋", "🦷", "⭐", "👼🏿"}

func TestGenerateTable(t *testing.T) {
	table, err := GenerateTable(testFaces, 1.0, 0.5, 100.0, 1.6)
	require.NoError(t, err)
	require.Equal(t, 5, table.Len())

	// Multipliers ramp up by the step
	assert.InDelta(t, 1.0, table.Symbol(0).Multiplier, 1e-9)
	assert.InDelta(t, 1.5, table.Symbol(1).Multiplier, 1e-9)
	assert.InDelta(t, 3.0, table.Symbol(4).Multiplier, 1e-9)

	// Weights ramp down by the divisor
	assert.InDelta(t, 100.0, table.Symbol(0).Weight, 1e-9)
	assert.InDelta(t, 62.5, table.Symbol(1).Weight, 1e-9)
}

func TestGenerateTable_Invalid(t *testing.T) {
	_, err := GenerateTable(nil, 1.0, 0.5, 100.0, 1.6)
	assert.ErrorIs(t, err, ErrEmptyTable)

	_, err = GenerateTable(testFaces, 1.0, 0.5, 0, 1.6)
	assert.Error(t, err)

	_, err = GenerateTable(testFaces, 1.0, 0.5, 100.0, -1)
	assert.Error(t, err)
}

func TestTable_DrawInRange(t *testing.T) {
	table, err := GenerateTable(testFaces, 1.0, 0.5, 100.0, 1.6)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		idx := table.Draw(rng)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, table.Len())
	}
}

func TestTable_DrawFavorsCheapSymbols(t *testing.T) {
	table, err := GenerateTable(testFaces, 1.0, 0.5, 100.0, 1.6)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	counts := make([]int, table.Len())
	for i := 0; i < 50000; i++ {
		counts[table.Draw(rng)]++
	}

	// The first symbol has the largest weight, the last the smallest.
	assert.Greater(t, counts[0], counts[table.Len()-1])
}

// Property: for any generator parameters, multipliers are non-decreasing
// and weights strictly decreasing along the table.
func TestTable_RampProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		faces := make([]string, n)
		for i := range faces {
			faces[i] = "x"
		}

		baseMult := rapid.Float64Range(0.1, 10).Draw(t, "baseMult")
		multStep := rapid.Float64Range(0, 5).Draw(t, "multStep")
		baseWeight := rapid.Float64Range(1, 1000).Draw(t, "baseWeight")
		divisor := rapid.Float64Range(1.01, 4).Draw(t, "divisor")

		table, err := GenerateTable(faces, baseMult, multStep, baseWeight, divisor)
		require.NoError(t, err)

		for i := 1; i < table.Len(); i++ {
			assert.GreaterOrEqual(t, table.Symbol(i).Multiplier, table.Symbol(i-1).Multiplier)
			assert.Less(t, table.Symbol(i).Weight, table.Symbol(i-1).Weight)
		}
	})
}
