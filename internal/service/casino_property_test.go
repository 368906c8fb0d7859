// Property-based tests for casino round settlement.
package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"nation-game-bot/internal/game"
	"nation-game-bot/internal/game/reel"
)

// simulateRound mirrors the settlement in CasinoService.Play: pre-debit
// the bet, credit the gross payout, record the net delta.
func simulateRound(balance, bet, payout int64) (balanceAfter, net int64, err error) {
	if balance < bet {
		return balance, 0, ErrInsufficientBalance
	}
	balanceAfter = balance - bet + payout
	net = payout - bet
	return balanceAfter, net, nil
}

// For all casino rounds: balance_after = balance_before - bet + payout.
func TestRoundSettlementProperty(t *testing.T) {
	table, err := game.GenerateTable([]string{"🍒", "🍋", "🦷", "⭐", "👼🏿"}, 1.0, 0.5, 100.0, 1.6)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Int64Range(0, 1000000).Draw(t, "balance")
		bet := rapid.Int64Range(1, 100000).Draw(t, "bet")
		draw := [3]int{
			rapid.IntRange(0, table.Len()-1).Draw(t, "a"),
			rapid.IntRange(0, table.Len()-1).Draw(t, "b"),
			rapid.IntRange(0, table.Len()-1).Draw(t, "c"),
		}

		payout := reel.CalculatePayout(table, draw, bet)
		balanceAfter, net, err := simulateRound(balance, bet, payout)

		if balance < bet {
			assert.ErrorIs(t, err, ErrInsufficientBalance)
			assert.Equal(t, balance, balanceAfter)
			return
		}

		require.NoError(t, err)
		assert.Equal(t, balance-bet+payout, balanceAfter)
		assert.Equal(t, payout-bet, net)

		// No match means the round is a pure loss of the bet
		noMatch := draw[0] != draw[1] && draw[1] != draw[2] && draw[0] != draw[2]
		if noMatch {
			assert.Equal(t, -bet, net)
		}
	})
}

// The two-match example: bet 100 on a symbol with multiplier 2.0 pays
// 200 gross, a net change of +100.
func TestRoundTwoMatchExample(t *testing.T) {
	table, err := game.GenerateTable([]string{"🍒", "🍋", "🦷", "⭐", "👼🏿"}, 1.0, 0.5, 100.0, 1.6)
	require.NoError(t, err)

	// Symbol index 2 has multiplier 1.0 + 2*0.5 = 2.0
	payout := reel.CalculatePayout(table, [3]int{2, 2, 0}, 100)
	require.Equal(t, int64(200), payout)

	balanceAfter, net, err := simulateRound(1000, 100, payout)
	require.NoError(t, err)
	assert.Equal(t, int64(1100), balanceAfter)
	assert.Equal(t, int64(100), net)
}
