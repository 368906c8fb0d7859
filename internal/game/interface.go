// Package game defines the slot machine interfaces and the weighted
// symbol table both machines draw from.
package game

import "math/rand"

// Result represents the outcome of one casino round.
type Result struct {
	Payout  int64          // Gross payout credited after the pre-debited bet (0 = total loss)
	Display string         // Rendered reels/grid for the chat message
	Details map[string]any // Additional game-specific details
}

// Game defines the interface that all slot machines implement.
// Machines are pure draw+evaluate logic; balances and history are the
// casino service's concern.
type Game interface {
	// Name returns the machine's display name.
	Name() string

	// Command returns the command that triggers this machine (e.g. "casino").
	Command() string

	// Description returns a brief description of the machine.
	Description() string

	// ValidateBet checks if the bet amount is valid.
	// Returns nil if valid, or an error describing the validation failure.
	ValidateBet(bet int64) error

	// MaxBet returns the maximum allowed bet for this machine.
	// Returns 0 if there is no maximum.
	MaxBet() int64

	// Play draws one round with the given source of randomness and
	// returns the gross payout for the bet.
	Play(rng *rand.Rand, bet int64) (*Result, error)
}
