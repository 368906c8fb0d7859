package game

import (
	"errors"
	"math/rand"
)

// Symbol is one face of the slot machine with its payout multiplier and
// draw weight. Symbols later in the table pay more but appear less often.
type Symbol struct {
	Face       string
	Multiplier float64
	Weight     float64
}

// Table is a weighted symbol distribution shared by both machines.
type Table struct {
	symbols     []Symbol
	totalWeight float64
}

// ErrEmptyTable is returned when a table is generated from no faces.
var ErrEmptyTable = errors.New("symbol table requires at least one face")

// GenerateTable derives a weighted table from four generator parameters:
// symbol i gets multiplier baseMult + i*multStep and weight
// baseWeight / weightDivisor^i. The ramp makes rarity and payout move
// together without per-symbol tuning.
func GenerateTable(faces []string, baseMult, multStep, baseWeight, weightDivisor float64) (*Table, error) {
	if len(faces) == 0 {
		return nil, ErrEmptyTable
	}
	if baseWeight <= 0 || weightDivisor <= 0 {
		return nil, errors.New("base weight and weight divisor must be positive")
	}

	symbols := make([]Symbol, len(faces))
	weight := baseWeight
	total := 0.0
	for i, face := range faces {
		symbols[i] = Symbol{
			Face:       face,
			Multiplier: baseMult + float64(i)*multStep,
			Weight:     weight,
		}
		total += weight
		weight /= weightDivisor
	}

	return &Table{symbols: symbols, totalWeight: total}, nil
}

// Symbols returns the table's symbols in ascending multiplier order.
func (t *Table) Symbols() []Symbol {
	return t.symbols
}

// Len returns the number of symbols in the table.
func (t *Table) Len() int {
	return len(t.symbols)
}

// Symbol returns the symbol at index i.
func (t *Table) Symbol(i int) Symbol {
	return t.symbols[i]
}

// Draw picks one symbol index according to the weighted distribution.
func (t *Table) Draw(rng *rand.Rand) int {
	target := rng.Float64() * t.totalWeight
	for i, s := range t.symbols {
		target -= s.Weight
		if target < 0 {
			return i
		}
	}
	// Float rounding can leave a sliver past the last weight.
	return len(t.symbols) - 1
}
