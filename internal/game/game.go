// Package game holds the single-round game engines. Engines only decide
// outcomes; settlement happens in the service layer.
package game

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"coin_ledger/internal/domain"
)

// RandomSource draws a uniform integer in [0, n).
type RandomSource interface {
	Intn(n int) (int, error)
}

// CryptoSource is the production RandomSource backed by crypto/rand.
type CryptoSource struct{}

func (CryptoSource) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("intn: invalid bound %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("intn: %w", err)
	}
	return int(v.Int64()), nil
}

// Engine is one game type.
type Engine interface {
	Type() domain.GameType
	// Multiplier is the headline payout shown in the catalog.
	Multiplier() int64
	Rules() string
	ValidateChoice(choice *string) error
	Play(rng RandomSource, choice *string) (Outcome, error)
}

// Outcome is a drawn result. Payout is bet * Multiplier when Won.
type Outcome struct {
	Won         bool
	Multiplier  int64
	Description string
	Details     map[string]any
}

func (o Outcome) Payout(bet int64) int64 {
	if !o.Won {
		return 0
	}
	return bet * o.Multiplier
}

// roll returns a uniform integer in [lo, hi].
func roll(rng RandomSource, lo, hi int) (int, error) {
	n, err := rng.Intn(hi - lo + 1)
	if err != nil {
		return 0, err
	}
	return lo + n, nil
}

func choiceValue(choice *string) string {
	if choice == nil {
		return ""
	}
	return *choice
}
