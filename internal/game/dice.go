package game

import (
	"fmt"

	"coin_ledger/internal/domain"
)

const (
	DiceSides      = 6
	DiceWinFrom    = 4
	DiceMultiplier = 2
)

// Dice: one d6, 4-6 wins
type Dice struct{}

func (Dice) Type() domain.GameType { return domain.GameTypeDice }
func (Dice) Multiplier() int64     { return DiceMultiplier }
func (Dice) Rules() string         { return "roll a six-sided die, 4 or higher pays 2x" }

func (Dice) ValidateChoice(choice *string) error {
	if choiceValue(choice) != "" {
		return domain.ErrInvalidChoice
	}
	return nil
}

func (Dice) Play(rng RandomSource, _ *string) (Outcome, error) {
	result, err := roll(rng, 1, DiceSides)
	if err != nil {
		return Outcome{}, err
	}
	won := result >= DiceWinFrom
	return Outcome{
		Won:         won,
		Multiplier:  DiceMultiplier,
		Description: fmt.Sprintf("rolled %d - %s", result, verdict(won)),
		Details:     map[string]any{"result": result},
	}, nil
}

func verdict(won bool) string {
	if won {
		return "win"
	}
	return "lose"
}
