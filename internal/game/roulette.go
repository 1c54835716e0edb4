package game

import (
	"fmt"
	"strconv"

	"coin_ledger/internal/domain"
)

const (
	RouletteMaxNumber  = 36
	RouletteMultiplier = 10
)

// Roulette: single number bet on a 0-36 wheel
type Roulette struct{}

func (Roulette) Type() domain.GameType { return domain.GameTypeRoulette }
func (Roulette) Multiplier() int64     { return RouletteMultiplier }
func (Roulette) Rules() string         { return "pick a number 0-36, an exact hit pays 10x" }

func (Roulette) ValidateChoice(choice *string) error {
	_, err := parseRouletteNumber(choice)
	return err
}

func (Roulette) Play(rng RandomSource, choice *string) (Outcome, error) {
	pick, err := parseRouletteNumber(choice)
	if err != nil {
		return Outcome{}, err
	}
	spin, err := roll(rng, 0, RouletteMaxNumber)
	if err != nil {
		return Outcome{}, err
	}
	won := spin == pick
	return Outcome{
		Won:         won,
		Multiplier:  RouletteMultiplier,
		Description: fmt.Sprintf("picked %d, wheel landed on %d - %s", pick, spin, verdict(won)),
		Details:     map[string]any{"pick": pick, "result": spin},
	}, nil
}

func parseRouletteNumber(choice *string) (int, error) {
	n, err := strconv.Atoi(choiceValue(choice))
	if err != nil || n < 0 || n > RouletteMaxNumber {
		return 0, domain.ErrInvalidChoice
	}
	return n, nil
}
