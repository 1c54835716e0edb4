package game

import (
	"fmt"

	"coin_ledger/internal/domain"
)

const (
	CoinHeads          = "heads"
	CoinTails          = "tails"
	CoinflipMultiplier = 2
)

type Coinflip struct{}

func (Coinflip) Type() domain.GameType { return domain.GameTypeCoinflip }
func (Coinflip) Multiplier() int64     { return CoinflipMultiplier }
func (Coinflip) Rules() string         { return "call heads or tails, a correct call pays 2x" }

func (Coinflip) ValidateChoice(choice *string) error {
	switch choiceValue(choice) {
	case CoinHeads, CoinTails:
		return nil
	}
	return domain.ErrInvalidChoice
}

func (c Coinflip) Play(rng RandomSource, choice *string) (Outcome, error) {
	if err := c.ValidateChoice(choice); err != nil {
		return Outcome{}, err
	}
	n, err := rng.Intn(2)
	if err != nil {
		return Outcome{}, err
	}
	side := CoinHeads
	if n == 1 {
		side = CoinTails
	}
	won := side == *choice
	return Outcome{
		Won:         won,
		Multiplier:  CoinflipMultiplier,
		Description: fmt.Sprintf("called %s, coin landed %s - %s", *choice, side, verdict(won)),
		Details:     map[string]any{"call": *choice, "result": side},
	}, nil
}
