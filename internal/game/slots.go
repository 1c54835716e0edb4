package game

import (
	"strings"

	"coin_ledger/internal/domain"
)

const (
	SlotsReels      = 3
	SlotsMultiplier = 5
)

var SlotSymbols = []string{"cherry", "lemon", "bell", "star", "diamond"}

// Slots: three reels, all equal pays
type Slots struct{}

func (Slots) Type() domain.GameType { return domain.GameTypeSlots }
func (Slots) Multiplier() int64     { return SlotsMultiplier }
func (Slots) Rules() string         { return "spin three reels, three matching symbols pay 5x" }

func (Slots) ValidateChoice(choice *string) error {
	if choiceValue(choice) != "" {
		return domain.ErrInvalidChoice
	}
	return nil
}

func (Slots) Play(rng RandomSource, _ *string) (Outcome, error) {
	reels := make([]string, SlotsReels)
	for i := range reels {
		n, err := rng.Intn(len(SlotSymbols))
		if err != nil {
			return Outcome{}, err
		}
		reels[i] = SlotSymbols[n]
	}
	won := reels[0] == reels[1] && reels[1] == reels[2]
	return Outcome{
		Won:         won,
		Multiplier:  SlotsMultiplier,
		Description: strings.Join(reels, " | ") + " - " + verdict(won),
		Details:     map[string]any{"reels": reels},
	}, nil
}
