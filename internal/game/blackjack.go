package game

import (
	"fmt"

	"coin_ledger/internal/domain"
)

const (
	BlackjackTarget     = 21
	BlackjackMultiplier = 3
)

// Blackjack: simplified, two player cards against one dealer card, values 1-10.
// Wins on exactly 21 or a total above the dealer's card that does not bust.
type Blackjack struct{}

func (Blackjack) Type() domain.GameType { return domain.GameTypeBlackjack }
func (Blackjack) Multiplier() int64     { return BlackjackMultiplier }
func (Blackjack) Rules() string {
	return "two cards against the dealer's one, 21 or beating the dealer pays 3x"
}

func (Blackjack) ValidateChoice(choice *string) error {
	if choiceValue(choice) != "" {
		return domain.ErrInvalidChoice
	}
	return nil
}

func (Blackjack) Play(rng RandomSource, _ *string) (Outcome, error) {
	var cards [3]int
	for i := range cards {
		c, err := roll(rng, 1, 10)
		if err != nil {
			return Outcome{}, err
		}
		cards[i] = c
	}
	total, dealer := cards[0]+cards[1], cards[2]
	won := total == BlackjackTarget || (total > dealer && total <= BlackjackTarget)
	return Outcome{
		Won:        won,
		Multiplier: BlackjackMultiplier,
		Description: fmt.Sprintf("cards %d+%d=%d, dealer %d - %s",
			cards[0], cards[1], total, dealer, verdict(won)),
		Details: map[string]any{"player": []int{cards[0], cards[1]}, "total": total, "dealer": dealer},
	}, nil
}
