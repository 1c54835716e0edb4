package game

import (
	"fmt"

	"coin_ledger/internal/domain"
)

const (
	LotteryDigits         = 3
	LotteryTwoMatchPays   = 3
	LotteryThreeMatchPays = 8
)

// Lottery: three digits 1-9, positional matches against the draw.
// No pick means quick pick.
type Lottery struct{}

func (Lottery) Type() domain.GameType { return domain.GameTypeLottery }
func (Lottery) Multiplier() int64     { return LotteryThreeMatchPays }
func (Lottery) Rules() string {
	return "three digits 1-9, two positional matches pay 3x, three pay 8x"
}

func (Lottery) ValidateChoice(choice *string) error {
	if choiceValue(choice) == "" {
		return nil
	}
	_, err := parseLotteryTicket(choiceValue(choice))
	return err
}

func (Lottery) Play(rng RandomSource, choice *string) (Outcome, error) {
	var (
		ticket []int
		err    error
	)
	quickPick := choiceValue(choice) == ""
	if quickPick {
		ticket, err = drawDigits(rng)
	} else {
		ticket, err = parseLotteryTicket(choiceValue(choice))
	}
	if err != nil {
		return Outcome{}, err
	}

	draw, err := drawDigits(rng)
	if err != nil {
		return Outcome{}, err
	}

	matches := 0
	for i := range draw {
		if draw[i] == ticket[i] {
			matches++
		}
	}

	var mult int64
	switch {
	case matches == LotteryDigits:
		mult = LotteryThreeMatchPays
	case matches == 2:
		mult = LotteryTwoMatchPays
	}
	won := mult > 0

	return Outcome{
		Won:        won,
		Multiplier: mult,
		Description: fmt.Sprintf("ticket %s, draw %s, %d matched - %s",
			formatDigits(ticket), formatDigits(draw), matches, verdict(won)),
		Details: map[string]any{
			"ticket":     formatDigits(ticket),
			"draw":       formatDigits(draw),
			"matches":    matches,
			"quick_pick": quickPick,
		},
	}, nil
}

func drawDigits(rng RandomSource) ([]int, error) {
	out := make([]int, LotteryDigits)
	for i := range out {
		d, err := roll(rng, 1, 9)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func parseLotteryTicket(s string) ([]int, error) {
	if len(s) != LotteryDigits {
		return nil, domain.ErrInvalidChoice
	}
	out := make([]int, LotteryDigits)
	for i, r := range s {
		if r < '1' || r > '9' {
			return nil, domain.ErrInvalidChoice
		}
		out[i] = int(r - '0')
	}
	return out, nil
}

func formatDigits(d []int) string {
	b := make([]byte, len(d))
	for i, v := range d {
		b[i] = byte('0' + v)
	}
	return string(b)
}
