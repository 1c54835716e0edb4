package game

import (
	"sort"

	"coin_ledger/internal/domain"
)

// Factory resolves engines by game type.
type Factory struct {
	engines map[domain.GameType]Engine
}

func NewFactory() *Factory {
	f := &Factory{engines: make(map[domain.GameType]Engine)}
	for _, e := range []Engine{Dice{}, Roulette{}, Slots{}, Lottery{}, Coinflip{}, Blackjack{}} {
		f.engines[e.Type()] = e
	}
	return f
}

func (f *Factory) Get(t domain.GameType) (Engine, error) {
	e, ok := f.engines[t]
	if !ok {
		return nil, domain.ErrUnknownGame
	}
	return e, nil
}

// Types returns the registered game types in name order.
func (f *Factory) Types() []domain.GameType {
	out := make([]domain.GameType, 0, len(f.engines))
	for t := range f.engines {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
