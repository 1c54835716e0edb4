package domain

import "time"

// GameType - тип игры
type GameType string

const (
	GameTypeDice      GameType = "dice"
	GameTypeRoulette  GameType = "roulette"
	GameTypeSlots     GameType = "slots"
	GameTypeLottery   GameType = "lottery"
	GameTypeCoinflip  GameType = "coinflip"
	GameTypeBlackjack GameType = "blackjack"
)

// GameSession - запись сыгранного раунда, создается один раз после расчета
type GameSession struct {
	ID         string    `db:"id" json:"id"`
	AccountID  string    `db:"account_id" json:"account_id"`
	GameType   GameType  `db:"game_type" json:"game_type"`
	Outcome    string    `db:"outcome" json:"outcome"`
	Choice     *string   `db:"choice" json:"choice,omitempty"`
	CoinsSpent int64     `db:"coins_spent" json:"coins_spent"`
	CoinsWon   int64     `db:"coins_won" json:"coins_won"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// RoundResult is what a settled round returns to the caller.
type RoundResult struct {
	SessionID  string         `json:"session_id"`
	GameType   GameType       `json:"game_type"`
	Outcome    string         `json:"outcome"`
	Won        bool           `json:"won"`
	CoinsSpent int64          `json:"coins_spent"`
	CoinsWon   int64          `json:"coins_won"`
	Net        int64          `json:"net"`
	NewBalance int64          `json:"new_balance"`
	Details    map[string]any `json:"details,omitempty"`
}
