package config

import (
	"fmt"
	"time"

	"coin_ledger/internal/domain"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort    string `env:"APP_PORT" envDefault:"8080"`
	AppVersion string `env:"APP_VERSION" envDefault:"dev"`

	// postgres | sqlite
	DBDriver    string `env:"DB_DRIVER" envDefault:"postgres" validate:"oneof=postgres sqlite"`
	DatabaseURL string `env:"DATABASE_URL" validate:"required_if=DBDriver postgres"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"coin_ledger.db"`

	JWTSecret          string        `env:"JWT_SECRET,required" validate:"min=16"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"24h" validate:"gt=0"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"2m" validate:"gte=0"`
	BanGraceDelay      time.Duration `env:"BAN_GRACE_DELAY" envDefault:"3s" validate:"gte=0"`

	// Game limits (по умолчанию)
	MaxBet   int64   `env:"MAX_BET" envDefault:"100000" validate:"gt=0"`
	MinBets  MinBets `envPrefix:"MIN_BET_"`
	TopUpMin int64   `env:"TOPUP_MIN" envDefault:"10" validate:"gt=0"`
	TopUpMax int64   `env:"TOPUP_MAX" envDefault:"1000000" validate:"gtefield=TopUpMin"`

	GameRateLimit  int           `env:"GAME_RATE_LIMIT" envDefault:"60" validate:"gt=0"`
	GameRateWindow time.Duration `env:"GAME_RATE_WINDOW" envDefault:"60s" validate:"gt=0"`
	APIRateLimit   int           `env:"API_RATE_LIMIT" envDefault:"120" validate:"gt=0"`
	APIRateWindow  time.Duration `env:"API_RATE_WINDOW" envDefault:"60s" validate:"gt=0"`
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"10" validate:"gt=0"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"60s" validate:"gt=0"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// comma separated; empty allows any origin without credentials
	AllowedOrigins []string `env:"ALLOWED_ORIGIN" envSeparator:","`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// MinBets are the per-game minimum stakes.
type MinBets struct {
	Dice      int64 `env:"DICE" envDefault:"50" validate:"gt=0"`
	Roulette  int64 `env:"ROULETTE" envDefault:"150" validate:"gt=0"`
	Slots     int64 `env:"SLOTS" envDefault:"75" validate:"gt=0"`
	Lottery   int64 `env:"LOTTERY" envDefault:"25" validate:"gt=0"`
	Coinflip  int64 `env:"COINFLIP" envDefault:"100" validate:"gt=0"`
	Blackjack int64 `env:"BLACKJACK" envDefault:"200" validate:"gt=0"`
}

// ByGame returns the minimums keyed by game type.
func (m MinBets) ByGame() map[domain.GameType]int64 {
	return map[domain.GameType]int64{
		domain.GameTypeDice:      m.Dice,
		domain.GameTypeRoulette:  m.Roulette,
		domain.GameTypeSlots:     m.Slots,
		domain.GameTypeLottery:   m.Lottery,
		domain.GameTypeCoinflip:  m.Coinflip,
		domain.GameTypeBlackjack: m.Blackjack,
	}
}

// Загрузка конфига из env (.env подхватывается если есть)
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment without touching .env files.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if cfg.MaxBet < maxOf(cfg.MinBets.ByGame()) {
		return nil, fmt.Errorf("validate config: MAX_BET %d is below a game minimum", cfg.MaxBet)
	}
	return &cfg, nil
}

func maxOf(m map[domain.GameType]int64) int64 {
	var out int64
	for _, v := range m {
		if v > out {
			out = v
		}
	}
	return out
}
