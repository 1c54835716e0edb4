package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coin_ledger/internal/config"
	"coin_ledger/internal/db"
	"coin_ledger/internal/events"
	"coin_ledger/internal/game"
	httpServer "coin_ledger/internal/http"
	"coin_ledger/internal/http/handlers"
	"coin_ledger/internal/http/middleware"
	"coin_ledger/internal/logger"
	"coin_ledger/internal/repository"
	"coin_ledger/internal/repository/sqlite"
	"coin_ledger/internal/service"
	"coin_ledger/internal/telemetry"
	"coin_ledger/internal/ws"

	"github.com/gin-gonic/gin"
)

// store is what the app needs from either backend.
type store interface {
	repository.Store
	repository.ChangeFeed
	Ping(ctx context.Context) error
	Close() error
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	if cfg.DBDriver == "sqlite" {
		logger.Info("using sqlite store", "path", cfg.SQLitePath)
		return sqlite.Open(cfg.SQLitePath)
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return repository.NewPgStore(pool), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", true)
		logger.Fatal("invalid configuration", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "coin-ledger", cfg.AppVersion, cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open store", "driver", cfg.DBDriver, "error", err)
	}
	defer st.Close()

	bus := events.NewBus(256)
	ledger := service.NewLedger(st)
	audit := service.NewAuditService(st)
	sessions := service.NewSessionRegistry(st, bus, cfg.SessionIdleTimeout)
	auth := service.NewAuthService(st, sessions, service.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL), audit)
	games := service.NewGameService(st, ledger, game.NewFactory(), game.CryptoSource{}, service.BetLimits{
		Min: cfg.MinBets.ByGame(),
		Max: cfg.MaxBet,
	}, bus)

	h := &handlers.Handler{
		Auth:     auth,
		Accounts: service.NewAccountService(st),
		Games:    games,
		TopUps:   service.NewTopUpService(st, ledger, audit, bus, cfg.TopUpMin, cfg.TopUpMax),
		Admin:    service.NewAdminService(st, ledger, audit, bus),
	}

	health := handlers.NewHealthHandler(st, cfg.AppVersion)
	redisClient := middleware.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if redisClient != nil {
		defer redisClient.Close()
		health.AddCheck("redis", handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}), false)
	}

	hub := ws.NewHub()
	go hub.Run(ctx, bus.Subscribe())

	propagator := service.NewBanPropagator(st, sessions, bus, cfg.BanGraceDelay)
	propagatorDone := make(chan struct{})
	go func() {
		defer close(propagatorDone)
		propagator.Run(ctx)
	}()

	gin.SetMode(gin.ReleaseMode)
	r := httpServer.NewRouter(httpServer.Deps{
		Handler:        h,
		Health:         health,
		Hub:            hub,
		Auth:           auth,
		Limiter:        middleware.NewRedisRateLimiter(redisClient),
		APILimit:       httpServer.Limit{Max: cfg.APIRateLimit, Window: cfg.APIRateWindow},
		AuthLimit:      httpServer.Limit{Max: cfg.AuthRateLimit, Window: cfg.AuthRateWindow},
		GameLimit:      httpServer.Limit{Max: cfg.GameRateLimit, Window: cfg.GameRateWindow},
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           httpServer.CORS(cfg.AllowedOrigins)(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "driver", cfg.DBDriver, "version", cfg.AppVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	<-propagatorDone
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}

	logger.Info("server exited")
}
