package http

import (
	"time"

	"coin_ledger/internal/http/handlers"
	"coin_ledger/internal/http/middleware"
	"coin_ledger/internal/service"
	"coin_ledger/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Limit is a fixed-window request budget.
type Limit struct {
	Max    int
	Window time.Duration
}

// Deps is everything the router needs.
type Deps struct {
	Handler        *handlers.Handler
	Health         *handlers.HealthHandler
	Hub            *ws.Hub
	Auth           *service.AuthService
	Limiter        *middleware.RateLimiter
	APILimit       Limit
	AuthLimit      Limit
	GameLimit      Limit
	AllowedOrigins []string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.RequestContext())
	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := d.Handler
	rl := d.Limiter
	if rl == nil {
		rl = middleware.NewMemoryRateLimiter()
	}

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ws", ws.HandleWS(d.Hub, d.Auth, d.AllowedOrigins))

	api := r.Group("/api/v1")
	api.Use(rl.ByIP("api", d.APILimit.Max, d.APILimit.Window))

	authRL := rl.ByIP("auth", d.AuthLimit.Max, d.AuthLimit.Window)
	api.POST("/auth/register", authRL, h.Register)
	api.POST("/auth/login", authRL, h.Login)

	api.GET("/games", h.ListGames)

	user := api.Group("")
	user.Use(middleware.Auth(d.Auth))
	{
		user.POST("/auth/logout", h.Logout)

		user.GET("/me", h.Me)
		user.GET("/me/transactions", h.MyTransactions)
		user.GET("/me/games", h.MyGames)
		user.GET("/me/topups", h.MyTopUps)

		// per account, not per IP
		user.POST("/games/:type/play", rl.ByAccount("game", d.GameLimit.Max, d.GameLimit.Window), h.Play)

		user.POST("/topups", h.SubmitTopUp)
	}

	admin := user.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/topups", h.ListTopUps)
		admin.POST("/topups/:id/approve", h.ApproveTopUp)
		admin.POST("/topups/:id/reject", h.RejectTopUp)

		admin.GET("/accounts/:id", h.GetAccount)
		admin.POST("/accounts/:id/ban", h.BanAccount)
		admin.POST("/accounts/:id/unban", h.UnbanAccount)

		admin.GET("/pool", h.Pool)
		admin.POST("/pool/fund", h.FundPool)
		admin.GET("/stats", h.Stats)
		admin.GET("/ledger/audit", h.LedgerAudit)
		admin.GET("/audit", h.AuditLog)
	}
}
