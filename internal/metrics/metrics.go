// Package metrics holds the Prometheus collectors for the ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_rounds_total",
			Help: "Settled game rounds by game and result",
		},
		[]string{"game", "result"},
	)
	CoinsWagered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_coins_wagered_total",
			Help: "Coins staked on settled rounds",
		},
		[]string{"game"},
	)
	CoinsPaidOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_coins_paid_out_total",
			Help: "Coins paid out by the house",
		},
		[]string{"game"},
	)
	LedgerTransfers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transfers_total",
			Help: "Committed ledger transfers by kind",
		},
		[]string{"kind"},
	)
	OperationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operation_failures_total",
			Help: "Failed ledger operations by operation and error code",
		},
		[]string{"operation", "code"},
	)
	TopUpDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topup_decisions_total",
			Help: "Top-up requests moved to a terminal status",
		},
		[]string{"status"},
	)
	SessionsDisplaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_displaced_total",
			Help: "Sessions invalidated by a newer login",
		},
	)
	ForcedLogouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ban_forced_logouts_total",
			Help: "Sessions closed after a ban",
		},
	)
	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		},
		[]string{"type"},
	)
	PoolBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "admin_pool_balance_coins",
			Help: "Last observed admin pool balance",
		},
	)
	FeedConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_feed_connections",
			Help: "Open websocket event feed connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RoundsTotal,
		CoinsWagered,
		CoinsPaidOut,
		LedgerTransfers,
		OperationFailures,
		TopUpDecisions,
		SessionsDisplaced,
		ForcedLogouts,
		EventsDropped,
		PoolBalance,
		FeedConnections,
	)
}
