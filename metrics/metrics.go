package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PurchasesTotal tracks the total number of successful purchases.
var PurchasesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tge_purchases_total",
		Help: "Total successful purchases",
	},
	[]string{"engine"},
)

// PurchaseFailuresTotal tracks rejected or failed purchases by reason.
var PurchaseFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tge_purchase_failures_total",
		Help: "Total failed purchases by reason",
	},
	[]string{"engine", "reason"},
)

// LotsSoldTotal tracks the total number of lots sold.
var LotsSoldTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tge_lots_sold_total",
		Help: "Total lots sold",
	},
	[]string{"engine"},
)

// ReservationConflictsTotal tracks allocation reservations retried after a lost race.
var ReservationConflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tge_reservation_conflicts_total",
		Help: "Total allocation reservation conflicts",
	},
	[]string{"engine"},
)

// TokensSold tracks tokens sold in whole sale tokens.
var TokensSold = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "tge_tokens_sold",
		Help: "Tokens sold in whole sale tokens",
	},
	[]string{"engine"},
)

// SaleState tracks sale state (value 1 for current state, 0 otherwise).
var SaleState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "tge_sale_state",
		Help: "Sale state (1 for current state, 0 otherwise)",
	},
	[]string{"engine", "state"},
)

// PurchaseDuration tracks purchase latency.
var PurchaseDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "tge_purchase_duration_seconds",
		Help:    "Purchase latency",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"engine"},
)

// GrantsCreatedTotal tracks the total number of vesting grants created.
var GrantsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tge_grants_created_total",
		Help: "Total vesting grants created",
	},
	[]string{"engine"},
)

// GrantTopUpsTotal tracks the total number of increases to existing grants.
var GrantTopUpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tge_grant_topups_total",
		Help: "Total vesting grant top-ups",
	},
	[]string{"engine"},
)

// ClaimsTotal tracks the total number of successful claims.
var ClaimsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tge_claims_total",
		Help: "Total successful claims",
	},
	[]string{"engine"},
)

// ClaimedTokensTotal tracks claimed tokens in whole tokens.
var ClaimedTokensTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tge_claimed_tokens_total",
		Help: "Total claimed tokens in whole tokens",
	},
	[]string{"engine"},
)

// GrantConflictsTotal tracks grant updates retried after a lost compare-and-swap.
var GrantConflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tge_grant_conflicts_total",
		Help: "Total grant compare-and-swap conflicts",
	},
	[]string{"engine"},
)
