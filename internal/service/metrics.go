package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cartMerges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_cart_merges_total",
		Help: "Guest carts merged into an identity cart",
	})

	cartPersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_persist_failures_total",
		Help: "Snapshot writes or deletes that failed and were ignored",
	}, []string{"partition_kind"})

	cartSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_cart_sessions_active",
		Help: "Storefront sessions holding a cart manager",
	})
)
