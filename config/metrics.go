package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "valid",
		Name:      "pricing_quotes_total",
		Help:      "Pricing quotes computed, by selected tier.",
	}, []string{"tier"})

	DemoRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "valid",
		Name:      "demo_runs_total",
		Help:      "Demo cockpit runs, by verdict.",
	}, []string{"verdict"})

	ConnectorTests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "valid",
		Name:      "connector_tests_total",
		Help:      "Connector tests, by mode and outcome.",
	}, []string{"mode", "outcome"})

	NotificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "valid",
		Name:      "notifications_dispatched_total",
		Help:      "Outbox notifications handed to the notifier, by kind and status.",
	}, []string{"kind", "status"})
)
