package sessions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	openSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "labelstate",
		Subsystem: "sessions",
		Name:      "open",
		Help:      "Editing sessions currently held in the registry",
	})

	// Labels: binding_mode (perTag, perItem, perRegion)
	valueWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labelstate",
		Subsystem: "sessions",
		Name:      "value_writes_total",
		Help:      "Control values written to session stores",
	}, []string{"binding_mode"})

	droppedWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "labelstate",
		Subsystem: "sessions",
		Name:      "dropped_writes_total",
		Help:      "perRegion writes dropped because no region was selected",
	})

	validationWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "labelstate",
		Subsystem: "sessions",
		Name:      "validation_warnings_total",
		Help:      "Required-control warnings reported by session validation",
	})

	// Labels: outcome (saved, blocked, failed)
	saves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labelstate",
		Subsystem: "sessions",
		Name:      "saves_total",
		Help:      "Session saves by outcome",
	}, []string{"outcome"})

	evictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "labelstate",
		Subsystem: "sessions",
		Name:      "evictions_total",
		Help:      "Sessions closed by idle eviction",
	})
)
