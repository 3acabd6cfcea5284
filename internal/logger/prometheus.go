package logger

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	levelCounterOnce sync.Once              //nolint:gochecknoglobals
	levelCounter     *prometheus.CounterVec //nolint:gochecknoglobals
)

// LevelCounterHook counts log statements per level in tenantadmin_log_statements_total.
type LevelCounterHook struct {
	counter *prometheus.CounterVec
}

// Run implements zerolog.Hook.
func (h LevelCounterHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level != zerolog.NoLevel {
		h.counter.WithLabelValues(level.String()).Inc()
	}
}

// NewLevelCounterHook returns the hook. The counter is registered on the default registry
// by the first call, later calls share it.
func NewLevelCounterHook(serviceName string) LevelCounterHook {
	levelCounterOnce.Do(func() {
		levelCounter = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "tenantadmin",
				Name:        "log_statements_total",
				Help:        "Log statements written, by level.",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"level"},
		)
	})

	return LevelCounterHook{counter: levelCounter}
}
