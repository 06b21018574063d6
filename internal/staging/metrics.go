package staging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "staging_sessions_active",
		Help: "Number of currently open edit sessions",
	})

	sessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staging_sessions_expired_total",
		Help: "Number of edit sessions torn down by the idle janitor",
	})

	assetsStaged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staging_assets_staged_total",
		Help: "Number of assets accepted into staging",
	}, []string{"kind"})

	filesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staging_files_rejected_total",
		Help: "Number of files rejected by validation",
	})
)
