// Package metrics exposes Prometheus metrics on a private registry served at
// /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nko_directory"

// Registry holds every metric this service exports.
var Registry = prometheus.NewRegistry()

// AppInfo is always 1; the build is described by its labels.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// Domain metrics
var (
	RegistrationsTotal = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Total number of successful account registrations",
		},
	)

	// LoginsTotal is labelled result=success|failure.
	LoginsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	ListingSubmissionsTotal = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_submissions_total",
			Help:      "Total number of listings submitted for moderation",
		},
	)

	// ModerationTransitionsTotal is labelled with the resulting status.
	ModerationTransitionsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_transitions_total",
			Help:      "Total number of moderation decisions by resulting status",
		},
		[]string{"status"},
	)

	ListingsImportedTotal = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_imported_total",
			Help:      "Total number of listings inserted by bulk import",
		},
	)
)

var initOnce sync.Once

// Init registers runtime collectors and records build information. Calling
// it more than once only updates AppInfo.
func Init(version, commit, buildDate string) {
	initOnce.Do(func() {
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
	AppInfo.Reset()
	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
