// file: internal/metrics/metrics.go
// version: 1.1.0
// guid: 9f8e7d6c-5b4a-3210-9fed-cba876543210

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	filesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tunevault",
		Name:      "files_processed_total",
		Help:      "Total number of files processed by resolution status",
	}, []string{"status"})
	oracleCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tunevault",
		Name:      "oracle_calls_total",
		Help:      "Total number of naming-oracle consultations by kind",
	}, []string{"kind"})
	lookupsPerformed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tunevault",
		Name:      "remote_lookups_total",
		Help:      "Total number of remote fingerprint lookups performed",
	})
	lookupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tunevault",
		Name:      "remote_lookup_failures_total",
		Help:      "Total number of remote fingerprint lookups that failed",
	})
	resolveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tunevault",
		Name:      "resolve_duration_seconds",
		Help:      "Histogram of per-file resolution durations in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 1.6, 10), // ~50ms up to several seconds/minutes
	})

	songsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tunevault",
		Name:      "songs_total",
		Help:      "Current number of distinct songs in the session",
	})
	albumsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tunevault",
		Name:      "albums_total",
		Help:      "Current number of album contexts in the session",
	})
	failedFilesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tunevault",
		Name:      "failed_files_total",
		Help:      "Current size of the failure ledger",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(filesProcessed, oracleCalls, lookupsPerformed, lookupFailures,
			resolveDuration, songsGauge, albumsGauge, failedFilesGauge)
	})
}

// Per-file resolution lifecycle helpers
func IncFileProcessed(status string) { filesProcessed.WithLabelValues(status).Inc() }
func IncOracleCall(kind string)      { oracleCalls.WithLabelValues(kind).Inc() }
func IncLookup()                     { lookupsPerformed.Inc() }
func IncLookupFailure()              { lookupFailures.Inc() }
func ObserveResolveDuration(d time.Duration) {
	resolveDuration.Observe(d.Seconds())
}

// Gauges
func SetSongs(n int)       { songsGauge.Set(float64(n)) }
func SetAlbums(n int)      { albumsGauge.Set(float64(n)) }
func SetFailedFiles(n int) { failedFilesGauge.Set(float64(n)) }
