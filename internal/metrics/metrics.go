package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's collectors. A nil *Metrics records nothing.
type Metrics struct {
	uploads        *prometheus.CounterVec
	uploadDuration prometheus.Histogram
	cleanups       *prometheus.CounterVec
	importRows     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "idcards",
			Name:      "photo_uploads_total",
			Help:      "Photo uploads by outcome.",
		}, []string{"outcome"}),
		uploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "idcards",
			Name:      "photo_upload_duration_seconds",
			Help:      "Time from resolved student to mutated record.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 180},
		}),
		cleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "idcards",
			Name:      "media_cleanups_total",
			Help:      "Media store deletions by outcome.",
		}, []string{"outcome"}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "idcards",
			Name:      "roster_import_rows_total",
			Help:      "Imported roster rows by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.uploads, m.uploadDuration, m.cleanups, m.importRows)
	return m
}

// Upload counts one finished upload attempt.
func (m *Metrics) Upload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

// UploadDuration observes how long a successful upload took.
func (m *Metrics) UploadDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.uploadDuration.Observe(d.Seconds())
}

// Cleanup counts one media deletion attempt.
func (m *Metrics) Cleanup(outcome string) {
	if m == nil {
		return
	}
	m.cleanups.WithLabelValues(outcome).Inc()
}

// ImportRows adds imported and rejected row counts.
func (m *Metrics) ImportRows(created, skipped int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues("created").Add(float64(created))
	m.importRows.WithLabelValues("skipped").Add(float64(skipped))
}
