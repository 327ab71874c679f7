package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics records scan engine outcomes and latency.
type ScanMetrics struct {
	results        *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	tenantMismatch prometheus.Counter
	undecodable    prometheus.Counter
	syncRecords    *prometheus.CounterVec
}

// NewScanMetrics registers the scan metrics on the provided registerer.
func NewScanMetrics(reg prometheus.Registerer) *ScanMetrics {
	if reg == nil {
		return &ScanMetrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_results_total",
		Help: "Scan attempts by outcome.",
	}, []string{"result", "mode"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scan_duration_seconds",
		Help:    "Duration of scan decisions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	tenantMismatch := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scan_tenant_mismatch_total",
		Help: "Scans rejected because the ticket belongs to another organization.",
	})
	undecodable := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scan_undecodable_total",
		Help: "Scan payloads that could not be decoded. These attempts have no ticket identity and produce no scan log row.",
	})
	syncRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_records_total",
		Help: "Offline sync records by disposition.",
	}, []string{"disposition"})
	reg.MustRegister(results, duration, tenantMismatch, undecodable, syncRecords)
	return &ScanMetrics{
		results:        results,
		duration:       duration,
		tenantMismatch: tenantMismatch,
		undecodable:    undecodable,
		syncRecords:    syncRecords,
	}
}

// IncResult increments the outcome counter. Mode is "live" or "sync".
func (m *ScanMetrics) IncResult(result, mode string) {
	if m == nil || m.results == nil {
		return
	}
	m.results.WithLabelValues(normalizeLabel(result), normalizeLabel(mode)).Inc()
}

// ObserveDuration records the decision latency for the given mode.
func (m *ScanMetrics) ObserveDuration(mode string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(mode)).Observe(duration.Seconds())
}

// IncTenantMismatch counts a cross-organization scan rejection.
func (m *ScanMetrics) IncTenantMismatch() {
	if m == nil || m.tenantMismatch == nil {
		return
	}
	m.tenantMismatch.Inc()
}

// IncUndecodable counts a payload that failed to decode.
func (m *ScanMetrics) IncUndecodable() {
	if m == nil || m.undecodable == nil {
		return
	}
	m.undecodable.Inc()
}

// IncSyncRecord counts a batch record disposition (successful, failed, conflict).
func (m *ScanMetrics) IncSyncRecord(disposition string) {
	if m == nil || m.syncRecords == nil {
		return
	}
	m.syncRecords.WithLabelValues(normalizeLabel(disposition)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
