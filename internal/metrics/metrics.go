package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for pipeline stages.
type Metrics struct {
	Registry *prometheus.Registry

	// Stage durations by stage name
	StageDuration *prometheus.HistogramVec

	// Stage outcomes by stage and result (ok, failed)
	StageOutcome *prometheus.CounterVec

	// Rows written per region partition
	PartitionRows *prometheus.GaugeVec

	// Region partitions by result (succeeded, failed, skipped)
	Partitions *prometheus.CounterVec

	// Rows dropped by the merge engine by reason
	RowsDropped *prometheus.CounterVec

	// Rows per market zone in the last normalized dataset
	ZoneRows *prometheus.GaugeVec

	// Unix time of the last successful run per command
	LastSuccess *prometheus.GaugeVec
}

// New creates a Metrics instance registered on its own registry, together
// with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}), // stage: "lock", "retrieve", "decode", "publish", "cleanup", "merge"

		StageOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_stage_outcomes_total",
			Help: "Pipeline stage outcomes by stage and result",
		}, []string{"stage", "result"}),

		PartitionRows: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "storefront_partition_rows",
			Help: "Rows written to each region partition in the last decode",
		}, []string{"region"}),

		Partitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_partitions_total",
			Help: "Region partitions processed by result",
		}, []string{"result"}),

		RowsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_rows_dropped_total",
			Help: "Rows removed during normalization by reason",
		}, []string{"reason"}),

		ZoneRows: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "storefront_zone_rows",
			Help: "Rows per market zone in the last normalized dataset",
		}, []string{"zone"}),

		LastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "storefront_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}, []string{"command"}),
	}
}

// ObserveStage records a stage's duration and outcome.
func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.StageOutcome.WithLabelValues(stage, result).Inc()
}

// SetPartitionRows records the row count of one region partition.
func (m *Metrics) SetPartitionRows(region string, rows int) {
	if m != nil {
		m.PartitionRows.WithLabelValues(region).Set(float64(rows))
	}
}

// AddPartitions counts partitions by result.
func (m *Metrics) AddPartitions(result string, n int) {
	if m != nil && n > 0 {
		m.Partitions.WithLabelValues(result).Add(float64(n))
	}
}

// AddDropped counts rows removed for reason.
func (m *Metrics) AddDropped(reason string, n int) {
	if m != nil && n > 0 {
		m.RowsDropped.WithLabelValues(reason).Add(float64(n))
	}
}

// SetZoneRows records the per-zone distribution of the last dataset.
func (m *Metrics) SetZoneRows(zones map[string]int) {
	if m == nil {
		return
	}
	for zone, n := range zones {
		m.ZoneRows.WithLabelValues(zone).Set(float64(n))
	}
}

// MarkSuccess records the time of a successful run.
func (m *Metrics) MarkSuccess(command string, at time.Time) {
	if m != nil {
		m.LastSuccess.WithLabelValues(command).Set(float64(at.Unix()))
	}
}
