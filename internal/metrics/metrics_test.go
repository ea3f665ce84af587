package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStage(t *testing.T) {
	m := New()
	m.ObserveStage("decode", 2*time.Second, nil)
	m.ObserveStage("decode", time.Second, errors.New("boom"))
	m.ObserveStage("publish", time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageOutcome.WithLabelValues("decode", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageOutcome.WithLabelValues("decode", "failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))
}

func TestCountersAndGauges(t *testing.T) {
	m := New()
	m.SetPartitionRows("seoul", 120)
	m.AddPartitions("succeeded", 17)
	m.AddPartitions("failed", 0)
	m.AddDropped("duplicate", 3)
	m.SetZoneRows(map[string]int{"core": 5, "other": 9})

	assert.Equal(t, 120.0, testutil.ToFloat64(m.PartitionRows.WithLabelValues("seoul")))
	assert.Equal(t, 17.0, testutil.ToFloat64(m.Partitions.WithLabelValues("succeeded")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Partitions), "zero adds create no series")
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsDropped.WithLabelValues("duplicate")))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.ZoneRows.WithLabelValues("other")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStage("merge", time.Second, nil)
		m.SetPartitionRows("seoul", 1)
		m.AddPartitions("failed", 1)
		m.AddDropped("out_of_range", 1)
		m.SetZoneRows(map[string]int{"core": 1})
		m.MarkSuccess("acquire", time.Now())
	})
}

func TestRegistryGathers(t *testing.T) {
	m := New()
	m.MarkSuccess("normalize", time.Unix(1700000000, 0))
	families, err := m.Registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "storefront_last_success_timestamp_seconds" {
			found = true
			assert.Equal(t, 1700000000.0, f.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}
