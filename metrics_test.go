package asyncstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordReadWrite(t *testing.T) {
	m := NewMetrics()
	m.RecordRead(100, 1000, true)
	m.RecordRead(0, 0, false)
	m.RecordWrite(50, 2000, true)

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.ReadOps)
	assert.EqualValues(t, 100, snap.ReadBytes)
	assert.EqualValues(t, 1, snap.ReadErrors)
	assert.EqualValues(t, 1, snap.WriteOps)
	assert.EqualValues(t, 150, snap.TotalBytes)
}

func TestMetricsCacheHitRatio(t *testing.T) {
	m := NewMetrics()
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.CacheHits)
	assert.EqualValues(t, 1, snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordRead(10, 10, true)
	m.RecordEviction()
	m.Reset()

	snap := m.Snapshot()
	assert.Zero(t, snap.ReadOps)
	assert.Zero(t, snap.Evictions)
}

func TestMetricsObserverDelegates(t *testing.T) {
	m := NewMetrics()
	obs := NewMetricsObserver(m)
	obs.ObserveRead(10, 5, true)
	obs.ObserveCacheHit(true)

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.ReadOps)
	assert.EqualValues(t, 1, snap.CacheHits)
}
