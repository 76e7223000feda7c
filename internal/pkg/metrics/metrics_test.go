package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRecompute(t *testing.T) {
	ok := testutil.ToFloat64(Recomputations.WithLabelValues("heatmap", "ok"))
	failed := testutil.ToFloat64(Recomputations.WithLabelValues("heatmap", "error"))

	ObserveRecompute("heatmap", 12, 3*time.Millisecond, nil)
	ObserveRecompute("heatmap", 0, time.Millisecond, errors.New("layer exists"))

	assert.Equal(t, ok+1, testutil.ToFloat64(Recomputations.WithLabelValues("heatmap", "ok")))
	assert.Equal(t, failed+1, testutil.ToFloat64(Recomputations.WithLabelValues("heatmap", "error")))
}

type fakePoolStat struct{ acquired, idle, total int32 }

func (f fakePoolStat) AcquiredConns() int32 { return f.acquired }
func (f fakePoolStat) IdleConns() int32     { return f.idle }
func (f fakePoolStat) TotalConns() int32    { return f.total }

func TestUpdateDBPoolMetrics(t *testing.T) {
	UpdateDBPoolMetrics(fakePoolStat{acquired: 3, idle: 7, total: 10})

	assert.Equal(t, 3.0, testutil.ToFloat64(DBPoolConnsAcquired))
	assert.Equal(t, 7.0, testutil.ToFloat64(DBPoolConnsIdle))
	assert.Equal(t, 10.0, testutil.ToFloat64(DBPoolConnsOpen))

	// Anything else is ignored
	UpdateDBPoolMetrics("not a pool")
	assert.Equal(t, 10.0, testutil.ToFloat64(DBPoolConnsOpen))
}
