package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckinMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewCheckinMetrics(reg)
	require.NoError(t, err)

	m.RecordTransition("guest", "checkin", OutcomeSuccess)
	m.RecordTransition("guest", "checkin", OutcomeSuccess)
	m.RecordTransition("guest", "checkin", OutcomeRejected)
	m.RecordSourceFailure("vipGuests")
	m.RecordRelinked(3)
	m.RecordRelinked(0)
	m.ObserveConsolidation(20 * time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("guest", "checkin", OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.sourceFailuresTotal.WithLabelValues("vipGuests")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.relinkedTotal), 0)

	expected := `
# HELP checkin_relinked_reservations_total Total number of reservations re-pointed at the queried event
# TYPE checkin_relinked_reservations_total counter
checkin_relinked_reservations_total 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "checkin_relinked_reservations_total"))
}

func TestCheckinMetricsDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCheckinMetrics(reg)
	require.NoError(t, err)
	_, err = NewCheckinMetrics(reg)
	assert.Error(t, err)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *CheckinMetrics
	assert.NotPanics(t, func() {
		m.RecordTransition("guest", "checkout", OutcomeError)
		m.RecordSourceFailure("tableGuests")
		m.RecordRelinked(1)
		m.RecordSideEffectFailure("reward")
		m.ObserveConsolidation(time.Second)
		m.RecordDispatchDropped()
	})
}
