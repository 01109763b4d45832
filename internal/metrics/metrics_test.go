package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StartsAtZero(t *testing.T) {
	t.Parallel()

	c := New()

	assert.Equal(t, float64(0), testutil.ToFloat64(c.BookingsCreated))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.IntegrityViolations))
	assert.Equal(t, 0, testutil.CollectAndCount(c.Transitions))
}

func TestCounters_Increment(t *testing.T) {
	t.Parallel()

	c := New()
	c.BookingsCreated.Inc()
	c.Transitions.WithLabelValues("booking_confirmed").Inc()
	c.Transitions.WithLabelValues("booking_confirmed").Inc()
	c.Transitions.WithLabelValues("driver_assigned").Inc()
	c.ConsistencyViolations.WithLabelValues("revenue").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(c.BookingsCreated))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.Transitions.WithLabelValues("booking_confirmed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Transitions.WithLabelValues("driver_assigned")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.ConsistencyViolations.WithLabelValues("revenue")))
}

func TestCounters_IsolatedRegistries(t *testing.T) {
	t.Parallel()

	a := New()
	b := New()
	a.BookingsCreated.Add(3)

	assert.Equal(t, float64(3), testutil.ToFloat64(a.BookingsCreated))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.BookingsCreated))
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestCounters_Snapshot(t *testing.T) {
	t.Parallel()

	c := New()
	c.BookingsCreated.Add(2)
	c.Transitions.WithLabelValues("booking_confirmed").Inc()
	c.IntegrityViolations.Inc()
	c.TxDuration.Observe(0.002)
	c.TxDuration.Observe(0.004)

	snap, err := c.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, float64(2), snap["ridebook_bookings_created_total"])
	assert.Equal(t, float64(1), snap[`ridebook_booking_transitions_total{event_type="booking_confirmed"}`])
	assert.Equal(t, float64(1), snap["ridebook_integrity_violations_total"])
	assert.Equal(t, float64(2), snap["ridebook_booking_tx_duration_seconds"])
}

func TestCounters_ConcurrentIncrements(t *testing.T) {
	t.Parallel()

	c := New()
	var wg sync.WaitGroup
	const goroutines = 50
	const increments = 100

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				c.BookingsCreated.Inc()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(goroutines*increments), testutil.ToFloat64(c.BookingsCreated))
}

func TestGlobal_NotNil(t *testing.T) {
	t.Parallel()

	require.NotNil(t, Global)
	require.NotNil(t, Global.Registry())
}
