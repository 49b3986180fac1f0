package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	// Second call is a no-op.
	require.NoError(t, Register(reg))

	IncBreach("orders.jar", "cpu")
	IncBreach("orders.jar", "cpu")
	IncRestart("orders.jar", "success")
	SetTrackedServices(3)
	SetQueueDepth("orders", 1500)
	IncCycle()
	IncCycleError()
	ObserveRestartDuration("orders.jar", 2.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(breaches.WithLabelValues("orders.jar", "cpu")))
	assert.Equal(t, 1.0, testutil.ToFloat64(restarts.WithLabelValues("orders.jar", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(trackedServices))
	assert.Equal(t, 1500.0, testutil.ToFloat64(queueDepth.WithLabelValues("orders")))
	assert.Equal(t, 1.0, testutil.ToFloat64(cycles))
	assert.Equal(t, 1.0, testutil.ToFloat64(cycleErrors))
}

func TestHandlerNotNil(t *testing.T) {
	assert.NotNil(t, Handler())
}
