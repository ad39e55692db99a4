package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNameServiceMetrics(t *testing.T) {
	t.Run("Transactions", func(t *testing.T) {
		before := testutil.ToFloat64(Transactions.WithLabelValues("register", OutcomeSuccess))
		Transactions.WithLabelValues("register", OutcomeSuccess).Inc()
		after := testutil.ToFloat64(Transactions.WithLabelValues("register", OutcomeSuccess))
		assert.Equal(t, before+1, after)
	})

	t.Run("Flows", func(t *testing.T) {
		before := testutil.ToFloat64(Flows.WithLabelValues("mint", OutcomePartial))
		Flows.WithLabelValues("mint", OutcomePartial).Inc()
		assert.Equal(t, before+1, testutil.ToFloat64(Flows.WithLabelValues("mint", OutcomePartial)))
	})

	t.Run("RegistryNames", func(t *testing.T) {
		RegistryNames.Set(42)
		assert.Equal(t, float64(42), testutil.ToFloat64(RegistryNames))
	})

	t.Run("RegistryRefreshDuration", func(t *testing.T) {
		// Histograms can't be read back with ToFloat64; just make sure observing works
		assert.NotPanics(t, func() {
			RegistryRefreshDuration.Observe(0.3)
		})
	})

	t.Run("RegistryRefreshFailures", func(t *testing.T) {
		before := testutil.ToFloat64(RegistryRefreshFailures)
		RegistryRefreshFailures.Inc()
		assert.Equal(t, before+1, testutil.ToFloat64(RegistryRefreshFailures))
	})
}

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		Transactions,
		Flows,
		RegistryRefreshDuration,
		RegistryRefreshFailures,
		RegistryNames,
	}

	for _, c := range collectors {
		// promauto already registered them, so a second registration must be rejected
		err := prometheus.Register(c)
		var already prometheus.AlreadyRegisteredError
		assert.ErrorAs(t, err, &already)
	}
}
