package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestSetEpochUpdatesGauges(t *testing.T) {
	SetEpoch(7, 4, 3)
	require.Equal(t, float64(7), gaugeValue(t, epochNumber))
	require.Equal(t, float64(4), gaugeValue(t, validatorCount))
	require.Equal(t, float64(3), gaugeValue(t, quorumVotingPower))
}

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() {
		Register(reg)
		Register(reg)
	})
}
