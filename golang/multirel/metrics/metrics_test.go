package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(NodesFitted)
	NodesFitted.Inc()
	require.Equal(t, before+1, testutil.ToFloat64(NodesFitted))

	c := CandidatesEvaluated.WithLabelValues("x_perip_numerical")
	before = testutil.ToFloat64(c)
	c.Add(12)
	require.Equal(t, before+12, testutil.ToFloat64(c))
}
