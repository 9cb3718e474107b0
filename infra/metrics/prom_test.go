package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/taskhive/dispatch/core/metrics"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordOfferResults([]coremetrics.OfferResult{
		{Category: "plumbing", Published: true, DistanceKm: 3.0},
		{Category: "plumbing", Published: false, DistanceKm: 9.0},
	}))
	require.NoError(t, sink.RecordAcceptResult(coremetrics.AcceptResult{Won: true}))
	require.NoError(t, sink.RecordAcceptResult(coremetrics.AcceptResult{Won: false}))

	ps := sink.(*PromSink)
	assert.Equal(t, 1.0, testutil.ToFloat64(ps.offers.WithLabelValues("plumbing", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ps.offers.WithLabelValues("plumbing", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ps.accepts.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ps.accepts.WithLabelValues("false")))
}

func TestPromSinkDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)

	// A second sink on the same registry reuses the existing collectors.
	_, err = NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)
}
