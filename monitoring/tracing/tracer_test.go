package tracing

import (
	"context"
	"testing"

	"github.com/forkchoice/beacon/testing/assert"
	"github.com/forkchoice/beacon/testing/require"
	"go.opencensus.io/trace"
)

func TestSetup_Disabled(t *testing.T) {
	exporter, err := Setup("", "", 0, false)
	require.NoError(t, err)
	assert.Equal(t, true, exporter == nil)
}

func TestSetup_EmptyName(t *testing.T) {
	_, err := Setup("", "http://127.0.0.1:14268/api/traces", 0.2, true)
	require.ErrorIs(t, err, errEmptyServiceName)
}

func TestSetup_BadFraction(t *testing.T) {
	_, err := Setup("beacon-chain", "http://127.0.0.1:14268/api/traces", 1.5, true)
	require.ErrorContains(t, "is not within [0, 1]", err)
}

func TestSetup_Enabled(t *testing.T) {
	exporter, err := Setup("beacon-chain", "http://127.0.0.1:14268/api/traces", 1, true)
	require.NoError(t, err)
	require.NotNil(t, exporter)
	defer func() {
		trace.UnregisterExporter(exporter)
		_, err := Setup("", "", 0, false)
		require.NoError(t, err)
	}()

	_, span := trace.StartSpan(context.Background(), "tracing.TestSetup_Enabled")
	assert.Equal(t, true, span.SpanContext().IsSampled())
	span.End()
}
