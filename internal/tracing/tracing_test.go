package tracing_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/alejandrodnm/quantpro/internal/tracing"
)

func TestStartSpan_DisabledIsNoop(t *testing.T) {
	require.NoError(t, tracing.Init(tracing.Config{Enabled: false}))
	assert.False(t, tracing.Enabled())

	ctx, span := tracing.StartSpan(context.Background(), "report.build")
	defer span.End()

	assert.False(t, span.IsRecording())
	assert.NotNil(t, ctx)
}

func TestStartSpan_ExportsOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tracing.Init(tracing.Config{Enabled: true, Writer: &buf}))
	assert.True(t, tracing.Enabled())

	_, span := tracing.StartSpan(context.Background(), "pipeline.run", attribute.String("instrument", "DAX"))
	assert.True(t, span.IsRecording())
	span.End()

	require.NoError(t, tracing.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "pipeline.run")
	assert.Contains(t, buf.String(), "DAX")
	assert.False(t, tracing.Enabled())
}
