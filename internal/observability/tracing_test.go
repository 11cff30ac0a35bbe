package observability_test

import (
	"context"
	"testing"

	"github.com/kiranshivaraju/qruntime/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracing_None(t *testing.T) {
	shutdown, err := observability.InitTracing("qruntime-test", "none")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_Stdout(t *testing.T) {
	shutdown, err := observability.InitTracing("qruntime-test", "stdout")
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = observability.InitTracing("qruntime-test", "none") })

	_, span := observability.StartSpan(context.Background(), "test.span", attribute.String("k", "v"))
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_Unknown(t *testing.T) {
	_, err := observability.InitTracing("qruntime-test", "zipkin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zipkin")
}

func TestStartSpan_NoopProvider(t *testing.T) {
	_, err := observability.InitTracing("qruntime-test", "")
	require.NoError(t, err)

	ctx, span := observability.StartSpan(context.Background(), "noop")
	defer span.End()
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
}
