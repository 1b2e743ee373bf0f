package otelhelper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpanAndSetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := StartSpan(context.Background(), tracer, "compile", attribute.String(GraphIDKey, "g1"))
	SetError(span, errors.New("boom"), attribute.String(NodeIDKey, "n1"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "compile", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String(GraphIDKey, "g1"))

	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
	assert.Contains(t, spans[0].Events()[0].Attributes, attribute.String(NodeIDKey, "n1"))
}

func TestSetError_IgnoresNil(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	_, span := tracer.Start(context.Background(), "ok")
	SetError(span, nil)
	span.End()

	assert.Equal(t, codes.Unset, recorder.Ended()[0].Status().Code)
}

func TestTracer_DefaultsToGlobalProvider(t *testing.T) {
	tracer := Tracer("graphflow/test")
	_, span := tracer.Start(context.Background(), "noop")
	span.End()

	assert.NotNil(t, tracer)
}
