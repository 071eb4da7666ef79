package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "realticket", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupExportsSpansAndMetrics(t *testing.T) {
	var mu sync.Mutex
	paths := map[string]int{}
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths[r.URL.Path]++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	previousTracer := otel.GetTracerProvider()
	previousMeter := otel.GetMeterProvider()
	defer otel.SetTracerProvider(previousTracer)
	defer otel.SetMeterProvider(previousMeter)

	shutdown, err := Setup(context.Background(), collector.URL, "realticket", "test")
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "purchase")
	span.End()
	sales, err := otel.Meter("test").Int64Counter("realticket.sales")
	require.NoError(t, err)
	sales.Add(context.Background(), 1)

	// Shutdown flushes both pipelines.
	require.NoError(t, shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, paths["/v1/traces"])
	assert.Positive(t, paths["/v1/metrics"])
}

func TestSignalURL(t *testing.T) {
	tests := []struct {
		in     string
		signal string
		want   string
		ok     bool
	}{
		{"http://collector:4318", "traces", "http://collector:4318/v1/traces", true},
		{"http://collector:4318/", "metrics", "http://collector:4318/v1/metrics", true},
		{"https://gateway/otlp", "traces", "https://gateway/otlp/v1/traces", true},
		{"collector:4318", "traces", "", false},
		{"://", "metrics", "", false},
	}
	for _, tt := range tests {
		got, err := signalURL(tt.in, tt.signal)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
