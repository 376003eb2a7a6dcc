package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestConfigFromEnv(t *testing.T) {
	cases := []struct {
		name     string
		env      map[string]string
		expected otlpConfig
	}{
		{
			name:     "nothing set",
			env:      map[string]string{},
			expected: otlpConfig{},
		},
		{
			name: "base endpoint over http",
			env:  map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "http://collector:4318/"},
			expected: otlpConfig{
				Traces:  signalConfig{HttpEndpoint: "http://collector:4318/v1/traces"},
				Metrics: signalConfig{HttpEndpoint: "http://collector:4318/v1/metrics"},
			},
		},
		{
			name: "base endpoint over grpc",
			env: map[string]string{
				"OTEL_EXPORTER_OTLP_ENDPOINT": "http://collector:4317",
				"OTEL_EXPORTER_OTLP_PROTOCOL": "grpc",
			},
			expected: otlpConfig{
				Traces:  signalConfig{GrpcEndpoint: "http://collector:4317"},
				Metrics: signalConfig{GrpcEndpoint: "http://collector:4317"},
			},
		},
		{
			name: "traces only",
			env: map[string]string{
				"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT": "http://jaeger:4317",
				"OTEL_EXPORTER_OTLP_TRACES_PROTOCOL": "grpc",
			},
			expected: otlpConfig{
				Traces: signalConfig{GrpcEndpoint: "http://jaeger:4317"},
			},
		},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			diff := cmp.Diff(test.expected, configFromEnv(envMap(test.env)).Otlp)
			require.Empty(t, diff)
		})
	}
}

func TestMetricInterval(t *testing.T) {
	require.Equal(t, defaultMetricInterval, config{}.metricInterval())
	require.Equal(t, time.Millisecond*1500, config{Otlp: otlpConfig{MetricIntervalSeconds: 1.5}}.metricInterval())
}

func TestSetupEnablesSignalsIndependently(t *testing.T) {
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
		shutdownFuncs = nil
	})

	require.NoError(t, Setup(context.Background(), "harvest-test", config{}))
	require.Empty(t, shutdownFuncs)

	tracesOnly := config{Otlp: otlpConfig{
		Traces: signalConfig{HttpEndpoint: "http://127.0.0.1:4318/v1/traces"},
	}}
	require.NoError(t, Setup(context.Background(), "harvest-test", tracesOnly))
	require.Len(t, shutdownFuncs, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, Shutdown(ctx))
	require.Empty(t, shutdownFuncs)
}
