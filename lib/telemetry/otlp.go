package telemetry

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultMetricInterval = time.Second * 5

// signalConfig is where one signal is exported to. Exactly one of the
// endpoints is used, grpc winning, and a signal without either is not
// exported at all.
type signalConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (s signalConfig) enabled() bool {
	return s.GrpcEndpoint != "" || s.HttpEndpoint != ""
}

func (s signalConfig) transport() string {
	if s.GrpcEndpoint != "" {
		return "grpc"
	}
	return "http"
}

type otlpConfig struct {
	Traces  signalConfig `json:"traces"`
	Metrics signalConfig `json:"metrics"`
	// MetricIntervalSeconds is how often metrics are pushed, default 5s.
	MetricIntervalSeconds float64 `json:"metric_interval_seconds"`
}

type config struct {
	Otlp otlpConfig `json:"otlp"`
}

func (c config) metricInterval() time.Duration {
	if c.Otlp.MetricIntervalSeconds <= 0 {
		return defaultMetricInterval
	}
	return time.Duration(c.Otlp.MetricIntervalSeconds * float64(time.Second))
}

// configFromEnv reads the standard OTEL_EXPORTER_OTLP_* variables. The
// exporters read headers and tls settings from the environment themselves,
// only the endpoints and the protocol are needed to decide what to enable.
func configFromEnv(getenv func(string) string) config {
	grpc := getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "grpc"
	signal := func(name string) signalConfig {
		endpoint := getenv("OTEL_EXPORTER_OTLP_" + name + "_ENDPOINT")
		protocol := getenv("OTEL_EXPORTER_OTLP_" + name + "_PROTOCOL")
		signalGrpc := grpc
		if protocol != "" {
			signalGrpc = protocol == "grpc"
		}
		if endpoint == "" {
			base := strings.TrimSuffix(getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "/")
			if base == "" {
				return signalConfig{}
			}
			endpoint = base
			if !signalGrpc {
				endpoint = base + "/v1/" + strings.ToLower(name)
			}
		}
		if signalGrpc {
			return signalConfig{GrpcEndpoint: endpoint}
		}
		return signalConfig{HttpEndpoint: endpoint}
	}
	return config{Otlp: otlpConfig{
		Traces:  signal("TRACES"),
		Metrics: signal("METRICS"),
	}}
}

func defaultConfigFromEnv() config {
	return configFromEnv(os.Getenv)
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

func newTraceExporter(ctx context.Context, s signalConfig) (trace.SpanExporter, error) {
	slog.Info(
		"tracer export initialized",
		"type", s.transport(),
		"endpoint", s.GrpcEndpoint+s.HttpEndpoint,
		"headers", len(s.Headers) > 0,
	)
	if s.GrpcEndpoint != "" {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(s.GrpcEndpoint),
			otlptracegrpc.WithHeaders(s.Headers),
		)
	}
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(s.HttpEndpoint),
		otlptracehttp.WithHeaders(s.Headers),
	)
}

func newMetricExporter(ctx context.Context, s signalConfig) (metric.Exporter, error) {
	slog.Info(
		"metric exporter initialized",
		"type", s.transport(),
		"endpoint", s.GrpcEndpoint+s.HttpEndpoint,
		"headers", len(s.Headers) > 0,
	)
	if s.GrpcEndpoint != "" {
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(s.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(s.Headers),
		)
	}
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(s.HttpEndpoint),
		otlpmetrichttp.WithHeaders(s.Headers),
	)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, c config) (*trace.TracerProvider, error) {
	exporter, err := newTraceExporter(ctx, c.Otlp.Traces)
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

func newMetricProvider(ctx context.Context, r *resource.Resource, c config) (*metric.MeterProvider, error) {
	exporter, err := newMetricExporter(ctx, c.Otlp.Metrics)
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(c.metricInterval()))),
		metric.WithResource(r),
	), nil
}
