package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"harvest/lib/configutil"

	"go.opentelemetry.io/otel"
)

var shutdownFuncs []func(context.Context) error

// InitSlog installs a text handler on stderr as the default logger.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// SetupFromEnv searches up the filesystem from the cwd for telemetry.json5
// and exports to the endpoints it names. Without the file the standard
// OTEL_EXPORTER_OTLP_* variables are used, and with neither the global
// providers are left as no-ops.
func SetupFromEnv(ctx context.Context, serviceName string) error {
	config, err := configutil.ReadRecursively[config]("telemetry.json5")
	if os.IsNotExist(err) {
		slog.Debug("no telemetry.json5 found, falling back to OTEL_EXPORTER_OTLP_* variables")
		config = defaultConfigFromEnv()
	} else if err != nil {
		return err
	}
	return Setup(ctx, serviceName, config)
}

// Setup installs a global tracer provider and meter provider for each signal
// that has an endpoint configured.
func Setup(ctx context.Context, serviceName string, config config) error {
	if !config.Otlp.Traces.enabled() && !config.Otlp.Metrics.enabled() {
		slog.Debug("no otlp endpoints configured, telemetry export disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	r, err := newResource(serviceName)
	if err != nil {
		return err
	}

	if config.Otlp.Traces.enabled() {
		tracerProvider, err := newTraceProvider(ctx, r, config)
		if err != nil {
			return err
		}
		otel.SetTracerProvider(tracerProvider)
		shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	}

	if config.Otlp.Metrics.enabled() {
		meterProvider, err := newMetricProvider(ctx, r, config)
		if err != nil {
			return err
		}
		otel.SetMeterProvider(meterProvider)
		shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	}

	return nil
}

// Shutdown flushes and stops every provider created by Setup.
func Shutdown(ctx context.Context) error {
	var errlist []error
	for _, fn := range shutdownFuncs {
		err := fn(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	shutdownFuncs = nil
	return errors.Join(errlist...)
}
