// Package telemetry sets up OpenTelemetry metrics and tracing for the
// pagepool tools: a Prometheus exporter served over HTTP and a sampled
// tracer provider.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// Config holds all the configuration for the telemetry system.
type Config struct {
	// Enabled toggles the entire telemetry system on or off.
	Enabled bool `yaml:"enabled"`
	// ServiceName appears in traces and metrics.
	ServiceName string `yaml:"service_name"`
	// MetricsAddr is the listen address of the /metrics endpoint, e.g.
	// ":9464". Empty means metrics are collected but not served.
	MetricsAddr string `yaml:"metrics_addr"`
	// TraceSampleRatio is the fraction of traces to sample. Values outside
	// (0, 1] mean 1.
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`
	// TraceOutput receives sampled spans as JSON: a file path, "stdout" or
	// "stderr". Empty means spans are not exported.
	TraceOutput string `yaml:"trace_output"`
}

// Telemetry represents the active telemetry components.
type Telemetry struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	// Addr is the address the metrics endpoint listens on, if served.
	Addr string
}

// ShutdownFunc flushes and stops the providers and the metrics server.
type ShutdownFunc func(ctx context.Context) error

// New initializes the OpenTelemetry SDK. When cfg.Enabled is false it returns
// no-op providers.
func New(cfg Config) (*Telemetry, ShutdownFunc, error) {
	if !cfg.Enabled {
		return &Telemetry{
			Tracer: nooptrace.NewTracerProvider().Tracer(""),
			Meter:  noop.NewMeterProvider().Meter(""),
		}, func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	ratio := cfg.TraceSampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1.0
	}
	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(ratio)),
	}
	var traceFile *os.File
	if cfg.TraceOutput != "" {
		w, f, err := traceWriter(cfg.TraceOutput)
		if err != nil {
			return nil, nil, err
		}
		traceFile = f
		spanExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			if f != nil {
				f.Close()
			}
			return nil, nil, fmt.Errorf("failed to create span exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(spanExporter))
	}
	tracerProvider := sdktrace.NewTracerProvider(traceOpts...)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)

	tel := &Telemetry{
		Tracer: tracerProvider.Tracer(cfg.ServiceName),
		Meter:  meterProvider.Meter(cfg.ServiceName),
	}

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to listen on %s: %w", cfg.MetricsAddr, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		tel.Addr = ln.Addr().String()
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				otel.Handle(fmt.Errorf("prometheus http server failed: %w", err))
			}
		}()
	}

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("failed to stop metrics server: %w", err)
			}
		}
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown tracer provider: %w", err)
		}
		if err := meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown meter provider: %w", err)
		}
		if traceFile != nil {
			if err := traceFile.Close(); err != nil {
				return fmt.Errorf("failed to close trace output: %w", err)
			}
		}
		return nil
	}

	return tel, shutdown, nil
}

// traceWriter resolves TraceOutput. The returned file is non-nil only when
// the caller must close it.
func traceWriter(output string) (io.Writer, *os.File, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace output %s: %w", output, err)
	}
	return f, f, nil
}
