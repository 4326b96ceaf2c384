package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	metrics "github.com/tigerroll/eventgen/pkg/generator/core/metrics"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// NewTracerProvider creates an SDK tracer provider exporting over OTLP/HTTP.
func NewTracerProvider(ctx context.Context, cfg config.TracingConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{}
	if cfg.OTLPEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

type decorateParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Recorder  metrics.MetricRecorder
	Tracer    metrics.Tracer
	Prom      *PrometheusRecorder
}

type decorateResult struct {
	fx.Out
	Recorder metrics.MetricRecorder
	Tracer   metrics.Tracer
}

// decorate swaps the no-op implementations for Prometheus, and for
// OpenTelemetry when tracing is enabled.
func decorate(p decorateParams) (decorateResult, error) {
	out := decorateResult{Recorder: p.Prom, Tracer: p.Tracer}
	tc := p.Config.EventGen.Tracing
	if !tc.Enabled {
		return out, nil
	}
	tp, err := NewTracerProvider(context.Background(), tc)
	if err != nil {
		return out, err
	}
	p.Lifecycle.Append(fx.Hook{OnStop: func(ctx context.Context) error {
		logger.Debugf("Flushing traces...")
		return tp.Shutdown(ctx)
	}})
	out.Tracer = NewOpenTelemetryTracer(tp)
	return out, nil
}

// Module provides the Prometheus recorder and replaces the core no-op recorder
// and tracer with real implementations.
var Module = fx.Options(
	metrics.Module,
	fx.Provide(NewPrometheusRecorder),
	fx.Decorate(decorate),
)
