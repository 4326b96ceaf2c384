package metrics

import "go.uber.org/fx"

// Module provides the no-op recorder and tracer. Applications that enable metrics
// or tracing decorate these with real implementations.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewNoOpMetricRecorder, fx.As(new(MetricRecorder)))),
	fx.Provide(fx.Annotate(NewNoOpTracer, fx.As(new(Tracer)))),
)
