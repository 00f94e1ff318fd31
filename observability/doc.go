// Package observability wires OpenTelemetry tracing and metrics for repokit.
//
// The engine records a span and a call metric for every executed request
// configuration against the global providers. Those are no-ops until the
// application installs real providers:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("repokit"))
//	defer tp.Shutdown(ctx)
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("repokit"))
//	defer mp.Shutdown(ctx)
package observability
