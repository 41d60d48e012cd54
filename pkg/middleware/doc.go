// Package middleware instruments autoroute actions with Prometheus metrics
// and OpenTelemetry tracing.
//
// Both integrate through autoroute.WithInstrument, which wraps each action
// handler once at build time with its route identity, and through
// ErrorHandler wrappers, which see action errors before the response is
// written.
//
// # Prometheus Metrics
//
//	reg := prometheus.NewRegistry()
//	metrics := middleware.NewMetrics(middleware.WithRegistry(reg))
//
//	ar := autoroute.New(routers.NewChi, autoroute.DefaultActions,
//	    metrics.Options(nil)...,
//	)
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # OpenTelemetry Tracing
//
//	ar := autoroute.New(routers.NewChi, autoroute.DefaultActions,
//	    autoroute.WithInstrument(middleware.OpenTelemetry(
//	        middleware.WithTracerName("my-app"),
//	    )),
//	    autoroute.WithErrorHandler(middleware.TraceErrors(autoroute.DefaultErrorHandler(nil))),
//	)
//
// Actions reach the span through their context:
//
//	func read(ctx context.Context, p autoroute.Params, m autoroute.Meta) (any, error) {
//	    trace.SpanFromContext(ctx).SetAttributes(attribute.String("user.id", p["id"].(string)))
//	    ...
//	}
package middleware
