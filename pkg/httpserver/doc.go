// Package httpserver runs an http.Server with graceful shutdown.
//
// Shutdown first runs the drain hooks, which end long-lived handlers such as
// event streams, then waits for in-flight requests to finish with their
// contexts intact. Request contexts derive from a base context that is
// cancelled only after the wait, so a handler that outlives the shutdown
// timeout is still told to stop.
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithDrainHook(func(context.Context) { _ = bus.Close() }),
//	)
//	err := srv.Run(ctx, router)
//
// LivenessHandler and ReadinessHandler serve the /healthz and /readyz endpoints.
package httpserver
