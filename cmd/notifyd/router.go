package main

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmitrymomot/notifyhub/handler"
	api "github.com/dmitrymomot/notifyhub/modules/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
	"github.com/dmitrymomot/notifyhub/pkg/jwt"
	"github.com/dmitrymomot/notifyhub/pkg/metrics"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

type routerDeps struct {
	svc      *notifications.Service
	bus      api.Listener
	tokens   *jwt.Service
	metrics  *metrics.Metrics
	log      *slog.Logger
	stream   api.Config
	origins  []string
	checks   []httpserver.Check
	readyTTL time.Duration
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)
	if len(d.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Last-Event-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(d.log, d.readyTTL, d.checks...))
	r.Handle("/metrics", d.metrics.Handler())

	auth := func(extractor jwt.TokenExtractorFunc) func(http.Handler) http.Handler {
		return jwt.MiddlewareWithConfig(jwt.MiddlewareConfig{
			Service:   d.tokens,
			Extractor: extractor,
			OnError: func(w http.ResponseWriter, r *http.Request, _ error) {
				_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
			},
		})
	}

	notificationsAPI := api.New(d.svc, d.bus,
		api.WithLogger(d.log),
		api.WithConfig(d.stream),
		api.WithMiddleware(auth(jwt.BearerTokenExtractor)),
		// EventSource cannot set headers, so only the stream accepts ?access_token=.
		api.WithStreamMiddleware(auth(jwt.FirstOf(jwt.BearerTokenExtractor, jwt.QueryTokenExtractor("access_token")))),
	)

	r.Group(func(r chi.Router) {
		r.Use(otelhttp.NewMiddleware(serviceName,
			// Streams outlive any useful span and need the raw writer.
			otelhttp.WithFilter(func(r *http.Request) bool {
				return !strings.HasSuffix(r.URL.Path, "/stream")
			}),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		))
		r.Mount("/api/v1/notifications", notificationsAPI.Handle())
	})

	return r
}
