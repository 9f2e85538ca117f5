package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sellforge/ratings-service/internal/auth"
	"github.com/sellforge/ratings-service/internal/service"
	"github.com/sellforge/ratings-service/pkg/health"
	"github.com/sellforge/ratings-service/pkg/middleware"
)

// RouterConfig tunes the HTTP surface.
type RouterConfig struct {
	ServiceName    string
	SubmitRPS      int
	SubmitBurst    int
	PprofCIDRs     []string
	TracingEnabled bool
	CORS           middleware.CORSConfig
}

// NewRouter creates a chi router with all ratings service routes registered.
// Public routes cover submission and reading; everything that moderates or
// configures taxonomies requires an admin token.
func NewRouter(
	reviews *service.ReviewService,
	scoring *service.ScoringService,
	attributes *service.AttributeService,
	characteristics *service.CharacteristicService,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware. RequestLogger must come after RequestLogging and
	// Tracing so the request-scoped logger picks up the correlation ID and
	// span context they establish.
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	if cfg.TracingEnabled {
		r.Use(middleware.Tracing(cfg.ServiceName))
	}
	r.Use(middleware.RequestLogger(logger))

	// Health and diagnostics
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	reviewHandler := NewReviewHandler(reviews, scoring, logger)
	attributeHandler := NewAttributeHandler(attributes, logger)
	characteristicHandler := NewCharacteristicHandler(characteristics, logger)

	authMiddleware := middleware.Auth(jwtManager.Validator())
	optionalAuth := middleware.OptionalAuth(jwtManager.Validator())
	adminOnly := middleware.RequireRole("admin")

	// Public product-scoped routes. Submission is rate limited per client IP.
	// Listing takes an optional token so moderators can filter by any status;
	// anonymous callers only see approved reviews.
	r.Route("/api/v1/products/{productId}/reviews", func(r chi.Router) {
		r.With(middleware.RateLimit(cfg.SubmitRPS, cfg.SubmitBurst, logger)).
			Post("/", reviewHandler.SubmitReview)
		r.With(optionalAuth).Get("/", reviewHandler.ListReviews)
		r.Get("/summary", reviewHandler.GetSummary)
	})

	// Review routes: approved reviews are public, moderation is admin-only.
	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.With(optionalAuth).Get("/{id}", reviewHandler.GetReview)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, adminOnly)

			r.Patch("/{id}", reviewHandler.UpdateReview)
			r.Delete("/{id}", reviewHandler.DeleteReview)
			r.Post("/bulk/status", reviewHandler.BulkUpdateStatus)
		})
	})

	// Taxonomy routes: reading is public (storefronts render the forms),
	// writes are admin-only.
	r.Route("/api/v1/attributes", func(r chi.Router) {
		r.Get("/", attributeHandler.ListAttributes)
		r.Get("/{id}", attributeHandler.GetAttribute)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, adminOnly)

			r.Post("/", attributeHandler.CreateAttribute)
			r.Patch("/{id}", attributeHandler.UpdateAttribute)
			r.Delete("/{id}", attributeHandler.DeleteAttribute)
			r.Post("/bulk/delete", attributeHandler.BulkDeleteAttributes)
		})
	})

	r.Route("/api/v1/characteristics", func(r chi.Router) {
		r.Get("/", characteristicHandler.ListCharacteristics)
		r.Get("/{id}", characteristicHandler.GetCharacteristic)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, adminOnly)

			r.Post("/", characteristicHandler.CreateCharacteristic)
			r.Patch("/{id}", characteristicHandler.UpdateCharacteristic)
			r.Delete("/{id}", characteristicHandler.DeleteCharacteristic)
			r.Post("/bulk/delete", characteristicHandler.BulkDeleteCharacteristics)
		})
	})

	return r
}
