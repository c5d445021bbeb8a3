package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xeternum/proyecto-mapa/internal/service"
	"github.com/xeternum/proyecto-mapa/pkg/health"
	"github.com/xeternum/proyecto-mapa/pkg/middleware"
)

// RouterConfig bundles the dependencies for the API router.
type RouterConfig struct {
	UserService     *service.UserService
	ListingService  *service.ListingService
	ReviewService   *service.ReviewService
	CategoryService *service.CategoryService
	HealthHandler   *health.Handler
	TokenValidator  middleware.TokenValidator
	CORS            middleware.CORSConfig
	RateLimitRPS    int
	RateLimitBurst  int
	// BaseContext bounds the lifetime of background work started by
	// middleware, such as the rate-limiter cleanup goroutine. Defaults to
	// context.Background.
	BaseContext context.Context
	Logger      *slog.Logger
}

// NewRouter creates a chi router with all API routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("marketplace-api"))
	if cfg.RateLimitRPS > 0 {
		baseCtx := cfg.BaseContext
		if baseCtx == nil {
			baseCtx = context.Background()
		}
		r.Use(middleware.RateLimit(baseCtx, cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute, cfg.Logger))
	}

	// Health and metrics endpoints
	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	authHandler := NewAuthHandler(cfg.UserService, cfg.Logger)
	listingHandler := NewListingHandler(cfg.ListingService, cfg.Logger)
	reviewHandler := NewReviewHandler(cfg.ReviewService, cfg.Logger)
	categoryHandler := NewCategoryHandler(cfg.CategoryService, cfg.Logger)

	requireAuth := middleware.Auth(cfg.TokenValidator)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", authHandler.GetProfile)
			r.Put("/", authHandler.UpdateProfile)
			r.Get("/reviews", reviewHandler.ListMyReviews)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Use(middleware.CacheControl(300))
			r.Get("/", categoryHandler.ListCategories)
			r.Get("/{categoryID}", categoryHandler.GetCategory)
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", listingHandler.ListListings)
			r.Get("/{serviceID}", listingHandler.GetListing)
			r.Get("/{serviceID}/reviews", reviewHandler.ListServiceReviews)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", listingHandler.CreateListing)
				r.Put("/{serviceID}", listingHandler.UpdateListing)
				r.Delete("/{serviceID}", listingHandler.DeleteListing)
				r.Post("/{serviceID}/reviews", reviewHandler.CreateReview)
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/{reviewID}", reviewHandler.GetReview)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Put("/{reviewID}", reviewHandler.UpdateReview)
				r.Delete("/{reviewID}", reviewHandler.DeleteReview)
			})
		})
	})

	return r
}
