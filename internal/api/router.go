package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/meritan/go-curator/internal/api/handlers"
	"github.com/meritan/go-curator/internal/api/middleware"
	"github.com/meritan/go-curator/internal/auth"
	"github.com/meritan/go-curator/internal/camera"
	"github.com/meritan/go-curator/internal/newsletter"
	"github.com/meritan/go-curator/internal/ownership"
	"github.com/meritan/go-curator/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB                *gorm.DB
	Logger            *slog.Logger
	JWTService        *auth.JWTService
	AuthService       *auth.Service
	CameraService     *camera.Service
	NewsletterService *newsletter.Service
	Store             storage.ObjectStore
	Redis             *redis.Client
	AsynqClient       *asynq.Client
	AllowedOrigins    []string // CORS allowed origins
	RateLimitReqs     int      // Rate limit requests per window
	RateLimitSecs     int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	// CORS - restrict to configured origins, or allow localhost in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	resolver := ownership.NewResolver(cfg.DB)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Store, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	taxonomyHandler := handlers.NewTaxonomyHandler(cfg.DB)
	referenceHandler := handlers.NewReferenceHandler(cfg.DB, resolver)
	productHandler := handlers.NewProductHandler(cfg.DB, resolver)
	fileHandler := handlers.NewFileHandler(cfg.DB, resolver, cfg.Store)
	cameraHandler := handlers.NewCameraHandler(cfg.DB, resolver, cfg.CameraService)
	scheduleHandler := handlers.NewScheduleHandler(cfg.DB, resolver, cfg.AsynqClient)
	newsletterHandler := handlers.NewNewsletterHandler(cfg.NewsletterService)

	// Health and metrics (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/newsletter/subscribe", newsletterHandler.Subscribe)
		r.Post("/newsletter/unsubscribe", newsletterHandler.Unsubscribe)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))

			r.Get("/auth/me", authHandler.Me)

			// Taxonomy browsing (read-only, shared data)
			r.Route("/taxonomies", func(r chi.Router) {
				r.Get("/", taxonomyHandler.List)
				r.Get("/{id}", taxonomyHandler.Get)
				r.Get("/{id}/categories", taxonomyHandler.ListCategories)
			})
			r.Get("/categories/{id}", taxonomyHandler.GetCategory)

			// Reference data
			r.Route("/materials", func(r chi.Router) {
				r.Get("/", referenceHandler.ListMaterials)
				r.Post("/", referenceHandler.CreateMaterial)
				r.Get("/{id}", referenceHandler.GetMaterial)
			})
			r.Route("/product-types", func(r chi.Router) {
				r.Get("/", referenceHandler.ListProductTypes)
				r.Post("/", referenceHandler.CreateProductType)
				r.Get("/{id}", referenceHandler.GetProductType)
			})

			// Products and their files
			r.Route("/products", func(r chi.Router) {
				r.Get("/", productHandler.List)
				r.Post("/", productHandler.Create)
				r.Get("/{id}", productHandler.Get)
				r.Put("/{id}", productHandler.Update)
				r.Delete("/{id}", productHandler.Delete)

				r.Route("/{productID}/files", func(r chi.Router) {
					r.Get("/", fileHandler.List)
					r.Post("/", fileHandler.Upload)
					r.Get("/{fileID}", fileHandler.Get)
					r.Get("/{fileID}/content", fileHandler.Content)
					r.Delete("/{fileID}", fileHandler.Delete)
				})
			})

			// Cameras: device control endpoints get a per-user budget on top
			// of the global IP limit.
			r.Route("/cameras", func(r chi.Router) {
				r.Get("/", cameraHandler.List)
				r.Post("/", cameraHandler.Create)
				r.Get("/{id}", cameraHandler.Get)
				r.Delete("/{id}", cameraHandler.Delete)
				r.Post("/{id}/regenerate-key", cameraHandler.RegenerateKey)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RateLimitByUser(30, 60))
					r.Get("/{id}/status", cameraHandler.Status)
					r.Post("/{id}/open", cameraHandler.Open)
					r.Post("/{id}/close", cameraHandler.Close)
					r.Post("/{id}/capture", cameraHandler.Capture)
				})
			})

			// Capture schedules
			r.Route("/schedules", func(r chi.Router) {
				r.Get("/", scheduleHandler.List)
				r.Post("/", scheduleHandler.Create)
				r.Get("/{id}", scheduleHandler.Get)
				r.Put("/{id}", scheduleHandler.Update)
				r.Delete("/{id}", scheduleHandler.Delete)
				r.Post("/{id}/trigger", scheduleHandler.Trigger)
			})
		})
	})

	return &Router{r}
}
