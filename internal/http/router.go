// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, PHI-safe logging, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Patient names and MRNs never reach logs or metric labels
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/hl7-monitor-backend/internal/config"
	"github.com/tbourn/hl7-monitor-backend/internal/docs"
	"github.com/tbourn/hl7-monitor-backend/internal/domain"
	"github.com/tbourn/hl7-monitor-backend/internal/http/handlers"
	"github.com/tbourn/hl7-monitor-backend/internal/http/middleware"
	"github.com/tbourn/hl7-monitor-backend/internal/repo"
	"github.com/tbourn/hl7-monitor-backend/internal/services"
)

// queryRepoShim adapts the repository free functions to services.QueryRepo.
type queryRepoShim struct{}

func (queryRepoShim) ListMessages(ctx context.Context, db *gorm.DB, patient string, f domain.MessageFilter) ([]domain.Message, error) {
	return repo.ListMessages(ctx, db, patient, f)
}

func (queryRepoShim) GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	return repo.GetMessage(ctx, db, id)
}

func (queryRepoShim) ListPatients(ctx context.Context, db *gorm.DB, facility string) ([]repo.PatientErrorRow, error) {
	return repo.ListPatients(ctx, db, facility)
}

func (queryRepoShim) VisitStatuses(ctx context.Context, db *gorm.DB, patients []string) (map[string]domain.VisitStatus, error) {
	return repo.VisitStatuses(ctx, db, patients)
}

func (queryRepoShim) UpsertPatientVisit(ctx context.Context, db *gorm.DB, patient string, status domain.VisitStatus) (*domain.PatientVisit, error) {
	return repo.UpsertPatientVisit(ctx, db, patient, status)
}

func (queryRepoShim) FindEventDefinitionByName(ctx context.Context, db *gorm.DB, name string) (*domain.EventDefinition, error) {
	return repo.FindEventDefinitionByName(ctx, db, name)
}

func (queryRepoShim) ListErrorDefinitionsByCode(ctx context.Context, db *gorm.DB, code string) ([]domain.ErrorDefinition, error) {
	return repo.ListErrorDefinitionsByCode(ctx, db, code)
}

// kpiRepoShim adapts the repository free functions to services.KpiRepo.
type kpiRepoShim struct{}

func (kpiRepoShim) StatusCounts(ctx context.Context, db *gorm.DB) (map[domain.MessageStatus]int64, error) {
	return repo.StatusCounts(ctx, db)
}

func (kpiRepoShim) ListMessages(ctx context.Context, db *gorm.DB, patient string, f domain.MessageFilter) ([]domain.Message, error) {
	return repo.ListMessages(ctx, db, patient, f)
}

func (kpiRepoShim) CreateKpiSample(ctx context.Context, db *gorm.DB, rate float64, takenAt time.Time) (*domain.KpiSample, error) {
	return repo.CreateKpiSample(ctx, db, rate, takenAt)
}

func (kpiRepoShim) RecentKpiSamples(ctx context.Context, db *gorm.DB, n int) ([]domain.KpiSample, error) {
	return repo.RecentKpiSamples(ctx, db, n)
}

// eventRepoShim adapts the repository free functions to
// services.EventDefinitionRepo.
type eventRepoShim struct{}

func (eventRepoShim) ListEventDefinitions(ctx context.Context, db *gorm.DB) ([]domain.EventDefinition, error) {
	return repo.ListEventDefinitions(ctx, db)
}

func (eventRepoShim) GetEventDefinition(ctx context.Context, db *gorm.DB, id string) (*domain.EventDefinition, error) {
	return repo.GetEventDefinition(ctx, db, id)
}

func (eventRepoShim) CreateEventDefinition(ctx context.Context, db *gorm.DB, d *domain.EventDefinition) error {
	return repo.CreateEventDefinition(ctx, db, d)
}

func (eventRepoShim) SaveEventDefinition(ctx context.Context, db *gorm.DB, d *domain.EventDefinition) error {
	return repo.SaveEventDefinition(ctx, db, d)
}

func (eventRepoShim) DeleteEventDefinition(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteEventDefinition(ctx, db, id)
}

func (eventRepoShim) EventCodeTaken(ctx context.Context, db *gorm.DB, code, exceptID string) (bool, error) {
	return repo.EventCodeTaken(ctx, db, code, exceptID)
}

// errorRepoShim adapts the repository free functions to
// services.ErrorDefinitionRepo.
type errorRepoShim struct{}

func (errorRepoShim) ListErrorDefinitions(ctx context.Context, db *gorm.DB) ([]domain.ErrorDefinition, error) {
	return repo.ListErrorDefinitions(ctx, db)
}

func (errorRepoShim) GetErrorDefinition(ctx context.Context, db *gorm.DB, id string) (*domain.ErrorDefinition, error) {
	return repo.GetErrorDefinition(ctx, db, id)
}

func (errorRepoShim) CreateErrorDefinition(ctx context.Context, db *gorm.DB, d *domain.ErrorDefinition) error {
	return repo.CreateErrorDefinition(ctx, db, d)
}

func (errorRepoShim) SaveErrorDefinition(ctx context.Context, db *gorm.DB, d *domain.ErrorDefinition) error {
	return repo.SaveErrorDefinition(ctx, db, d)
}

func (errorRepoShim) ReplaceSolutionSteps(ctx context.Context, db *gorm.DB, defID string, steps []domain.SolutionStep) error {
	return repo.ReplaceSolutionSteps(ctx, db, defID, steps)
}

func (errorRepoShim) DeleteErrorDefinition(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteErrorDefinition(ctx, db, id)
}

// Services bundles the application services the router exposes.
type Services struct {
	Query  *services.QueryService
	Kpis   *services.KpiService
	Events *services.EventDefinitionService
	Errors *services.ErrorDefinitionService
}

// NewServices builds every service over db with the settings from cfg.
func NewServices(db *gorm.DB, cfg config.Config) Services {
	q := services.NewQueryService(db, queryRepoShim{})
	q.Timeout = cfg.QueryTimeout
	q.Locale = cfg.Locale()

	k := services.NewKpiService(db, kpiRepoShim{})
	k.Timeout = cfg.QueryTimeout
	k.TrendSamples = cfg.KPI.TrendSamples
	k.Policy = services.CriticalPolicy{
		MinCount: cfg.KPI.CriticalMinCount,
		Patterns: cfg.KPI.CriticalErrorPatterns,
		Events:   cfg.KPI.CriticalEvents,
	}

	ev := services.NewEventDefinitionService(db, eventRepoShim{})
	ev.Timeout = cfg.QueryTimeout
	er := services.NewErrorDefinitionService(db, errorRepoShim{})
	er.Timeout = cfg.QueryTimeout

	return Services{Query: q, Kpis: k, Events: ev, Errors: er}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and returns the services it built, so the caller can share them
// with background workers.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PHI scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip for list responses
//  7. Metrics (route templates only)
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per IP, separate read/write buckets, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) Services {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress responses; message lists are the bulk of the traffic
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotencyReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		Revalidate:   true,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	svcs := NewServices(db, cfg)
	h := handlers.New(svcs.Query, svcs.Kpis, svcs.Events, svcs.Errors)
	h.DB = db
	h.IdempotencyTTL = cfg.IdempotencyTTL

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/v1"
	{
		// Message log
		api.GET("/messages", h.ListMessages)
		api.GET("/messages/:id", h.GetMessage)
		api.GET("/messages/:id/solution", h.GetSolution)

		// Patients
		api.GET("/patients", h.ListPatients)
		api.GET("/patients/:name/messages", h.ListPatientMessages)
		api.PUT("/patients/:name/visit-status", h.SetVisitStatus)

		// KPIs
		api.GET("/kpis", h.GetKpis)
		api.POST("/kpis/samples", h.RecordKpiSample)

		// Event catalog
		api.GET("/catalog/events", h.ListEventDefinitions)
		api.POST("/catalog/events", h.CreateEventDefinition)
		api.PATCH("/catalog/events/:id", h.UpdateEventDefinition)
		api.DELETE("/catalog/events/:id", h.DeleteEventDefinition)

		// Error catalog
		api.GET("/catalog/errors", h.ListErrorDefinitions)
		api.POST("/catalog/errors", h.CreateErrorDefinition)
		api.GET("/catalog/errors/:id", h.GetErrorDefinition)
		api.PATCH("/catalog/errors/:id", h.UpdateErrorDefinition)
		api.DELETE("/catalog/errors/:id", h.DeleteErrorDefinition)
		api.PUT("/catalog/errors/:id/steps", h.ReplaceSteps)
		api.POST("/catalog/errors/:id/steps/reorder", h.ReorderSteps)
		api.DELETE("/catalog/errors/:id/steps/:stepId", h.DeleteStep)
	}

	return svcs
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
