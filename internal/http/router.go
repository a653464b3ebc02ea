// Package httpapi wires the HTTP transport (Gin) to the book service, its
// store, middleware and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, access logging, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-book-records/docs"
	"github.com/tbourn/go-book-records/internal/clock"
	"github.com/tbourn/go-book-records/internal/config"
	"github.com/tbourn/go-book-records/internal/domain"
	"github.com/tbourn/go-book-records/internal/http/handlers"
	"github.com/tbourn/go-book-records/internal/http/middleware"
	"github.com/tbourn/go-book-records/internal/observability"
	"github.com/tbourn/go-book-records/internal/repo"
	"github.com/tbourn/go-book-records/internal/services"
)

// Store is everything the HTTP layer needs from persistence: the book store
// consumed by services.BookService and the idempotency records consumed by
// handlers. Both repo (via GormStore) and memstore.Store satisfy it.
type Store interface {
	services.BookStore
	handlers.IdempotencyStore
}

// gormStore adapts the repository free functions to Store. This keeps
// services decoupled from the concrete repo package while reusing its
// functions.
type gormStore struct{ db *gorm.DB }

// GormStore wraps db as a Store.
func GormStore(db *gorm.DB) Store { return gormStore{db: db} }

// Save proxies repo.SaveBook.
func (s gormStore) Save(ctx context.Context, b domain.Book) (*domain.Book, error) {
	return repo.SaveBook(ctx, s.db, b)
}

// FindByID proxies repo.GetBook.
func (s gormStore) FindByID(ctx context.Context, id uint) (*domain.Book, error) {
	return repo.GetBook(ctx, s.db, id)
}

// FindByAuthor proxies repo.ListBooksByAuthor.
func (s gormStore) FindByAuthor(ctx context.Context, author string) ([]domain.Book, error) {
	return repo.ListBooksByAuthor(ctx, s.db, author)
}

// FindByAuthorAndStatus proxies repo.ListBooksByAuthorAndStatus.
func (s gormStore) FindByAuthorAndStatus(ctx context.Context, author string, status domain.BookStatus) ([]domain.Book, error) {
	return repo.ListBooksByAuthorAndStatus(ctx, s.db, author, status)
}

// FindByStatus proxies repo.ListBooksByStatus.
func (s gormStore) FindByStatus(ctx context.Context, status domain.BookStatus) ([]domain.Book, error) {
	return repo.ListBooksByStatus(ctx, s.db, status)
}

// SearchByAuthor proxies repo.SearchBooksByAuthor.
func (s gormStore) SearchByAuthor(ctx context.Context, fragment string) ([]domain.Book, error) {
	return repo.SearchBooksByAuthor(ctx, s.db, fragment)
}

// StatusStats proxies repo.StatusStats (ETag support).
func (s gormStore) StatusStats(ctx context.Context, status domain.BookStatus) (int64, *time.Time, error) {
	return repo.StatusStats(ctx, s.db, status)
}

// GetIdempotency proxies repo.GetIdempotency.
func (s gormStore) GetIdempotency(ctx context.Context, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, s.db, key, now)
}

// CreateIdempotency proxies repo.CreateIdempotency.
func (s gormStore) CreateIdempotency(ctx context.Context, key string, bookID uint, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, s.db, key, bookID, status, ttl)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. AccessLog: request-scoped logger, scrubbed access log
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator, POST /books only (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per client IP, bypass on creation replay)
//  9. CORS and Security headers
//  10. Gzip (optional)
//
// clk drives the publication-year policy; nil means the system clock.
func RegisterRoutes(r *gin.Engine, store Store, clk clock.Clock, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(observability.ServiceName(cfg.OTEL, cfg.App)))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) One scrubbed access-log event per request
	r.Use(middleware.AccessLog(middleware.AccessLogOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting). Only book creation
	// honours the key, so replays can bypass the limiter nowhere else.
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{
		Scope: middleware.RouteScope(http.MethodPost, strings.TrimSuffix(apiBase, "/")+"/books"),
		Clock: clk,
	}, idempotencyLookup(store)))

	// 8) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	// 9) CORS and security headers
	r.Use(corsMiddleware(cfg.CORS)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Optional response compression
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression))
	}

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "name": cfg.App.Name, "version": cfg.App.Version})
	})

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		if cfg.App.Version != "" {
			docs.SwaggerInfo.Version = cfg.App.Version
		}
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: handlers ← service ← store
	bookSvc := services.NewBookService(store, clk)
	h := handlers.New(bookSvc, store, cfg.IdempotencyTTL).WithClock(clk)

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		api.POST("/books", h.CreateBook)
		api.GET("/books", h.ListBooks)
		api.GET("/books/search", h.SearchBooks)
		api.GET("/books/status/:status", h.ListBooksByStatus)
		api.GET("/books/:id", h.GetBook)
		api.PUT("/books/:id/status", h.UpdateBookStatus)
	}
}

// idempotencyLookup reports live records in store; a miss is not an error.
func idempotencyLookup(store handlers.IdempotencyStore) middleware.IdempotencyLookup {
	return func(ctx context.Context, key string, now time.Time) (bool, error) {
		rec, err := store.GetIdempotency(ctx, key, now)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return false, nil
		case err != nil:
			return false, err
		}
		return rec != nil, nil
	}
}

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
	corsAllow   = []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	corsExpose  = []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"}
)

// corsMiddleware allows every origin when none are configured. Otherwise it
// echoes allowlisted origins. The origin header is set up front so that
// non-preflight requests without an Origin still carry it.
func corsMiddleware(cfg config.CORSConfig) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  corsMethods,
		AllowHeaders:  corsAllow,
		ExposeHeaders: corsExpose,
		MaxAge:        12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Header("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = cfg.AllowedOrigins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					c.Header("Access-Control-Allow-Origin", origin)
					c.Writer.Header().Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
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
