// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// correlation IDs, logging/redaction, panic recovery, metrics, CORS,
// security headers, idempotency, rate limiting, and the admin allow-list
// gate.
//
// Design goals:
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Guest and admin surfaces share the edge middleware; only the admin
//     group carries the allow-list gate
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/config"
	"github.com/filin-lounge/booking-backend/internal/http/handlers"
	"github.com/filin-lounge/booking-backend/internal/http/middleware"
	"github.com/filin-lounge/booking-backend/internal/notify"
	"github.com/filin-lounge/booking-backend/internal/repo"
	"github.com/filin-lounge/booking-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given
// Gin engine: observability, idempotency and rate limiting, CORS and
// security headers, health and metrics endpoints, and the guest and admin
// APIs under cfg.APIBasePath.
//
// Middleware order matters:
//  1. Tracing: spans wrap everything below
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with guest PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter, gzip
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per identity/IP, bypass on replay)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, notifier notify.Notifier, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (guests submit phone numbers)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (256 KiB; payloads are small JSON) and
	// gzip for the list-heavy admin responses
	r.Use(limitBody(256 << 10))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, chatID int64, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, chatID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per identity/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIdentityOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept",
		middleware.HeaderChatID, middleware.HeaderAdminID, middleware.HeaderIdempotencyKey,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
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

	// Dependency injection: services ← repo/db
	bookingSvc := services.NewBookingService(db,
		cfg.Venue.TableCount, cfg.Venue.MaxGuests,
		cfg.Venue.DefaultDurationMin, cfg.Venue.MaxDurationMin)
	clientSvc := services.NewClientService(db)
	promoSvc := services.NewPromotionService(db)
	reviewSvc := services.NewReviewService(db)
	settingsSvc := services.NewSettingsService(db, cfg.Venue.DefaultSchedule, cfg.Venue.DefaultContacts)
	broadcastSvc := services.NewBroadcastService(db, notifier, log.With().Str("component", "broadcast").Logger())

	h := handlers.New(bookingSvc, clientSvc, promoSvc, reviewSvc, settingsSvc, broadcastSvc,
		db, cfg.IdempotencyTTL, cfg.Venue.TableCount)

	// Guest API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/bootstrap", h.Bootstrap)
		api.GET("/availability", h.Availability)
		api.GET("/tables_status", h.TablesStatus)
		api.POST("/bookings", h.CreateBooking)
		api.POST("/bookings/:id/cancel", h.CancelBooking)
		api.POST("/reviews", h.CreateReview)
		api.POST("/subscription", h.Subscribe)
		api.DELETE("/subscription", h.Unsubscribe)
	}

	// Admin API behind the allow-list gate
	admin := api.Group("/admin", middleware.AdminGate(cfg.IsAdmin))
	{
		admin.GET("/stats", h.Stats)

		admin.GET("/bookings", h.ListBookings)
		admin.POST("/bookings/:id/confirm", h.ConfirmBooking)
		admin.POST("/bookings/:id/close", h.CloseBooking)
		admin.POST("/bookings/:id/cancel", h.CancelBookingAdmin)

		admin.POST("/tables/book", h.BookTable)
		admin.POST("/tables/block", h.BlockTable)
		admin.POST("/tables/:table_no/unblock", h.UnblockTable)
		admin.POST("/tables/occupy", h.OccupyTable)
		admin.POST("/tables/:table_no/free", h.FreeTable)

		admin.GET("/events", h.ListEvents)
		admin.POST("/events", h.CreateEvent)
		admin.PUT("/events/:id", h.UpdateEvent)
		admin.DELETE("/events/:id", h.DeleteEvent)

		admin.GET("/guests", h.ListGuests)
		admin.GET("/guests/:id", h.GuestProfile)
		admin.PUT("/guests/:id/notes", h.UpdateGuestNotes)
		admin.POST("/guests/:id/discount", h.SetGuestDiscount)
		admin.POST("/guests/:id/visits", h.AddGuestVisits)
		admin.DELETE("/guests/:id/visits", h.ResetGuestVisits)

		admin.POST("/broadcast/start", h.StartBroadcast)
		admin.POST("/broadcast", h.SendBroadcast)
		admin.DELETE("/broadcast", h.AbortBroadcast)

		admin.PUT("/settings/schedule", h.UpdateSchedule)
		admin.PUT("/settings/contacts", h.UpdateContacts)
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader; oversized bodies error on read downstream.
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
