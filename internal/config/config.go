// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, venue constants, rate
// limiting, and the reminder schedule.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings. The web
// mini-application is served from a different origin than the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig holds OpenTelemetry tracing settings. Tracing is off by
// default; when enabled, spans are exported over OTLP gRPC.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT, host:port
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG, in [0,1]
}

// VenueConfig holds venue-wide constants. TableCount is the single
// authoritative table count: input validation and the occupancy dashboard
// both use it, so a table number is valid iff 1 <= n <= TableCount.
type VenueConfig struct {
	TableCount         int    // VENUE_TABLE_COUNT
	MaxGuests          int    // VENUE_MAX_GUESTS
	DefaultDurationMin int    // BOOKING_DEFAULT_DURATION_MIN
	MaxDurationMin     int    // BOOKING_MAX_DURATION_MIN; bounds the ±4h conflict pre-filter
	DefaultSchedule    string // DEFAULT_SCHEDULE
	DefaultContacts    string // DEFAULT_CONTACTS
}

// ReminderConfig holds the reminder-scan cadence and the two lead-time
// selection windows (24-hour and 1-hour before the booking start).
type ReminderConfig struct {
	Interval   time.Duration // REMINDER_INTERVAL, scan cadence
	DayLead    time.Duration // REMINDER_DAY_LEAD (24h)
	DayWindow  time.Duration // REMINDER_DAY_WINDOW (30m)
	HourLead   time.Duration // REMINDER_HOUR_LEAD (1h)
	HourWindow time.Duration // REMINDER_HOUR_WINDOW (15m)
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath      string  // SQLite path
	APIBasePath string  // base path for API routes
	AdminIDs    []int64 // static allow-list of admin chat identities

	// Venue
	Venue VenueConfig

	// Reminders
	Reminder ReminderConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Tracing
	OTEL OTELConfig
}

// IsAdmin reports whether chatID is in the static admin allow-list.
func (c Config) IsAdmin(chatID int64) bool {
	for _, id := range c.AdminIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath:      getenv("DB_PATH", "booking.db"),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api")),
		AdminIDs:    splitIDs(getenv("ADMIN_IDS", "")),

		// Venue
		Venue: VenueConfig{
			TableCount:         getint("VENUE_TABLE_COUNT", 8),
			MaxGuests:          getint("VENUE_MAX_GUESTS", 20),
			DefaultDurationMin: getint("BOOKING_DEFAULT_DURATION_MIN", 120),
			MaxDurationMin:     getint("BOOKING_MAX_DURATION_MIN", 240),
			DefaultSchedule:    getenv("DEFAULT_SCHEDULE", "Open daily 14:00-02:00"),
			DefaultContacts:    getenv("DEFAULT_CONTACTS", "Phone: +7 (000) 000-00-00"),
		},

		// Reminders
		Reminder: ReminderConfig{
			Interval:   getdur("REMINDER_INTERVAL", 10*time.Minute),
			DayLead:    getdur("REMINDER_DAY_LEAD", 24*time.Hour),
			DayWindow:  getdur("REMINDER_DAY_WINDOW", 30*time.Minute),
			HourLead:   getdur("REMINDER_HOUR_LEAD", time.Hour),
			HourWindow: getdur("REMINDER_HOUR_WINDOW", 15*time.Minute),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Tracing
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "booking-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.Venue.TableCount < 1 {
		return cfg, errors.New("VENUE_TABLE_COUNT must be >= 1")
	}
	if cfg.Venue.MaxGuests < 1 {
		return cfg, errors.New("VENUE_MAX_GUESTS must be >= 1")
	}
	if cfg.Venue.DefaultDurationMin < 1 || cfg.Venue.MaxDurationMin < cfg.Venue.DefaultDurationMin {
		return cfg, errors.New("booking durations must satisfy 1 <= default <= max")
	}
	// The conflict pre-filter scans ±4h around the requested start; it is
	// only sound while no booking can outlast that bound.
	if cfg.Venue.MaxDurationMin > 240 {
		return cfg, errors.New("BOOKING_MAX_DURATION_MIN must not exceed 240")
	}
	if cfg.Reminder.Interval <= 0 {
		return cfg, errors.New("REMINDER_INTERVAL must be > 0")
	}
	if cfg.Reminder.DayLead <= 0 || cfg.Reminder.DayWindow <= 0 ||
		cfg.Reminder.HourLead <= 0 || cfg.Reminder.HourWindow <= 0 {
		return cfg, errors.New("reminder leads and windows must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if cfg.OTEL.Enabled && strings.TrimSpace(cfg.OTEL.Endpoint) == "" {
		return cfg, errors.New("OTEL_EXPORTER_OTLP_ENDPOINT must not be empty when tracing is enabled")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// splitIDs parses a comma-separated list of chat ids, skipping anything
// that does not parse as an integer (BOM-ed or padded .env values included).
func splitIDs(s string) []int64 {
	var out []int64
	for _, p := range splitCSV(strings.ReplaceAll(s, "\ufeff", "")) {
		if id, err := strconv.ParseInt(p, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
