package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q", cfg.GinMode)
	}
	if cfg.APIBasePath != "/api" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.Venue.TableCount != 8 || cfg.Venue.MaxGuests != 20 {
		t.Errorf("venue = %+v", cfg.Venue)
	}
	if cfg.Venue.DefaultDurationMin != 120 || cfg.Venue.MaxDurationMin != 240 {
		t.Errorf("durations = %+v", cfg.Venue)
	}
	if cfg.Reminder.Interval != 10*time.Minute || cfg.Reminder.DayLead != 24*time.Hour {
		t.Errorf("reminder = %+v", cfg.Reminder)
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Errorf("IdempotencyTTL = %v", cfg.IdempotencyTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("VENUE_TABLE_COUNT", "12")
	t.Setenv("ADMIN_IDS", "111, 222,garbage,333")
	t.Setenv("API_BASE_PATH", "api/v1/")
	t.Setenv("LOG_LEVEL", "WARNING")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Venue.TableCount != 12 {
		t.Errorf("TableCount = %d", cfg.Venue.TableCount)
	}
	if len(cfg.AdminIDs) != 3 {
		t.Fatalf("AdminIDs = %v", cfg.AdminIDs)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoad_AdminIDsWithBOM(t *testing.T) {
	// Windows editors like to prepend a byte order mark to .env values.
	t.Setenv("ADMIN_IDS", "\ufeff111,222")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.AdminIDs) != 2 || cfg.AdminIDs[0] != 111 || cfg.AdminIDs[1] != 222 {
		t.Fatalf("AdminIDs = %v", cfg.AdminIDs)
	}
}

func TestLoad_MaxDurationBound(t *testing.T) {
	t.Setenv("BOOKING_MAX_DURATION_MIN", "300")
	if _, err := Load(); err == nil {
		t.Fatalf("max duration above 240 must be rejected")
	}

	t.Setenv("BOOKING_MAX_DURATION_MIN", "240")
	if _, err := Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name, key, val string
	}{
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"zero tables", "VENUE_TABLE_COUNT", "0"},
		{"default above max", "BOOKING_DEFAULT_DURATION_MIN", "241"},
		{"zero burst", "RATE_BURST", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error for %s=%s", tc.key, tc.val)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	cfg := Config{AdminIDs: []int64{111, 222}}
	if !cfg.IsAdmin(111) || cfg.IsAdmin(333) {
		t.Fatalf("IsAdmin mismatch")
	}
}

func TestLoad_OTELDefaultsAndBounds(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OTEL.Enabled {
		t.Errorf("tracing must be off by default")
	}
	if cfg.OTEL.Endpoint != "localhost:4317" || cfg.OTEL.ServiceName != "booking-backend" {
		t.Errorf("OTEL defaults = %+v", cfg.OTEL)
	}
	if cfg.OTEL.SampleRatio != 1.0 {
		t.Errorf("SampleRatio = %v", cfg.OTEL.SampleRatio)
	}

	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "1.5")
	if _, err := Load(); err == nil {
		t.Fatalf("sample ratio above 1 must be rejected")
	}
}
