// Package services – SettingsService
//
// Manages the singleton venue settings row (schedule and contacts text),
// seeding it from configured defaults when absent.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/domain"
	"github.com/filin-lounge/booking-backend/internal/repo"
)

// SettingsService reads and updates the venue settings singleton.
type SettingsService struct {
	DB *gorm.DB

	// DefaultSchedule and DefaultContacts seed the row on first access.
	DefaultSchedule string
	DefaultContacts string
}

// NewSettingsService constructs a SettingsService with the given defaults.
func NewSettingsService(db *gorm.DB, defaultSchedule, defaultContacts string) *SettingsService {
	return &SettingsService{
		DB:              db,
		DefaultSchedule: defaultSchedule,
		DefaultContacts: defaultContacts,
	}
}

// Get returns the venue settings, creating them from defaults when absent.
func (s *SettingsService) Get(ctx context.Context) (*domain.VenueSettings, error) {
	return repo.GetOrCreateSettings(ctx, s.DB, s.DefaultSchedule, s.DefaultContacts)
}

// UpdateSchedule replaces the schedule text.
func (s *SettingsService) UpdateSchedule(ctx context.Context, text string) (*domain.VenueSettings, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrInvalidInput
	}
	return repo.UpdateScheduleText(ctx, s.DB, text, s.DefaultSchedule, s.DefaultContacts)
}

// UpdateContacts replaces the contacts text.
func (s *SettingsService) UpdateContacts(ctx context.Context, text string) (*domain.VenueSettings, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrInvalidInput
	}
	return repo.UpdateContactsText(ctx, s.DB, text, s.DefaultSchedule, s.DefaultContacts)
}
