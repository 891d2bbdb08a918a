// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// singleton VenueSettings row.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/domain"
)

// venueSettingsID is the fixed primary key of the singleton row.
const venueSettingsID = 1

// GetOrCreateSettings returns the venue settings row, creating it from the
// supplied defaults when absent.
func GetOrCreateSettings(ctx context.Context, db *gorm.DB, defaultSchedule, defaultContacts string) (*domain.VenueSettings, error) {
	var s domain.VenueSettings
	err := db.WithContext(ctx).First(&s, venueSettingsID).Error
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	s = domain.VenueSettings{
		ID:           venueSettingsID,
		ScheduleText: defaultSchedule,
		ContactsText: defaultContacts,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateScheduleText replaces the schedule text, creating the row from
// defaults first when needed.
func UpdateScheduleText(ctx context.Context, db *gorm.DB, text, defaultSchedule, defaultContacts string) (*domain.VenueSettings, error) {
	return updateSettings(ctx, db, "schedule_text", text, defaultSchedule, defaultContacts)
}

// UpdateContactsText replaces the contacts text, creating the row from
// defaults first when needed.
func UpdateContactsText(ctx context.Context, db *gorm.DB, text, defaultSchedule, defaultContacts string) (*domain.VenueSettings, error) {
	return updateSettings(ctx, db, "contacts_text", text, defaultSchedule, defaultContacts)
}

func updateSettings(ctx context.Context, db *gorm.DB, column, text, defaultSchedule, defaultContacts string) (*domain.VenueSettings, error) {
	s, err := GetOrCreateSettings(ctx, db, defaultSchedule, defaultContacts)
	if err != nil {
		return nil, err
	}
	err = db.WithContext(ctx).
		Model(s).
		Updates(map[string]any{column: text, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return nil, err
	}
	return s, nil
}
