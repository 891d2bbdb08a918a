// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for per-admin
// session state (broadcast mode). Session rows replace the process-wide
// flag the system previously relied on, so mode survives restarts and
// multiple instances.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/filin-lounge/booking-backend/internal/domain"
)

// GetAdminSession returns the session row for adminID. When no row exists
// yet an idle session value (not persisted) is returned.
func GetAdminSession(ctx context.Context, db *gorm.DB, adminID int64) (*domain.AdminSession, error) {
	var s domain.AdminSession
	err := db.WithContext(ctx).Where("admin_id = ?", adminID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.AdminSession{AdminID: adminID, Mode: domain.AdminModeIdle}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SetAdminMode upserts the session row for adminID with the given mode.
func SetAdminMode(ctx context.Context, db *gorm.DB, adminID int64, mode string) error {
	s := &domain.AdminSession{
		AdminID:   adminID,
		Mode:      mode,
		UpdatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "admin_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"mode", "updated_at"}),
		}).
		Create(s).Error
}
