// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries
// used by the staff dashboard and client profile views. Each function is
// context-aware and safe to call from services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/domain"
)

// ClientBookingStats holds per-client aggregate booking counters.
type ClientBookingStats struct {
	Total     int64
	Completed int64
	Canceled  int64
	LastVisit *time.Time
}

// ClientStats returns aggregate booking counters for one client: total
// rows, completed, canceled, and the latest booking start. When the client
// has no bookings all counters are zero and LastVisit is nil.
func ClientStats(ctx context.Context, db *gorm.DB, clientID uint) (ClientBookingStats, error) {
	var out ClientBookingStats
	q := db.WithContext(ctx).Model(&domain.Booking{}).Where("client_id = ?", clientID)

	if err := q.Count(&out.Total).Error; err != nil {
		return out, err
	}
	if out.Total == 0 {
		return out, nil
	}
	if err := q.Where("status = ?", domain.StatusCompleted).Count(&out.Completed).Error; err != nil {
		return out, err
	}
	// Re-scope: gorm conditions accumulate on q after the Where above.
	q2 := db.WithContext(ctx).Model(&domain.Booking{}).Where("client_id = ?", clientID)
	if err := q2.Where("status = ?", domain.StatusCanceled).Count(&out.Canceled).Error; err != nil {
		return out, err
	}

	// Latest start (avoid MAX() -> TEXT in SQLite).
	var row struct {
		BookingAt time.Time
	}
	err := db.WithContext(ctx).Model(&domain.Booking{}).
		Where("client_id = ?", clientID).
		Select("booking_at").
		Order("booking_at DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return out, err
	}
	out.LastVisit = &row.BookingAt
	return out, nil
}

// CountBookingsBetween returns the number of bookings (any status) whose
// start falls inside [from, to).
func CountBookingsBetween(ctx context.Context, db *gorm.DB, from, to time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Booking{}).
		Where("booking_at >= ? AND booking_at < ?", from, to).
		Count(&n).Error
	return n, err
}
