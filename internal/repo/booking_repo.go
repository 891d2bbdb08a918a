// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Booking
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Conflict detection and lifecycle rules
// live in services.BookingService, which calls these functions inside a
// single transaction.
//
// Error semantics:
//   - When a booking is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/domain"
)

// CreateBooking inserts a new booking row. Status, reminder flags, and the
// staff flag must already be set by the caller; CreatedAt is set to UTC.
//
// The (table_no, booking_at) unique index can reject the insert when two
// bookings target the exact same slot. That is surfaced as the raw gorm
// error: the engine treats it as a conflict backstop, never as the primary
// guarantee.
func CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	b.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(b).Error
}

// GetBooking fetches a single booking by id with its owning client
// preloaded. Returns ErrNotFound when the row is absent.
func GetBooking(ctx context.Context, db *gorm.DB, id uint) (*domain.Booking, error) {
	var b domain.Booking
	err := db.WithContext(ctx).Preload("Client").First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListTableCandidates returns the non-terminal bookings for tableNo whose
// start falls inside [from, to]. This is the coarse pre-filter for overlap
// checking; callers apply the precise interval predicate afterwards.
// Intended to run on a transaction handle alongside the insert.
func ListTableCandidates(ctx context.Context, db *gorm.DB, tableNo int, from, to time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).
		Where("table_no = ? AND booking_at >= ? AND booking_at <= ?", tableNo, from, to).
		Where("status IN ?", domain.NonTerminalStatuses).
		Find(&out).Error
	return out, err
}

// ListClientBookings returns a client's own upcoming bookings: terminal
// and staff-internal rows are excluded, newest start first, capped at 20.
func ListClientBookings(ctx context.Context, db *gorm.DB, clientID uint) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).
		Where("client_id = ? AND is_staff_booking = ?", clientID, false).
		Where("status IN ?", domain.NonTerminalStatuses).
		Order("booking_at desc").
		Limit(20).
		Find(&out).Error
	return out, err
}

// ListAllBookings returns bookings for the staff view, newest start first,
// capped at 100. When from is non-zero only bookings starting at or after
// it are returned.
func ListAllBookings(ctx context.Context, db *gorm.DB, from time.Time) ([]domain.Booking, error) {
	q := db.WithContext(ctx).Preload("Client").Order("booking_at desc").Limit(100)
	if !from.IsZero() {
		q = q.Where("booking_at >= ?", from)
	}
	var out []domain.Booking
	err := q.Find(&out).Error
	return out, err
}

// ListBookingsForDay returns every booking (any status) whose start falls
// inside [dayStart, dayEnd). Used by occupancy and dashboard queries.
func ListBookingsForDay(ctx context.Context, db *gorm.DB, dayStart, dayEnd time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).Preload("Client").
		Where("booking_at >= ? AND booking_at < ?", dayStart, dayEnd).
		Order("booking_at desc").
		Find(&out).Error
	return out, err
}

// ListActiveForTableFrom returns the non-terminal bookings for tableNo
// starting at or after from. Used by the staff "free table" action.
func ListActiveForTableFrom(ctx context.Context, db *gorm.DB, tableNo int, from time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).
		Where("table_no = ? AND booking_at >= ?", tableNo, from).
		Where("status IN ?", domain.NonTerminalStatuses).
		Find(&out).Error
	return out, err
}

// UpdateStatusIfNonTerminal conditionally advances a booking's status.
// The UPDATE only matches while the current status is still non-terminal,
// so concurrent transition attempts cannot both win and a terminal booking
// is never modified.
//
// Returns (true, nil) when the transition was applied, (false, nil) when
// the row exists in some other state or does not exist. Callers that need
// to distinguish those cases re-read the row.
func UpdateStatusIfNonTerminal(ctx context.Context, db *gorm.DB, id uint, newStatus string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status IN ?", id, domain.NonTerminalStatuses).
		Update("status", newStatus)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateStatusIfPending conditionally confirms a pending booking.
// Semantics mirror UpdateStatusIfNonTerminal with a narrower guard.
func UpdateStatusIfPending(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Update("status", domain.StatusConfirmed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteStaffBlocks removes staff table-block placeholders for tableNo.
// This is the only legitimate booking deletion in the system; guest
// bookings are never deleted, only transitioned.
func DeleteStaffBlocks(ctx context.Context, db *gorm.DB, tableNo int) (int64, error) {
	res := db.WithContext(ctx).
		Where("table_no = ? AND is_staff_booking = ? AND status = ?",
			tableNo, true, domain.StatusCanceled).
		Delete(&domain.Booking{})
	return res.RowsAffected, res.Error
}

// Reminder flag column names, shared with the scheduler.
const (
	ReminderDayColumn  = "reminder_day_sent"
	ReminderHourColumn = "reminder_hour_sent"
)

// ListDueReminders returns the non-terminal bookings whose start falls
// inside [from, to] and whose flagColumn is still false, with clients
// preloaded for dispatch.
func ListDueReminders(ctx context.Context, db *gorm.DB, flagColumn string, from, to time.Time) ([]domain.Booking, error) {
	if flagColumn != ReminderDayColumn && flagColumn != ReminderHourColumn {
		return nil, errors.New("repo: unknown reminder flag column")
	}
	var out []domain.Booking
	err := db.WithContext(ctx).Preload("Client").
		Where("booking_at >= ? AND booking_at <= ?", from, to).
		Where("status IN ?", domain.NonTerminalStatuses).
		Where(flagColumn+" = ?", false).
		Find(&out).Error
	return out, err
}

// SetReminderSent marks one reminder flag true for a booking.
func SetReminderSent(ctx context.Context, db *gorm.DB, id uint, flagColumn string) error {
	if flagColumn != ReminderDayColumn && flagColumn != ReminderHourColumn {
		return errors.New("repo: unknown reminder flag column")
	}
	return db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ?", id).
		Update(flagColumn, true).Error
}
