package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/filin-lounge/booking-backend/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedClient(t *testing.T, db *gorm.DB, chatID int64) *domain.Client {
	t.Helper()
	c := &domain.Client{ChatID: chatID}
	if err := CreateClient(context.Background(), db, c); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func seedBooking(t *testing.T, db *gorm.DB, clientID uint, tableNo int, at time.Time, status string) *domain.Booking {
	t.Helper()
	b := &domain.Booking{
		ClientID:        clientID,
		BookingAt:       at,
		DurationMinutes: 120,
		TableNo:         tableNo,
		Guests:          2,
		Status:          status,
	}
	if err := CreateBooking(context.Background(), db, b); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func TestUpdateStatusIfNonTerminal(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := seedClient(t, db, 1)
	at := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	b := seedBooking(t, db, c.ID, 1, at, domain.StatusPending)

	ok, err := UpdateStatusIfNonTerminal(ctx, db, b.ID, domain.StatusCanceled)
	if err != nil || !ok {
		t.Fatalf("first transition = (%v, %v), want (true, nil)", ok, err)
	}

	// The row is terminal now; a second attempt matches nothing.
	ok, err = UpdateStatusIfNonTerminal(ctx, db, b.ID, domain.StatusCompleted)
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if ok {
		t.Fatalf("transition on terminal row must not match")
	}

	var got domain.Booking
	if err := db.First(&got, b.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != domain.StatusCanceled {
		t.Fatalf("status = %q, want canceled", got.Status)
	}
}

func TestUpdateStatusIfPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := seedClient(t, db, 2)
	at := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	b := seedBooking(t, db, c.ID, 2, at, domain.StatusConfirmed)

	ok, err := UpdateStatusIfPending(ctx, db, b.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if ok {
		t.Fatalf("already-confirmed row must not match the pending guard")
	}
}

func TestDeleteStaffBlocks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := seedClient(t, db, 3)
	at := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)

	block := seedBooking(t, db, c.ID, 4, at, domain.StatusCanceled)
	db.Model(block).Update("is_staff_booking", true)
	// A canceled guest booking on the same table must survive.
	seedBooking(t, db, c.ID, 4, at.Add(time.Hour), domain.StatusCanceled)

	n, err := DeleteStaffBlocks(ctx, db, 4)
	if err != nil {
		t.Fatalf("delete blocks: %v", err)
	}
	if n != 1 {
		t.Fatalf("removed = %d, want 1", n)
	}
	var left int64
	db.Model(&domain.Booking{}).Where("table_no = ?", 4).Count(&left)
	if left != 1 {
		t.Fatalf("rows left = %d, want 1", left)
	}
}

func TestListDueReminders(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := seedClient(t, db, 4)
	from := time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)
	to := from.Add(30 * time.Minute)

	due := seedBooking(t, db, c.ID, 1, from.Add(10*time.Minute), domain.StatusConfirmed)
	seedBooking(t, db, c.ID, 2, from.Add(time.Hour), domain.StatusConfirmed)    // outside window
	seedBooking(t, db, c.ID, 3, from.Add(5*time.Minute), domain.StatusCanceled) // terminal
	flagged := seedBooking(t, db, c.ID, 5, from.Add(15*time.Minute), domain.StatusPending)
	if err := SetReminderSent(ctx, db, flagged.ID, ReminderDayColumn); err != nil {
		t.Fatalf("flag: %v", err)
	}

	got, err := ListDueReminders(ctx, db, ReminderDayColumn, from, to)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Fatalf("due = %v, want only booking %d", got, due.ID)
	}
	if got[0].Client.ChatID != 4 {
		t.Fatalf("client not preloaded: %+v", got[0].Client)
	}

	// The flagged row is still due for the other, independent window.
	got, err = ListDueReminders(ctx, db, ReminderHourColumn, from, to)
	if err != nil {
		t.Fatalf("list hour: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("hour-window due = %d rows, want 2", len(got))
	}

	if _, err := ListDueReminders(ctx, db, "status", from, to); err == nil {
		t.Fatalf("arbitrary column must be rejected")
	}
}

func TestIncrementAndResetVisits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := seedClient(t, db, 5)

	if err := IncrementVisits(ctx, db, c.ID, 3); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := IncrementVisits(ctx, db, c.ID, 1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	got, err := GetClient(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Visits != 4 {
		t.Fatalf("visits = %d, want 4", got.Visits)
	}

	if err := ResetVisits(ctx, db, c.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got, _ = GetClient(ctx, db, c.ID)
	if got.Visits != 0 {
		t.Fatalf("visits after reset = %d", got.Visits)
	}

	if err := IncrementVisits(ctx, db, 9999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIdempotencyRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, 7, "key-1", 42, 201, time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.BookingID != 42 {
		t.Fatalf("record = %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, 7, "key-1", now)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.BookingID != 42 || got.Status != 201 {
		t.Fatalf("got = %+v", got)
	}

	// Same tuple again is a duplicate; a different chat id is not.
	if _, err := CreateIdempotency(ctx, db, 7, "key-1", 43, 201, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, 8, "key-1", 44, 201, time.Hour); err != nil {
		t.Fatalf("create for other chat: %v", err)
	}

	// Expired records are invisible.
	if _, err := GetIdempotency(ctx, db, 7, "key-1", now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}
