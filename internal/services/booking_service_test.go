package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/filin-lounge/booking-backend/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:bookingsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")
	if err := db.AutoMigrate(
		&domain.Client{}, &domain.Booking{}, &domain.Promotion{}, &domain.Review{},
		&domain.VenueSettings{}, &domain.Subscriber{}, &domain.AdminSession{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newBookingSvc(db *gorm.DB) *BookingService {
	return NewBookingService(db, 8, 20, 120, 240)
}

func seedClient(t *testing.T, db *gorm.DB, chatID int64) *domain.Client {
	t.Helper()
	c := &domain.Client{ChatID: chatID, FullName: "Guest"}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func at(hour, min int) time.Time {
	return time.Date(2026, 9, 1, hour, min, 0, 0, time.UTC)
}

func TestBooking_Create_Pending(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)
	c := seedClient(t, db, 100)

	b, err := svc.Create(context.Background(), CreateBookingInput{
		ClientID: c.ID, StartAt: at(19, 0), TableNo: 3, Guests: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != domain.StatusPending {
		t.Fatalf("status = %q, want pending", b.Status)
	}
	if b.DurationMinutes != 120 {
		t.Fatalf("duration = %d, want default 120", b.DurationMinutes)
	}
	if b.ReminderDaySent || b.ReminderHourSent {
		t.Fatalf("reminder flags must start false")
	}
}

func TestBooking_Create_Conflict(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)
	c := seedClient(t, db, 100)

	if _, err := svc.Create(context.Background(), CreateBookingInput{
		ClientID: c.ID, StartAt: at(19, 0), TableNo: 3, Guests: 2,
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// Overlapping window on the same table.
	_, err := svc.Create(context.Background(), CreateBookingInput{
		ClientID: c.ID, StartAt: at(20, 0), TableNo: 3, Guests: 2,
	})
	if !errors.Is(err, ErrTableConflict) {
		t.Fatalf("expected ErrTableConflict, got %v", err)
	}

	// Same window on a different table is fine.
	if _, err := svc.Create(context.Background(), CreateBookingInput{
		ClientID: c.ID, StartAt: at(20, 0), TableNo: 4, Guests: 2,
	}); err != nil {
		t.Fatalf("different table: %v", err)
	}
}

// blindCandidatesRepo hides existing bookings from the conflict scan so
// inserts go straight to the unique (table_no, booking_at) index.
type blindCandidatesRepo struct{ bookingRepo }

func (blindCandidatesRepo) ListTableCandidates(ctx context.Context, db *gorm.DB, tableNo int, from, to time.Time) ([]domain.Booking, error) {
	return nil, nil
}

func TestBooking_Create_UniqueIndexBackstop(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)
	svc.Repo = blindCandidatesRepo{}
	c := seedClient(t, db, 100)

	in := CreateBookingInput{ClientID: c.ID, StartAt: at(19, 0), TableNo: 3, Guests: 2}
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// A second insert for the identical slot never sees the first row in
	// the scan; the index violation must still read as a conflict.
	_, err := svc.Create(context.Background(), in)
	if !errors.Is(err, ErrTableConflict) {
		t.Fatalf("expected ErrTableConflict, got %v", err)
	}
}

func TestBooking_Create_ConcurrentSameSlot(t *testing.T) {
	db := newTestDB(t)
	// One connection serializes the write transactions the way the busy
	// handler does against a file-backed store.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	svc := newBookingSvc(db)

	const racers = 8
	clients := make([]*domain.Client, racers)
	for i := range clients {
		clients[i] = seedClient(t, db, int64(9000+i))
	}

	var wg sync.WaitGroup
	errs := make([]error, racers)
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), CreateBookingInput{
				ClientID: clients[i].ID, StartAt: at(19, 0), TableNo: 3, Guests: 2,
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrTableConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}

	var rows int64
	if err := db.Model(&domain.Booking{}).Where("table_no = ?", 3).Count(&rows).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Fatalf("bookings stored = %d, want 1", rows)
	}
}

func TestBooking_Create_BackToBack(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)
	c := seedClient(t, db, 100)

	if _, err := svc.Create(context.Background(), CreateBookingInput{
		ClientID: c.ID, StartAt: at(18, 0), TableNo: 1, Guests: 2,
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	// Starts exactly when the previous one ends; half-open windows touch
	// without overlapping.
	if _, err := svc.Create(context.Background(), CreateBookingInput{
		ClientID: c.ID, StartAt: at(20, 0), TableNo: 1, Guests: 2,
	}); err != nil {
		t.Fatalf("back-to-back create: %v", err)
	}
}

func TestBooking_Create_CanceledDoesNotBlock(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)
	c := seedClient(t, db, 100)

	b, err := svc.Create(context.Background(), CreateBookingInput{
		ClientID: c.ID, StartAt: at(19, 0), TableNo: 2, Guests: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.Create(context.Background(), CreateBookingInput{
		ClientID: c.ID, StartAt: at(19, 30), TableNo: 2, Guests: 2,
	}); err != nil {
		t.Fatalf("rebook over canceled: %v", err)
	}
}

func TestBooking_Create_InvalidInput(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)
	c := seedClient(t, db, 100)

	cases := []struct {
		name string
		in   CreateBookingInput
	}{
		{"zero start", CreateBookingInput{ClientID: c.ID, TableNo: 1, Guests: 2}},
		{"table too high", CreateBookingInput{ClientID: c.ID, StartAt: at(19, 0), TableNo: 9, Guests: 2}},
		{"table zero", CreateBookingInput{ClientID: c.ID, StartAt: at(19, 0), TableNo: 0, Guests: 2}},
		{"no guests", CreateBookingInput{ClientID: c.ID, StartAt: at(19, 0), TableNo: 1, Guests: 0}},
		{"too many guests", CreateBookingInput{ClientID: c.ID, StartAt: at(19, 0), TableNo: 1, Guests: 21}},
		{"duration over cap", CreateBookingInput{ClientID: c.ID, StartAt: at(19, 0), TableNo: 1, Guests: 2, DurationMinutes: 300}},
	}
	for _, tc := range cases {
		if _, err := svc.Create(context.Background(), tc.in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestBooking_Confirm(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)
	c := seedClient(t, db, 100)

	b, err := svc.Create(context.Background(), CreateBookingInput{
		ClientID: c.ID, StartAt: at(19, 0), TableNo: 1, Guests: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Confirm(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.Status != domain.StatusConfirmed {
		t.Fatalf("status = %q, want confirmed", got.Status)
	}

	// Confirming again is a no-op.
	got, err = svc.Confirm(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if got.Status != domain.StatusConfirmed {
		t.Fatalf("status after second confirm = %q", got.Status)
	}

	// Terminal bookings reject the transition.
	if _, err := svc.Cancel(context.Background(), b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Confirm(context.Background(), b.ID); !errors.Is(err, ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus, got %v", err)
	}
}

func TestBooking_Close_IncrementsVisitsOnce(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)
	c := seedClient(t, db, 100)

	b, err := svc.Create(context.Background(), CreateBookingInput{
		ClientID: c.ID, StartAt: at(19, 0), TableNo: 1, Guests: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Close(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}

	var after domain.Client
	if err := db.First(&after, c.ID).Error; err != nil {
		t.Fatalf("reload client: %v", err)
	}
	if after.Visits != 1 {
		t.Fatalf("visits = %d, want 1", after.Visits)
	}

	// A second close must not double-count.
	if _, err := svc.Close(context.Background(), b.ID); !errors.Is(err, ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus, got %v", err)
	}
	if err := db.First(&after, c.ID).Error; err != nil {
		t.Fatalf("reload client: %v", err)
	}
	if after.Visits != 1 {
		t.Fatalf("visits after double close = %d, want 1", after.Visits)
	}
}

func TestBooking_Close_NotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)

	if _, err := svc.Close(context.Background(), 12345); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestBooking_CancelAsClient_Ownership(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)
	owner := seedClient(t, db, 100)
	seedClient(t, db, 200)

	b, err := svc.Create(context.Background(), CreateBookingInput{
		ClientID: owner.ID, StartAt: at(19, 0), TableNo: 1, Guests: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.CancelAsClient(context.Background(), b.ID, 200); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	got, err := svc.CancelAsClient(context.Background(), b.ID, 100)
	if err != nil {
		t.Fatalf("cancel as owner: %v", err)
	}
	if got.Status != domain.StatusCanceled {
		t.Fatalf("status = %q, want canceled", got.Status)
	}

	// Terminal now; a repeat is rejected.
	if _, err := svc.CancelAsClient(context.Background(), b.ID, 100); !errors.Is(err, ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus, got %v", err)
	}
}

func TestBooking_CreateStaff(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)

	b, err := svc.CreateStaff(context.Background(), at(19, 0), 5, 4, "birthday")
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if b.Status != domain.StatusConfirmed {
		t.Fatalf("status = %q, want confirmed", b.Status)
	}
	if !b.IsStaffBooking {
		t.Fatalf("expected staff flag set")
	}

	// Staff bookings occupy the table like any other.
	c := seedClient(t, db, 100)
	_, err = svc.Create(context.Background(), CreateBookingInput{
		ClientID: c.ID, StartAt: at(20, 0), TableNo: 5, Guests: 2,
	})
	if !errors.Is(err, ErrTableConflict) {
		t.Fatalf("expected ErrTableConflict against staff booking, got %v", err)
	}
}

func TestBooking_BlockAndUnblock(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)
	ctx := context.Background()

	b, err := svc.BlockTable(ctx, at(12, 0), 2)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if b.Status != domain.StatusCanceled || !b.IsStaffBooking {
		t.Fatalf("block should be a canceled staff row, got status=%q staff=%v", b.Status, b.IsStaffBooking)
	}

	// Blocks never appear in a guest's booking list.
	list, err := svc.ListClientBookings(ctx, b.ClientID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("blocks leaked into client bookings: %d", len(list))
	}

	removed, err := svc.UnblockTable(ctx, 2)
	if err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	var count int64
	db.Model(&domain.Booking{}).Count(&count)
	if count != 0 {
		t.Fatalf("bookings left after unblock: %d", count)
	}
}

func TestBooking_OccupyAndFree(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)
	ctx := context.Background()
	now := at(14, 0)

	if _, err := svc.OccupyTable(ctx, 6, now); err != nil {
		t.Fatalf("occupy: %v", err)
	}

	// A future booking for the same table.
	c := seedClient(t, db, 100)
	future, err := svc.Create(ctx, CreateBookingInput{
		ClientID: c.ID, StartAt: at(20, 0), TableNo: 6, Guests: 2,
	})
	if err != nil {
		t.Fatalf("future create: %v", err)
	}

	freed, err := svc.FreeTable(ctx, 6, now.Add(30*time.Minute), false)
	if err != nil {
		t.Fatalf("free: %v", err)
	}
	if freed != 2 {
		t.Fatalf("freed = %d, want 2", freed)
	}

	got, err := svc.Get(ctx, future.ID)
	if err != nil {
		t.Fatalf("reload future: %v", err)
	}
	if got.Status != domain.StatusCanceled {
		t.Fatalf("future booking status = %q, want canceled", got.Status)
	}

	// Walk-in completion is a staff row and must not credit a visit.
	var walkIn domain.Client
	if err := db.Where("chat_id = ?", int64(walkInChatID)).First(&walkIn).Error; err != nil {
		t.Fatalf("load walk-in client: %v", err)
	}
	if walkIn.Visits != 0 {
		t.Fatalf("walk-in visits = %d, want 0", walkIn.Visits)
	}
}

func TestBooking_FreeTable_CompletedCreditsVisit(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)
	ctx := context.Background()
	c := seedClient(t, db, 100)

	b, err := svc.Create(ctx, CreateBookingInput{
		ClientID: c.ID, StartAt: at(18, 0), TableNo: 3, Guests: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Confirm(ctx, b.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// The booking has started by the time the table is freed.
	if _, err := svc.FreeTable(ctx, 3, at(19, 0), false); err != nil {
		t.Fatalf("free: %v", err)
	}

	var after domain.Client
	if err := db.First(&after, c.ID).Error; err != nil {
		t.Fatalf("reload client: %v", err)
	}
	if after.Visits != 1 {
		t.Fatalf("visits = %d, want 1", after.Visits)
	}
}

func TestBooking_Stats(t *testing.T) {
	db := newTestDB(t)
	svc := newBookingSvc(db)
	ctx := context.Background()
	c := seedClient(t, db, 100)
	asOf := at(19, 30)

	// Confirmed and started: in venue.
	started, err := svc.Create(ctx, CreateBookingInput{ClientID: c.ID, StartAt: at(19, 0), TableNo: 1, Guests: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Confirm(ctx, started.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	// Pending later today: expecting.
	if _, err := svc.Create(ctx, CreateBookingInput{ClientID: c.ID, StartAt: at(21, 0), TableNo: 2, Guests: 2}); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Canceled: counted in total, not occupying.
	canceled, err := svc.Create(ctx, CreateBookingInput{ClientID: c.ID, StartAt: at(22, 0), TableNo: 3, Guests: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Cancel(ctx, canceled.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	stats, err := svc.Stats(ctx, asOf)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.InVenue != 1 {
		t.Errorf("in venue = %d, want 1", stats.InVenue)
	}
	if stats.Expecting != 1 {
		t.Errorf("expecting = %d, want 1", stats.Expecting)
	}
	if len(stats.OccupiedTables) != 2 || stats.OccupiedTables[0] != 1 || stats.OccupiedTables[1] != 2 {
		t.Errorf("occupied = %v, want [1 2]", stats.OccupiedTables)
	}
	if stats.FreeTables != 6 {
		t.Errorf("free = %d, want 6", stats.FreeTables)
	}
}
