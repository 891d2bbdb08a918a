// Package services – BookingService
//
// This file implements BookingService, the conflict-detection and
// lifecycle engine for table reservations. It is the only component
// allowed to write Booking.Status and, through the close transition, the
// owning client's visit counter. Front doors (bot handlers, HTTP
// handlers, scheduler) call into it and never mutate those fields
// directly.
//
// Concurrency: the store is the single source of truth. Every mutating
// operation runs as one transaction; the conflict check and the insert
// share a transaction so concurrent creations on the same table cannot
// both pass the check. Status transitions use conditional UPDATEs guarded
// on the current status, and the visit-counter increment is a SQL
// expression inside the same transaction as the status write, so a double
// close can never double-count.
package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/domain"
	"github.com/filin-lounge/booking-backend/internal/interval"
	"github.com/filin-lounge/booking-backend/internal/repo"
)

// conflictScanRadius bounds the coarse candidate window fetched around a
// requested start. It is an optimization bound, not a correctness bound:
// it is only valid while no booking's duration may exceed it, which
// config.Load enforces against MaxDurationMin.
const conflictScanRadius = 4 * time.Hour

// Reserved chat identities for technical clients created by staff actions.
// They keep staff placeholders out of real guests' booking lists.
const (
	staffBlockChatID   = 999_999_999 // table blocked by staff
	staffBookingChatID = 999_999_998 // booking entered by staff
	walkInChatID       = 999_999_997 // guests seated without a booking
)

// BookingRepo defines the repository contract required by BookingService.
type BookingRepo interface {
	CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error
	GetBooking(ctx context.Context, db *gorm.DB, id uint) (*domain.Booking, error)
	ListTableCandidates(ctx context.Context, db *gorm.DB, tableNo int, from, to time.Time) ([]domain.Booking, error)
	ListClientBookings(ctx context.Context, db *gorm.DB, clientID uint) ([]domain.Booking, error)
	ListAllBookings(ctx context.Context, db *gorm.DB, from time.Time) ([]domain.Booking, error)
	ListBookingsForDay(ctx context.Context, db *gorm.DB, dayStart, dayEnd time.Time) ([]domain.Booking, error)
	ListActiveForTableFrom(ctx context.Context, db *gorm.DB, tableNo int, from time.Time) ([]domain.Booking, error)
	UpdateStatusIfNonTerminal(ctx context.Context, db *gorm.DB, id uint, newStatus string) (bool, error)
	UpdateStatusIfPending(ctx context.Context, db *gorm.DB, id uint) (bool, error)
	DeleteStaffBlocks(ctx context.Context, db *gorm.DB, tableNo int) (int64, error)
	IncrementVisits(ctx context.Context, db *gorm.DB, clientID uint, delta int) error
	GetOrCreateStaffClient(ctx context.Context, db *gorm.DB, chatID int64, username, fullName string) (*domain.Client, error)
}

// bookingRepo is the production BookingRepo backed by the repo package.
type bookingRepo struct{}

func (bookingRepo) CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	return repo.CreateBooking(ctx, db, b)
}
func (bookingRepo) GetBooking(ctx context.Context, db *gorm.DB, id uint) (*domain.Booking, error) {
	return repo.GetBooking(ctx, db, id)
}
func (bookingRepo) ListTableCandidates(ctx context.Context, db *gorm.DB, tableNo int, from, to time.Time) ([]domain.Booking, error) {
	return repo.ListTableCandidates(ctx, db, tableNo, from, to)
}
func (bookingRepo) ListClientBookings(ctx context.Context, db *gorm.DB, clientID uint) ([]domain.Booking, error) {
	return repo.ListClientBookings(ctx, db, clientID)
}
func (bookingRepo) ListAllBookings(ctx context.Context, db *gorm.DB, from time.Time) ([]domain.Booking, error) {
	return repo.ListAllBookings(ctx, db, from)
}
func (bookingRepo) ListBookingsForDay(ctx context.Context, db *gorm.DB, dayStart, dayEnd time.Time) ([]domain.Booking, error) {
	return repo.ListBookingsForDay(ctx, db, dayStart, dayEnd)
}
func (bookingRepo) ListActiveForTableFrom(ctx context.Context, db *gorm.DB, tableNo int, from time.Time) ([]domain.Booking, error) {
	return repo.ListActiveForTableFrom(ctx, db, tableNo, from)
}
func (bookingRepo) UpdateStatusIfNonTerminal(ctx context.Context, db *gorm.DB, id uint, newStatus string) (bool, error) {
	return repo.UpdateStatusIfNonTerminal(ctx, db, id, newStatus)
}
func (bookingRepo) UpdateStatusIfPending(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	return repo.UpdateStatusIfPending(ctx, db, id)
}
func (bookingRepo) DeleteStaffBlocks(ctx context.Context, db *gorm.DB, tableNo int) (int64, error) {
	return repo.DeleteStaffBlocks(ctx, db, tableNo)
}
func (bookingRepo) IncrementVisits(ctx context.Context, db *gorm.DB, clientID uint, delta int) error {
	return repo.IncrementVisits(ctx, db, clientID, delta)
}
func (bookingRepo) GetOrCreateStaffClient(ctx context.Context, db *gorm.DB, chatID int64, username, fullName string) (*domain.Client, error) {
	c, err := repo.GetClientByChatID(ctx, db, chatID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c = &domain.Client{ChatID: chatID, Username: username, FullName: fullName}
	if err := repo.CreateClient(ctx, db, c); err != nil {
		return nil, err
	}
	return c, nil
}

// BookingService validates and creates bookings, advances booking status,
// maintains visit counters, and computes occupancy views.
type BookingService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the booking repository used by this service.
	Repo BookingRepo

	// TableCount is the authoritative venue table count: valid table
	// numbers are 1..TableCount, and the dashboard derives free tables
	// from the same value.
	TableCount int
	// MaxGuests caps the guest count accepted per booking.
	MaxGuests int
	// DefaultDurationMin is applied when a request omits the duration.
	DefaultDurationMin int
	// MaxDurationMin caps accepted durations; it must stay within the
	// conflict scan radius (enforced by config validation).
	MaxDurationMin int
}

// NewBookingService constructs a BookingService with the production repo.
func NewBookingService(db *gorm.DB, tableCount, maxGuests, defaultDuration, maxDuration int) *BookingService {
	return &BookingService{
		DB:                 db,
		Repo:               bookingRepo{},
		TableCount:         tableCount,
		MaxGuests:          maxGuests,
		DefaultDurationMin: defaultDuration,
		MaxDurationMin:     maxDuration,
	}
}

// CreateBookingInput carries the attributes of a requested reservation.
// The caller has already resolved or created the client.
type CreateBookingInput struct {
	ClientID        uint
	StartAt         time.Time
	TableNo         int
	Guests          int
	Comment         string
	DurationMinutes int // 0 means the configured default
}

// Create validates the request, checks the requested window against every
// non-terminal booking for the same table, and inserts a pending booking.
// The check and the insert share one transaction, so of any set of
// concurrent overlapping requests for a table at most one succeeds; the
// rest receive ErrTableConflict.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*domain.Booking, error) {
	tr := otel.Tracer("services/BookingService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.Int("booking.table_no", in.TableNo),
			attribute.Int64("booking.client_id", int64(in.ClientID)),
		),
	)
	defer span.End()

	if in.DurationMinutes == 0 {
		in.DurationMinutes = s.DefaultDurationMin
	}
	if err := s.validate(in); err != nil {
		return nil, err
	}

	b := &domain.Booking{
		ClientID:        in.ClientID,
		BookingAt:       in.StartAt,
		DurationMinutes: in.DurationMinutes,
		TableNo:         in.TableNo,
		Guests:          in.Guests,
		Comment:         in.Comment,
		Status:          domain.StatusPending,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.insertIfFree(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CreateStaff inserts a staff-entered booking in confirmed status for the
// technical staff-booking client. Used by the admin panel and the
// staff_booking bot command path.
func (s *BookingService) CreateStaff(ctx context.Context, startAt time.Time, tableNo, guests int, comment string) (*domain.Booking, error) {
	in := CreateBookingInput{
		StartAt:         startAt,
		TableNo:         tableNo,
		Guests:          guests,
		Comment:         comment,
		DurationMinutes: s.DefaultDurationMin,
	}
	if err := s.validate(in); err != nil {
		return nil, err
	}

	var b *domain.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		staff, err := s.Repo.GetOrCreateStaffClient(ctx, tx, staffBookingChatID, "staff_booking", "Staff booking")
		if err != nil {
			return err
		}
		b = &domain.Booking{
			ClientID:        staff.ID,
			BookingAt:       startAt,
			DurationMinutes: s.DefaultDurationMin,
			TableNo:         tableNo,
			Guests:          guests,
			Comment:         comment,
			Status:          domain.StatusConfirmed,
			IsStaffBooking:  true,
		}
		return s.insertIfFree(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// BlockTable inserts a staff placeholder that keeps a table out of the
// occupancy view. Blocks are stored as canceled staff bookings so they
// never appear in guest lists and are removable by UnblockTable.
func (s *BookingService) BlockTable(ctx context.Context, startAt time.Time, tableNo int) (*domain.Booking, error) {
	if tableNo < 1 || tableNo > s.TableCount {
		return nil, ErrInvalidInput
	}
	if startAt.IsZero() {
		return nil, ErrInvalidInput
	}

	var b *domain.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		staff, err := s.Repo.GetOrCreateStaffClient(ctx, tx, staffBlockChatID, "staff_block", "Table blocked")
		if err != nil {
			return err
		}
		b = &domain.Booking{
			ClientID:        staff.ID,
			BookingAt:       startAt,
			DurationMinutes: s.DefaultDurationMin,
			TableNo:         tableNo,
			Guests:          0,
			Comment:         "table blocked by staff",
			Status:          domain.StatusCanceled,
			IsStaffBooking:  true,
		}
		return s.Repo.CreateBooking(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UnblockTable removes every staff block placeholder for tableNo and
// returns how many were deleted. This is the only path that deletes
// booking rows.
func (s *BookingService) UnblockTable(ctx context.Context, tableNo int) (int64, error) {
	if tableNo < 1 || tableNo > s.TableCount {
		return 0, ErrInvalidInput
	}
	return s.Repo.DeleteStaffBlocks(ctx, s.DB, tableNo)
}

// OccupyTable marks a table as taken by walk-in guests: a confirmed staff
// booking starting now for the technical walk-in client.
func (s *BookingService) OccupyTable(ctx context.Context, tableNo int, now time.Time) (*domain.Booking, error) {
	if tableNo < 1 || tableNo > s.TableCount {
		return nil, ErrInvalidInput
	}

	var b *domain.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		walkIn, err := s.Repo.GetOrCreateStaffClient(ctx, tx, walkInChatID, "walk_in", "Walk-in guests")
		if err != nil {
			return err
		}
		b = &domain.Booking{
			ClientID:        walkIn.ID,
			BookingAt:       now,
			DurationMinutes: s.DefaultDurationMin,
			TableNo:         tableNo,
			Guests:          2,
			Comment:         "walk-in guests",
			Status:          domain.StatusConfirmed,
			IsStaffBooking:  true,
		}
		return s.Repo.CreateBooking(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FreeTable releases a table: bookings already started are completed,
// future ones are canceled. With closeAll set every active booking for the
// table today is completed regardless of start time. Visit counters are
// advanced through the same close path as individual transitions.
func (s *BookingService) FreeTable(ctx context.Context, tableNo int, now time.Time, closeAll bool) (int, error) {
	if tableNo < 1 || tableNo > s.TableCount {
		return 0, ErrInvalidInput
	}
	dayStart, _ := interval.DayBounds(now)

	var freed int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := s.Repo.ListActiveForTableFrom(ctx, tx, tableNo, dayStart)
		if err != nil {
			return err
		}
		for _, b := range active {
			target := domain.StatusCompleted
			if !closeAll && b.BookingAt.After(now) {
				target = domain.StatusCanceled
			}
			applied, err := s.Repo.UpdateStatusIfNonTerminal(ctx, tx, b.ID, target)
			if err != nil {
				return err
			}
			if !applied {
				continue
			}
			freed++
			// Completing a real guest booking counts as a visit.
			if target == domain.StatusCompleted && !b.IsStaffBooking {
				if err := s.Repo.IncrementVisits(ctx, tx, b.ClientID, 1); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return freed, nil
}

// Get returns a booking by id or ErrBookingNotFound.
func (s *BookingService) Get(ctx context.Context, id uint) (*domain.Booking, error) {
	b, err := s.Repo.GetBooking(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListClientBookings returns a client's own upcoming bookings (terminal
// and staff-internal rows excluded).
func (s *BookingService) ListClientBookings(ctx context.Context, clientID uint) ([]domain.Booking, error) {
	return s.Repo.ListClientBookings(ctx, s.DB, clientID)
}

// ListAll returns bookings for the staff view; from is optional (zero
// means no lower bound).
func (s *BookingService) ListAll(ctx context.Context, from time.Time) ([]domain.Booking, error) {
	return s.Repo.ListAllBookings(ctx, s.DB, from)
}

// ListDay returns every booking of the calendar day containing day.
func (s *BookingService) ListDay(ctx context.Context, day time.Time) ([]domain.Booking, error) {
	dayStart, dayEnd := interval.DayBounds(day)
	return s.Repo.ListBookingsForDay(ctx, s.DB, dayStart, dayEnd)
}

// Confirm transitions a pending booking to confirmed. Confirming an
// already-confirmed booking is a no-op; terminal bookings are rejected
// with ErrTerminalStatus.
func (s *BookingService) Confirm(ctx context.Context, id uint) (*domain.Booking, error) {
	applied, err := s.Repo.UpdateStatusIfPending(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !applied && domain.IsTerminal(b.Status) {
		return nil, ErrTerminalStatus
	}
	return b, nil
}

// Close transitions a non-terminal booking to completed and increments
// the owning client's visit counter by exactly one, atomically with the
// status write. A second close of the same booking fails with
// ErrTerminalStatus and never touches the counter.
func (s *BookingService) Close(ctx context.Context, id uint) (*domain.Booking, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applied, err := s.Repo.UpdateStatusIfNonTerminal(ctx, tx, id, domain.StatusCompleted)
		if err != nil {
			return err
		}
		if !applied {
			if _, err := s.Repo.GetBooking(ctx, tx, id); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrBookingNotFound
				}
				return err
			}
			return ErrTerminalStatus
		}
		b, err := s.Repo.GetBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		return s.Repo.IncrementVisits(ctx, tx, b.ClientID, 1)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Cancel transitions a non-terminal booking to canceled (staff path, no
// ownership check, no counter side effect).
func (s *BookingService) Cancel(ctx context.Context, id uint) (*domain.Booking, error) {
	applied, err := s.Repo.UpdateStatusIfNonTerminal(ctx, s.DB, id, domain.StatusCanceled)
	if err != nil {
		return nil, err
	}
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrTerminalStatus
	}
	return b, nil
}

// CancelAsClient cancels a booking on behalf of the requesting chat
// identity. The identity must own the booking; otherwise ErrNotOwner.
func (s *BookingService) CancelAsClient(ctx context.Context, id uint, chatID int64) (*domain.Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Client.ChatID != chatID {
		return nil, ErrNotOwner
	}
	applied, err := s.Repo.UpdateStatusIfNonTerminal(ctx, s.DB, id, domain.StatusCanceled)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrTerminalStatus
	}
	return s.Get(ctx, id)
}

// TodayStats is the staff dashboard aggregate for one day.
type TodayStats struct {
	Total          int   `json:"total_bookings"`
	InVenue        int   `json:"in_venue"`
	Expecting      int   `json:"expecting"`
	FreeTables     int   `json:"free_tables"`
	OccupiedTables []int `json:"occupied_tables"`
}

// Stats computes the dashboard aggregate for the calendar day containing
// asOf: total bookings, confirmed bookings already started (in venue),
// pending bookings (expecting), the occupied table set, and the free-table
// count against the venue's authoritative table count. Recomputed on every
// call; no staleness guarantee beyond the query instant.
func (s *BookingService) Stats(ctx context.Context, asOf time.Time) (TodayStats, error) {
	bookings, err := s.ListDay(ctx, asOf)
	if err != nil {
		return TodayStats{}, err
	}

	stats := TodayStats{Total: len(bookings)}
	occupied := map[int]struct{}{}
	for _, b := range bookings {
		switch b.Status {
		case domain.StatusConfirmed:
			if !b.BookingAt.After(asOf) {
				stats.InVenue++
			}
		case domain.StatusPending:
			stats.Expecting++
		}
		if !domain.IsTerminal(b.Status) {
			occupied[b.TableNo] = struct{}{}
		}
	}
	stats.OccupiedTables = make([]int, 0, len(occupied))
	for n := range occupied {
		stats.OccupiedTables = append(stats.OccupiedTables, n)
	}
	sort.Ints(stats.OccupiedTables)
	if free := s.TableCount - len(occupied); free > 0 {
		stats.FreeTables = free
	}
	return stats, nil
}

// validate applies the input checks shared by guest and staff creation.
func (s *BookingService) validate(in CreateBookingInput) error {
	if in.StartAt.IsZero() {
		return ErrInvalidInput
	}
	if in.TableNo < 1 || in.TableNo > s.TableCount {
		return ErrInvalidInput
	}
	if in.Guests < 1 || in.Guests > s.MaxGuests {
		return ErrInvalidInput
	}
	if in.DurationMinutes < 1 || in.DurationMinutes > s.MaxDurationMin {
		return ErrInvalidInput
	}
	return nil
}

// insertIfFree runs the conflict check and the insert on one transaction
// handle. The coarse window only has to cover candidates whose window
// could reach the requested one, which conflictScanRadius guarantees
// while durations stay within MaxDurationMin.
func (s *BookingService) insertIfFree(ctx context.Context, tx *gorm.DB, b *domain.Booking) error {
	from := b.BookingAt.Add(-conflictScanRadius)
	to := b.BookingAt.Add(conflictScanRadius)
	candidates, err := s.Repo.ListTableCandidates(ctx, tx, b.TableNo, from, to)
	if err != nil {
		return err
	}
	for _, c := range candidates {
		if interval.Overlap(b.BookingAt, b.DurationMinutes, c.BookingAt, c.DurationMinutes) {
			return ErrTableConflict
		}
	}
	// Racers whose candidate scan ran before the winner committed slip
	// past the overlap loop; the unique (table_no, booking_at) index
	// catches them and they surface the same conflict error.
	if err := s.Repo.CreateBooking(ctx, tx, b); err != nil {
		if repo.IsUniqueViolation(err) {
			return ErrTableConflict
		}
		return err
	}
	return nil
}
