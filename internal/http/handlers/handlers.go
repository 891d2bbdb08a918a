// Package handlers provides HTTP handler implementations for the public API.
//
// This file wires the handler set to the application services. Handlers
// are transport-thin: they validate and normalize input, delegate to the
// services, and translate results (including sentinel errors) into HTTP
// responses. Service dependencies are abstract interfaces so tests can
// substitute fakes without a database.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/domain"
	"github.com/filin-lounge/booking-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// BookingService defines the reservation lifecycle operations consumed by
// HTTP handlers. Implementations must be safe for concurrent use and honor
// the provided context.
type BookingService interface {
	Create(ctx context.Context, in services.CreateBookingInput) (*domain.Booking, error)
	CreateStaff(ctx context.Context, startAt time.Time, tableNo, guests int, comment string) (*domain.Booking, error)
	BlockTable(ctx context.Context, startAt time.Time, tableNo int) (*domain.Booking, error)
	UnblockTable(ctx context.Context, tableNo int) (int64, error)
	OccupyTable(ctx context.Context, tableNo int, now time.Time) (*domain.Booking, error)
	FreeTable(ctx context.Context, tableNo int, now time.Time, closeAll bool) (int, error)
	Get(ctx context.Context, id uint) (*domain.Booking, error)
	ListClientBookings(ctx context.Context, clientID uint) ([]domain.Booking, error)
	ListAll(ctx context.Context, from time.Time) ([]domain.Booking, error)
	ListDay(ctx context.Context, day time.Time) ([]domain.Booking, error)
	Confirm(ctx context.Context, id uint) (*domain.Booking, error)
	Close(ctx context.Context, id uint) (*domain.Booking, error)
	Cancel(ctx context.Context, id uint) (*domain.Booking, error)
	CancelAsClient(ctx context.Context, id uint, chatID int64) (*domain.Booking, error)
	Stats(ctx context.Context, asOf time.Time) (services.TodayStats, error)
}

// ClientService defines guest-profile operations consumed by HTTP handlers.
type ClientService interface {
	ResolveOrCreate(ctx context.Context, chatID int64, username, fullName, phone string) (*domain.Client, error)
	ByChatID(ctx context.Context, chatID int64) (*domain.Client, error)
	Get(ctx context.Context, id uint) (*domain.Client, error)
	ListTop(ctx context.Context, limit int) ([]domain.Client, error)
	AddVisits(ctx context.Context, id uint, count int) (*domain.Client, error)
	ResetVisits(ctx context.Context, id uint) (*domain.Client, error)
	UpdateNotes(ctx context.Context, id uint, notes string) error
	SetPersonalDiscount(ctx context.Context, id uint, amount int) error
	ProfileByID(ctx context.Context, id uint) (*services.Profile, error)
}

// PromotionService defines marketing-item CRUD consumed by HTTP handlers.
type PromotionService interface {
	Create(ctx context.Context, title, description, imageURL string) (*domain.Promotion, error)
	ListActive(ctx context.Context) ([]domain.Promotion, error)
	List(ctx context.Context, limit int) ([]domain.Promotion, error)
	Update(ctx context.Context, id uint, title, description, imageURL string) (*domain.Promotion, error)
	Delete(ctx context.Context, id uint) error
}

// ReviewService defines review capture consumed by HTTP handlers.
type ReviewService interface {
	Create(ctx context.Context, clientID uint, bookingID *uint, rating int, text string) (*domain.Review, error)
}

// SettingsService defines venue-settings operations consumed by handlers.
type SettingsService interface {
	Get(ctx context.Context) (*domain.VenueSettings, error)
	UpdateSchedule(ctx context.Context, text string) (*domain.VenueSettings, error)
	UpdateContacts(ctx context.Context, text string) (*domain.VenueSettings, error)
}

// BroadcastService defines broadcast-list and broadcast-mode operations.
type BroadcastService interface {
	Subscribe(ctx context.Context, chatID int64, fullName string) (*domain.Subscriber, error)
	Unsubscribe(ctx context.Context, chatID int64) error
	Mode(ctx context.Context, adminID int64) (string, error)
	Start(ctx context.Context, adminID int64) error
	Abort(ctx context.Context, adminID int64) error
	Send(ctx context.Context, adminID int64, message string) (services.SendResult, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for the guest and admin APIs. It
// depends on abstract service interfaces to keep transport concerns
// separate from business logic. DB is used only for idempotency records,
// which are a transport concern.
type Handlers struct {
	bookingSvc   BookingService
	clientSvc    ClientService
	promoSvc     PromotionService
	reviewSvc    ReviewService
	settingsSvc  SettingsService
	broadcastSvc BroadcastService

	db         *gorm.DB
	idemTTL    time.Duration
	tableCount int
}

// New constructs a Handlers instance bound to the given services. db and
// idemTTL configure idempotency-record storage for booking creation;
// tableCount is the venue's authoritative table count used by the floor
// view.
func New(
	bookingSvc BookingService,
	clientSvc ClientService,
	promoSvc PromotionService,
	reviewSvc ReviewService,
	settingsSvc SettingsService,
	broadcastSvc BroadcastService,
	db *gorm.DB,
	idemTTL time.Duration,
	tableCount int,
) *Handlers {
	return &Handlers{
		bookingSvc:   bookingSvc,
		clientSvc:    clientSvc,
		promoSvc:     promoSvc,
		reviewSvc:    reviewSvc,
		settingsSvc:  settingsSvc,
		broadcastSvc: broadcastSvc,
		db:           db,
		idemTTL:      idemTTL,
		tableCount:   tableCount,
	}
}

//
// Shared helpers
//

// dayLayout is the wire format for calendar-day query parameters.
const dayLayout = "2006-01-02"

// parseDay parses a ?date=YYYY-MM-DD query parameter. The fallback is
// returned when the parameter is absent; a malformed value is an error.
func parseDay(c *gin.Context, fallback time.Time) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return fallback, nil
	}
	return time.ParseInLocation(dayLayout, raw, time.UTC)
}

// pathID parses the named path parameter as an unsigned id.
func pathID(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// pathTableNo parses the table_no path parameter.
func pathTableNo(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("table_no"))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// failService maps service sentinel errors to the HTTP error envelope.
// Unrecognized errors become 500 with the given fallback code.
func failService(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid input")
	case errors.Is(err, services.ErrInvalidRating):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating must be between 1 and 5")
	case errors.Is(err, services.ErrTableConflict):
		fail(c, http.StatusConflict, ErrCodeTableConflict, "table is already booked for this time")
	case errors.Is(err, services.ErrBookingNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "booking not found")
	case errors.Is(err, services.ErrClientNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "guest not found")
	case errors.Is(err, services.ErrPromotionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "event not found")
	case errors.Is(err, services.ErrSubscriberNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "subscriber not found")
	case errors.Is(err, services.ErrNotOwner):
		fail(c, http.StatusForbidden, ErrCodeNotOwner, "booking belongs to another guest")
	case errors.Is(err, services.ErrTerminalStatus):
		fail(c, http.StatusConflict, ErrCodeTerminalStatus, "booking is already completed or canceled")
	case errors.Is(err, services.ErrNotBroadcasting):
		fail(c, http.StatusConflict, ErrCodeNotBroadcasting, "broadcast mode is not active")
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}
