// Guest HTTP handlers.
//
// This file exposes the endpoints the guest mini-app calls:
//   - GET  /api/bootstrap            (resolve client + initial app state)
//   - GET  /api/availability         (busy windows for one table and day)
//   - GET  /api/tables_status        (per-table bookings for a day)
//   - POST /api/bookings             (create a reservation, idempotent)
//   - POST /api/bookings/{id}/cancel (cancel own reservation)
//   - POST /api/reviews              (leave a rating)
//   - POST /api/subscription         (join the broadcast list)
//   - DELETE /api/subscription       (leave the broadcast list)
//
// Idempotency: when the client supplies an Idempotency-Key header and a
// previous successful booking exists for (chat, key), the handler returns
// that booking again and sets `Idempotency-Replayed: true`.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/filin-lounge/booking-backend/internal/domain"
	"github.com/filin-lounge/booking-backend/internal/http/middleware"
	"github.com/filin-lounge/booking-backend/internal/interval"
	"github.com/filin-lounge/booking-backend/internal/repo"
	"github.com/filin-lounge/booking-backend/internal/services"
)

//
// DTOs
//

// BootstrapResponse is the initial state bundle for the guest app.
type BootstrapResponse struct {
	Client   *domain.Client         `json:"client"`
	Loyalty  services.LoyaltyStatus `json:"loyalty"`
	Discount int                    `json:"personal_discount"`
	Settings *domain.VenueSettings  `json:"settings"`
	Events   []domain.Promotion     `json:"events"`
	Bookings []domain.Booking       `json:"bookings"`
}

// BusySlot is one occupied window in the availability view.
type BusySlot struct {
	BookingAt       time.Time `json:"booking_at"`
	DurationMinutes int       `json:"duration_minutes"`
}

// AvailabilityResponse lists the busy windows for one table and day.
type AvailabilityResponse struct {
	TableNo int        `json:"table_no"`
	Date    string     `json:"date"`
	Busy    []BusySlot `json:"busy"`
}

// TableStatus describes one table's bookings for the requested day.
type TableStatus struct {
	TableNo  int              `json:"table_no"`
	Bookings []domain.Booking `json:"bookings"`
}

// TablesStatusResponse is the per-table occupancy view for a day.
type TablesStatusResponse struct {
	Date   string        `json:"date"`
	Tables []TableStatus `json:"tables"`
}

// CreateBookingRequest is the JSON payload for creating a reservation.
// The client identity fields mirror what the mini-app knows about the
// guest; the booking fields describe the requested window.
type CreateBookingRequest struct {
	ChatID          int64  `json:"chat_id" binding:"required"`
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	Phone           string `json:"phone"`
	TableNo         int    `json:"table_no" binding:"required"`
	BookingAt       string `json:"booking_at" binding:"required"`
	DurationMinutes int    `json:"duration_minutes"`
	Guests          int    `json:"guests" binding:"required"`
	Comment         string `json:"comment"`
}

// BookingResponse is the JSON envelope for a single booking.
type BookingResponse struct {
	Booking *domain.Booking `json:"booking"`
}

// CancelBookingRequest carries the caller's identity for an ownership
// check; the service rejects cancellations of other guests' bookings.
type CancelBookingRequest struct {
	ChatID int64 `json:"chat_id" binding:"required"`
}

// CreateReviewRequest is the JSON payload for leaving a rating.
type CreateReviewRequest struct {
	ChatID    int64  `json:"chat_id" binding:"required"`
	BookingID *uint  `json:"booking_id"`
	Rating    int    `json:"rating" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

// SubscriptionRequest identifies the guest joining or leaving the
// broadcast list.
type SubscriptionRequest struct {
	ChatID   int64  `json:"chat_id" binding:"required"`
	FullName string `json:"full_name"`
}

//
// Handlers
//

// Bootstrap resolves (or lazily creates) the calling guest and returns the
// initial app state: profile, loyalty tier, venue settings, active events,
// and the guest's upcoming bookings.
func (h *Handlers) Bootstrap(c *gin.Context) {
	ctx := c.Request.Context()

	chatID, err := strconv.ParseInt(c.Query("chat_id"), 10, 64)
	if err != nil || chatID <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat_id required")
		return
	}

	client, err := h.clientSvc.ResolveOrCreate(ctx, chatID,
		c.Query("username"), c.Query("full_name"), c.Query("phone"))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}

	settings, err := h.settingsSvc.Get(ctx)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	events, err := h.promoSvc.ListActive(ctx)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	bookings, err := h.bookingSvc.ListClientBookings(ctx, client.ID)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}

	ok(c, http.StatusOK, BootstrapResponse{
		Client:   client,
		Loyalty:  services.LoyaltyFor(client.Visits),
		Discount: services.PersonalDiscount(client),
		Settings: settings,
		Events:   events,
		Bookings: bookings,
	})
}

// Availability returns the busy windows of one table for a calendar day,
// non-terminal bookings only. The client renders free slots from these.
func (h *Handlers) Availability(c *gin.Context) {
	ctx := c.Request.Context()

	tableNo, err := strconv.Atoi(c.Query("table_no"))
	if err != nil || tableNo < 1 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "table_no required")
		return
	}
	day, err := parseDay(c, time.Now().UTC())
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
		return
	}

	bookings, err := h.bookingSvc.ListDay(ctx, day)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}

	busy := make([]BusySlot, 0)
	for _, b := range bookings {
		if b.TableNo != tableNo || domain.IsTerminal(b.Status) {
			continue
		}
		busy = append(busy, BusySlot{BookingAt: b.BookingAt, DurationMinutes: b.DurationMinutes})
	}
	dayStart, _ := interval.DayBounds(day)
	ok(c, http.StatusOK, AvailabilityResponse{
		TableNo: tableNo,
		Date:    dayStart.Format(dayLayout),
		Busy:    busy,
	})
}

// TablesStatus returns every table's bookings for a calendar day, one
// entry per table so the floor view can render empty tables too.
func (h *Handlers) TablesStatus(c *gin.Context) {
	ctx := c.Request.Context()

	day, err := parseDay(c, time.Now().UTC())
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
		return
	}

	bookings, err := h.bookingSvc.ListDay(ctx, day)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}

	byTable := make(map[int][]domain.Booking)
	for _, b := range bookings {
		if domain.IsTerminal(b.Status) {
			continue
		}
		byTable[b.TableNo] = append(byTable[b.TableNo], b)
	}

	tables := make([]TableStatus, 0, h.tableCount)
	for n := 1; n <= h.tableCount; n++ {
		entry := TableStatus{TableNo: n, Bookings: byTable[n]}
		if entry.Bookings == nil {
			entry.Bookings = []domain.Booking{}
		}
		tables = append(tables, entry)
	}
	dayStart, _ := interval.DayBounds(day)
	ok(c, http.StatusOK, TablesStatusResponse{
		Date:   dayStart.Format(dayLayout),
		Tables: tables,
	})
}

// CreateBooking resolves the guest, validates the requested window, and
// creates a pending reservation. When an Idempotency-Key header matches a
// stored record, the original booking is replayed instead.
func (h *Handlers) CreateBooking(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat_id, table_no, booking_at and guests are required")
		return
	}

	startAt, err := time.Parse(time.RFC3339, req.BookingAt)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking_at must be RFC 3339")
		return
	}

	// Idempotency (replay path).
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.db != nil {
		if rec, err := repo.GetIdempotency(ctx, h.db, req.ChatID, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, err2 := h.bookingSvc.Get(ctx, rec.BookingID); err2 == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, BookingResponse{Booking: prev})
				return
			}
		}
	}

	client, err := h.clientSvc.ResolveOrCreate(ctx, req.ChatID, req.Username, req.FullName, req.Phone)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}

	b, err := h.bookingSvc.Create(ctx, services.CreateBookingInput{
		ClientID:        client.ID,
		StartAt:         startAt.UTC(),
		TableNo:         req.TableNo,
		Guests:          req.Guests,
		Comment:         req.Comment,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}

	// Idempotency (store path), best effort.
	if idemKey != "" && h.db != nil {
		_, _ = repo.CreateIdempotency(ctx, h.db, req.ChatID, idemKey, b.ID, http.StatusCreated, h.idemTTL)
	}

	ok(c, http.StatusCreated, BookingResponse{Booking: b})
}

// CancelBooking cancels the caller's own reservation. The identity in the
// body must match the booking's owner.
func (h *Handlers) CancelBooking(c *gin.Context) {
	ctx := c.Request.Context()

	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a positive integer")
		return
	}
	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat_id required")
		return
	}

	b, err := h.bookingSvc.CancelAsClient(ctx, id, req.ChatID)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, BookingResponse{Booking: b})
}

// CreateReview records a rating from a known guest.
func (h *Handlers) CreateReview(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat_id, rating and text are required")
		return
	}

	client, err := h.clientSvc.ByChatID(ctx, req.ChatID)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}

	r, err := h.reviewSvc.Create(ctx, client.ID, req.BookingID, req.Rating, req.Text)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, gin.H{"review": r})
}

// Subscribe joins (or reactivates) the guest on the broadcast list.
func (h *Handlers) Subscribe(c *gin.Context) {
	ctx := c.Request.Context()

	var req SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat_id required")
		return
	}
	sub, err := h.broadcastSvc.Subscribe(ctx, req.ChatID, req.FullName)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, gin.H{"subscriber": sub})
}

// Unsubscribe removes the guest from the broadcast list.
func (h *Handlers) Unsubscribe(c *gin.Context) {
	ctx := c.Request.Context()

	var req SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat_id required")
		return
	}
	if err := h.broadcastSvc.Unsubscribe(ctx, req.ChatID); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}
