// Admin booking and table handlers.
//
// This file exposes the staff endpoints for the day dashboard, the booking
// list, status transitions, and direct table control:
//   - GET  /api/admin/stats
//   - GET  /api/admin/bookings
//   - POST /api/admin/bookings/{id}/confirm|close|cancel
//   - POST /api/admin/tables/book
//   - POST /api/admin/tables/block
//   - POST /api/admin/tables/{table_no}/unblock
//   - POST /api/admin/tables/occupy
//   - POST /api/admin/tables/{table_no}/free
//
// All routes sit behind the admin allow-list gate; handlers can assume an
// admitted identity.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/filin-lounge/booking-backend/internal/domain"
)

//
// DTOs
//

// ListBookingsResponse is a page of bookings for the staff view.
type ListBookingsResponse struct {
	Bookings []domain.Booking `json:"bookings"`
}

// StaffBookingRequest is the payload for a staff-entered reservation or a
// table block. BookingAt is RFC 3339.
type StaffBookingRequest struct {
	TableNo   int    `json:"table_no" binding:"required"`
	BookingAt string `json:"booking_at" binding:"required"`
	Guests    int    `json:"guests"`
	Comment   string `json:"comment"`
}

// OccupyTableRequest marks a table as taken by walk-in guests.
type OccupyTableRequest struct {
	TableNo int `json:"table_no" binding:"required"`
}

// FreeTableRequest controls how a table is released: with CloseAll set,
// future bookings are completed rather than canceled.
type FreeTableRequest struct {
	CloseAll bool `json:"close_all"`
}

//
// Handlers
//

// Stats returns the staff dashboard aggregate for today (or ?date=).
func (h *Handlers) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	asOf := time.Now().UTC()
	if c.Query("date") != "" {
		day, err := parseDay(c, asOf)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
			return
		}
		// Historical day requested; evaluate at the end of that day.
		asOf = day.Add(24*time.Hour - time.Second)
	}

	stats, err := h.bookingSvc.Stats(ctx, asOf)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, stats)
}

// ListBookings returns bookings for the staff view: a single calendar day
// when ?date= is present, otherwise the recent list (optionally bounded by
// ?from= as RFC 3339).
func (h *Handlers) ListBookings(c *gin.Context) {
	ctx := c.Request.Context()

	if c.Query("date") != "" {
		day, err := parseDay(c, time.Time{})
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
			return
		}
		bookings, err := h.bookingSvc.ListDay(ctx, day)
		if err != nil {
			failService(c, err, ErrCodeListFailed)
			return
		}
		ok(c, http.StatusOK, ListBookingsResponse{Bookings: bookings})
		return
	}

	var from time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "from must be RFC 3339")
			return
		}
		from = t.UTC()
	}
	bookings, err := h.bookingSvc.ListAll(ctx, from)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListBookingsResponse{Bookings: bookings})
}

// ConfirmBooking transitions a pending booking to confirmed.
func (h *Handlers) ConfirmBooking(c *gin.Context) {
	h.transition(c, h.bookingSvc.Confirm)
}

// CloseBooking completes a booking and credits the guest's visit.
func (h *Handlers) CloseBooking(c *gin.Context) {
	h.transition(c, h.bookingSvc.Close)
}

// CancelBookingAdmin cancels a booking without an ownership check.
func (h *Handlers) CancelBookingAdmin(c *gin.Context) {
	h.transition(c, h.bookingSvc.Cancel)
}

// transition runs one status transition addressed by the :id path param.
func (h *Handlers) transition(c *gin.Context, op func(ctx context.Context, id uint) (*domain.Booking, error)) {
	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a positive integer")
		return
	}
	b, err := op(c.Request.Context(), id)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, BookingResponse{Booking: b})
}

// BookTable creates a confirmed staff-entered reservation.
func (h *Handlers) BookTable(c *gin.Context) {
	ctx := c.Request.Context()

	var req StaffBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "table_no and booking_at are required")
		return
	}
	startAt, err := time.Parse(time.RFC3339, req.BookingAt)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking_at must be RFC 3339")
		return
	}
	guests := req.Guests
	if guests == 0 {
		guests = 2
	}

	b, err := h.bookingSvc.CreateStaff(ctx, startAt.UTC(), req.TableNo, guests, req.Comment)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, BookingResponse{Booking: b})
}

// BlockTable inserts a staff placeholder that keeps a table out of the
// occupancy view.
func (h *Handlers) BlockTable(c *gin.Context) {
	ctx := c.Request.Context()

	var req StaffBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "table_no and booking_at are required")
		return
	}
	startAt, err := time.Parse(time.RFC3339, req.BookingAt)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking_at must be RFC 3339")
		return
	}

	b, err := h.bookingSvc.BlockTable(ctx, startAt.UTC(), req.TableNo)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, BookingResponse{Booking: b})
}

// UnblockTable deletes every staff block placeholder for the table.
func (h *Handlers) UnblockTable(c *gin.Context) {
	ctx := c.Request.Context()

	tableNo, okNo := pathTableNo(c)
	if !okNo {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "table_no must be a positive integer")
		return
	}
	removed, err := h.bookingSvc.UnblockTable(ctx, tableNo)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, gin.H{"removed": removed})
}

// OccupyTable marks a table as taken by walk-in guests starting now.
func (h *Handlers) OccupyTable(c *gin.Context) {
	ctx := c.Request.Context()

	var req OccupyTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "table_no required")
		return
	}
	b, err := h.bookingSvc.OccupyTable(ctx, req.TableNo, time.Now().UTC())
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, BookingResponse{Booking: b})
}

// FreeTable releases a table, completing started bookings and canceling
// future ones (or completing everything with close_all).
func (h *Handlers) FreeTable(c *gin.Context) {
	ctx := c.Request.Context()

	tableNo, okNo := pathTableNo(c)
	if !okNo {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "table_no must be a positive integer")
		return
	}
	var req FreeTableRequest
	// Body is optional; absence means the default release behavior.
	_ = c.ShouldBindJSON(&req)

	freed, err := h.bookingSvc.FreeTable(ctx, tableNo, time.Now().UTC(), req.CloseAll)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, gin.H{"freed": freed})
}
