// Admin guest handlers.
//
// This file exposes the staff endpoints for guest management:
//   - GET    /api/admin/guests                  (top guests by visits)
//   - GET    /api/admin/guests/{id}             (profile with loyalty + stats)
//   - PUT    /api/admin/guests/{id}/notes       (replace staff notes)
//   - POST   /api/admin/guests/{id}/discount    (set personal discount)
//   - POST   /api/admin/guests/{id}/visits      (credit extra visits)
//   - DELETE /api/admin/guests/{id}/visits      (reset the counter)
//
// Visit adjustments here are explicit staff corrections; the exactly-once
// increment on booking close stays inside the booking engine.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/filin-lounge/booking-backend/internal/domain"
)

//
// DTOs
//

// ListGuestsResponse is the staff guest list, most loyal first.
type ListGuestsResponse struct {
	Guests []domain.Client `json:"guests"`
}

// UpdateNotesRequest replaces the free-form staff notes for a guest.
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

// SetDiscountRequest sets a guest's personal discount amount. Zero clears
// the discount.
type SetDiscountRequest struct {
	Amount int `json:"amount"`
}

// AddVisitsRequest credits extra completed visits to a guest.
type AddVisitsRequest struct {
	Count int `json:"count" binding:"required"`
}

// ClientResponse is the JSON envelope for a single guest.
type ClientResponse struct {
	Client *domain.Client `json:"client"`
}

//
// Handlers
//

// ListGuests returns guests ordered by visit count, capped by ?limit=.
func (h *Handlers) ListGuests(c *gin.Context) {
	ctx := c.Request.Context()

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "limit must be a positive integer")
			return
		}
		if n > 200 {
			n = 200
		}
		limit = n
	}

	guests, err := h.clientSvc.ListTop(ctx, limit)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListGuestsResponse{Guests: guests})
}

// GuestProfile returns one guest with loyalty tier and booking stats.
func (h *Handlers) GuestProfile(c *gin.Context) {
	ctx := c.Request.Context()

	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "guest id must be a positive integer")
		return
	}
	p, err := h.clientSvc.ProfileByID(ctx, id)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdateGuestNotes replaces the staff notes for a guest. Any embedded
// structured values (such as the personal discount) are preserved by the
// service.
func (h *Handlers) UpdateGuestNotes(c *gin.Context) {
	ctx := c.Request.Context()

	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "guest id must be a positive integer")
		return
	}
	var req UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid body")
		return
	}
	if err := h.clientSvc.UpdateNotes(ctx, id, req.Notes); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// SetGuestDiscount sets (or clears, with amount 0) a guest's personal
// discount.
func (h *Handlers) SetGuestDiscount(c *gin.Context) {
	ctx := c.Request.Context()

	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "guest id must be a positive integer")
		return
	}
	var req SetDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid body")
		return
	}
	if req.Amount < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amount must not be negative")
		return
	}
	if err := h.clientSvc.SetPersonalDiscount(ctx, id, req.Amount); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// AddGuestVisits credits extra visits to a guest (staff correction).
func (h *Handlers) AddGuestVisits(c *gin.Context) {
	ctx := c.Request.Context()

	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "guest id must be a positive integer")
		return
	}
	var req AddVisitsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Count < 1 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "count must be a positive integer")
		return
	}
	client, err := h.clientSvc.AddVisits(ctx, id, req.Count)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, ClientResponse{Client: client})
}

// ResetGuestVisits zeroes a guest's visit counter (staff correction).
func (h *Handlers) ResetGuestVisits(c *gin.Context) {
	ctx := c.Request.Context()

	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "guest id must be a positive integer")
		return
	}
	client, err := h.clientSvc.ResetVisits(ctx, id)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, ClientResponse{Client: client})
}
