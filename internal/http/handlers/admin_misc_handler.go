// Admin event, broadcast, and settings handlers.
//
// Events are the venue's marketing items (promotions) shown in the guest
// app. Broadcast is a two-step flow: an admin arms broadcast mode, then
// sends the message text; arming without sending is abandoned with an
// explicit DELETE. The mode is persisted per admin, so it survives
// restarts and concurrent admins do not share state.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/filin-lounge/booking-backend/internal/domain"
	"github.com/filin-lounge/booking-backend/internal/http/middleware"
)

//
// DTOs
//

// EventRequest is the payload for creating or updating an event.
type EventRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	ImageURL    string `json:"image_url"`
}

// ListEventsResponse is the staff event list, newest first.
type ListEventsResponse struct {
	Events []domain.Promotion `json:"events"`
}

// BroadcastRequest carries the broadcast message text.
type BroadcastRequest struct {
	Message string `json:"message" binding:"required"`
}

// UpdateSettingsRequest replaces one venue settings text.
type UpdateSettingsRequest struct {
	Text string `json:"text" binding:"required"`
}

//
// Event handlers
//

// ListEvents returns all events for the staff view, active or not.
func (h *Handlers) ListEvents(c *gin.Context) {
	events, err := h.promoSvc.List(c.Request.Context(), 100)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListEventsResponse{Events: events})
}

// CreateEvent publishes a new event.
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title and description are required")
		return
	}
	p, err := h.promoSvc.Create(c.Request.Context(), req.Title, req.Description, req.ImageURL)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, gin.H{"event": p})
}

// UpdateEvent edits an existing event.
func (h *Handlers) UpdateEvent(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "event id must be a positive integer")
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title and description are required")
		return
	}
	p, err := h.promoSvc.Update(c.Request.Context(), id, req.Title, req.Description, req.ImageURL)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, gin.H{"event": p})
}

// DeleteEvent removes an event.
func (h *Handlers) DeleteEvent(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "event id must be a positive integer")
		return
	}
	if err := h.promoSvc.Delete(c.Request.Context(), id); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

//
// Broadcast handlers
//

// StartBroadcast arms broadcast mode for the calling admin.
func (h *Handlers) StartBroadcast(c *gin.Context) {
	adminID, _ := middleware.AdminID(c)
	if err := h.broadcastSvc.Start(c.Request.Context(), adminID); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, gin.H{"mode": domain.AdminModeBroadcast})
}

// SendBroadcast delivers the message to every active subscriber. The
// calling admin must have armed broadcast mode first.
func (h *Handlers) SendBroadcast(c *gin.Context) {
	adminID, _ := middleware.AdminID(c)

	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}
	res, err := h.broadcastSvc.Send(c.Request.Context(), adminID, req.Message)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, res)
}

// AbortBroadcast leaves broadcast mode without sending anything.
func (h *Handlers) AbortBroadcast(c *gin.Context) {
	adminID, _ := middleware.AdminID(c)
	if err := h.broadcastSvc.Abort(c.Request.Context(), adminID); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

//
// Settings handlers
//

// UpdateSchedule replaces the venue schedule text shown to guests.
func (h *Handlers) UpdateSchedule(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		return
	}
	s, err := h.settingsSvc.UpdateSchedule(c.Request.Context(), req.Text)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, gin.H{"settings": s})
}

// UpdateContacts replaces the venue contacts text shown to guests.
func (h *Handlers) UpdateContacts(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		return
	}
	s, err := h.settingsSvc.UpdateContacts(c.Request.Context(), req.Text)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, gin.H{"settings": s})
}
