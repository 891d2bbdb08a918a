// Package services defines the business logic for bookings, clients,
// promotions, reviews, venue settings, and broadcasts. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import "errors"

// Booking-related errors.
var (
	// ErrTableConflict is returned when a requested booking window overlaps
	// an existing non-terminal booking for the same table. User-correctable:
	// the requester picks another table or time.
	ErrTableConflict = errors.New("table is already booked for this time")

	// ErrBookingNotFound indicates that the referenced booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrNotOwner is returned when a client attempts to act on a booking it
	// does not own.
	ErrNotOwner = errors.New("booking belongs to another client")

	// ErrTerminalStatus is returned when a transition is attempted on a
	// booking that is already completed or canceled.
	ErrTerminalStatus = errors.New("booking is already completed or canceled")

	// ErrInvalidInput is returned when a request fails validation before
	// reaching the engine (out-of-range table number, guest count, or
	// duration, zero start time).
	ErrInvalidInput = errors.New("invalid booking input")
)

// Client-related errors.
var (
	// ErrClientNotFound indicates that the referenced client does not exist.
	ErrClientNotFound = errors.New("client not found")
)

// Review-related errors.
var (
	// ErrInvalidRating is returned when a review rating is outside 1-5 or
	// the text is blank.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// Promotion-related errors.
var (
	// ErrPromotionNotFound indicates that the referenced promotion does not exist.
	ErrPromotionNotFound = errors.New("promotion not found")
)

// Broadcast-related errors.
var (
	// ErrNotBroadcasting is returned when an admin sends a broadcast without
	// having entered broadcast mode first.
	ErrNotBroadcasting = errors.New("admin is not in broadcast mode")

	// ErrSubscriberNotFound indicates that no broadcast-list entry exists
	// for the given identity.
	ErrSubscriberNotFound = errors.New("subscriber not found")
)
