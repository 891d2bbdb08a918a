// Package services – ReviewService
//
// Validates and records client reviews, optionally tied to the booking
// they followed.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/domain"
	"github.com/filin-lounge/booking-backend/internal/repo"
)

// Review text limits, in runes.
const (
	reviewMinRunes = 3
	reviewMaxRunes = 2000
)

// ReviewService records client ratings.
type ReviewService struct {
	DB *gorm.DB
}

// NewReviewService constructs a ReviewService.
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{DB: db}
}

// Create records a review for clientID. Rating must be 1-5 and the text
// between 3 and 2000 runes. bookingID may be nil.
func (s *ReviewService) Create(ctx context.Context, clientID uint, bookingID *uint, rating int, text string) (*domain.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < reviewMinRunes || n > reviewMaxRunes {
		return nil, ErrInvalidInput
	}
	r := &domain.Review{
		ClientID:  clientID,
		BookingID: bookingID,
		Rating:    rating,
		Text:      text,
	}
	if err := repo.CreateReview(ctx, s.DB, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListForClient returns a client's reviews, newest first.
func (s *ReviewService) ListForClient(ctx context.Context, clientID uint) ([]domain.Review, error) {
	return repo.ListClientReviews(ctx, s.DB, clientID)
}
