// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Review
// model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/domain"
)

// CreateReview inserts a new review with CreatedAt set to UTC.
func CreateReview(ctx context.Context, db *gorm.DB, r *domain.Review) error {
	r.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(r).Error
}

// ListClientReviews returns a client's reviews, newest first.
func ListClientReviews(ctx context.Context, db *gorm.DB, clientID uint) ([]domain.Review, error) {
	var out []domain.Review
	err := db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}
