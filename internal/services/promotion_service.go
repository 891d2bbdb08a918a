// Package services – PromotionService
//
// Thin wrapper over the promotion repository: staff create/edit/delete of
// marketing items and the active list shown to guests.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/domain"
	"github.com/filin-lounge/booking-backend/internal/repo"
)

// PromotionService manages staff-curated marketing items.
type PromotionService struct {
	DB *gorm.DB
}

// NewPromotionService constructs a PromotionService.
func NewPromotionService(db *gorm.DB) *PromotionService {
	return &PromotionService{DB: db}
}

// Create adds a promotion. Title and description are required.
func (s *PromotionService) Create(ctx context.Context, title, description, imageURL string) (*domain.Promotion, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, ErrInvalidInput
	}
	p := &domain.Promotion{
		Title:       title,
		Description: description,
		ImageURL:    imageURL,
		IsActive:    true,
	}
	if err := repo.CreatePromotion(ctx, s.DB, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListActive returns the promotions currently shown to guests.
func (s *PromotionService) ListActive(ctx context.Context) ([]domain.Promotion, error) {
	return repo.ListActivePromotions(ctx, s.DB)
}

// List returns all promotions for the staff view.
func (s *PromotionService) List(ctx context.Context, limit int) ([]domain.Promotion, error) {
	if limit <= 0 {
		limit = 20
	}
	return repo.ListPromotions(ctx, s.DB, limit)
}

// Update edits a promotion's fields; empty values leave fields unchanged.
func (s *PromotionService) Update(ctx context.Context, id uint, title, description, imageURL string) (*domain.Promotion, error) {
	err := repo.UpdatePromotion(ctx, s.DB, id, strings.TrimSpace(title), strings.TrimSpace(description), imageURL)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPromotionNotFound
	}
	if err != nil {
		return nil, err
	}
	return repo.GetPromotion(ctx, s.DB, id)
}

// Delete removes a promotion.
func (s *PromotionService) Delete(ctx context.Context, id uint) error {
	err := repo.DeletePromotion(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPromotionNotFound
	}
	return err
}
