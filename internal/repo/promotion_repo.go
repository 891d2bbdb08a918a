// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Promotion model (staff-managed marketing items).
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/domain"
)

// CreatePromotion inserts a new promotion with CreatedAt set to UTC.
func CreatePromotion(ctx context.Context, db *gorm.DB, p *domain.Promotion) error {
	p.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(p).Error
}

// ListActivePromotions returns active promotions, newest first, capped at 10.
func ListActivePromotions(ctx context.Context, db *gorm.DB) ([]domain.Promotion, error) {
	var out []domain.Promotion
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at desc").
		Limit(10).
		Find(&out).Error
	return out, err
}

// ListPromotions returns all promotions for the staff view, newest first,
// capped at limit.
func ListPromotions(ctx context.Context, db *gorm.DB, limit int) ([]domain.Promotion, error) {
	var out []domain.Promotion
	err := db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetPromotion fetches a promotion by id. Returns ErrNotFound when absent.
func GetPromotion(ctx context.Context, db *gorm.DB, id uint) (*domain.Promotion, error) {
	var p domain.Promotion
	if err := db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePromotion applies non-empty field updates to a promotion.
// Returns ErrNotFound when the promotion does not exist.
func UpdatePromotion(ctx context.Context, db *gorm.DB, id uint, title, description, imageURL string) error {
	updates := map[string]any{}
	if title != "" {
		updates["title"] = title
	}
	if description != "" {
		updates["description"] = description
	}
	if imageURL != "" {
		updates["image_url"] = imageURL
	}
	if len(updates) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Promotion{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeletePromotion removes a promotion. Returns ErrNotFound when the
// promotion does not exist.
func DeletePromotion(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Promotion{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
