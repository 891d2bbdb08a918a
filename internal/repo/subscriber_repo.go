// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Subscriber (broadcast list) model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/filin-lounge/booking-backend/internal/domain"
)

// UpsertSubscriber adds chatID to the broadcast list or reactivates an
// existing entry, refreshing the display name.
func UpsertSubscriber(ctx context.Context, db *gorm.DB, chatID int64, fullName string) (*domain.Subscriber, error) {
	s := &domain.Subscriber{
		ChatID:       chatID,
		FullName:     fullName,
		IsActive:     true,
		SubscribedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "is_active"}),
		}).
		Create(s).Error
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DeactivateSubscriber marks a broadcast-list entry inactive. Returns
// ErrNotFound when no entry exists for chatID.
func DeactivateSubscriber(ctx context.Context, db *gorm.DB, chatID int64) error {
	res := db.WithContext(ctx).
		Model(&domain.Subscriber{}).
		Where("chat_id = ?", chatID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListActiveSubscribers returns every active broadcast-list entry.
func ListActiveSubscribers(ctx context.Context, db *gorm.DB) ([]domain.Subscriber, error) {
	var out []domain.Subscriber
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("subscribed_at asc").
		Find(&out).Error
	return out, err
}

// MarkSubscriberMailed stamps last_mailed_at after a successful delivery.
func MarkSubscriberMailed(ctx context.Context, db *gorm.DB, id uint, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Subscriber{}).
		Where("id = ?", id).
		Update("last_mailed_at", at).Error
}
