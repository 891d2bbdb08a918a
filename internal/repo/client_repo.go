// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Client
// model.
//
// Clients are created lazily and never deleted. Identity-refresh updates
// (username, full name, phone) happen on every contact; the visit counter
// is only written through the atomic helpers below or by the booking
// engine's close transition.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/domain"
)

// GetClientByChatID fetches a client by its external chat identity.
// Returns ErrNotFound when absent.
func GetClientByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Client, error) {
	var c domain.Client
	err := db.WithContext(ctx).Where("chat_id = ?", chatID).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetClientByPhone fetches a client by phone fingerprint.
// Returns ErrNotFound when absent.
func GetClientByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Client, error) {
	var c domain.Client
	err := db.WithContext(ctx).Where("phone_hash = ?", phone).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetClient fetches a client by surrogate id. Returns ErrNotFound when
// absent.
func GetClient(ctx context.Context, db *gorm.DB, id uint) (*domain.Client, error) {
	var c domain.Client
	err := db.WithContext(ctx).First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateClient inserts a new client row with CreatedAt set to UTC.
func CreateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	c.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(c).Error
}

// UpdateClientIdentity refreshes the mutable identity fields of a client.
// Only non-empty values overwrite; a sync never erases known data.
func UpdateClientIdentity(ctx context.Context, db *gorm.DB, id uint, username, fullName, phone string) error {
	updates := map[string]any{}
	if username != "" {
		updates["username"] = username
	}
	if fullName != "" {
		updates["full_name"] = fullName
	}
	if phone != "" {
		updates["phone_hash"] = phone
	}
	if len(updates) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListClientsByVisits returns clients ordered by visit count descending,
// capped at limit. Used by the staff guest list.
func ListClientsByVisits(ctx context.Context, db *gorm.DB, limit int) ([]domain.Client, error) {
	var out []domain.Client
	err := db.WithContext(ctx).
		Order("visits desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateClientNotes replaces a client's notes text. Returns ErrNotFound
// when the client does not exist.
func UpdateClientNotes(ctx context.Context, db *gorm.DB, id uint, notes string) error {
	res := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("id = ?", id).
		Update("notes", notes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementVisits advances a client's visit counter by delta as a single
// SQL expression. The increment happens in the database, so concurrent
// closes cannot lose updates.
func IncrementVisits(ctx context.Context, db *gorm.DB, id uint, delta int) error {
	res := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("id = ?", id).
		Update("visits", gorm.Expr("visits + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ResetVisits sets a client's visit counter back to zero. Returns
// ErrNotFound when the client does not exist.
func ResetVisits(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("id = ?", id).
		Update("visits", 0)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
