// Package services – BroadcastService
//
// This file implements BroadcastService, which owns the subscriber list
// and per-admin broadcast mode. Mode is persisted per admin identity in
// the store, so an admin mid-broadcast survives a restart and the state
// is visible to every instance. Delivery failures (recipient blocked the
// bot) are logged and skipped; they never abort the fan-out.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/domain"
	"github.com/filin-lounge/booking-backend/internal/notify"
	"github.com/filin-lounge/booking-backend/internal/repo"
)

// BroadcastService manages the broadcast list and admin broadcast mode.
type BroadcastService struct {
	DB       *gorm.DB
	Notifier notify.Notifier
	Logger   zerolog.Logger
}

// NewBroadcastService constructs a BroadcastService.
func NewBroadcastService(db *gorm.DB, n notify.Notifier, logger zerolog.Logger) *BroadcastService {
	return &BroadcastService{DB: db, Notifier: n, Logger: logger}
}

// Subscribe adds chatID to the broadcast list or reactivates it.
func (s *BroadcastService) Subscribe(ctx context.Context, chatID int64, fullName string) (*domain.Subscriber, error) {
	return repo.UpsertSubscriber(ctx, s.DB, chatID, fullName)
}

// Unsubscribe deactivates a broadcast-list entry.
func (s *BroadcastService) Unsubscribe(ctx context.Context, chatID int64) error {
	err := repo.DeactivateSubscriber(ctx, s.DB, chatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSubscriberNotFound
	}
	return err
}

// Mode returns the current session mode for adminID (idle when no session
// row exists yet).
func (s *BroadcastService) Mode(ctx context.Context, adminID int64) (string, error) {
	sess, err := repo.GetAdminSession(ctx, s.DB, adminID)
	if err != nil {
		return "", err
	}
	return sess.Mode, nil
}

// Start puts adminID into broadcast mode: the admin's next message is the
// broadcast text.
func (s *BroadcastService) Start(ctx context.Context, adminID int64) error {
	return repo.SetAdminMode(ctx, s.DB, adminID, domain.AdminModeBroadcast)
}

// Abort leaves broadcast mode without sending anything.
func (s *BroadcastService) Abort(ctx context.Context, adminID int64) error {
	return repo.SetAdminMode(ctx, s.DB, adminID, domain.AdminModeIdle)
}

// SendResult summarizes a broadcast fan-out.
type SendResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Send delivers message to every active subscriber on behalf of adminID,
// which must be in broadcast mode (ErrNotBroadcasting otherwise). Each
// successful delivery stamps the subscriber's last_mailed_at; failures
// are logged and counted but do not stop the fan-out. The admin session
// returns to idle afterwards.
func (s *BroadcastService) Send(ctx context.Context, adminID int64, message string) (SendResult, error) {
	var res SendResult
	if strings.TrimSpace(message) == "" {
		return res, ErrInvalidInput
	}

	mode, err := s.Mode(ctx, adminID)
	if err != nil {
		return res, err
	}
	if mode != domain.AdminModeBroadcast {
		return res, ErrNotBroadcasting
	}

	subs, err := repo.ListActiveSubscribers(ctx, s.DB)
	if err != nil {
		return res, err
	}
	now := time.Now().UTC()
	for _, sub := range subs {
		if err := s.Notifier.Notify(ctx, sub.ChatID, message); err != nil {
			res.Failed++
			s.Logger.Warn().
				Err(err).
				Int64("chat_id", sub.ChatID).
				Msg("broadcast delivery failed")
			continue
		}
		res.Sent++
		if err := repo.MarkSubscriberMailed(ctx, s.DB, sub.ID, now); err != nil {
			s.Logger.Warn().
				Err(err).
				Int64("chat_id", sub.ChatID).
				Msg("failed to stamp last_mailed_at")
		}
	}

	if err := repo.SetAdminMode(ctx, s.DB, adminID, domain.AdminModeIdle); err != nil {
		return res, err
	}

	s.Logger.Info().
		Int64("admin_id", adminID).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Msg("broadcast finished")
	return res, nil
}
