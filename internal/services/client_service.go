// Package services – ClientService
//
// This file implements ClientService, which owns client resolution and
// profile state: lazy creation on first contact, identity refresh on every
// contact, staff visit-counter adjustments, notes, and the personal
// discount embedded in notes as JSON. The loyalty tier derivation is a
// pure function of the visit counter and never mutates state.
package services

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/domain"
	"github.com/filin-lounge/booking-backend/internal/repo"
)

// Loyalty tier thresholds: below halfTier visits there is no discount,
// from halfTier a partial discount applies, from freeTier the visit is
// free.
const (
	loyaltyHalfTier = 5
	loyaltyFreeTier = 10
)

// Loyalty tier names.
const (
	TierNone = "none"
	TierHalf = "half"
	TierFree = "free"
)

// LoyaltyStatus is the derived loyalty view for a client.
type LoyaltyStatus struct {
	Visits int    `json:"visits"`
	Tier   string `json:"tier"`
	ToNext int    `json:"visits_to_next_tier,omitempty"`
}

// LoyaltyFor derives the discount tier from a visit counter. Pure: below 5
// visits no discount (with the count remaining until tier 1), 5-9 the
// partial tier, 10 and above the free tier.
func LoyaltyFor(visits int) LoyaltyStatus {
	if visits < 0 {
		visits = 0
	}
	switch {
	case visits >= loyaltyFreeTier:
		return LoyaltyStatus{Visits: visits, Tier: TierFree}
	case visits >= loyaltyHalfTier:
		return LoyaltyStatus{Visits: visits, Tier: TierHalf, ToNext: loyaltyFreeTier - visits}
	default:
		return LoyaltyStatus{Visits: visits, Tier: TierNone, ToNext: loyaltyHalfTier - visits}
	}
}

// ClientRepo defines the repository contract required by ClientService.
type ClientRepo interface {
	GetClientByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Client, error)
	GetClientByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Client, error)
	GetClient(ctx context.Context, db *gorm.DB, id uint) (*domain.Client, error)
	CreateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error
	UpdateClientIdentity(ctx context.Context, db *gorm.DB, id uint, username, fullName, phone string) error
	ListClientsByVisits(ctx context.Context, db *gorm.DB, limit int) ([]domain.Client, error)
	UpdateClientNotes(ctx context.Context, db *gorm.DB, id uint, notes string) error
	IncrementVisits(ctx context.Context, db *gorm.DB, id uint, delta int) error
	ResetVisits(ctx context.Context, db *gorm.DB, id uint) error
	ClientStats(ctx context.Context, db *gorm.DB, clientID uint) (repo.ClientBookingStats, error)
}

// clientRepo is the production ClientRepo backed by the repo package.
type clientRepo struct{}

func (clientRepo) GetClientByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Client, error) {
	return repo.GetClientByChatID(ctx, db, chatID)
}
func (clientRepo) GetClientByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Client, error) {
	return repo.GetClientByPhone(ctx, db, phone)
}
func (clientRepo) GetClient(ctx context.Context, db *gorm.DB, id uint) (*domain.Client, error) {
	return repo.GetClient(ctx, db, id)
}
func (clientRepo) CreateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	return repo.CreateClient(ctx, db, c)
}
func (clientRepo) UpdateClientIdentity(ctx context.Context, db *gorm.DB, id uint, username, fullName, phone string) error {
	return repo.UpdateClientIdentity(ctx, db, id, username, fullName, phone)
}
func (clientRepo) ListClientsByVisits(ctx context.Context, db *gorm.DB, limit int) ([]domain.Client, error) {
	return repo.ListClientsByVisits(ctx, db, limit)
}
func (clientRepo) UpdateClientNotes(ctx context.Context, db *gorm.DB, id uint, notes string) error {
	return repo.UpdateClientNotes(ctx, db, id, notes)
}
func (clientRepo) IncrementVisits(ctx context.Context, db *gorm.DB, id uint, delta int) error {
	return repo.IncrementVisits(ctx, db, id, delta)
}
func (clientRepo) ResetVisits(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.ResetVisits(ctx, db, id)
}
func (clientRepo) ClientStats(ctx context.Context, db *gorm.DB, clientID uint) (repo.ClientBookingStats, error) {
	return repo.ClientStats(ctx, db, clientID)
}

// ClientService provides client resolution and profile operations.
type ClientService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the client repository used by this service.
	Repo ClientRepo
}

// NewClientService constructs a ClientService with the production repo.
func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{DB: db, Repo: clientRepo{}}
}

// ResolveOrCreate returns the client for chatID, creating it on first
// contact. Existing clients get their identity fields refreshed from the
// supplied values (empty values never erase known data).
func (s *ClientService) ResolveOrCreate(ctx context.Context, chatID int64, username, fullName, phone string) (*domain.Client, error) {
	c, err := s.Repo.GetClientByChatID(ctx, s.DB, chatID)
	if err == nil {
		if username != c.Username || fullName != c.FullName || (phone != "" && phone != c.PhoneHash) {
			if err := s.Repo.UpdateClientIdentity(ctx, s.DB, c.ID, username, fullName, phone); err != nil {
				return nil, err
			}
			return s.Repo.GetClient(ctx, s.DB, c.ID)
		}
		return c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c = &domain.Client{
		ChatID:    chatID,
		Username:  username,
		FullName:  fullName,
		PhoneHash: phone,
	}
	if err := s.Repo.CreateClient(ctx, s.DB, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ByChatID returns the client for a chat identity or ErrClientNotFound.
func (s *ClientService) ByChatID(ctx context.Context, chatID int64) (*domain.Client, error) {
	c, err := s.Repo.GetClientByChatID(ctx, s.DB, chatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	return c, err
}

// ByPhone returns the client for a phone fingerprint or ErrClientNotFound.
func (s *ClientService) ByPhone(ctx context.Context, phone string) (*domain.Client, error) {
	c, err := s.Repo.GetClientByPhone(ctx, s.DB, phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	return c, err
}

// Get returns the client by surrogate id or ErrClientNotFound.
func (s *ClientService) Get(ctx context.Context, id uint) (*domain.Client, error) {
	c, err := s.Repo.GetClient(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	return c, err
}

// ListTop returns clients ordered by visit count for the staff guest list.
func (s *ClientService) ListTop(ctx context.Context, limit int) ([]domain.Client, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.Repo.ListClientsByVisits(ctx, s.DB, limit)
}

// AddVisits applies a staff adjustment of count visits to a client.
// This is an administrative override, not part of the booking lifecycle.
func (s *ClientService) AddVisits(ctx context.Context, id uint, count int) (*domain.Client, error) {
	if count < 1 {
		return nil, ErrInvalidInput
	}
	err := s.Repo.IncrementVisits(ctx, s.DB, id, count)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// ResetVisits sets a client's visit counter back to zero.
func (s *ClientService) ResetVisits(ctx context.Context, id uint) (*domain.Client, error) {
	err := s.Repo.ResetVisits(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// UpdateNotes replaces a client's staff notes.
func (s *ClientService) UpdateNotes(ctx context.Context, id uint, notes string) error {
	err := s.Repo.UpdateClientNotes(ctx, s.DB, id, notes)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrClientNotFound
	}
	return err
}

// discountKey is the JSON key under which the personal discount lives
// inside Client.Notes. Other keys in the object are preserved on write.
const discountKey = "personal_discount"

// SetPersonalDiscount stores a personal discount amount inside the
// client's notes as JSON, preserving any other structured content.
func (s *ClientService) SetPersonalDiscount(ctx context.Context, id uint, amount int) error {
	if amount < 0 {
		return ErrInvalidInput
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	data := map[string]any{}
	if c.Notes != "" {
		// Free-form notes that are not JSON are replaced; structured notes
		// keep their other keys.
		_ = json.Unmarshal([]byte(c.Notes), &data)
	}
	data[discountKey] = amount
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.UpdateNotes(ctx, id, string(raw))
}

// PersonalDiscount extracts the personal discount embedded in a client's
// notes, or 0 when absent or unparseable.
func PersonalDiscount(c *domain.Client) int {
	if c == nil || c.Notes == "" {
		return 0
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(c.Notes), &data); err != nil {
		return 0
	}
	if v, ok := data[discountKey].(float64); ok && v > 0 {
		return int(v)
	}
	return 0
}

// Profile is the staff view of a client: identity, counters, loyalty, and
// per-client booking aggregates.
type Profile struct {
	Client  domain.Client           `json:"client"`
	Loyalty LoyaltyStatus           `json:"loyalty"`
	Stats   repo.ClientBookingStats `json:"stats"`
}

// ProfileByID assembles the staff profile view for one client.
func (s *ClientService) ProfileByID(ctx context.Context, id uint) (*Profile, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.Repo.ClientStats(ctx, s.DB, c.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{Client: *c, Loyalty: LoyaltyFor(c.Visits), Stats: stats}, nil
}
