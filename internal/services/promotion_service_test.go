package services

import (
	"context"
	"errors"
	"testing"
)

func TestPromotion_CRUD(t *testing.T) {
	db := newTestDB(t)
	svc := NewPromotionService(db)
	ctx := context.Background()

	p, err := svc.Create(ctx, "Happy hour", "Two bowls for the price of one", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !p.IsActive {
		t.Fatalf("new promotion must be active")
	}

	if _, err := svc.Create(ctx, "", "no title", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	active, err := svc.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("got %d active promotions, want 1", len(active))
	}

	upd, err := svc.Update(ctx, p.ID, "Happy hours", "", "")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.Title != "Happy hours" {
		t.Fatalf("title = %q", upd.Title)
	}
	// Empty description left the old text in place.
	if upd.Description != "Two bowls for the price of one" {
		t.Fatalf("description = %q", upd.Description)
	}

	if _, err := svc.Update(ctx, 9999, "x", "", ""); !errors.Is(err, ErrPromotionNotFound) {
		t.Fatalf("expected ErrPromotionNotFound, got %v", err)
	}

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, p.ID); !errors.Is(err, ErrPromotionNotFound) {
		t.Fatalf("expected ErrPromotionNotFound, got %v", err)
	}
}
