package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/learoder-max/Wishlist/internal/models"
	"github.com/learoder-max/Wishlist/internal/repository"
)

// Confirmer gates destructive actions behind an explicit yes/no answer.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Answer is a Confirmer with a fixed response, for surfaces that collected
// the answer before calling the service.
type Answer bool

// Confirm implements Confirmer.
func (a Answer) Confirm(context.Context, string) (bool, error) { return bool(a), nil }

// DeletePrompt is the question put to the confirmation collaborator.
const DeletePrompt = "Are you sure you want to delete this wish?"

// DeleteOutcome is the non-error result of DeleteItem.
type DeleteOutcome int

const (
	DeleteRemoved DeleteOutcome = iota
	DeleteDeclined
	DeleteNotFound
)

func (o DeleteOutcome) String() string {
	switch o {
	case DeleteRemoved:
		return "removed"
	case DeleteDeclined:
		return "declined"
	case DeleteNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// AddItem commits a new item owned by viewerID. Blank title and URL are
// substituted rather than rejected; only a negative price or an oversized
// currency code fails validation.
func (s *Service) AddItem(ctx context.Context, viewerID string, in models.ItemDraft) (*models.WishlistItem, error) {
	if _, err := s.User(ctx, viewerID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&in); err != nil {
		s.metrics.ItemMutation("add", "invalid")
		return nil, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}

	item := &models.WishlistItem{
		ID:          s.newID(),
		UserID:      viewerID,
		Title:       strings.TrimSpace(in.Title),
		Currency:    strings.TrimSpace(in.Currency),
		URL:         strings.TrimSpace(in.URL),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Description: strings.TrimSpace(in.Description),
		IsPrivate:   in.IsPrivate != nil && *in.IsPrivate,
		CreatedAt:   s.now(),
	}
	if item.Title == "" {
		item.Title = models.DefaultTitle
	}
	if in.Price != nil {
		price := *in.Price
		item.Price = &price
		if item.Currency == "" {
			item.Currency = models.DefaultCurrency
		}
	}

	created, err := s.items.Create(ctx, item)
	if err != nil {
		s.metrics.ItemMutation("add", "error")
		return nil, fmt.Errorf("failed to add wish item: %w", err)
	}

	s.metrics.ItemMutation("add", "ok")
	s.logger.WithFields(logrus.Fields{
		"user_id": viewerID,
		"item_id": created.ID,
		"private": created.IsPrivate,
	}).Info("Wish item added")

	return created, nil
}

// UpdateItem merges patch onto the item. ID, owner and creation time are
// preserved. An absent item yields ErrItemNotFound and changes nothing.
func (s *Service) UpdateItem(ctx context.Context, viewerID, itemID string, patch models.ItemPatch) (*models.WishlistItem, error) {
	item, err := s.ownedItem(ctx, "update", viewerID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&patch); err != nil {
		s.metrics.ItemMutation("update", "invalid")
		return nil, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}

	oldImage := item.ImageURL
	item.Apply(patch)
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		item.Title = models.DefaultTitle
	}

	updated, err := s.items.Update(ctx, item)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.ItemMutation("update", "not_found")
			return nil, fmt.Errorf("wish item %s: %w", itemID, ErrItemNotFound)
		}
		s.metrics.ItemMutation("update", "error")
		return nil, fmt.Errorf("failed to update wish item %s: %w", itemID, err)
	}

	if oldImage != updated.ImageURL {
		s.releaseRef(viewerID, oldImage)
	}

	s.metrics.ItemMutation("update", "ok")
	s.logger.WithFields(logrus.Fields{
		"user_id": viewerID,
		"item_id": itemID,
	}).Info("Wish item updated")

	return updated, nil
}

// DeleteItem removes the item once confirm agrees. Declining and deleting an
// absent item are normal outcomes, not errors.
func (s *Service) DeleteItem(ctx context.Context, viewerID, itemID string, confirm Confirmer) (DeleteOutcome, error) {
	item, err := s.ownedItem(ctx, "delete", viewerID, itemID)
	if errors.Is(err, ErrItemNotFound) {
		return DeleteNotFound, nil
	}
	if err != nil {
		return 0, err
	}

	if confirm == nil {
		return DeleteDeclined, nil
	}
	ok, err := confirm.Confirm(ctx, DeletePrompt)
	if err != nil {
		return 0, fmt.Errorf("failed to confirm deletion of %s: %w", itemID, err)
	}
	if !ok {
		s.metrics.ItemMutation("delete", "declined")
		return DeleteDeclined, nil
	}

	if err := s.items.Delete(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.ItemMutation("delete", "not_found")
			return DeleteNotFound, nil
		}
		s.metrics.ItemMutation("delete", "error")
		return 0, fmt.Errorf("failed to delete wish item %s: %w", itemID, err)
	}
	s.releaseRef(viewerID, item.ImageURL)

	s.metrics.ItemMutation("delete", "ok")
	s.logger.WithFields(logrus.Fields{
		"user_id": viewerID,
		"item_id": itemID,
	}).Info("Wish item deleted")

	return DeleteRemoved, nil
}

// ownedItem loads itemID and checks viewerID owns it.
func (s *Service) ownedItem(ctx context.Context, op, viewerID, itemID string) (*models.WishlistItem, error) {
	if _, err := s.User(ctx, viewerID); err != nil {
		return nil, err
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup wish item %s: %w", itemID, err)
	}
	if item == nil {
		s.metrics.ItemMutation(op, "not_found")
		s.logger.WithFields(logrus.Fields{
			"user_id": viewerID,
			"item_id": itemID,
			"op":      op,
		}).Debug("Wish item not found")
		return nil, fmt.Errorf("wish item %s: %w", itemID, ErrItemNotFound)
	}
	if item.UserID != viewerID {
		s.metrics.ItemMutation(op, "forbidden")
		s.logger.WithFields(logrus.Fields{
			"user_id": viewerID,
			"item_id": itemID,
			"op":      op,
		}).Warn("Rejected change to another user's wish item")
		return nil, fmt.Errorf("wish item %s: %w", itemID, ErrForbidden)
	}
	return item, nil
}

// releaseRef drops an uploaded image the viewer no longer references. Refs
// to another user's uploads are never released.
func (s *Service) releaseRef(viewerID, ref string) {
	if s.media != nil {
		s.media.ReleaseRef(viewerID, ref)
	}
}
