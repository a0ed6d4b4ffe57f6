package service

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/learoder-max/Wishlist/internal/draft"
	"github.com/learoder-max/Wishlist/internal/inference"
	"github.com/learoder-max/Wishlist/internal/models"
)

// OpenDraft starts an add form, or an edit form when itemID is set.
func (s *Service) OpenDraft(ctx context.Context, viewerID, itemID string) (draft.Draft, error) {
	if itemID == "" {
		if _, err := s.User(ctx, viewerID); err != nil {
			return draft.Draft{}, err
		}
		return s.drafts.Open(viewerID, nil), nil
	}

	item, err := s.ownedItem(ctx, "edit", viewerID, itemID)
	if err != nil {
		return draft.Draft{}, err
	}
	return s.drafts.Open(viewerID, item), nil
}

// Draft returns an open draft of viewerID.
func (s *Service) Draft(viewerID, draftID string) (draft.Draft, error) {
	return s.drafts.Get(draftID, viewerID)
}

// EditDraft applies a form edit.
func (s *Service) EditDraft(viewerID, draftID string, patch draft.FieldsPatch) (draft.Draft, error) {
	return s.drafts.Update(draftID, viewerID, patch)
}

// Autofill runs product inference on the draft's URL and merges the result
// into the form. Inference failures only set the draft advisory; the
// returned error is reserved for draft problems (unknown draft, request
// already in flight, missing URL).
func (s *Service) Autofill(ctx context.Context, viewerID, draftID string) (draft.Draft, error) {
	url, gen, err := s.drafts.BeginAutofill(draftID, viewerID)
	if err != nil {
		return draft.Draft{}, err
	}

	product, inferErr := s.analyze(ctx, url)

	d, ok := s.drafts.CompleteAutofill(draftID, gen, product, inferErr)
	if !ok {
		s.logger.WithField("draft_id", draftID).Debug("Discarded auto-fill result for closed draft")
		return draft.Draft{}, draft.ErrNotFound
	}
	return d, nil
}

// analyze calls the analyzer and turns a panic into an ordinary failure.
func (s *Service) analyze(ctx context.Context, url string) (product *models.ParsedProduct, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("Panic in product analyzer: %v", r)
			product, err = nil, &inference.Error{Reason: inference.ReasonMalformed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return s.analyzer.AnalyzeURL(ctx, url)
}

// AttachDraftImage stores an upload and makes it the draft's image.
func (s *Service) AttachDraftImage(viewerID, draftID string, r io.Reader) (draft.Draft, error) {
	if s.media == nil {
		return draft.Draft{}, ErrUploadsDisabled
	}
	if _, err := s.drafts.Get(draftID, viewerID); err != nil {
		return draft.Draft{}, err
	}

	h, err := s.media.Create(viewerID, r)
	if err != nil {
		return draft.Draft{}, fmt.Errorf("failed to store image: %w", err)
	}

	d, err := s.drafts.AttachImage(draftID, viewerID, h.ID, h.Ref)
	if err != nil {
		s.media.Release(h.ID)
		return draft.Draft{}, err
	}
	return d, nil
}

// CommitDraft turns the draft into a new or updated item and closes it.
// On failure the draft stays open and editable.
func (s *Service) CommitDraft(ctx context.Context, viewerID, draftID string) (*models.WishlistItem, error) {
	d, err := s.drafts.Take(draftID, viewerID)
	if err != nil {
		return nil, err
	}

	var item *models.WishlistItem
	if d.EditingItemID == "" {
		item, err = s.AddItem(ctx, viewerID, d.ToItemDraft())
	} else {
		item, err = s.UpdateItem(ctx, viewerID, d.EditingItemID, d.ToItemPatch())
	}
	if err != nil {
		s.drafts.Restore(d)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"draft_id": draftID,
		"item_id":  item.ID,
	}).Debug("Draft committed")
	return item, nil
}

// DiscardDraft closes the draft and releases its upload.
func (s *Service) DiscardDraft(viewerID, draftID string) error {
	return s.drafts.Close(draftID, viewerID)
}

// Drafts exposes the draft manager for the background sweeper.
func (s *Service) Drafts() *draft.Manager {
	return s.drafts
}
