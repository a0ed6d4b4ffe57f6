package api

import (
	"net/http"

	"github.com/learoder-max/Wishlist/internal/draft"
	"github.com/learoder-max/Wishlist/internal/format"
)

type openDraftRequest struct {
	ItemID string `json:"itemId"`
}

type draftView struct {
	draft.Draft
	AutofillDisabled bool   `json:"autofillDisabled"`
	PriceLabel       string `json:"priceLabel,omitempty"`
}

func newDraftView(d draft.Draft) draftView {
	return draftView{
		Draft:            d,
		AutofillDisabled: d.AutofillInFlight(),
		PriceLabel:       format.Price(d.Fields.Price, d.Fields.Currency),
	}
}

func (s *Server) handleOpenDraft(w http.ResponseWriter, r *http.Request) {
	var req openDraftRequest
	if r.ContentLength != 0 {
		if ok, msg := s.decodeJSON(r, &req); !ok {
			s.respondError(w, http.StatusBadRequest, msg)
			return
		}
	}

	d, err := s.svc.OpenDraft(r.Context(), viewer(r), req.ItemID)
	if err != nil {
		s.respondServiceError(w, err, "open draft")
		return
	}
	s.respondJSON(w, http.StatusCreated, newDraftView(d))
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Draft(viewer(r), r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err, "get draft")
		return
	}
	s.respondJSON(w, http.StatusOK, newDraftView(d))
}

func (s *Server) handleEditDraft(w http.ResponseWriter, r *http.Request) {
	var patch draft.FieldsPatch
	if ok, msg := s.decodeJSON(r, &patch); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	d, err := s.svc.EditDraft(viewer(r), r.PathValue("id"), patch)
	if err != nil {
		s.respondServiceError(w, err, "edit draft")
		return
	}
	s.respondJSON(w, http.StatusOK, newDraftView(d))
}

func (s *Server) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DiscardDraft(viewer(r), r.PathValue("id")); err != nil {
		s.respondServiceError(w, err, "discard draft")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// handleAutofill blocks until inference finishes. A failed extraction is a
// successful request: the draft comes back with its advisory set.
func (s *Server) handleAutofill(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Autofill(r.Context(), viewer(r), r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err, "auto-fill draft")
		return
	}
	s.respondJSON(w, http.StatusOK, newDraftView(d))
}

func (s *Server) handleDraftImage(w http.ResponseWriter, r *http.Request) {
	file, ok := s.uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	d, err := s.svc.AttachDraftImage(viewer(r), r.PathValue("id"), file)
	if err != nil {
		s.respondServiceError(w, err, "attach image")
		return
	}
	s.respondJSON(w, http.StatusOK, newDraftView(d))
}

func (s *Server) handleCommitDraft(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.CommitDraft(r.Context(), viewer(r), r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err, "commit draft")
		return
	}
	s.respondJSON(w, http.StatusOK, newItemView(item))
}
