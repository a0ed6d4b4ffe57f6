package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/learoder-max/Wishlist/internal/models"
	"github.com/learoder-max/Wishlist/internal/service"
)

// ---------------------------------------------------------------------------
// Browsing
// ---------------------------------------------------------------------------

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Feed(r.Context(), viewer(r))
	if err != nil {
		s.respondServiceError(w, err, "get feed")
		return
	}
	s.respondJSON(w, http.StatusOK, newFeedView(entries, viewer(r)))
}

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.svc.Friends(r.Context(), viewer(r))
	if err != nil {
		s.respondServiceError(w, err, "get friends")
		return
	}

	views := make([]friendView, len(friends))
	for i, f := range friends {
		views[i] = friendView{User: f.User, PublicItems: f.PublicItems}
	}
	s.respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users(r.Context())
	if err != nil {
		s.respondServiceError(w, err, "list users")
		return
	}

	views := make([]*userView, len(users))
	for i, u := range users {
		views[i] = newUserView(u, viewer(r))
	}
	s.respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "me" {
		id = viewer(r)
	}

	p, err := s.svc.Profile(r.Context(), id, viewer(r))
	if err != nil {
		s.respondServiceError(w, err, "get profile")
		return
	}
	s.respondJSON(w, http.StatusOK, newProfileView(p, viewer(r)))
}

// ---------------------------------------------------------------------------
// Own profile
// ---------------------------------------------------------------------------

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch models.UserPatch
	if ok, msg := s.decodeJSON(r, &patch); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	u, err := s.svc.UpdateUserProfile(r.Context(), viewer(r), patch)
	if err != nil {
		s.respondServiceError(w, err, "update profile")
		return
	}
	s.respondJSON(w, http.StatusOK, newUserView(u, viewer(r)))
}

func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	file, ok := s.uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	u, err := s.svc.SetAvatar(r.Context(), viewer(r), file)
	if err != nil {
		s.respondServiceError(w, err, "upload avatar")
		return
	}
	s.respondJSON(w, http.StatusOK, newUserView(u, viewer(r)))
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var in models.ItemDraft
	if ok, msg := s.decodeJSON(r, &in); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.svc.AddItem(r.Context(), viewer(r), in)
	if err != nil {
		s.respondServiceError(w, err, "add wish item")
		return
	}
	s.respondJSON(w, http.StatusCreated, newItemView(item))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch models.ItemPatch
	if ok, msg := s.decodeJSON(r, &patch); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.svc.UpdateItem(r.Context(), viewer(r), r.PathValue("id"), patch)
	if err != nil {
		s.respondServiceError(w, err, "update wish item")
		return
	}
	s.respondJSON(w, http.StatusOK, newItemView(item))
}

// errConfirmationRequired marks a delete request that carried no answer.
var errConfirmationRequired = errors.New("confirmation required")

// queryConfirmer answers the prompt from a confirm=true|false parameter.
func queryConfirmer(answer string) service.Confirmer {
	return service.ConfirmFunc(func(context.Context, string) (bool, error) {
		switch answer {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0":
			return false, nil
		default:
			return false, errConfirmationRequired
		}
	})
}

// handleDeleteItem answers the confirmation prompt from the confirm query
// parameter. Without one the client is asked to confirm with 428.
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.svc.DeleteItem(r.Context(), viewer(r), r.PathValue("id"), queryConfirmer(r.URL.Query().Get("confirm")))
	if errors.Is(err, errConfirmationRequired) {
		s.respondJSON(w, http.StatusPreconditionRequired, map[string]string{
			"error":  errConfirmationRequired.Error(),
			"prompt": service.DeletePrompt,
		})
		return
	}
	if err != nil {
		s.respondServiceError(w, err, "delete wish item")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"outcome": outcome.String()})
}
