package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/learoder-max/Wishlist/internal/service"
)

const viewerHeader = "X-Viewer-ID"

type contextKey string

const viewerContextKey contextKey = "viewer_id"

// NewContextWithViewer returns a child context carrying the acting user.
func NewContextWithViewer(ctx context.Context, viewerID string) context.Context {
	return context.WithValue(ctx, viewerContextKey, viewerID)
}

// ViewerFromContext extracts the acting user set by the viewer middleware.
func ViewerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(viewerContextKey).(string)
	return id, ok && id != ""
}

// withViewer resolves the acting user from the request and rejects unknown
// users before the handler runs.
func (s *Server) withViewer(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewerID := strings.TrimSpace(r.Header.Get(viewerHeader))
		if viewerID == "" {
			viewerID = s.opts.DefaultViewer
		}

		if _, err := s.svc.User(r.Context(), viewerID); err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				s.respondError(w, http.StatusUnauthorized, "unknown viewer")
				return
			}
			s.respondServiceError(w, err, "resolve viewer")
			return
		}

		next(w, r.WithContext(NewContextWithViewer(r.Context(), viewerID)))
	})
}

// viewer returns the acting user. Only valid inside withViewer.
func viewer(r *http.Request) string {
	id, _ := ViewerFromContext(r.Context())
	return id
}
