package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/learoder-max/Wishlist/internal/draft"
	"github.com/learoder-max/Wishlist/internal/media"
	"github.com/learoder-max/Wishlist/internal/service"
)

// Options configures the HTTP surface.
type Options struct {
	// DefaultViewer is used when a request carries no X-Viewer-ID header.
	DefaultViewer string
	// CORSOrigins lists the allowed browser origins; empty means any.
	CORSOrigins []string
	// MaxUploadBytes bounds multipart request bodies.
	MaxUploadBytes int64
}

// Server provides the HTTP API.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	opts   Options
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger, opts Options) *Server {
	if opts.DefaultViewer == "" {
		opts.DefaultViewer = "u1"
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	s := &Server{svc: svc, logger: logger, opts: opts, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", viewerHeader},
		MaxAge:         300,
	})(s.recoverer(s.mux))
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// API – Browsing
	s.mux.Handle("GET /api/feed", s.withViewer(s.handleFeed))
	s.mux.Handle("GET /api/friends", s.withViewer(s.handleFriends))
	s.mux.Handle("GET /api/users", s.withViewer(s.handleUsers))
	s.mux.Handle("GET /api/users/{id}", s.withViewer(s.handleProfile))

	// API – Own profile
	s.mux.Handle("PUT /api/users/me", s.withViewer(s.handleUpdateProfile))
	s.mux.Handle("POST /api/users/me/avatar", s.withViewer(s.handleUploadAvatar))

	// API – Items
	s.mux.Handle("POST /api/items", s.withViewer(s.handleAddItem))
	s.mux.Handle("PUT /api/items/{id}", s.withViewer(s.handleUpdateItem))
	s.mux.Handle("DELETE /api/items/{id}", s.withViewer(s.handleDeleteItem))

	// API – Add/edit drafts
	s.mux.Handle("POST /api/drafts", s.withViewer(s.handleOpenDraft))
	s.mux.Handle("GET /api/drafts/{id}", s.withViewer(s.handleGetDraft))
	s.mux.Handle("PATCH /api/drafts/{id}", s.withViewer(s.handleEditDraft))
	s.mux.Handle("DELETE /api/drafts/{id}", s.withViewer(s.handleDiscardDraft))
	s.mux.Handle("POST /api/drafts/{id}/autofill", s.withViewer(s.handleAutofill))
	s.mux.Handle("POST /api/drafts/{id}/image", s.withViewer(s.handleDraftImage))
	s.mux.Handle("POST /api/drafts/{id}/commit", s.withViewer(s.handleCommitDraft))

	// Uploaded images & liveness
	s.mux.HandleFunc("GET /media/{id}", s.handleMedia)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil || r.Body == http.NoBody {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// respondServiceError maps a service error onto a status code. Unexpected
// errors are logged and reported as a generic failure to do what.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, draft.ErrNotFound):
		s.respondError(w, http.StatusNotFound, rootMessage(err))
	case errors.Is(err, service.ErrForbidden):
		s.respondError(w, http.StatusForbidden, service.ErrForbidden.Error())
	case errors.Is(err, service.ErrInvalidItem),
		errors.Is(err, service.ErrInvalidProfile),
		errors.Is(err, draft.ErrURLRequired),
		errors.Is(err, media.ErrNotImage),
		errors.Is(err, media.ErrEmpty):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, media.ErrTooLarge):
		s.respondError(w, http.StatusRequestEntityTooLarge, media.ErrTooLarge.Error())
	case errors.Is(err, draft.ErrAutofillInFlight):
		s.respondError(w, http.StatusConflict, draft.ErrAutofillInFlight.Error())
	case errors.Is(err, service.ErrUploadsDisabled):
		s.respondError(w, http.StatusServiceUnavailable, service.ErrUploadsDisabled.Error())
	default:
		s.logger.WithError(err).Errorf("failed to %s", what)
		s.respondError(w, http.StatusInternalServerError, "failed to "+what)
	}
}

// rootMessage returns the innermost error text, which for the not-found
// sentinels is the user-facing message.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// recoverer turns a panicking handler into a 500 response.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				s.logger.WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				}).Errorf("Panic in HTTP handler: %v", rvr)
				s.respondError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
