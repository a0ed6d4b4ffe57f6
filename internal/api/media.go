package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const uploadField = "file"

// uploadedFile returns the multipart "file" part of the request. Requests
// that are not multipart are read as a raw image body.
func (s *Server) uploadedFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, bool) {
	// Leave room for multipart framing on top of the image itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+64<<10)

	file, _, err := r.FormFile(uploadField)
	switch {
	case err == nil:
		return file, true
	case errors.Is(err, http.ErrNotMultipart):
		return r.Body, true
	case errors.Is(err, http.ErrMissingFile):
		s.respondError(w, http.StatusBadRequest, "form field \"file\" is required")
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "upload is too large")
			return nil, false
		}
		s.respondError(w, http.StatusBadRequest, "invalid upload")
	}
	return nil, false
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	content, contentType, ok := s.svc.OpenMedia(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, "", time.Time{}, content)
}
