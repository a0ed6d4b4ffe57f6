// Package media holds uploaded images in memory and hands out ephemeral
// references usable as image sources for the lifetime of the process.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// RefPrefix is the path under which handles are served.
const RefPrefix = "/media/"

var (
	// ErrTooLarge is returned when an upload exceeds the store limit.
	ErrTooLarge = errors.New("upload exceeds size limit")
	// ErrNotImage is returned when the upload is not an image.
	ErrNotImage = errors.New("upload is not an image")
	// ErrEmpty is returned for zero-byte uploads.
	ErrEmpty = errors.New("upload is empty")
)

// Handle identifies one stored upload.
type Handle struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Owner       string `json:"-"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

type blob struct {
	owner       string
	data        []byte
	contentType string
}

// Store keeps uploads keyed by handle ID. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	blobs    map[string]blob
	maxBytes int64
	onChange func(n int)
}

// NewStore creates a store rejecting uploads larger than maxBytes.
func NewStore(maxBytes int64) *Store {
	return &Store{
		blobs:    make(map[string]blob),
		maxBytes: maxBytes,
	}
}

// OnChange registers a callback invoked with the handle count after every
// create or release.
func (s *Store) OnChange(fn func(n int)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Create reads r fully and stores it as a new handle owned by owner.
func (s *Store) Create(owner string, r io.Reader) (Handle, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Handle{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return Handle{}, ErrEmpty
	}
	if int64(len(data)) > s.maxBytes {
		return Handle{}, ErrTooLarge
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Handle{}, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}

	h := Handle{
		ID:          uuid.NewString(),
		Owner:       owner,
		ContentType: mt.String(),
		Size:        len(data),
	}
	h.Ref = RefPrefix + h.ID

	s.mu.Lock()
	s.blobs[h.ID] = blob{owner: owner, data: data, contentType: h.ContentType}
	n, fn := len(s.blobs), s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(n)
	}
	return h, nil
}

// Open returns a reader over the stored bytes and their content type.
func (s *Store) Open(id string) (io.ReadSeeker, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[id]
	if !ok {
		return nil, "", false
	}
	return bytes.NewReader(b.data), b.contentType, true
}

// Release drops the handle. Releasing an unknown handle is a no-op.
func (s *Store) Release(id string) {
	s.mu.Lock()
	_, ok := s.blobs[id]
	delete(s.blobs, id)
	n, fn := len(s.blobs), s.onChange
	s.mu.Unlock()

	if ok && fn != nil {
		fn(n)
	}
}

// ReleaseRef releases the handle behind ref if ref points into this store and
// the handle belongs to owner. External image URLs and handles uploaded by
// someone else are left alone.
func (s *Store) ReleaseRef(owner, ref string) {
	id, ok := IDFromRef(ref)
	if !ok {
		return
	}

	s.mu.Lock()
	b, ok := s.blobs[id]
	if !ok || b.owner != owner {
		s.mu.Unlock()
		return
	}
	delete(s.blobs, id)
	n, fn := len(s.blobs), s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(n)
	}
}

// Len returns the number of live handles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// IDFromRef extracts the handle ID from a reference produced by Create.
func IDFromRef(ref string) (string, bool) {
	if !strings.HasPrefix(ref, RefPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(ref, RefPrefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
