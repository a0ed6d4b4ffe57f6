package draft

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/learoder-max/Wishlist/internal/models"
)

// Releaser frees local resource handles owned by discarded drafts.
type Releaser interface {
	Release(id string)
}

// Manager owns every open draft. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	drafts   map[string]*Draft
	releaser Releaser
	ttl      time.Duration
	logger   *logrus.Logger
	now      func() time.Time
	onChange func(n int)
}

// NewManager creates a manager. Drafts untouched for longer than ttl are
// discarded by Sweep; a zero ttl disables sweeping.
func NewManager(releaser Releaser, ttl time.Duration, logger *logrus.Logger) *Manager {
	return &Manager{
		drafts:   make(map[string]*Draft),
		releaser: releaser,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// OnChange registers a callback invoked with the open draft count after it
// changes.
func (m *Manager) OnChange(fn func(n int)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Open starts a new draft for viewerID. When from is non-nil the draft edits
// that item and starts with its fields.
func (m *Manager) Open(viewerID string, from *models.WishlistItem) Draft {
	d := &Draft{
		ID:        uuid.NewString(),
		ViewerID:  viewerID,
		UpdatedAt: m.now(),
	}
	if from != nil {
		d.EditingItemID = from.ID
		d.Fields = fieldsFromItem(from)
	}

	m.mu.Lock()
	m.drafts[d.ID] = d
	snap := d.snapshot()
	m.changedLocked()
	m.mu.Unlock()

	return snap
}

// Get returns the draft if it is open and belongs to viewerID.
func (m *Manager) Get(id, viewerID string) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookupLocked(id, viewerID)
	if err != nil {
		return Draft{}, err
	}
	return d.snapshot(), nil
}

// Update applies a field edit. Edits are accepted while auto-fill is pending.
func (m *Manager) Update(id, viewerID string, patch FieldsPatch) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookupLocked(id, viewerID)
	if err != nil {
		return Draft{}, err
	}
	if patch.ImageURL != nil && *patch.ImageURL != d.Fields.ImageURL {
		m.releaseLocked(d)
	}
	d.Fields.apply(patch)
	d.UpdatedAt = m.now()
	return d.snapshot(), nil
}

// AttachImage makes handleID, served at ref, the draft's image. Any handle
// the draft owned before is released.
func (m *Manager) AttachImage(id, viewerID, handleID, ref string) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookupLocked(id, viewerID)
	if err != nil {
		return Draft{}, err
	}
	m.releaseLocked(d)
	d.imageHandle = handleID
	d.Fields.ImageURL = ref
	d.UpdatedAt = m.now()
	return d.snapshot(), nil
}

// BeginAutofill marks the draft Pending and returns the URL to analyze with
// a generation token that CompleteAutofill must echo back.
func (m *Manager) BeginAutofill(id, viewerID string) (string, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookupLocked(id, viewerID)
	if err != nil {
		return "", 0, err
	}
	if d.State == Pending {
		return "", 0, ErrAutofillInFlight
	}
	if d.Fields.URL == "" {
		d.Advisory = ErrURLRequired.Error()
		return "", 0, ErrURLRequired
	}

	d.generation++
	d.State = Pending
	d.Advisory = ""
	d.UpdatedAt = m.now()
	return d.Fields.URL, d.generation, nil
}

// CompleteAutofill records the outcome of the request started by
// BeginAutofill. It returns false and changes nothing when the draft has been
// closed or the generation is stale.
func (m *Manager) CompleteAutofill(id string, generation uint64, product *models.ParsedProduct, inferErr error) (Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.drafts[id]
	if !ok || d.generation != generation || d.State != Pending {
		return Draft{}, false
	}

	if inferErr != nil || product == nil {
		d.State = Failed
		d.Advisory = AdvisoryNothingExtracted
	} else {
		d.State = Done
		d.Advisory = ""
		d.Category = product.Category
		d.Fields.merge(product)
	}
	d.UpdatedAt = m.now()
	return d.snapshot(), true
}

// Close discards the draft and releases its image handle.
func (m *Manager) Close(id, viewerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookupLocked(id, viewerID)
	if err != nil {
		return err
	}
	m.releaseLocked(d)
	delete(m.drafts, id)
	m.changedLocked()
	return nil
}

// Take removes the draft for committing. Its image handle is handed over to
// the caller and not released.
func (m *Manager) Take(id, viewerID string) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookupLocked(id, viewerID)
	if err != nil {
		return Draft{}, err
	}
	delete(m.drafts, id)
	m.changedLocked()
	return d.snapshot(), nil
}

// Restore puts back a draft removed by Take whose commit failed. An auto-fill
// that was pending when the draft was taken is abandoned, so the draft comes
// back Idle and a later BeginAutofill starts a fresh request.
func (m *Manager) Restore(d Draft) {
	m.mu.Lock()
	defer m.mu.Unlock()

	restored := d.snapshot()
	if restored.State == Pending {
		restored.State = Idle
		restored.generation++
	}
	restored.UpdatedAt = m.now()
	m.drafts[d.ID] = &restored
	m.changedLocked()
}

// Len returns the number of open drafts.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drafts)
}

// Sweep discards drafts idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.ttl)
	removed := 0
	for id, d := range m.drafts {
		if d.UpdatedAt.Before(cutoff) {
			m.releaseLocked(d)
			delete(m.drafts, id)
			removed++
		}
	}
	if removed > 0 {
		m.changedLocked()
		m.logger.WithField("count", removed).Info("Discarded abandoned drafts")
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled. It blocks,
// so it should be launched in a separate goroutine.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("Draft sweeper started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Draft sweeper stopped")
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) lookupLocked(id, viewerID string) (*Draft, error) {
	d, ok := m.drafts[id]
	if !ok || d.ViewerID != viewerID {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *Manager) releaseLocked(d *Draft) {
	if d.imageHandle == "" {
		return
	}
	if m.releaser != nil {
		m.releaser.Release(d.imageHandle)
	}
	d.imageHandle = ""
}

func (m *Manager) changedLocked() {
	if m.onChange != nil {
		m.onChange(len(m.drafts))
	}
}
