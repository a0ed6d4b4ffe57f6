package draft

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/learoder-max/Wishlist/internal/models"
)

type fakeReleaser struct {
	mu       sync.Mutex
	released []string
}

func (f *fakeReleaser) Release(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, id)
}

func newTestManager(ttl time.Duration) (*Manager, *fakeReleaser) {
	logger, _ := test.NewNullLogger()
	rel := &fakeReleaser{}
	return NewManager(rel, ttl, logger), rel
}

func strPtr(s string) *string { return &s }

func TestOpenFromItemCopiesFields(t *testing.T) {
	m, _ := newTestManager(0)
	price := 12.5
	item := &models.WishlistItem{ID: "i1", UserID: "u1", Title: "Lamp", Price: &price, Currency: "€", URL: "https://x", IsPrivate: true}

	d := m.Open("u1", item)
	assert.Equal(t, "i1", d.EditingItemID)
	assert.Equal(t, "Lamp", d.Fields.Title)
	assert.True(t, d.Fields.IsPrivate)
	require.NotNil(t, d.Fields.Price)

	*d.Fields.Price = 99
	again, err := m.Get(d.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 12.5, *again.Fields.Price)
}

func TestDraftsAreScopedToViewer(t *testing.T) {
	m, _ := newTestManager(0)
	d := m.Open("u1", nil)

	_, err := m.Get(d.ID, "u2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Close(d.ID, "u2"), ErrNotFound)
	assert.Equal(t, 1, m.Len())
}

func TestAutofillLifecycle(t *testing.T) {
	m, _ := newTestManager(0)
	d := m.Open("u1", nil)

	_, _, err := m.BeginAutofill(d.ID, "u1")
	assert.ErrorIs(t, err, ErrURLRequired)

	_, err = m.Update(d.ID, "u1", FieldsPatch{URL: strPtr("https://shop.example.com/lamp-vintage-49.99")})
	require.NoError(t, err)

	url, gen, err := m.BeginAutofill(d.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/lamp-vintage-49.99", url)

	cur, _ := m.Get(d.ID, "u1")
	assert.Equal(t, Pending, cur.State)
	assert.True(t, cur.AutofillInFlight())

	_, _, err = m.BeginAutofill(d.ID, "u1")
	assert.ErrorIs(t, err, ErrAutofillInFlight)

	// Other edits stay possible while the request is outstanding.
	_, err = m.Update(d.ID, "u1", FieldsPatch{Description: strPtr("warm light")})
	require.NoError(t, err)

	price := 49.99
	done, ok := m.CompleteAutofill(d.ID, gen, &models.ParsedProduct{Title: "Vintage Lamp", Price: &price, Category: "Home"}, nil)
	require.True(t, ok)
	assert.Equal(t, Done, done.State)
	assert.Equal(t, "Vintage Lamp", done.Fields.Title)
	assert.Equal(t, 49.99, *done.Fields.Price)
	assert.Equal(t, "warm light", done.Fields.Description)
	assert.Equal(t, "Home", done.Category)
}

func TestAutofillFailureOnlySetsAdvisory(t *testing.T) {
	m, _ := newTestManager(0)
	d := m.Open("u1", nil)
	before, err := m.Update(d.ID, "u1", FieldsPatch{URL: strPtr("https://shop.example.com/lamp-vintage-49.99"), Title: strPtr("My lamp")})
	require.NoError(t, err)

	_, gen, err := m.BeginAutofill(d.ID, "u1")
	require.NoError(t, err)

	after, ok := m.CompleteAutofill(d.ID, gen, nil, errors.New("malformed"))
	require.True(t, ok)
	assert.Equal(t, Failed, after.State)
	assert.Equal(t, AdvisoryNothingExtracted, after.Advisory)
	assert.Equal(t, before.Fields, after.Fields)

	// A failed request does not block the next one.
	_, _, err = m.BeginAutofill(d.ID, "u1")
	assert.NoError(t, err)
}

func TestLateAutofillResultIsDiscarded(t *testing.T) {
	m, rel := newTestManager(0)
	d := m.Open("u1", nil)
	_, _ = m.Update(d.ID, "u1", FieldsPatch{URL: strPtr("https://x")})
	_, gen, err := m.BeginAutofill(d.ID, "u1")
	require.NoError(t, err)

	require.NoError(t, m.Close(d.ID, "u1"))

	_, ok := m.CompleteAutofill(d.ID, gen, &models.ParsedProduct{Title: "late"}, nil)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, rel.released)
}

func TestStaleGenerationIsDiscarded(t *testing.T) {
	m, _ := newTestManager(0)
	d := m.Open("u1", nil)
	_, _ = m.Update(d.ID, "u1", FieldsPatch{URL: strPtr("https://x")})

	_, first, _ := m.BeginAutofill(d.ID, "u1")
	_, ok := m.CompleteAutofill(d.ID, first, nil, errors.New("boom"))
	require.True(t, ok)
	_, second, _ := m.BeginAutofill(d.ID, "u1")

	_, ok = m.CompleteAutofill(d.ID, first, &models.ParsedProduct{Title: "stale"}, nil)
	assert.False(t, ok)
	_, ok = m.CompleteAutofill(d.ID, second, &models.ParsedProduct{Title: "fresh"}, nil)
	assert.True(t, ok)
}

func TestImageHandlesReleased(t *testing.T) {
	m, rel := newTestManager(0)
	d := m.Open("u1", nil)

	_, err := m.AttachImage(d.ID, "u1", "h1", "/media/h1")
	require.NoError(t, err)
	cur, err := m.AttachImage(d.ID, "u1", "h2", "/media/h2")
	require.NoError(t, err)
	assert.Equal(t, "/media/h2", cur.Fields.ImageURL)
	assert.Equal(t, "h2", cur.ImageHandle())
	assert.Equal(t, []string{"h1"}, rel.released)

	require.NoError(t, m.Close(d.ID, "u1"))
	assert.Equal(t, []string{"h1", "h2"}, rel.released)
}

func TestTakeKeepsHandle(t *testing.T) {
	m, rel := newTestManager(0)
	d := m.Open("u1", nil)
	_, _ = m.AttachImage(d.ID, "u1", "h1", "/media/h1")

	taken, err := m.Take(d.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "h1", taken.ImageHandle())
	assert.Empty(t, rel.released)
	assert.Equal(t, 0, m.Len())

	m.Restore(taken)
	back, err := m.Get(d.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "h1", back.ImageHandle())
}

func TestUpdateKeepsHandleForUnchangedImage(t *testing.T) {
	m, rel := newTestManager(0)
	d := m.Open("u1", nil)
	_, err := m.AttachImage(d.ID, "u1", "h1", "/media/h1")
	require.NoError(t, err)

	cur, err := m.Update(d.ID, "u1", FieldsPatch{Title: strPtr("Lamp"), ImageURL: strPtr("/media/h1")})
	require.NoError(t, err)
	assert.Equal(t, "h1", cur.ImageHandle())
	assert.Equal(t, "/media/h1", cur.Fields.ImageURL)
	assert.Empty(t, rel.released)

	cur, err = m.Update(d.ID, "u1", FieldsPatch{ImageURL: strPtr("https://picsum.photos/seed/lamp/200")})
	require.NoError(t, err)
	assert.Empty(t, cur.ImageHandle())
	assert.Equal(t, []string{"h1"}, rel.released)
}

func TestRestoreAbandonsPendingAutofill(t *testing.T) {
	m, _ := newTestManager(0)
	d := m.Open("u1", nil)
	_, err := m.Update(d.ID, "u1", FieldsPatch{URL: strPtr("https://shop.example/lamp")})
	require.NoError(t, err)

	_, gen, err := m.BeginAutofill(d.ID, "u1")
	require.NoError(t, err)

	taken, err := m.Take(d.ID, "u1")
	require.NoError(t, err)
	_, ok := m.CompleteAutofill(d.ID, gen, &models.ParsedProduct{Title: "Lamp"}, nil)
	assert.False(t, ok)

	m.Restore(taken)
	back, err := m.Get(d.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, Idle, back.State)

	_, ok = m.CompleteAutofill(d.ID, gen, &models.ParsedProduct{Title: "Lamp"}, nil)
	assert.False(t, ok)

	_, next, err := m.BeginAutofill(d.ID, "u1")
	require.NoError(t, err)
	assert.Greater(t, next, gen)
}

func TestSweepDiscardsIdleDrafts(t *testing.T) {
	m, rel := newTestManager(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	old := m.Open("u1", nil)
	_, _ = m.AttachImage(old.ID, "u1", "h-old", "/media/h-old")

	now = now.Add(2 * time.Minute)
	fresh := m.Open("u1", nil)

	assert.Equal(t, 1, m.Sweep())
	_, err := m.Get(old.ID, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(fresh.ID, "u1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"h-old"}, rel.released)
}

func TestStartSweeperStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, _ := newTestManager(time.Millisecond)
	m.Open("u1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.StartSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestDraftConversions(t *testing.T) {
	price := 5.0
	d := Draft{Fields: Fields{Title: "t", Price: &price, URL: "u", IsPrivate: true}}

	in := d.ToItemDraft()
	require.NotNil(t, in.IsPrivate)
	assert.True(t, *in.IsPrivate)
	assert.Equal(t, 5.0, *in.Price)

	p := d.ToItemPatch()
	assert.False(t, p.ClearPrice)
	assert.Equal(t, "t", *p.Title)

	d.Fields.Price = nil
	assert.True(t, d.ToItemPatch().ClearPrice)
}

func TestInferenceStateText(t *testing.T) {
	b, err := Pending.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "pending", string(b))
	assert.Equal(t, "unknown(9)", InferenceState(9).String())
}
