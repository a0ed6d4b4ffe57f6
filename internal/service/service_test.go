package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learoder-max/Wishlist/internal/draft"
	"github.com/learoder-max/Wishlist/internal/inference"
	"github.com/learoder-max/Wishlist/internal/media"
	"github.com/learoder-max/Wishlist/internal/metrics"
	"github.com/learoder-max/Wishlist/internal/models"
	"github.com/learoder-max/Wishlist/internal/repository/memory"
	"github.com/learoder-max/Wishlist/internal/seed"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type fakeAnalyzer struct {
	mu      sync.Mutex
	product *models.ParsedProduct
	err     error
	panic   bool
	block   chan struct{}
	urls    []string
}

func (f *fakeAnalyzer) AnalyzeURL(ctx context.Context, url string) (*models.ParsedProduct, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.panic {
		panic("boom")
	}
	return f.product, f.err
}

type fixture struct {
	svc      *Service
	analyzer *fakeAnalyzer
	media    *media.Store
	metrics  *metrics.Metrics
	hook     *test.Hook
	ids      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	logger, hook := test.NewNullLogger()
	db := memory.NewDB()
	users, items := memory.NewUserRepository(db), memory.NewItemRepository(db)
	require.NoError(t, seed.Default().Apply(ctx, users, items, time.Now()))

	f := &fixture{
		analyzer: &fakeAnalyzer{},
		media:    media.NewStore(1 << 20),
		metrics:  metrics.New(),
		hook:     hook,
	}
	drafts := draft.NewManager(f.media, time.Hour, logger)
	f.svc = New(logger, users, items, f.analyzer, f.media, drafts, f.metrics)
	f.svc.newID = func() string {
		f.ids++
		return fmt.Sprintf("new-%d", f.ids)
	}
	return f
}

func feedIDs(entries []FeedEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Item.ID
	}
	return ids
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entries, err := f.svc.Feed(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"i3", "i1", "i4"}, feedIDs(entries))
	assert.Equal(t, "Sarah Chen", entries[0].Owner.Name)

	entries, err = f.svc.Feed(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"i3", "i2", "i1", "i4"}, feedIDs(entries))

	_, err = f.svc.Feed(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	own, err := f.svc.Profile(ctx, "u1", "u1")
	require.NoError(t, err)
	assert.True(t, own.IsViewer)
	require.Len(t, own.Public, 1)
	require.Len(t, own.Private, 1)
	assert.Equal(t, "i2", own.Private[0].ID)

	other, err := f.svc.Profile(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, other.IsViewer)
	assert.Len(t, other.Public, 1)
	assert.Empty(t, other.Private)

	_, err = f.svc.Profile(ctx, "ghost", "u1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFriends(t *testing.T) {
	f := newFixture(t)

	friends, err := f.svc.Friends(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, friends, 3)
	counts := map[string]int{}
	for _, fr := range friends {
		counts[fr.User.ID] = fr.PublicItems
	}
	assert.Equal(t, map[string]int{"u2": 1, "u3": 1, "u4": 0}, counts)
}

func TestAddItemDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.AddItem(ctx, "u2", models.ItemDraft{Title: "   "})
	require.NoError(t, err)
	assert.Equal(t, "new-1", item.ID)
	assert.Equal(t, "u2", item.UserID)
	assert.Equal(t, models.DefaultTitle, item.Title)
	assert.Equal(t, "", item.URL)
	assert.False(t, item.IsPrivate)
	assert.Nil(t, item.Price)

	entries, err := f.svc.Feed(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new-1", entries[0].Item.ID)

	expected := `
# HELP wishlist_item_mutations_total Wish item mutations by operation and result.
# TYPE wishlist_item_mutations_total counter
wishlist_item_mutations_total{op="add",result="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(f.metrics.Registry, strings.NewReader(expected), "wishlist_item_mutations_total"))
}

func TestAddItemPriceAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	price := 12.5
	item, err := f.svc.AddItem(ctx, "u1", models.ItemDraft{Title: "Mug", Price: &price, IsPrivate: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCurrency, item.Currency)
	assert.True(t, item.IsPrivate)
	price = 99
	assert.Equal(t, 12.5, *item.Price)

	neg := -1.0
	_, err = f.svc.AddItem(ctx, "u1", models.ItemDraft{Title: "Bad", Price: &neg})
	assert.ErrorIs(t, err, ErrInvalidItem)

	_, err = f.svc.AddItem(ctx, "ghost", models.ItemDraft{Title: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.svc.Profile(ctx, "u1", "u1")
	require.NoError(t, err)
	orig := before.Public[0]

	updated, err := f.svc.UpdateItem(ctx, "u1", "i1", models.ItemPatch{Title: strPtr("New"), IsPrivate: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.True(t, updated.IsPrivate)
	assert.Equal(t, orig.ID, updated.ID)
	assert.Equal(t, orig.UserID, updated.UserID)
	assert.Equal(t, orig.CreatedAt, updated.CreatedAt)
	assert.Equal(t, orig.URL, updated.URL)

	entries, err := f.svc.Feed(ctx, "u2")
	require.NoError(t, err)
	assert.NotContains(t, feedIDs(entries), "i1")
}

func TestUpdateItemErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateItem(ctx, "u1", "nope", models.ItemPatch{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = f.svc.UpdateItem(ctx, "u2", "i1", models.ItemPatch{Title: strPtr("hijack")})
	assert.ErrorIs(t, err, ErrForbidden)

	p, err := f.svc.Profile(ctx, "u1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Sony WH-1000XM5 Headphones", p.Public[0].Title)
}

func TestDeleteItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.DeleteItem(ctx, "u1", "i1", Answer(false))
	require.NoError(t, err)
	assert.Equal(t, DeleteDeclined, out)

	var prompts []string
	confirm := ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		prompts = append(prompts, prompt)
		return true, nil
	})
	out, err = f.svc.DeleteItem(ctx, "u1", "i1", confirm)
	require.NoError(t, err)
	assert.Equal(t, DeleteRemoved, out)
	assert.Equal(t, []string{DeletePrompt}, prompts)

	out, err = f.svc.DeleteItem(ctx, "u1", "i1", confirm)
	require.NoError(t, err)
	assert.Equal(t, DeleteNotFound, out)

	entries, err := f.svc.Feed(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"i3", "i2", "i4"}, feedIDs(entries))

	_, err = f.svc.DeleteItem(ctx, "u2", "i2", Answer(true))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.DeleteItem(ctx, "u1", "i2", ConfirmFunc(func(context.Context, string) (bool, error) {
		return false, errors.New("closed")
	}))
	assert.Error(t, err)
}

func TestDeleteReleasesUploadedImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.OpenDraft(ctx, "u1", "")
	require.NoError(t, err)
	_, err = f.svc.AttachDraftImage("u1", d.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	item, err := f.svc.CommitDraft(ctx, "u1", d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.media.Len())

	_, err = f.svc.DeleteItem(ctx, "u1", item.ID, Answer(true))
	require.NoError(t, err)
	assert.Equal(t, 0, f.media.Len())
}

func TestForeignUploadsSurviveItemChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u2, err := f.svc.SetAvatar(ctx, "u2", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	avatarID, ok := media.IDFromRef(u2.Avatar)
	require.True(t, ok)

	borrowed, err := f.svc.AddItem(ctx, "u1", models.ItemDraft{Title: "Borrowed", ImageURL: u2.Avatar})
	require.NoError(t, err)
	outcome, err := f.svc.DeleteItem(ctx, "u1", borrowed.ID, Answer(true))
	require.NoError(t, err)
	assert.Equal(t, DeleteRemoved, outcome)

	_, err = f.svc.UpdateItem(ctx, "u1", "i1", models.ItemPatch{ImageURL: &u2.Avatar})
	require.NoError(t, err)
	_, err = f.svc.UpdateItem(ctx, "u1", "i1", models.ItemPatch{ImageURL: strPtr("")})
	require.NoError(t, err)

	_, _, ok = f.svc.OpenMedia(avatarID)
	assert.True(t, ok)
	assert.Equal(t, 1, f.media.Len())
}

func TestResubmittedImageSurvivesCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.OpenDraft(ctx, "u1", "")
	require.NoError(t, err)
	d, err = f.svc.AttachDraftImage("u1", d.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	ref := d.Fields.ImageURL

	_, err = f.svc.EditDraft("u1", d.ID, draft.FieldsPatch{Title: strPtr("Lamp"), ImageURL: &ref})
	require.NoError(t, err)
	item, err := f.svc.CommitDraft(ctx, "u1", d.ID)
	require.NoError(t, err)
	assert.Equal(t, ref, item.ImageURL)

	id, ok := media.IDFromRef(item.ImageURL)
	require.True(t, ok)
	_, _, ok = f.svc.OpenMedia(id)
	assert.True(t, ok)
}

func TestUpdateUserProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.UpdateUserProfile(ctx, "u1", models.UserPatch{Name: strPtr(" Alex R. "), Bio: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Alex R.", u.Name)
	assert.Equal(t, "", u.Bio)

	_, err = f.svc.UpdateUserProfile(ctx, "u1", models.UserPatch{Name: strPtr("  ")})
	assert.ErrorIs(t, err, ErrInvalidProfile)

	_, err = f.svc.UpdateUserProfile(ctx, "ghost", models.UserPatch{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetAvatarReplacesUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.SetAvatar(ctx, "u1", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Contains(t, u.Avatar, media.RefPrefix)

	u2, err := f.svc.SetAvatar(ctx, "u1", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.NotEqual(t, u.Avatar, u2.Avatar)
	assert.Equal(t, 1, f.media.Len())

	_, err = f.svc.SetAvatar(ctx, "u1", bytes.NewReader([]byte("plain text")))
	assert.ErrorIs(t, err, media.ErrNotImage)
}

func TestAutofillMergesProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	price := 49.0
	f.analyzer.product = &models.ParsedProduct{Title: "Lamp", Price: &price, Currency: "€", Category: "home"}

	d, err := f.svc.OpenDraft(ctx, "u1", "")
	require.NoError(t, err)
	_, err = f.svc.EditDraft("u1", d.ID, draft.FieldsPatch{URL: strPtr("https://shop.example.com/lamp")})
	require.NoError(t, err)

	d, err = f.svc.Autofill(ctx, "u1", d.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.Done, d.State)
	assert.Equal(t, "Lamp", d.Fields.Title)
	assert.Equal(t, "€", d.Fields.Currency)
	assert.Equal(t, []string{"https://shop.example.com/lamp"}, f.analyzer.urls)

	item, err := f.svc.CommitDraft(ctx, "u1", d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", item.Title)
	assert.Equal(t, 49.0, *item.Price)

	_, err = f.svc.Draft("u1", d.ID)
	assert.ErrorIs(t, err, draft.ErrNotFound)
}

func TestAutofillFailureKeepsFields(t *testing.T) {
	for name, a := range map[string]*fakeAnalyzer{
		"error": {err: fmt.Errorf("bad json: %w", inference.ErrNothingExtracted)},
		"panic": {panic: true},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.svc.analyzer = a
			ctx := context.Background()

			d, err := f.svc.OpenDraft(ctx, "u1", "")
			require.NoError(t, err)
			_, err = f.svc.EditDraft("u1", d.ID, draft.FieldsPatch{Title: strPtr("Mine"), URL: strPtr("https://x.example.com")})
			require.NoError(t, err)

			d, err = f.svc.Autofill(ctx, "u1", d.ID)
			require.NoError(t, err)
			assert.Equal(t, draft.Failed, d.State)
			assert.Equal(t, draft.AdvisoryNothingExtracted, d.Advisory)
			assert.Equal(t, "Mine", d.Fields.Title)
		})
	}
}

func TestAutofillRequiresURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.OpenDraft(ctx, "u1", "")
	require.NoError(t, err)
	_, err = f.svc.Autofill(ctx, "u1", d.ID)
	assert.ErrorIs(t, err, draft.ErrURLRequired)
	assert.Empty(t, f.analyzer.urls)
}

func TestAutofillInFlightAndClosedDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.analyzer.block = make(chan struct{})
	f.analyzer.product = &models.ParsedProduct{Title: "Late"}

	d, err := f.svc.OpenDraft(ctx, "u1", "")
	require.NoError(t, err)
	_, err = f.svc.EditDraft("u1", d.ID, draft.FieldsPatch{URL: strPtr("https://x.example.com")})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Autofill(ctx, "u1", d.ID)
		done <- err
	}()

	require.Eventually(t, func() bool {
		cur, err := f.svc.Draft("u1", d.ID)
		return err == nil && cur.AutofillInFlight()
	}, time.Second, time.Millisecond)

	_, err = f.svc.Autofill(ctx, "u1", d.ID)
	assert.ErrorIs(t, err, draft.ErrAutofillInFlight)

	require.NoError(t, f.svc.DiscardDraft("u1", d.ID))
	close(f.analyzer.block)
	assert.ErrorIs(t, <-done, draft.ErrNotFound)
}

func TestOpenDraftForEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenDraft(ctx, "u2", "i1")
	assert.ErrorIs(t, err, ErrForbidden)

	d, err := f.svc.OpenDraft(ctx, "u1", "i1")
	require.NoError(t, err)
	assert.Equal(t, "i1", d.EditingItemID)
	assert.Equal(t, "Sony WH-1000XM5 Headphones", d.Fields.Title)

	_, err = f.svc.EditDraft("u1", d.ID, draft.FieldsPatch{Title: strPtr("XM6")})
	require.NoError(t, err)
	item, err := f.svc.CommitDraft(ctx, "u1", d.ID)
	require.NoError(t, err)
	assert.Equal(t, "i1", item.ID)
	assert.Equal(t, "XM6", item.Title)
	assert.Equal(t, 348.0, *item.Price)
}

func TestCommitFailureKeepsDraftOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.OpenDraft(ctx, "u1", "")
	require.NoError(t, err)
	neg := -3.0
	_, err = f.svc.EditDraft("u1", d.ID, draft.FieldsPatch{Price: &neg})
	require.NoError(t, err)

	_, err = f.svc.CommitDraft(ctx, "u1", d.ID)
	assert.ErrorIs(t, err, ErrInvalidItem)

	_, err = f.svc.Draft("u1", d.ID)
	assert.NoError(t, err)
}

func TestDiscardDraftReleasesImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.OpenDraft(ctx, "u1", "")
	require.NoError(t, err)
	_, err = f.svc.AttachDraftImage("u1", d.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, 1, f.media.Len())

	require.NoError(t, f.svc.DiscardDraft("u1", d.ID))
	assert.Equal(t, 0, f.media.Len())

	_, err = f.svc.AttachDraftImage("u1", d.ID, bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, draft.ErrNotFound)
	assert.Equal(t, 0, f.media.Len())
}

func TestNewWithoutMedia(t *testing.T) {
	logger, _ := test.NewNullLogger()
	db := memory.NewDB()
	svc := New(logger, memory.NewUserRepository(db), memory.NewItemRepository(db), nil, nil, nil, nil)

	_, err := svc.SetAvatar(context.Background(), "u1", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrUploadsDisabled)
}
