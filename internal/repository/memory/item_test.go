package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learoder-max/Wishlist/internal/models"
	"github.com/learoder-max/Wishlist/internal/repository"
)

func newItem(id, owner string) *models.WishlistItem {
	price := 10.0
	return &models.WishlistItem{
		ID:        id,
		UserID:    owner,
		Title:     "Item " + id,
		Price:     &price,
		Currency:  "$",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func listIDs(items []*models.WishlistItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func TestItemCreateRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(NewDB())

	_, err := repo.Create(ctx, newItem("", "u1"))
	assert.Error(t, err)
	_, err = repo.Create(ctx, newItem("i1", ""))
	assert.Error(t, err)

	_, err = repo.Create(ctx, newItem("i1", "u1"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newItem("i1", "u2"))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestItemCreatePrependsAndAssignsSeq(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(NewDB())

	first, err := repo.Create(ctx, newItem("i1", "u1"))
	require.NoError(t, err)
	second, err := repo.Create(ctx, newItem("i2", "u2"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newItem("i3", "u1"))
	require.NoError(t, err)

	assert.Less(t, first.Seq, second.Seq)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"i3", "i2", "i1"}, listIDs(all))

	mine, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"i3", "i1"}, listIDs(mine))

	none, err := repo.ListByUser(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestItemsAreClonedAtBoundary(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(NewDB())

	in := newItem("i1", "u1")
	created, err := repo.Create(ctx, in)
	require.NoError(t, err)

	in.Title = "changed input"
	*in.Price = 1
	created.Title = "changed result"
	*created.Price = 2

	got, err := repo.GetByID(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "Item i1", got.Title)
	assert.Equal(t, 10.0, *got.Price)

	got.Title = "changed lookup"
	*got.Price = 3
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Item i1", all[0].Title)
	assert.Equal(t, 10.0, *all[0].Price)
}

func TestItemGetMissingIsNil(t *testing.T) {
	repo := NewItemRepository(NewDB())

	got, err := repo.GetByID(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestItemUpdateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(NewDB())

	created, err := repo.Create(ctx, newItem("i1", "u1"))
	require.NoError(t, err)

	patch := newItem("i1", "u2")
	patch.Title = "Renamed"
	patch.IsPrivate = true
	patch.CreatedAt = time.Now()
	patch.Seq = 99

	updated, err := repo.Update(ctx, patch)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.True(t, updated.IsPrivate)
	assert.Equal(t, "u1", updated.UserID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, created.Seq, updated.Seq)

	got, err := repo.GetByID(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	_, err = repo.Update(ctx, newItem("ghost", "u1"))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestItemDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(NewDB())

	for _, id := range []string{"i1", "i2", "i3"} {
		_, err := repo.Create(ctx, newItem(id, "u1"))
		require.NoError(t, err)
	}

	require.NoError(t, repo.Delete(ctx, "i2"))
	assert.ErrorIs(t, repo.Delete(ctx, "i2"), repository.ErrNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"i3", "i1"}, listIDs(all))
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(NewDB())

	_, err := repo.Create(ctx, &models.User{})
	assert.Error(t, err)

	for _, id := range []string{"u2", "u1"} {
		_, err := repo.Create(ctx, &models.User{ID: id, Name: "User " + id})
		require.NoError(t, err)
	}
	_, err = repo.Create(ctx, &models.User{ID: "u1"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u2", users[0].ID)
	assert.Equal(t, "u1", users[1].ID)

	users[0].Name = "mutated"
	got, err := repo.GetByID(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "User u2", got.Name)

	missing, err := repo.GetByID(ctx, "ghost")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.Update(ctx, &models.User{ID: "ghost"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
