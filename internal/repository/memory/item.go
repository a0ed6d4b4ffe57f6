package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/learoder-max/Wishlist/internal/models"
	"github.com/learoder-max/Wishlist/internal/repository"
)

type itemRepository struct {
	db *DB
}

// NewItemRepository creates a new wishlist item repository
func NewItemRepository(db *DB) repository.ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, item *models.WishlistItem) (*models.WishlistItem, error) {
	if item.ID == "" {
		return nil, errors.New("failed to create wish item: id cannot be empty")
	}
	if item.UserID == "" {
		return nil, errors.New("failed to create wish item: owner cannot be empty")
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.db.itemIndex(item.ID) >= 0 {
		return nil, fmt.Errorf("failed to create wish item %s: %w", item.ID, repository.ErrDuplicate)
	}

	r.db.seq++
	stored := item.Clone()
	stored.Seq = r.db.seq
	r.db.items = append([]*models.WishlistItem{stored}, r.db.items...)

	return stored.Clone(), nil
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (*models.WishlistItem, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	idx := r.db.itemIndex(id)
	if idx < 0 {
		return nil, nil
	}
	return r.db.items[idx].Clone(), nil
}

func (r *itemRepository) List(ctx context.Context) ([]*models.WishlistItem, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	items := make([]*models.WishlistItem, len(r.db.items))
	for i, item := range r.db.items {
		items[i] = item.Clone()
	}
	return items, nil
}

func (r *itemRepository) ListByUser(ctx context.Context, userID string) ([]*models.WishlistItem, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var items []*models.WishlistItem
	for _, item := range r.db.items {
		if item.UserID == userID {
			items = append(items, item.Clone())
		}
	}
	return items, nil
}

// Update replaces the mutable fields of the stored item. Ownership, creation
// time and insertion sequence are taken from the stored record, never from
// the argument.
func (r *itemRepository) Update(ctx context.Context, item *models.WishlistItem) (*models.WishlistItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	idx := r.db.itemIndex(item.ID)
	if idx < 0 {
		return nil, fmt.Errorf("wish item %s: %w", item.ID, repository.ErrNotFound)
	}

	existing := r.db.items[idx]
	updated := item.Clone()
	updated.UserID = existing.UserID
	updated.CreatedAt = existing.CreatedAt
	updated.Seq = existing.Seq
	r.db.items[idx] = updated

	return updated.Clone(), nil
}

func (r *itemRepository) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	idx := r.db.itemIndex(id)
	if idx < 0 {
		return fmt.Errorf("wish item %s: %w", id, repository.ErrNotFound)
	}
	r.db.items = append(r.db.items[:idx], r.db.items[idx+1:]...)

	return nil
}
