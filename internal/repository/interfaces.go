package repository

import (
	"context"
	"errors"

	"github.com/learoder-max/Wishlist/internal/models"
)

// ErrNotFound is returned by mutations that reference an absent record.
// Lookups return (nil, nil) instead.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when creating a record whose ID is already taken.
var ErrDuplicate = errors.New("record already exists")

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
}

// ItemRepository defines the interface for wishlist item operations.
//
// Implementations return raw records with no visibility filtering applied;
// callers must go through the service layer to obtain viewer-scoped views.
type ItemRepository interface {
	// Create prepends the item to the collection and assigns its insertion
	// sequence. The ID and CreatedAt must already be set.
	Create(ctx context.Context, item *models.WishlistItem) (*models.WishlistItem, error)
	GetByID(ctx context.Context, id string) (*models.WishlistItem, error)
	// List returns every item in collection order (newest insertion first).
	List(ctx context.Context) ([]*models.WishlistItem, error)
	ListByUser(ctx context.Context, userID string) ([]*models.WishlistItem, error)
	Update(ctx context.Context, item *models.WishlistItem) (*models.WishlistItem, error)
	Delete(ctx context.Context, id string) error
}
