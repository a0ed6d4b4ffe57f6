package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/learoder-max/Wishlist/internal/models"
	"github.com/learoder-max/Wishlist/internal/repository"
)

type userRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		return nil, errors.New("failed to create user: id cannot be empty")
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.users[user.ID]; exists {
		return nil, fmt.Errorf("failed to create user %s: %w", user.ID, repository.ErrDuplicate)
	}
	r.db.users[user.ID] = user.Clone()
	r.db.userOrder = append(r.db.userOrder, user.ID)

	return user.Clone(), nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	user, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	return user.Clone(), nil
}

func (r *userRepository) List(ctx context.Context) ([]*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	users := make([]*models.User, 0, len(r.db.userOrder))
	for _, id := range r.db.userOrder {
		users = append(users, r.db.users[id].Clone())
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[user.ID]; !ok {
		return nil, fmt.Errorf("user %s: %w", user.ID, repository.ErrNotFound)
	}
	r.db.users[user.ID] = user.Clone()

	return user.Clone(), nil
}
