// Package memory implements the repository interfaces on process memory.
// All state is lost when the process exits.
package memory

import (
	"sync"

	"github.com/learoder-max/Wishlist/internal/models"
)

// DB holds the user and item collections shared by the repositories. It is
// safe for concurrent use.
type DB struct {
	mu sync.RWMutex

	users     map[string]*models.User
	userOrder []string

	// items is kept newest insertion first.
	items []*models.WishlistItem
	seq   uint64
}

// NewDB constructs an empty DB.
func NewDB() *DB {
	return &DB{
		users: make(map[string]*models.User),
	}
}

func (db *DB) itemIndex(id string) int {
	for i, item := range db.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
