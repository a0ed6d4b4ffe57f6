// Package seed bootstraps the user directory and the initial wishlist, either
// from the built-in demo data or from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/learoder-max/Wishlist/internal/models"
	"github.com/learoder-max/Wishlist/internal/repository"
)

var ErrInvalid = errors.New("invalid seed")

// Item is a seeded wish. Age is how long before bootstrap it was created.
type Item struct {
	models.WishlistItem `yaml:",inline"`
	Age                 time.Duration `yaml:"age"`
}

// Data is a complete bootstrap set.
type Data struct {
	Users []models.User `yaml:"users"`
	Items []Item        `yaml:"items"`
}

func price(v float64) *float64 { return &v }

// Default returns the demo data set: four users and four wishes, one of them
// private.
func Default() Data {
	return Data{
		Users: []models.User{
			{ID: "u1", Name: "Alex Rivera", Avatar: "https://picsum.photos/seed/alex/200/200", Bio: "Tech enthusiast & Coffee lover"},
			{ID: "u2", Name: "Sarah Chen", Avatar: "https://picsum.photos/seed/sarah/200/200", Bio: "Minimalist design fan"},
			{ID: "u3", Name: "Jordan Smith", Avatar: "https://picsum.photos/seed/jordan/200/200", Bio: "Outdoor adventurer"},
			{ID: "u4", Name: "Emily Davis", Avatar: "https://picsum.photos/seed/emily/200/200", Bio: "Bookworm & Baker"},
		},
		Items: []Item{
			{
				WishlistItem: models.WishlistItem{
					ID: "i1", UserID: "u1", Title: "Sony WH-1000XM5 Headphones",
					Price: price(348), Currency: "$",
					URL:         "https://electronics.example.com/sony-xm5",
					ImageURL:    "https://picsum.photos/seed/sony/400/400",
					Description: "Noise cancelling is a must for work.",
				},
				Age: 10000 * time.Second,
			},
			{
				WishlistItem: models.WishlistItem{
					ID: "i2", UserID: "u1", Title: "Secret Gift for Mom",
					Price: price(150), Currency: "$",
					URL:       "https://jewelry.example.com/necklace",
					ImageURL:  "https://picsum.photos/seed/jewelry/400/400",
					IsPrivate: true,
				},
				Age: 5000 * time.Second,
			},
			{
				WishlistItem: models.WishlistItem{
					ID: "i3", UserID: "u2", Title: "Aeron Chair",
					Price: price(1200), Currency: "$",
					URL:         "https://furniture.example.com/aeron",
					ImageURL:    "https://picsum.photos/seed/chair/400/400",
					Description: "My back needs this.",
				},
				Age: 2000 * time.Second,
			},
			{
				WishlistItem: models.WishlistItem{
					ID: "i4", UserID: "u3", Title: "Camping Tent 4-Person",
					Price: price(299.99), Currency: "$",
					URL:      "https://outdoors.example.com/tent",
					ImageURL: "https://picsum.photos/seed/tent/400/400",
				},
				Age: 24 * time.Hour,
			},
		},
	}
}

// Load reads and validates a YAML seed file.
func Load(path string) (Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates YAML seed data.
func Parse(b []byte) (Data, error) {
	var d Data
	if err := yaml.Unmarshal(b, &d); err != nil {
		return Data{}, fmt.Errorf("failed to parse seed: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Data{}, err
	}
	return d, nil
}

// Validate checks IDs are present and unique and every item has a known owner.
func (d Data) Validate() error {
	users := make(map[string]bool, len(d.Users))
	for i, u := range d.Users {
		if u.ID == "" {
			return fmt.Errorf("%w: user #%d has no id", ErrInvalid, i+1)
		}
		if users[u.ID] {
			return fmt.Errorf("%w: duplicate user id %q", ErrInvalid, u.ID)
		}
		users[u.ID] = true
	}

	items := make(map[string]bool, len(d.Items))
	for i, it := range d.Items {
		switch {
		case it.ID == "":
			return fmt.Errorf("%w: item #%d has no id", ErrInvalid, i+1)
		case items[it.ID]:
			return fmt.Errorf("%w: duplicate item id %q", ErrInvalid, it.ID)
		case !users[it.UserID]:
			return fmt.Errorf("%w: item %q belongs to unknown user %q", ErrInvalid, it.ID, it.UserID)
		case it.Price != nil && *it.Price < 0:
			return fmt.Errorf("%w: item %q has a negative price", ErrInvalid, it.ID)
		case it.Age < 0:
			return fmt.Errorf("%w: item %q has a negative age", ErrInvalid, it.ID)
		}
		items[it.ID] = true
	}
	return nil
}

// Apply stores the data set. Item creation times are now minus their age;
// items are inserted oldest first so insertion order agrees with age.
func (d Data) Apply(ctx context.Context, users repository.UserRepository, items repository.ItemRepository, now time.Time) error {
	for i := range d.Users {
		u := d.Users[i]
		if _, err := users.Create(ctx, &u); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.ID, err)
		}
	}

	ordered := make([]Item, len(d.Items))
	copy(ordered, d.Items)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Age > ordered[j].Age })

	for _, it := range ordered {
		item := it.WishlistItem.Clone()
		if item.Title == "" {
			item.Title = models.DefaultTitle
		}
		if item.Price != nil && item.Currency == "" {
			item.Currency = models.DefaultCurrency
		}
		item.CreatedAt = now.Add(-it.Age)
		if _, err := items.Create(ctx, item); err != nil {
			return fmt.Errorf("failed to seed item %s: %w", item.ID, err)
		}
	}
	return nil
}
