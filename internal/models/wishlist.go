package models

import "time"

const (
	// DefaultTitle replaces a blank title when an item is created.
	DefaultTitle = "Untitled"
	// DefaultCurrency is assigned when a price is set without a currency.
	DefaultCurrency = "$"
)

// WishlistItem is a single desired product owned by exactly one user.
type WishlistItem struct {
	ID          string    `json:"id" yaml:"id"`
	UserID      string    `json:"userId" yaml:"user_id"`
	Title       string    `json:"title" yaml:"title"`
	Price       *float64  `json:"price,omitempty" yaml:"price"`
	Currency    string    `json:"currency,omitempty" yaml:"currency"`
	URL         string    `json:"url" yaml:"url"`
	ImageURL    string    `json:"imageUrl,omitempty" yaml:"image_url"`
	Description string    `json:"description,omitempty" yaml:"description"`
	IsPrivate   bool      `json:"isPrivate" yaml:"private"`
	CreatedAt   time.Time `json:"createdAt" yaml:"-"`

	// Seq is the insertion sequence assigned by the store. It breaks ties
	// between items sharing a CreatedAt.
	Seq uint64 `json:"-" yaml:"-"`
}

// Clone returns an independent copy of the item.
func (i *WishlistItem) Clone() *WishlistItem {
	if i == nil {
		return nil
	}
	c := *i
	if i.Price != nil {
		p := *i.Price
		c.Price = &p
	}
	return &c
}

// ItemDraft is the unvalidated input of the add flow.
type ItemDraft struct {
	Title       string   `json:"title"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Currency    string   `json:"currency,omitempty" validate:"max=8"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Description string   `json:"description,omitempty"`
	IsPrivate   *bool    `json:"isPrivate,omitempty"`
}

// ItemPatch is a partial item update. A nil field is left untouched;
// ClearPrice removes the price together with its currency.
type ItemPatch struct {
	Title       *string  `json:"title,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	ClearPrice  bool     `json:"clearPrice,omitempty"`
	Currency    *string  `json:"currency,omitempty" validate:"omitempty,max=8"`
	URL         *string  `json:"url,omitempty"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
	Description *string  `json:"description,omitempty"`
	IsPrivate   *bool    `json:"isPrivate,omitempty"`
}

// Apply merges the patch onto the item. ID, UserID, CreatedAt and Seq are
// never touched.
func (i *WishlistItem) Apply(p ItemPatch) {
	if p.Title != nil {
		i.Title = *p.Title
	}
	if p.ClearPrice {
		i.Price = nil
		i.Currency = ""
	}
	if p.Price != nil {
		price := *p.Price
		i.Price = &price
	}
	if p.Currency != nil {
		i.Currency = *p.Currency
	}
	if i.Price != nil && i.Currency == "" {
		i.Currency = DefaultCurrency
	}
	if p.URL != nil {
		i.URL = *p.URL
	}
	if p.ImageURL != nil {
		i.ImageURL = *p.ImageURL
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	if p.IsPrivate != nil {
		i.IsPrivate = *p.IsPrivate
	}
}
