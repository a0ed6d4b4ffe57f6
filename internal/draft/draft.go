// Package draft holds in-progress item forms between requests.
//
// A draft is never committed by anything in this package. Auto-fill results
// are merged into its fields only while the draft is open and only when they
// answer the most recent auto-fill request.
package draft

import (
	"errors"
	"strconv"
	"time"

	"github.com/learoder-max/Wishlist/internal/models"
)

var (
	// ErrNotFound is returned for unknown, closed or foreign drafts.
	ErrNotFound = errors.New("draft not found")
	// ErrAutofillInFlight is returned when auto-fill is requested while a
	// previous request for the same draft is still outstanding.
	ErrAutofillInFlight = errors.New("auto-fill already in progress")
	// ErrURLRequired is returned when auto-fill is requested without a URL.
	ErrURLRequired = errors.New("please enter a URL first")
)

// AdvisoryNothingExtracted is shown when auto-fill produced nothing.
const AdvisoryNothingExtracted = "Could not extract info. Please fill manually."

// InferenceState tracks the auto-fill assist of a draft.
type InferenceState int

const (
	Idle InferenceState = iota
	Pending
	Done
	Failed
)

func (s InferenceState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// MarshalText renders the state by name in JSON.
func (s InferenceState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Fields is the editable content of a draft.
type Fields struct {
	Title       string   `json:"title"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Description string   `json:"description,omitempty"`
	IsPrivate   bool     `json:"isPrivate"`
}

// FieldsPatch is a partial edit of the draft form.
type FieldsPatch struct {
	Title       *string  `json:"title,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	ClearPrice  bool     `json:"clearPrice,omitempty"`
	Currency    *string  `json:"currency,omitempty"`
	URL         *string  `json:"url,omitempty"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
	Description *string  `json:"description,omitempty"`
	IsPrivate   *bool    `json:"isPrivate,omitempty"`
}

func (f *Fields) apply(p FieldsPatch) {
	if p.Title != nil {
		f.Title = *p.Title
	}
	if p.ClearPrice {
		f.Price = nil
	}
	if p.Price != nil {
		price := *p.Price
		f.Price = &price
	}
	if p.Currency != nil {
		f.Currency = *p.Currency
	}
	if p.URL != nil {
		f.URL = *p.URL
	}
	if p.ImageURL != nil {
		f.ImageURL = *p.ImageURL
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.IsPrivate != nil {
		f.IsPrivate = *p.IsPrivate
	}
}

// merge copies the non-empty inferred attributes into the form.
func (f *Fields) merge(p *models.ParsedProduct) {
	if p.Title != "" {
		f.Title = p.Title
	}
	if p.Price != nil && *p.Price > 0 {
		price := *p.Price
		f.Price = &price
		if p.Currency != "" {
			f.Currency = p.Currency
		}
	}
	if p.Description != "" {
		f.Description = p.Description
	}
}

// Draft is a snapshot of an open form.
type Draft struct {
	ID            string         `json:"id"`
	ViewerID      string         `json:"viewerId"`
	EditingItemID string         `json:"editingItemId,omitempty"`
	Fields        Fields         `json:"fields"`
	State         InferenceState `json:"autofill"`
	Advisory      string         `json:"advisory,omitempty"`
	Category      string         `json:"category,omitempty"`
	UpdatedAt     time.Time      `json:"updatedAt"`

	// imageHandle is the local upload owned by this draft, if any.
	imageHandle string
	generation  uint64
}

// ImageHandle returns the media handle owned by the draft, if any.
func (d Draft) ImageHandle() string { return d.imageHandle }

// AutofillInFlight reports whether the auto-fill trigger should be disabled.
func (d Draft) AutofillInFlight() bool { return d.State == Pending }

// ToItemDraft converts the form into add-flow input.
func (d Draft) ToItemDraft() models.ItemDraft {
	private := d.Fields.IsPrivate
	out := models.ItemDraft{
		Title:       d.Fields.Title,
		Currency:    d.Fields.Currency,
		URL:         d.Fields.URL,
		ImageURL:    d.Fields.ImageURL,
		Description: d.Fields.Description,
		IsPrivate:   &private,
	}
	if d.Fields.Price != nil {
		price := *d.Fields.Price
		out.Price = &price
	}
	return out
}

// ToItemPatch converts the form into a full edit-flow patch: every editable
// field of the item is replaced by the form's value.
func (d Draft) ToItemPatch() models.ItemPatch {
	f := d.Fields
	title, currency, url, image, desc, private := f.Title, f.Currency, f.URL, f.ImageURL, f.Description, f.IsPrivate
	p := models.ItemPatch{
		Title:       &title,
		URL:         &url,
		ImageURL:    &image,
		Description: &desc,
		IsPrivate:   &private,
	}
	if f.Price == nil {
		p.ClearPrice = true
	} else {
		price := *f.Price
		p.Price = &price
		p.Currency = &currency
	}
	return p
}

func fieldsFromItem(item *models.WishlistItem) Fields {
	f := Fields{
		Title:       item.Title,
		Currency:    item.Currency,
		URL:         item.URL,
		ImageURL:    item.ImageURL,
		Description: item.Description,
		IsPrivate:   item.IsPrivate,
	}
	if item.Price != nil {
		price := *item.Price
		f.Price = &price
	}
	return f
}

func (d *Draft) snapshot() Draft {
	c := *d
	if d.Fields.Price != nil {
		price := *d.Fields.Price
		c.Fields.Price = &price
	}
	return c
}
