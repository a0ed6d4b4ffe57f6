package models

// ParsedProduct is a best-effort guess of product attributes inferred from a
// bare URL string.
type ParsedProduct struct {
	Title       string   `json:"title" validate:"required"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Currency    string   `json:"currency,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
}
