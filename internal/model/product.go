package model

import "time"

// Product is a canonical catalog entry. ID is the normalized item name, so
// two spellings of the same product always collapse onto one row.
type Product struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Price      float64    `json:"price"`
	Unit       string     `json:"unit"`
	Popularity int        `json:"popularity"`
	Archived   bool       `json:"archived"`
	ArchivedBy string     `json:"archived_by,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type PriceChange struct {
	ID        int64     `json:"id"`
	ProductID string    `json:"product_id"`
	OldPrice  float64   `json:"old_price"`
	NewPrice  float64   `json:"new_price"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}
