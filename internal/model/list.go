package model

import "time"

// UncategorizedLabel is the sentinel category for items the catalog and
// classifier know nothing about.
const UncategorizedLabel = "Uncategorized"

type ShoppingList struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	OwnerID          int64      `json:"owner_id"`
	Shared           bool       `json:"shared"`
	Collaborators    []string   `json:"collaborators"`
	CategoryOrder    []string   `json:"category_order,omitempty"`
	LastShopperEmail string     `json:"last_shopper_email,omitempty"`
	TripStartedAt    *time.Time `json:"trip_started_at,omitempty"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type ShoppingItem struct {
	ID        int64      `json:"id"`
	ListID    int64      `json:"list_id"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	Unit      string     `json:"unit"`
	Price     float64    `json:"price"`
	Category  string     `json:"category"`
	Bought    bool       `json:"bought"`
	CheckedAt *time.Time `json:"checked_at,omitempty"`
	SortOrder int        `json:"sort_order"`
	CreatedAt time.Time  `json:"created_at"`
}
