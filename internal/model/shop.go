package model

import "time"

// Shop is a physical store, globally visible once created.
type Shop struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	CreatedBy int64      `json:"created_by"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ShopLayout is one user's learned category-traversal order for one shop.
type ShopLayout struct {
	ID            int64     `json:"id"`
	ShopID        int64     `json:"shop_id"`
	UserID        int64     `json:"user_id"`
	CategoryOrder []string  `json:"category_order"`
	LastUsedAt    time.Time `json:"last_used_at"`
	VisitCount    int       `json:"visit_count"`
}
