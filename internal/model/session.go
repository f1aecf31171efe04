package model

import "time"

// ShoppingSession is an immutable record of one completed trip. Items are
// snapshots, not references: later edits or deletes on the live list must
// never change history.
type ShoppingSession struct {
	ID           int64         `json:"id"`
	ListID       int64         `json:"list_id"`
	ListName     string        `json:"list_name"`
	CompletedAt  time.Time     `json:"completed_at"`
	CompletedBy  string        `json:"completed_by"`
	TotalSpent   float64       `json:"total_spent"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	DurationSecs *int64        `json:"duration_secs,omitempty"`
	DayOfWeek    int           `json:"day_of_week"` // 0 = Sunday
	HourOfDay    int           `json:"hour_of_day"`
	StoreName    string        `json:"store_name,omitempty"`
	Items        []SessionItem `json:"items"`
	MissedItems  []string      `json:"missed_items"`
	CreatedAt    time.Time     `json:"created_at"`
}

type SessionItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}
