package models

import "time"

// MenuCategory groups menu items for display ordering.
type MenuCategory struct {
	ID         int64      `json:"id"`
	LocationID int64      `json:"location_id"`
	Name       string     `json:"name"`
	SortOrder  int        `json:"sort_order"`
	IsActive   bool       `json:"is_active"`
	Items      []MenuItem `json:"items,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// MenuItem is a live menu entry. Orders never reference its mutable fields
// directly; name and price are snapshotted onto order items at order time.
type MenuItem struct {
	ID          int64            `json:"id"`
	CategoryID  int64            `json:"category_id"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	PriceCents  int64            `json:"price_cents"`
	PhotoURL    *string          `json:"photo_url,omitempty"`
	IsAvailable bool             `json:"is_available"`
	SortOrder   int              `json:"sort_order"`
	Options     []MenuItemOption `json:"options,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// MenuItemOption is a configurable choice on a menu item (e.g. "Size").
type MenuItemOption struct {
	ID        int64                 `json:"id"`
	ItemID    int64                 `json:"item_id"`
	Name      string                `json:"name"`
	SortOrder int                   `json:"sort_order"`
	Values    []MenuItemOptionValue `json:"values,omitempty"`
}

// MenuItemOptionValue is a selectable value of an option, carrying a price
// delta relative to the base item price.
type MenuItemOptionValue struct {
	ID              int64  `json:"id"`
	OptionID        int64  `json:"option_id"`
	Name            string `json:"name"`
	PriceDeltaCents int64  `json:"price_delta_cents"`
	IsAvailable     bool   `json:"is_available"`
	SortOrder       int    `json:"sort_order"`
}
