package models

import "time"

// Order is a checkout record. All money fields are integer minor currency
// units and always satisfy total = subtotal + tax + tip. Orders are mutated
// only through the order service's lifecycle operations.
type Order struct {
	ID                  int64       `json:"id"`
	LocationID          int64       `json:"location_id"`
	OrderNumber         int         `json:"order_number"`
	Status              string      `json:"status"`
	PaymentStatus       string      `json:"payment_status"`
	PaymentMethod       string      `json:"payment_method"`
	SubtotalCents       int64       `json:"subtotal_cents"`
	TaxCents            int64       `json:"tax_cents"`
	TipCents            int64       `json:"tip_cents"`
	TotalCents          int64       `json:"total_cents"`
	TableNumber         *string     `json:"table_number,omitempty"`
	CustomerName        *string     `json:"customer_name,omitempty"`
	CustomerPhone       *string     `json:"customer_phone,omitempty"`
	PaymentIntentID     *string     `json:"payment_intent_id,omitempty"`
	SpecialInstructions *string     `json:"special_instructions,omitempty"`
	PlacedAt            time.Time   `json:"placed_at"`
	AcceptedAt          *time.Time  `json:"accepted_at,omitempty"`
	CompletedAt         *time.Time  `json:"completed_at,omitempty"`
	CancelledAt         *time.Time  `json:"cancelled_at,omitempty"`
	CancelledReason     *string     `json:"cancelled_reason,omitempty"`
	Items               []OrderItem `json:"items,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// OrderItem snapshots the ordered menu item's name and unit price so that
// later menu edits cannot change historical orders.
type OrderItem struct {
	ID                     int64               `json:"id"`
	OrderID                int64               `json:"order_id"`
	MenuItemID             int64               `json:"menu_item_id"`
	NameSnapshot           string              `json:"name_snapshot"`
	UnitPriceCentsSnapshot int64               `json:"unit_price_cents_snapshot"`
	Quantity               int                 `json:"quantity"`
	LineTotalCents         int64               `json:"line_total_cents"`
	SpecialInstructions    *string             `json:"special_instructions,omitempty"`
	Modifiers              []OrderItemModifier `json:"modifiers,omitempty"`
}

// OrderItemModifier snapshots a selected option value. There is deliberately
// no foreign key to the live option rows.
type OrderItemModifier struct {
	ID              int64  `json:"id"`
	OrderItemID     int64  `json:"order_item_id"`
	OptionName      string `json:"option_name"`
	ValueName       string `json:"value_name"`
	PriceDeltaCents int64  `json:"price_delta_cents"`
}

// PlatformFee is the immutable fee split recorded once per paid order.
// Invariants: gross = platform fee + restaurant payout,
// platform net = platform fee - gateway fee.
type PlatformFee struct {
	ID                    int64     `json:"id"`
	OrderID               int64     `json:"order_id"`
	GrossAmountCents      int64     `json:"gross_amount_cents"`
	PlatformFeeCents      int64     `json:"platform_fee_cents"`
	GatewayFeeCents       int64     `json:"gateway_fee_cents"`
	RestaurantPayoutCents int64     `json:"restaurant_payout_cents"`
	PlatformNetCents      int64     `json:"platform_net_cents"`
	GatewayChargeID       *string   `json:"gateway_charge_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// OrderFilters defines the available filters for the dashboard order listing.
type OrderFilters struct {
	Status   *string `form:"status"`
	Date     *string `form:"date"` // Expected format YYYY-MM-DD
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}
