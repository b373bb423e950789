package services

import (
	"errors"
	"fmt"
	"time"

	"roms_backend/internal/models"
	"roms_backend/internal/repositories"
)

// Custom service errors surfaced to handlers.
var (
	ErrValidation       = errors.New("validation error")
	ErrOrderNotFound    = errors.New("order not found")
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrGeoTokenUsed     = errors.New("geo token has already been used")
	ErrCannotTransition = errors.New("cannot transition order status")
	ErrAlreadyPaid      = errors.New("order is already paid")
	ErrNotCashOrder     = errors.New("only cash orders can be manually marked as paid")
)

// Order status constants.
const (
	StatusPlaced    = "placed"
	StatusAccepted  = "accepted"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Payment status constants.
const (
	PaymentUnpaid   = "unpaid"
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Payment method constants.
const (
	MethodCash = "cash"
	MethodCard = "card"
)

// maxItemQuantity caps a single order line's quantity.
const maxItemQuantity = 99

// statusTransitions is the full fulfillment state machine. Anything not
// listed here is rejected. cancelled and completed are terminal.
var statusTransitions = map[string][]string{
	StatusPlaced:    {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady},
	StatusReady:     {StatusCompleted},
}

// paymentTransitionSources lists, per target payment status, the statuses a
// transition may come from. refunded is reachable from pending and unpaid as
// well as paid: a refund event may legitimately arrive before the delayed
// capture confirmation, and the refund must still win.
var paymentTransitionSources = map[string][]string{
	PaymentPaid:     {PaymentUnpaid, PaymentPending},
	PaymentFailed:   {PaymentPending},
	PaymentRefunded: {PaymentPaid, PaymentPending, PaymentUnpaid},
}

// CanTransitionStatus reports whether the fulfillment state machine allows
// moving from one status to another.
func CanTransitionStatus(from, to string) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransitionPayment reports whether the payment state machine allows
// moving from one payment status to another.
func CanTransitionPayment(from, to string) bool {
	for _, source := range paymentTransitionSources[to] {
		if source == from {
			return true
		}
	}
	return false
}

// IsKnownStatus reports whether the status string names a fulfillment state.
func IsKnownStatus(status string) bool {
	switch status {
	case StatusPlaced, StatusAccepted, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// --- Data Transfer Objects (DTOs) ---

// OrderItemModifierRequest is a selected option value. The price delta is
// client-supplied and snapshotted verbatim, matching the menu payload the
// client was served.
type OrderItemModifierRequest struct {
	OptionName      string `json:"option_name" binding:"required"`
	ValueName       string `json:"value_name" binding:"required"`
	PriceDeltaCents int64  `json:"price_delta_cents"`
}

// OrderItemRequest is one requested order line.
type OrderItemRequest struct {
	MenuItemID          int64                      `json:"menu_item_id" binding:"required"`
	Quantity            int                        `json:"quantity" binding:"required,gt=0,lte=99"`
	SpecialInstructions *string                    `json:"special_instructions"`
	Modifiers           []OrderItemModifierRequest `json:"modifiers" binding:"omitempty,dive"`
}

// CreateOrderRequest is the customer checkout payload.
type CreateOrderRequest struct {
	GeoToken            string             `json:"geo_token" binding:"required"`
	PaymentMethod       string             `json:"payment_method" binding:"required,oneof=cash card"`
	TableNumber         *string            `json:"table_number"`
	CustomerName        *string            `json:"customer_name"`
	CustomerPhone       *string            `json:"customer_phone"`
	SpecialInstructions *string            `json:"special_instructions"`
	TipCents            int64              `json:"tip_cents" binding:"omitempty,gte=0"`
	Items               []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// EstimateRequest is the price-estimate payload: the order shape minus the
// geo token and payment method.
type EstimateRequest struct {
	TipCents int64              `json:"tip_cents" binding:"omitempty,gte=0"`
	Items    []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateOrderStatusRequest is the staff-facing transition request.
type UpdateOrderStatusRequest struct {
	Status          string  `json:"status" binding:"required"`
	CancelledReason *string `json:"cancelled_reason"`
}

// --- OrderService ---

// OrderService owns the order lifecycle: creation, the fulfillment state
// machine, and the cash payment path.
type OrderService interface {
	CreateOrder(location *models.Location, req CreateOrderRequest) (*models.Order, error)
	EstimateTotals(location *models.Location, req EstimateRequest) (Totals, error)

	GetOrderByID(orderID int64) (*models.Order, error)
	GetOrderForLocation(locationID, orderID int64) (*models.Order, error)
	GetOrders(locationID int64, filters models.OrderFilters) ([]models.Order, int, error)
	GetPendingOrders(locationID int64) ([]models.Order, error)

	UpdateOrderStatus(orderID int64, req UpdateOrderStatusRequest) (*models.Order, error)
	MarkPaid(orderID int64) (*models.Order, error)
}

type orderService struct {
	orderRepo    repositories.OrderRepository
	menuRepo     repositories.MenuRepository
	sequenceRepo repositories.SequenceRepository
	geoTokenRepo repositories.GeoTokenRepository
	geofence     GeofenceService
	feeService   FeeService
	db           repositories.Database // for managing transactions
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	menuRepo repositories.MenuRepository,
	sequenceRepo repositories.SequenceRepository,
	geoTokenRepo repositories.GeoTokenRepository,
	geofence GeofenceService,
	feeService FeeService,
	db repositories.Database,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		menuRepo:     menuRepo,
		sequenceRepo: sequenceRepo,
		geoTokenRepo: geoTokenRepo,
		geofence:     geofence,
		feeService:   feeService,
		db:           db,
	}
}

// resolvedLine pairs a request line with its snapshotted menu data.
type resolvedLine struct {
	request  OrderItemRequest
	menuItem *models.MenuItem
	total    int64
}

// resolveItems fetches each requested menu item and computes line totals.
// Unknown ids are a hard failure unless skipMissing is set (estimate path).
func (s *orderService) resolveItems(items []OrderItemRequest, skipMissing bool) ([]resolvedLine, []PricedLine, error) {
	resolved := make([]resolvedLine, 0, len(items))
	lines := make([]PricedLine, 0, len(items))

	for _, itemReq := range items {
		if itemReq.Quantity < 1 || itemReq.Quantity > maxItemQuantity {
			return nil, nil, fmt.Errorf("%w: quantity %d for item %d must be between 1 and %d",
				ErrValidation, itemReq.Quantity, itemReq.MenuItemID, maxItemQuantity)
		}
		menuItem, err := s.menuRepo.GetItemByID(itemReq.MenuItemID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, fmt.Errorf("failed to resolve menu item %d: %w", itemReq.MenuItemID, err)
		}
		// An item pulled from the menu since the client loaded it counts the
		// same as one that never existed.
		if err != nil || !menuItem.IsAvailable {
			if skipMissing {
				continue
			}
			return nil, nil, fmt.Errorf("%w: item ID %d", ErrMenuItemNotFound, itemReq.MenuItemID)
		}

		deltas := make([]int64, 0, len(itemReq.Modifiers))
		for _, mod := range itemReq.Modifiers {
			deltas = append(deltas, mod.PriceDeltaCents)
		}
		line := PricedLine{
			UnitPriceCents:     menuItem.PriceCents,
			ModifierDeltaCents: deltas,
			Quantity:           itemReq.Quantity,
		}
		// Negative deltas are legal (discount modifiers) but may never push
		// a line below zero; money fields stay non-negative.
		total := LineTotalCents(line)
		if total < 0 {
			return nil, nil, fmt.Errorf("%w: modifiers make item %d line total negative", ErrValidation, itemReq.MenuItemID)
		}
		resolved = append(resolved, resolvedLine{
			request:  itemReq,
			menuItem: menuItem,
			total:    total,
		})
		lines = append(lines, line)
	}
	return resolved, lines, nil
}

// orderDate returns the current calendar day in the location's timezone,
// which scopes the daily order number sequence.
func orderDate(location *models.Location, now time.Time) string {
	if location.Timezone != "" {
		if tz, err := time.LoadLocation(location.Timezone); err == nil {
			now = now.In(tz)
		}
	}
	return now.Format("2006-01-02")
}

func (s *orderService) CreateOrder(location *models.Location, req CreateOrderRequest) (*models.Order, error) {
	// Token validation happens before anything is persisted; an invalid,
	// expired or foreign-location token rejects the whole request.
	geoToken, err := s.geofence.ValidateToken(req.GeoToken, location.ID)
	if err != nil {
		return nil, err
	}

	resolved, lines, err := s.resolveItems(req.Items, false)
	if err != nil {
		return nil, err
	}

	totals := ComputeTotals(lines, location.TaxRate, req.TipCents)

	paymentStatus := PaymentUnpaid
	if req.PaymentMethod == MethodCard {
		paymentStatus = PaymentPending
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	orderNumber, err := s.sequenceRepo.NextOrderNumber(tx, location.ID, orderDate(location, now))
	if err != nil {
		return nil, fmt.Errorf("failed to assign order number: %w", err)
	}

	order := models.Order{
		LocationID:          location.ID,
		OrderNumber:         orderNumber,
		Status:              StatusPlaced,
		PaymentStatus:       paymentStatus,
		PaymentMethod:       req.PaymentMethod,
		SubtotalCents:       totals.SubtotalCents,
		TaxCents:            totals.TaxCents,
		TipCents:            totals.TipCents,
		TotalCents:          totals.TotalCents,
		TableNumber:         req.TableNumber,
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		SpecialInstructions: req.SpecialInstructions,
		PlacedAt:            now,
	}
	if _, err := s.orderRepo.CreateOrder(tx, &order); err != nil {
		return nil, fmt.Errorf("failed to create order record: %w", err)
	}

	for _, line := range resolved {
		item := models.OrderItem{
			OrderID:                order.ID,
			MenuItemID:             line.menuItem.ID,
			NameSnapshot:           line.menuItem.Name,
			UnitPriceCentsSnapshot: line.menuItem.PriceCents,
			Quantity:               line.request.Quantity,
			LineTotalCents:         line.total,
			SpecialInstructions:    line.request.SpecialInstructions,
		}
		if _, err := s.orderRepo.CreateOrderItem(tx, &item); err != nil {
			return nil, fmt.Errorf("failed to create order item (menu_item_id: %d): %w", line.menuItem.ID, err)
		}
		for _, modReq := range line.request.Modifiers {
			modifier := models.OrderItemModifier{
				OrderItemID:     item.ID,
				OptionName:      modReq.OptionName,
				ValueName:       modReq.ValueName,
				PriceDeltaCents: modReq.PriceDeltaCents,
			}
			if _, err := s.orderRepo.CreateOrderItemModifier(tx, &modifier); err != nil {
				return nil, fmt.Errorf("failed to create order item modifier: %w", err)
			}
		}
	}

	// Consume the token as the last statement of the transaction: a rollback
	// above leaves the token unburned, and two concurrent submissions of the
	// same token commit at most one order.
	if err := s.geoTokenRepo.Consume(tx, geoToken.ID, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrGeoTokenUsed
		}
		return nil, fmt.Errorf("failed to consume geo token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}

	// Cash orders settle outside the gateway, so their fee split (with a
	// zero gateway fee) is recorded up front. Card orders get theirs when
	// the success webhook arrives.
	if req.PaymentMethod == MethodCash {
		if err := s.feeService.RecordOrderFee(&order, 0, nil); err != nil {
			return nil, err
		}
	}

	return s.GetOrderByID(order.ID)
}

func (s *orderService) EstimateTotals(location *models.Location, req EstimateRequest) (Totals, error) {
	// Estimate-only: unknown menu ids are skipped rather than failing, so a
	// stale cart still gets a usable quote.
	_, lines, err := s.resolveItems(req.Items, true)
	if err != nil {
		return Totals{}, err
	}
	return ComputeTotals(lines, location.TaxRate, req.TipCents), nil
}

func (s *orderService) GetOrderByID(orderID int64) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by ID: %w", err)
	}
	items, err := s.orderRepo.GetOrderItems(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items for order %d: %w", orderID, err)
	}
	order.Items = items
	return order, nil
}

func (s *orderService) GetOrderForLocation(locationID, orderID int64) (*models.Order, error) {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.LocationID != locationID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) GetOrders(locationID int64, filters models.OrderFilters) ([]models.Order, int, error) {
	orders, totalCount, err := s.orderRepo.GetOrders(locationID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, totalCount, nil
}

func (s *orderService) GetPendingOrders(locationID int64) ([]models.Order, error) {
	orders, err := s.orderRepo.GetPendingOrders(locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) UpdateOrderStatus(orderID int64, req UpdateOrderStatusRequest) (*models.Order, error) {
	if !IsKnownStatus(req.Status) || req.Status == StatusPlaced {
		return nil, fmt.Errorf("%w: unknown target status %q", ErrValidation, req.Status)
	}
	if req.Status == StatusCancelled && (req.CancelledReason == nil || *req.CancelledReason == "") {
		return nil, fmt.Errorf("%w: cancellation requires a reason", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	// Row lock serializes concurrent transitions on the same order.
	order, err := s.orderRepo.GetOrderByIDForUpdate(tx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order for status update: %w", err)
	}

	if !CanTransitionStatus(order.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrCannotTransition, order.Status, req.Status)
	}

	now := time.Now()
	stamps := repositories.StatusStamps{}
	switch req.Status {
	case StatusAccepted:
		stamps.AcceptedAt = &now
	case StatusCompleted:
		stamps.CompletedAt = &now
	case StatusCancelled:
		stamps.CancelledAt = &now
		stamps.CancelledReason = req.CancelledReason
	}

	if err := s.orderRepo.UpdateOrderStatus(tx, orderID, req.Status, stamps); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}
	return s.GetOrderByID(orderID)
}

func (s *orderService) MarkPaid(orderID int64) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order for mark-paid: %w", err)
	}
	if order.PaymentMethod != MethodCash {
		return nil, ErrNotCashOrder
	}

	// Guarded update: exactly one of any concurrent mark-paid calls succeeds.
	changed, err := s.orderRepo.UpdatePaymentStatusFrom(s.db, orderID, []string{PaymentUnpaid}, PaymentPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order %d paid: %w", orderID, err)
	}
	if !changed {
		return nil, ErrAlreadyPaid
	}
	return s.GetOrderByID(orderID)
}
