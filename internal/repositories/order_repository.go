package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"roms_backend/internal/models"

	"github.com/lib/pq"
)

// StatusStamps carries the optional timestamp columns written alongside a
// status transition.
type StatusStamps struct {
	AcceptedAt      *time.Time
	CompletedAt     *time.Time
	CancelledAt     *time.Time
	CancelledReason *string
}

// OrderRepository defines the data access for orders and their children.
type OrderRepository interface {
	CreateOrder(executor SQLExecutor, order *models.Order) (int64, error)
	CreateOrderItem(executor SQLExecutor, item *models.OrderItem) (int64, error)
	CreateOrderItemModifier(executor SQLExecutor, modifier *models.OrderItemModifier) (int64, error)

	GetOrderByID(orderID int64) (*models.Order, error)
	// GetOrderByIDForUpdate locks the order row for the duration of the
	// caller's transaction, serializing concurrent status transitions.
	GetOrderByIDForUpdate(executor SQLExecutor, orderID int64) (*models.Order, error)
	GetOrderByPaymentIntentID(paymentIntentID string) (*models.Order, error)
	GetOrderItems(orderID int64) ([]models.OrderItem, error)
	GetOrders(locationID int64, filters models.OrderFilters) ([]models.Order, int, error)
	GetPendingOrders(locationID int64) ([]models.Order, error)

	UpdateOrderStatus(executor SQLExecutor, orderID int64, newStatus string, stamps StatusStamps) error
	// UpdatePaymentStatusFrom sets payment_status to newStatus only if the
	// current value is one of fromStatuses, returning whether a row changed.
	// The guard runs inside the UPDATE so concurrent calls race for a single
	// success.
	UpdatePaymentStatusFrom(executor SQLExecutor, orderID int64, fromStatuses []string, newStatus string) (bool, error)
	SetPaymentIntent(executor SQLExecutor, orderID int64, paymentIntentID string, paymentStatus string) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, location_id, order_number, status, payment_status, payment_method,
	subtotal_cents, tax_cents, tip_cents, total_cents,
	table_number, customer_name, customer_phone, payment_intent_id, special_instructions,
	placed_at, accepted_at, completed_at, cancelled_at, cancelled_reason,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner, o *models.Order) error {
	return row.Scan(
		&o.ID, &o.LocationID, &o.OrderNumber, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.SubtotalCents, &o.TaxCents, &o.TipCents, &o.TotalCents,
		&o.TableNumber, &o.CustomerName, &o.CustomerPhone, &o.PaymentIntentID, &o.SpecialInstructions,
		&o.PlacedAt, &o.AcceptedAt, &o.CompletedAt, &o.CancelledAt, &o.CancelledReason,
		&o.CreatedAt, &o.UpdatedAt,
	)
}

func (r *orderRepository) CreateOrder(executor SQLExecutor, order *models.Order) (int64, error) {
	query := `INSERT INTO orders
	            (location_id, order_number, status, payment_status, payment_method,
	             subtotal_cents, tax_cents, tip_cents, total_cents,
	             table_number, customer_name, customer_phone, special_instructions,
	             placed_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	          RETURNING id`
	now := time.Now()
	if order.PlacedAt.IsZero() {
		order.PlacedAt = now
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}

	err := executor.QueryRow(query,
		order.LocationID, order.OrderNumber, order.Status, order.PaymentStatus, order.PaymentMethod,
		order.SubtotalCents, order.TaxCents, order.TipCents, order.TotalCents,
		order.TableNumber, order.CustomerName, order.CustomerPhone, order.SpecialInstructions,
		order.PlacedAt, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: creating order (constraint: %s)", ErrDuplicateKey, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating order: %v", ErrDatabaseError, err)
	}
	return order.ID, nil
}

func (r *orderRepository) CreateOrderItem(executor SQLExecutor, item *models.OrderItem) (int64, error) {
	query := `INSERT INTO order_items
	            (order_id, menu_item_id, name_snapshot, unit_price_cents_snapshot,
	             quantity, line_total_cents, special_instructions)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	err := executor.QueryRow(query,
		item.OrderID, item.MenuItemID, item.NameSnapshot, item.UnitPriceCentsSnapshot,
		item.Quantity, item.LineTotalCents, item.SpecialInstructions,
	).Scan(&item.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return 0, fmt.Errorf("%w: creating order item (constraint: %s): %v", ErrDatabaseError, pqErr.Constraint, err)
		}
		return 0, fmt.Errorf("%w: creating order item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

func (r *orderRepository) CreateOrderItemModifier(executor SQLExecutor, modifier *models.OrderItemModifier) (int64, error) {
	query := `INSERT INTO order_item_modifiers
	            (order_item_id, option_name, value_name, price_delta_cents)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`
	err := executor.QueryRow(query,
		modifier.OrderItemID, modifier.OptionName, modifier.ValueName, modifier.PriceDeltaCents,
	).Scan(&modifier.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating order item modifier: %v", ErrDatabaseError, err)
	}
	return modifier.ID, nil
}

func (r *orderRepository) getOrderWhere(executor SQLExecutor, clause string, args ...interface{}) (*models.Order, error) {
	order := &models.Order{}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + clause
	if err := scanOrder(executor.QueryRow(query, args...), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting order: %v", ErrDatabaseError, err)
	}
	return order, nil
}

func (r *orderRepository) GetOrderByID(orderID int64) (*models.Order, error) {
	return r.getOrderWhere(r.db, `id = $1`, orderID)
}

func (r *orderRepository) GetOrderByIDForUpdate(executor SQLExecutor, orderID int64) (*models.Order, error) {
	return r.getOrderWhere(executor, `id = $1 FOR UPDATE`, orderID)
}

func (r *orderRepository) GetOrderByPaymentIntentID(paymentIntentID string) (*models.Order, error) {
	return r.getOrderWhere(r.db, `payment_intent_id = $1`, paymentIntentID)
}

func (r *orderRepository) GetOrderItems(orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	query := `SELECT id, order_id, menu_item_id, name_snapshot, unit_price_cents_snapshot,
	                 quantity, line_total_cents, special_instructions
	          FROM order_items
	          WHERE order_id = $1
	          ORDER BY id`
	rows, err := r.db.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying order items for order %d: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	itemIndex := map[int64]int{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.NameSnapshot,
			&item.UnitPriceCentsSnapshot, &item.Quantity, &item.LineTotalCents, &item.SpecialInstructions); err != nil {
			return nil, fmt.Errorf("%w: scanning order item: %v", ErrDatabaseError, err)
		}
		itemIndex[item.ID] = len(items)
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating order items: %v", ErrDatabaseError, err)
	}
	if len(items) == 0 {
		return items, nil
	}

	modQuery := `SELECT m.id, m.order_item_id, m.option_name, m.value_name, m.price_delta_cents
	             FROM order_item_modifiers m
	             JOIN order_items oi ON m.order_item_id = oi.id
	             WHERE oi.order_id = $1
	             ORDER BY m.id`
	modRows, err := r.db.Query(modQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying order item modifiers for order %d: %v", ErrDatabaseError, orderID, err)
	}
	defer modRows.Close()

	for modRows.Next() {
		var mod models.OrderItemModifier
		if err := modRows.Scan(&mod.ID, &mod.OrderItemID, &mod.OptionName, &mod.ValueName, &mod.PriceDeltaCents); err != nil {
			return nil, fmt.Errorf("%w: scanning order item modifier: %v", ErrDatabaseError, err)
		}
		if idx, ok := itemIndex[mod.OrderItemID]; ok {
			items[idx].Modifiers = append(items[idx].Modifiers, mod)
		}
	}
	if err = modRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating order item modifiers: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func (r *orderRepository) GetOrders(locationID int64, filters models.OrderFilters) ([]models.Order, int, error) {
	orders := []models.Order{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + orderColumns + `, COUNT(*) OVER() AS total_count FROM orders`)

	conditions := []string{"location_id = $1"}
	args := []interface{}{locationID}
	argCounter := 2

	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}
	if filters.Date != nil && *filters.Date != "" {
		parsedDate, err := time.Parse("2006-01-02", *filters.Date)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid date filter format: %s, expected YYYY-MM-DD", *filters.Date)
		}
		startOfDay := time.Date(parsedDate.Year(), parsedDate.Month(), parsedDate.Day(), 0, 0, 0, 0, parsedDate.Location())
		endOfDay := startOfDay.AddDate(0, 0, 1)
		conditions = append(conditions, fmt.Sprintf("placed_at >= $%d AND placed_at < $%d", argCounter, argCounter+1))
		args = append(args, startOfDay, endOfDay)
		argCounter += 2
	}

	queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	queryBuilder.WriteString(" ORDER BY placed_at DESC")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCounter))
		args = append(args, filters.PageSize)
		argCounter++
		if filters.Page > 0 {
			offset := (filters.Page - 1) * filters.PageSize
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCounter))
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Order
		err := rows.Scan(
			&o.ID, &o.LocationID, &o.OrderNumber, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
			&o.SubtotalCents, &o.TaxCents, &o.TipCents, &o.TotalCents,
			&o.TableNumber, &o.CustomerName, &o.CustomerPhone, &o.PaymentIntentID, &o.SpecialInstructions,
			&o.PlacedAt, &o.AcceptedAt, &o.CompletedAt, &o.CancelledAt, &o.CancelledReason,
			&o.CreatedAt, &o.UpdatedAt,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning order: %v", ErrDatabaseError, err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating order rows: %v", ErrDatabaseError, err)
	}
	return orders, totalCount, nil
}

func (r *orderRepository) GetPendingOrders(locationID int64) ([]models.Order, error) {
	orders := []models.Order{}
	query := `SELECT ` + orderColumns + `
	          FROM orders
	          WHERE location_id = $1 AND status = ANY($2)
	          ORDER BY placed_at ASC`
	pending := []string{"placed", "accepted", "preparing", "ready"}
	rows, err := r.db.Query(query, locationID, pq.Array(pending))
	if err != nil {
		return nil, fmt.Errorf("%w: querying pending orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("%w: scanning pending order: %v", ErrDatabaseError, err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating pending order rows: %v", ErrDatabaseError, err)
	}
	return orders, nil
}

func (r *orderRepository) UpdateOrderStatus(executor SQLExecutor, orderID int64, newStatus string, stamps StatusStamps) error {
	query := `UPDATE orders SET
	            status = $1,
	            accepted_at = COALESCE($2, accepted_at),
	            completed_at = COALESCE($3, completed_at),
	            cancelled_at = COALESCE($4, cancelled_at),
	            cancelled_reason = COALESCE($5, cancelled_reason),
	            updated_at = $6
	          WHERE id = $7`
	result, err := executor.Exec(query, newStatus,
		stamps.AcceptedAt, stamps.CompletedAt, stamps.CancelledAt, stamps.CancelledReason,
		time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("%w: updating order status for ID %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for order status update ID %d: %v", ErrDatabaseError, orderID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) UpdatePaymentStatusFrom(executor SQLExecutor, orderID int64, fromStatuses []string, newStatus string) (bool, error) {
	query := `UPDATE orders SET payment_status = $1, updated_at = $2
	          WHERE id = $3 AND payment_status = ANY($4)`
	result, err := executor.Exec(query, newStatus, time.Now(), orderID, pq.Array(fromStatuses))
	if err != nil {
		return false, fmt.Errorf("%w: updating payment status for order %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: getting rows affected for payment status update order %d: %v", ErrDatabaseError, orderID, err)
	}
	return rowsAffected > 0, nil
}

func (r *orderRepository) SetPaymentIntent(executor SQLExecutor, orderID int64, paymentIntentID string, paymentStatus string) error {
	query := `UPDATE orders SET payment_intent_id = $1, payment_status = $2, updated_at = $3 WHERE id = $4`
	result, err := executor.Exec(query, paymentIntentID, paymentStatus, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("%w: setting payment intent for order %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for payment intent update order %d: %v", ErrDatabaseError, orderID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
