package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roms_backend/internal/models"

	"github.com/lib/pq"
)

// PlatformFeeRepository defines the data access for platform fee records.
// A fee row is created once per order and never mutated.
type PlatformFeeRepository interface {
	// Create inserts the fee record. ErrDuplicateKey signals the fee already
	// exists for this order, which callers treat as an idempotent no-op.
	Create(executor SQLExecutor, fee *models.PlatformFee) (int64, error)
	GetByOrderID(orderID int64) (*models.PlatformFee, error)
}

type platformFeeRepository struct {
	db *sql.DB
}

// NewPlatformFeeRepository creates a new instance of PlatformFeeRepository.
func NewPlatformFeeRepository(db *sql.DB) PlatformFeeRepository {
	return &platformFeeRepository{db: db}
}

func (r *platformFeeRepository) Create(executor SQLExecutor, fee *models.PlatformFee) (int64, error) {
	query := `INSERT INTO platform_fees
	            (order_id, gross_amount_cents, platform_fee_cents, gateway_fee_cents,
	             restaurant_payout_cents, platform_net_cents, gateway_charge_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`
	if fee.CreatedAt.IsZero() {
		fee.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		fee.OrderID, fee.GrossAmountCents, fee.PlatformFeeCents, fee.GatewayFeeCents,
		fee.RestaurantPayoutCents, fee.PlatformNetCents, fee.GatewayChargeID, fee.CreatedAt,
	).Scan(&fee.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: platform fee already exists for order %d", ErrDuplicateKey, fee.OrderID)
		}
		return 0, fmt.Errorf("%w: creating platform fee for order %d: %v", ErrDatabaseError, fee.OrderID, err)
	}
	return fee.ID, nil
}

func (r *platformFeeRepository) GetByOrderID(orderID int64) (*models.PlatformFee, error) {
	fee := &models.PlatformFee{}
	query := `SELECT id, order_id, gross_amount_cents, platform_fee_cents, gateway_fee_cents,
	                 restaurant_payout_cents, platform_net_cents, gateway_charge_id, created_at
	          FROM platform_fees
	          WHERE order_id = $1`
	err := r.db.QueryRow(query, orderID).Scan(
		&fee.ID, &fee.OrderID, &fee.GrossAmountCents, &fee.PlatformFeeCents, &fee.GatewayFeeCents,
		&fee.RestaurantPayoutCents, &fee.PlatformNetCents, &fee.GatewayChargeID, &fee.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting platform fee for order %d: %v", ErrDatabaseError, orderID, err)
	}
	return fee, nil
}
