package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"roms_backend/internal/gateway"
	"roms_backend/internal/models"
	"roms_backend/internal/repositories"
	"roms_backend/pkg/utils"
)

// FeeSplit is the per-order money split between the platform, the payment
// gateway and the restaurant. All identities hold exactly in integer cents:
//
//	gross = payout + platformFee
//	platformNet = platformFee - gatewayFee
type FeeSplit struct {
	GrossAmountCents      int64 `json:"gross_amount_cents"`
	PlatformFeeCents      int64 `json:"platform_fee_cents"`
	GatewayFeeCents       int64 `json:"gateway_fee_cents"`
	RestaurantPayoutCents int64 `json:"restaurant_payout_cents"`
	PlatformNetCents      int64 `json:"platform_net_cents"`
}

// ComputeFeeSplit derives the fee split for a gross charge. The platform fee
// is percentage-based and rounded half-up; the payout absorbs the rounding so
// the split always sums back to the gross amount. The gateway fee comes out
// of the platform's share, so PlatformNetCents can go negative on tiny
// orders.
func ComputeFeeSplit(grossCents int64, platformFeePercentage float64, gatewayFeeCents int64) FeeSplit {
	platformFee := int64(math.Floor(float64(grossCents)*platformFeePercentage/100.0 + 0.5))
	return FeeSplit{
		GrossAmountCents:      grossCents,
		PlatformFeeCents:      platformFee,
		GatewayFeeCents:       gatewayFeeCents,
		RestaurantPayoutCents: grossCents - platformFee,
		PlatformNetCents:      platformFee - gatewayFeeCents,
	}
}

// ChargeFeeFetcher looks up the gateway's own processing fee for a settled
// charge. Implemented by gateway.Client.
type ChargeFeeFetcher interface {
	GetChargeFee(chargeID string) int64
}

// FeeService records platform fee rows and reconciles asynchronous gateway
// events against order payment state.
type FeeService interface {
	RecordOrderFee(order *models.Order, gatewayFeeCents int64, gatewayChargeID *string) error
	GetFeeForOrder(orderID int64) (*models.PlatformFee, error)
	HandleGatewayEvent(event gateway.Event) error
}

type feeService struct {
	feeRepo               repositories.PlatformFeeRepository
	orderRepo             repositories.OrderRepository
	chargeFees            ChargeFeeFetcher
	platformFeePercentage float64
	db                    repositories.Database
}

// NewFeeService creates a new instance of FeeService.
func NewFeeService(
	feeRepo repositories.PlatformFeeRepository,
	orderRepo repositories.OrderRepository,
	chargeFees ChargeFeeFetcher,
	platformFeePercentage float64,
	db repositories.Database,
) FeeService {
	return &feeService{
		feeRepo:               feeRepo,
		orderRepo:             orderRepo,
		chargeFees:            chargeFees,
		platformFeePercentage: platformFeePercentage,
		db:                    db,
	}
}

// RecordOrderFee persists the fee split for an order. A fee row already
// existing for the order is treated as success, which makes duplicate
// webhook deliveries harmless.
func (s *feeService) RecordOrderFee(order *models.Order, gatewayFeeCents int64, gatewayChargeID *string) error {
	return s.recordOrderFee(s.db, order, gatewayFeeCents, gatewayChargeID)
}

func (s *feeService) recordOrderFee(executor repositories.SQLExecutor, order *models.Order, gatewayFeeCents int64, gatewayChargeID *string) error {
	split := ComputeFeeSplit(order.TotalCents, s.platformFeePercentage, gatewayFeeCents)
	fee := models.PlatformFee{
		OrderID:               order.ID,
		GrossAmountCents:      split.GrossAmountCents,
		PlatformFeeCents:      split.PlatformFeeCents,
		GatewayFeeCents:       split.GatewayFeeCents,
		RestaurantPayoutCents: split.RestaurantPayoutCents,
		PlatformNetCents:      split.PlatformNetCents,
		GatewayChargeID:       gatewayChargeID,
	}
	if _, err := s.feeRepo.Create(executor, &fee); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			utils.LogDebug("Platform fee already recorded", map[string]interface{}{"order_id": order.ID})
			return nil
		}
		return fmt.Errorf("failed to record platform fee for order %d: %w", order.ID, err)
	}
	return nil
}

func (s *feeService) GetFeeForOrder(orderID int64) (*models.PlatformFee, error) {
	fee, err := s.feeRepo.GetByOrderID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get platform fee for order %d: %w", orderID, err)
	}
	return fee, nil
}

// HandleGatewayEvent is the reconciliation entry point for verified webhook
// events. Events referencing unknown orders are logged and dropped; replays
// of already-applied events are no-ops. A non-nil return means the gateway
// should redeliver.
func (s *feeService) HandleGatewayEvent(event gateway.Event) error {
	switch event.Type {
	case gateway.EventPaymentSucceeded:
		return s.handlePaymentSucceeded(event)
	case gateway.EventPaymentFailed:
		return s.handlePaymentFailed(event)
	case gateway.EventChargeRefunded:
		return s.handleChargeRefunded(event)
	default:
		utils.LogInfo("Ignoring unhandled gateway event", map[string]interface{}{"type": event.Type, "event_id": event.ID})
		return nil
	}
}

// orderFromIntentMetadata resolves the order referenced by a payment intent's
// metadata. A missing or unknown reference returns (nil, nil): that delivery
// is for an order this system does not know about, and redelivery would not
// help.
func (s *feeService) orderFromIntentMetadata(payload gateway.PaymentIntentPayload) (*models.Order, error) {
	raw, ok := payload.Metadata["order_id"]
	if !ok {
		utils.LogWarn("Gateway event without order_id metadata", map[string]interface{}{"payment_intent": payload.ID})
		return nil, nil
	}
	orderID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		utils.LogWarn("Gateway event with malformed order_id metadata", map[string]interface{}{"payment_intent": payload.ID, "order_id": raw})
		return nil, nil
	}
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.LogWarn("Gateway event for unknown order", map[string]interface{}{"payment_intent": payload.ID, "order_id": orderID})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up order %d for gateway event: %w", orderID, err)
	}
	return order, nil
}

func (s *feeService) handlePaymentSucceeded(event gateway.Event) error {
	var payload gateway.PaymentIntentPayload
	if err := json.Unmarshal(event.Data.Object, &payload); err != nil {
		return fmt.Errorf("failed to decode payment_intent payload: %w", err)
	}

	order, err := s.orderFromIntentMetadata(payload)
	if err != nil || order == nil {
		return err
	}
	if order.PaymentStatus == PaymentPaid {
		utils.LogDebug("Order already paid, skipping duplicate success event", map[string]interface{}{"order_id": order.ID})
		return nil
	}

	// The gateway fee lookup is an HTTP call; do it before the transaction
	// opens so no row lock is held across it.
	var gatewayFee int64
	var chargeID *string
	if payload.LatestCharge != "" {
		gatewayFee = s.chargeFees.GetChargeFee(payload.LatestCharge)
		charge := payload.LatestCharge
		chargeID = &charge
	}

	// The paid transition and the fee row commit together: if the fee insert
	// fails, the order stays in its prior payment status and the gateway's
	// redelivery retries both.
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start reconciliation transaction: %w", err)
	}
	defer tx.Rollback()

	changed, err := s.orderRepo.UpdatePaymentStatusFrom(tx, order.ID, paymentTransitionSources[PaymentPaid], PaymentPaid)
	if err != nil {
		return fmt.Errorf("failed to mark order %d paid: %w", order.ID, err)
	}
	if !changed {
		// Lost the race against another delivery or a refund; nothing to do.
		utils.LogDebug("Payment success event applied elsewhere", map[string]interface{}{"order_id": order.ID})
		return nil
	}
	if err := s.recordOrderFee(tx, order, gatewayFee, chargeID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment reconciliation for order %d: %w", order.ID, err)
	}
	utils.LogInfo("Order payment reconciled", map[string]interface{}{"order_id": order.ID, "payment_intent": payload.ID})
	return nil
}

func (s *feeService) handlePaymentFailed(event gateway.Event) error {
	var payload gateway.PaymentIntentPayload
	if err := json.Unmarshal(event.Data.Object, &payload); err != nil {
		return fmt.Errorf("failed to decode payment_intent payload: %w", err)
	}

	order, err := s.orderFromIntentMetadata(payload)
	if err != nil || order == nil {
		return err
	}

	changed, err := s.orderRepo.UpdatePaymentStatusFrom(s.db, order.ID, paymentTransitionSources[PaymentFailed], PaymentFailed)
	if err != nil {
		return fmt.Errorf("failed to mark order %d payment failed: %w", order.ID, err)
	}
	if !changed {
		utils.LogDebug("Payment failure event not applicable", map[string]interface{}{"order_id": order.ID, "payment_status": order.PaymentStatus})
	}
	return nil
}

func (s *feeService) handleChargeRefunded(event gateway.Event) error {
	var payload gateway.ChargePayload
	if err := json.Unmarshal(event.Data.Object, &payload); err != nil {
		return fmt.Errorf("failed to decode charge payload: %w", err)
	}
	if payload.PaymentIntent == "" {
		utils.LogWarn("Refund event without payment intent reference", map[string]interface{}{"charge_id": payload.ID})
		return nil
	}

	order, err := s.orderRepo.GetOrderByPaymentIntentID(payload.PaymentIntent)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.LogWarn("Refund event for unknown payment intent", map[string]interface{}{"payment_intent": payload.PaymentIntent})
			return nil
		}
		return fmt.Errorf("failed to look up order for refund event: %w", err)
	}

	changed, err := s.orderRepo.UpdatePaymentStatusFrom(s.db, order.ID, paymentTransitionSources[PaymentRefunded], PaymentRefunded)
	if err != nil {
		return fmt.Errorf("failed to mark order %d refunded: %w", order.ID, err)
	}
	if changed {
		utils.LogInfo("Order refund reconciled", map[string]interface{}{"order_id": order.ID, "charge_id": payload.ID})
	}
	return nil
}
