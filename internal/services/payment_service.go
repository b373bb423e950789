package services

import (
	"errors"
	"fmt"
	"strconv"

	"roms_backend/internal/config"
	"roms_backend/internal/gateway"
	"roms_backend/internal/repositories"
)

var ErrNotCardOrder = errors.New("payment intents are only available for card orders")

// IntentCreator creates payment intents at the gateway. Implemented by
// gateway.Client.
type IntentCreator interface {
	CreatePaymentIntent(req gateway.PaymentIntentRequest) (*gateway.PaymentIntent, error)
}

// PaymentService drives the card payment flow: it opens a payment intent at
// the gateway for an order and stores the reference the reconciliation path
// later resolves.
type PaymentService interface {
	CreatePaymentIntent(locationID, orderID int64) (*gateway.PaymentIntent, error)
}

type paymentService struct {
	orderRepo repositories.OrderRepository
	gateway   IntentCreator
	cfg       config.GatewayConfig
	db        repositories.Database
}

// NewPaymentService creates a new instance of PaymentService.
func NewPaymentService(orderRepo repositories.OrderRepository, gw IntentCreator, cfg config.GatewayConfig, db repositories.Database) PaymentService {
	return &paymentService{
		orderRepo: orderRepo,
		gateway:   gw,
		cfg:       cfg,
		db:        db,
	}
}

func (s *paymentService) CreatePaymentIntent(locationID, orderID int64) (*gateway.PaymentIntent, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order for payment intent: %w", err)
	}
	if order.LocationID != locationID {
		return nil, ErrOrderNotFound
	}
	if order.PaymentMethod != MethodCard {
		return nil, ErrNotCardOrder
	}
	if order.PaymentStatus == PaymentPaid || order.PaymentStatus == PaymentRefunded {
		return nil, ErrAlreadyPaid
	}

	intent, err := s.gateway.CreatePaymentIntent(gateway.PaymentIntentRequest{
		AmountCents:         order.TotalCents,
		Currency:            s.cfg.Currency,
		StatementDescriptor: s.cfg.StatementDescriptor,
		Metadata: map[string]string{
			"order_id":     strconv.FormatInt(order.ID, 10),
			"location_id":  strconv.FormatInt(order.LocationID, 10),
			"order_number": strconv.FormatInt(int64(order.OrderNumber), 10),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent at gateway: %w", err)
	}

	// The stored reference is what lets charge.refunded events find the
	// order; it must be durable before the client ever confirms the intent.
	// Setting pending here also reopens orders whose previous attempt failed.
	if err := s.orderRepo.SetPaymentIntent(s.db, order.ID, intent.ID, PaymentPending); err != nil {
		return nil, fmt.Errorf("failed to store payment intent reference: %w", err)
	}
	return intent, nil
}
