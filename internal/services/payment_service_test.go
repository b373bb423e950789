package services

import (
	"errors"
	"testing"

	"roms_backend/internal/config"
	"roms_backend/internal/gateway"
	"roms_backend/internal/models"
)

type fakeIntentCreator struct {
	lastRequest gateway.PaymentIntentRequest
	err         error
}

func (f *fakeIntentCreator) CreatePaymentIntent(req gateway.PaymentIntentRequest) (*gateway.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastRequest = req
	return &gateway.PaymentIntent{
		ID:           "pi_test",
		ClientSecret: "pi_test_secret",
		Status:       "requires_payment_method",
		Amount:       req.AmountCents,
		Currency:     req.Currency,
	}, nil
}

func newTestPaymentService(orderRepo *fakeOrderRepo, creator *fakeIntentCreator) PaymentService {
	cfg := config.GatewayConfig{Currency: "usd", StatementDescriptor: "ROMS ORDER"}
	return NewPaymentService(orderRepo, creator, cfg, newFakeDB())
}

func TestCreatePaymentIntent(t *testing.T) {
	tests := []struct {
		name    string
		order   *models.Order
		wantErr error
	}{
		{
			name:  "pending card order",
			order: &models.Order{ID: 1, LocationID: 1, PaymentMethod: MethodCard, PaymentStatus: PaymentPending, TotalCents: 3689},
		},
		{
			name:  "failed card order can retry",
			order: &models.Order{ID: 1, LocationID: 1, PaymentMethod: MethodCard, PaymentStatus: PaymentFailed, TotalCents: 3689},
		},
		{
			name:    "cash order rejected",
			order:   &models.Order{ID: 1, LocationID: 1, PaymentMethod: MethodCash, PaymentStatus: PaymentUnpaid},
			wantErr: ErrNotCardOrder,
		},
		{
			name:    "paid order rejected",
			order:   &models.Order{ID: 1, LocationID: 1, PaymentMethod: MethodCard, PaymentStatus: PaymentPaid},
			wantErr: ErrAlreadyPaid,
		},
		{
			name:    "refunded order rejected",
			order:   &models.Order{ID: 1, LocationID: 1, PaymentMethod: MethodCard, PaymentStatus: PaymentRefunded},
			wantErr: ErrAlreadyPaid,
		},
		{
			name:    "order from another location",
			order:   &models.Order{ID: 1, LocationID: 2, PaymentMethod: MethodCard, PaymentStatus: PaymentPending},
			wantErr: ErrOrderNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderRepo := newFakeOrderRepo()
			orderRepo.add(*tt.order)
			creator := &fakeIntentCreator{}
			svc := newTestPaymentService(orderRepo, creator)

			intent, err := svc.CreatePaymentIntent(1, 1)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CreatePaymentIntent() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreatePaymentIntent() error = %v", err)
			}
			if intent.ClientSecret == "" {
				t.Error("intent has no client secret")
			}
			if creator.lastRequest.AmountCents != tt.order.TotalCents {
				t.Errorf("intent amount = %d, want %d", creator.lastRequest.AmountCents, tt.order.TotalCents)
			}
			if creator.lastRequest.Metadata["order_id"] != "1" {
				t.Errorf("metadata order_id = %q, want \"1\"", creator.lastRequest.Metadata["order_id"])
			}

			order, _ := orderRepo.GetOrderByID(1)
			if order.PaymentIntentID == nil || *order.PaymentIntentID != "pi_test" {
				t.Errorf("stored intent reference = %v, want pi_test", order.PaymentIntentID)
			}
			if order.PaymentStatus != PaymentPending {
				t.Errorf("payment status = %q, want %q", order.PaymentStatus, PaymentPending)
			}
		})
	}
}
