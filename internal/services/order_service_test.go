package services

import (
	"errors"
	"testing"
	"time"

	"roms_backend/internal/models"
)

func TestCanTransitionStatus(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPlaced, StatusAccepted, true},
		{StatusPlaced, StatusCancelled, true},
		{StatusPlaced, StatusPreparing, false},
		{StatusPlaced, StatusCompleted, false},
		{StatusAccepted, StatusPreparing, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusAccepted, StatusCompleted, false},
		{StatusPreparing, StatusReady, true},
		{StatusPreparing, StatusCancelled, false},
		{StatusReady, StatusCompleted, true},
		{StatusReady, StatusCancelled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusAccepted, false},
		{StatusPlaced, StatusPlaced, false},
		{"bogus", StatusAccepted, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			if got := CanTransitionStatus(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransitionStatus(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCanTransitionPayment(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{PaymentUnpaid, PaymentPaid, true},
		{PaymentPending, PaymentPaid, true},
		{PaymentPaid, PaymentPaid, false},
		{PaymentPending, PaymentFailed, true},
		{PaymentUnpaid, PaymentFailed, false},
		{PaymentPaid, PaymentRefunded, true},
		// A refund can outrun the delayed capture confirmation.
		{PaymentPending, PaymentRefunded, true},
		{PaymentUnpaid, PaymentRefunded, true},
		{PaymentRefunded, PaymentPaid, false},
		{PaymentFailed, PaymentPaid, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			if got := CanTransitionPayment(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransitionPayment(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestOrderDate(t *testing.T) {
	// 2026-03-15 03:30 UTC is still 2026-03-14 in New York.
	now := time.Date(2026, 3, 15, 3, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		timezone string
		want     string
	}{
		{name: "location timezone applies", timezone: "America/New_York", want: "2026-03-14"},
		{name: "utc location", timezone: "UTC", want: "2026-03-15"},
		{name: "empty timezone keeps server time", timezone: "", want: "2026-03-15"},
		{name: "bogus timezone keeps server time", timezone: "Not/AZone", want: "2026-03-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := &models.Location{Timezone: tt.timezone}
			if got := orderDate(loc, now); got != tt.want {
				t.Errorf("orderDate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func newTestOrderService(orderRepo *fakeOrderRepo, menuRepo *fakeMenuRepo) OrderService {
	geoRepo := newFakeGeoTokenRepo()
	geofence := NewGeofenceService(geoRepo, testGeofenceConfig())
	fees := NewFeeService(newFakePlatformFeeRepo(), orderRepo, &fakeChargeFees{}, 3, newFakeDB())
	return NewOrderService(orderRepo, menuRepo, newFakeSequenceRepo(), geoRepo, geofence, fees, newFakeDB())
}

// orderFixture wires an order service against all in-memory fakes so the
// full creation path can run.
type orderFixture struct {
	svc      OrderService
	orders   *fakeOrderRepo
	tokens   *fakeGeoTokenRepo
	fees     *fakePlatformFeeRepo
	geofence GeofenceService
	location *models.Location
}

func newOrderFixture(items ...models.MenuItem) *orderFixture {
	f := &orderFixture{
		orders: newFakeOrderRepo(),
		tokens: newFakeGeoTokenRepo(),
		fees:   newFakePlatformFeeRepo(),
	}
	f.geofence = NewGeofenceService(f.tokens, testGeofenceConfig())
	feeSvc := NewFeeService(f.fees, f.orders, &fakeChargeFees{}, 3, newFakeDB())
	f.svc = NewOrderService(f.orders, newFakeMenuRepo(items...), newFakeSequenceRepo(), f.tokens, f.geofence, feeSvc, newFakeDB())
	f.location = &models.Location{ID: 1, Latitude: 40.0, Longitude: -73.0, GeofenceRadiusMeters: 100, TaxRate: 0.07}
	return f
}

func (f *orderFixture) issueToken(t *testing.T) string {
	t.Helper()
	gt, err := f.geofence.IssueToken(f.location, f.location.Latitude, f.location.Longitude, nil, nil)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return gt.Token
}

func TestCreateOrder(t *testing.T) {
	burger := models.MenuItem{ID: 10, Name: "Burger", PriceCents: 1499, IsAvailable: true}

	t.Run("cash order places with computed totals and a fee row", func(t *testing.T) {
		f := newOrderFixture(burger)
		req := CreateOrderRequest{
			GeoToken:      f.issueToken(t),
			PaymentMethod: MethodCash,
			Items: []OrderItemRequest{
				{MenuItemID: 10, Quantity: 1, Modifiers: []OrderItemModifierRequest{
					{OptionName: "Extras", ValueName: "Bacon", PriceDeltaCents: 450},
				}},
				{MenuItemID: 10, Quantity: 1},
			},
		}

		order, err := f.svc.CreateOrder(f.location, req)
		if err != nil {
			t.Fatalf("CreateOrder() error = %v", err)
		}
		if order.Status != StatusPlaced || order.PaymentStatus != PaymentUnpaid {
			t.Errorf("order state = %s/%s, want %s/%s", order.Status, order.PaymentStatus, StatusPlaced, PaymentUnpaid)
		}
		if order.OrderNumber != 1 {
			t.Errorf("OrderNumber = %d, want 1", order.OrderNumber)
		}
		if order.SubtotalCents != 3448 || order.TaxCents != 241 || order.TotalCents != 3689 {
			t.Errorf("totals = %d/%d/%d, want 3448/241/3689", order.SubtotalCents, order.TaxCents, order.TotalCents)
		}
		if len(order.Items) != 2 {
			t.Errorf("len(Items) = %d, want 2", len(order.Items))
		}
		if order.Items[0].NameSnapshot != "Burger" || order.Items[0].UnitPriceCentsSnapshot != 1499 {
			t.Errorf("snapshot = %q/%d, want Burger/1499", order.Items[0].NameSnapshot, order.Items[0].UnitPriceCentsSnapshot)
		}
		if fee, err := f.fees.GetByOrderID(order.ID); err != nil {
			t.Errorf("cash order should record a fee row, got %v", err)
		} else if fee.PlatformFeeCents != 111 || fee.GatewayFeeCents != 0 {
			t.Errorf("fee = %d/%d, want 111/0", fee.PlatformFeeCents, fee.GatewayFeeCents)
		}
	})

	t.Run("card order starts pending without a fee row", func(t *testing.T) {
		f := newOrderFixture(burger)
		req := CreateOrderRequest{
			GeoToken:      f.issueToken(t),
			PaymentMethod: MethodCard,
			Items:         []OrderItemRequest{{MenuItemID: 10, Quantity: 1}},
		}

		order, err := f.svc.CreateOrder(f.location, req)
		if err != nil {
			t.Fatalf("CreateOrder() error = %v", err)
		}
		if order.PaymentStatus != PaymentPending {
			t.Errorf("PaymentStatus = %q, want %q", order.PaymentStatus, PaymentPending)
		}
		if _, err := f.fees.GetByOrderID(order.ID); err == nil {
			t.Error("card order must not record a fee row before capture")
		}
	})

	t.Run("unknown menu item rejects the whole order", func(t *testing.T) {
		f := newOrderFixture(burger)
		token := f.issueToken(t)
		req := CreateOrderRequest{
			GeoToken:      token,
			PaymentMethod: MethodCash,
			Items: []OrderItemRequest{
				{MenuItemID: 10, Quantity: 1},
				{MenuItemID: 999, Quantity: 1},
			},
		}

		if _, err := f.svc.CreateOrder(f.location, req); !errors.Is(err, ErrMenuItemNotFound) {
			t.Fatalf("CreateOrder() error = %v, want %v", err, ErrMenuItemNotFound)
		}
		if len(f.orders.orders) != 0 {
			t.Errorf("rejected order persisted %d rows, want 0", len(f.orders.orders))
		}
		// The rejected attempt must not burn the customer's token.
		if _, err := f.geofence.ValidateToken(token, f.location.ID); err != nil {
			t.Errorf("token should survive a rejected order, got %v", err)
		}
	})

	t.Run("negative line total rejected", func(t *testing.T) {
		f := newOrderFixture(burger)
		req := CreateOrderRequest{
			GeoToken:      f.issueToken(t),
			PaymentMethod: MethodCash,
			Items: []OrderItemRequest{
				{MenuItemID: 10, Quantity: 1, Modifiers: []OrderItemModifierRequest{
					{OptionName: "Voucher", ValueName: "Comped", PriceDeltaCents: -2500},
				}},
			},
		}

		if _, err := f.svc.CreateOrder(f.location, req); !errors.Is(err, ErrValidation) {
			t.Fatalf("CreateOrder() error = %v, want %v", err, ErrValidation)
		}
		if len(f.orders.orders) != 0 {
			t.Errorf("rejected order persisted %d rows, want 0", len(f.orders.orders))
		}
	})

	t.Run("quantity above cap rejected", func(t *testing.T) {
		f := newOrderFixture(burger)
		req := CreateOrderRequest{
			GeoToken:      f.issueToken(t),
			PaymentMethod: MethodCash,
			Items:         []OrderItemRequest{{MenuItemID: 10, Quantity: 100}},
		}

		if _, err := f.svc.CreateOrder(f.location, req); !errors.Is(err, ErrValidation) {
			t.Fatalf("CreateOrder() error = %v, want %v", err, ErrValidation)
		}
	})
}

func TestCreateOrderTokenSingleUse(t *testing.T) {
	burger := models.MenuItem{ID: 10, Name: "Burger", PriceCents: 1499, IsAvailable: true}
	f := newOrderFixture(burger)
	token := f.issueToken(t)
	req := CreateOrderRequest{
		GeoToken:      token,
		PaymentMethod: MethodCash,
		Items:         []OrderItemRequest{{MenuItemID: 10, Quantity: 1}},
	}

	if _, err := f.svc.CreateOrder(f.location, req); err != nil {
		t.Fatalf("first CreateOrder() error = %v", err)
	}
	if _, err := f.svc.CreateOrder(f.location, req); !errors.Is(err, ErrGeoTokenInvalid) {
		t.Errorf("second CreateOrder() error = %v, want %v", err, ErrGeoTokenInvalid)
	}
	if len(f.orders.orders) != 1 {
		t.Errorf("orders persisted = %d, want 1", len(f.orders.orders))
	}
}

// stubGeofence simulates two submissions that both validated the token
// before either consumed it, so the consume guard is what decides.
type stubGeofence struct {
	GeofenceService
	token *models.GeoToken
}

func (s *stubGeofence) ValidateToken(token string, locationID int64) (*models.GeoToken, error) {
	return s.token, nil
}

func TestCreateOrderDoubleSubmissionRace(t *testing.T) {
	burger := models.MenuItem{ID: 10, Name: "Burger", PriceCents: 1499, IsAvailable: true}
	orders := newFakeOrderRepo()
	tokens := newFakeGeoTokenRepo()
	gt := &models.GeoToken{LocationID: 1, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	if _, err := tokens.Create(gt); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	stored, err := tokens.FindValidByToken("tok")
	if err != nil {
		t.Fatalf("FindValidByToken() error = %v", err)
	}

	feeSvc := NewFeeService(newFakePlatformFeeRepo(), orders, &fakeChargeFees{}, 3, newFakeDB())
	svc := NewOrderService(orders, newFakeMenuRepo(burger), newFakeSequenceRepo(), tokens,
		&stubGeofence{token: stored}, feeSvc, newFakeDB())

	location := &models.Location{ID: 1, TaxRate: 0.07}
	req := CreateOrderRequest{
		GeoToken:      "tok",
		PaymentMethod: MethodCash,
		Items:         []OrderItemRequest{{MenuItemID: 10, Quantity: 1}},
	}

	if _, err := svc.CreateOrder(location, req); err != nil {
		t.Fatalf("first CreateOrder() error = %v", err)
	}
	if _, err := svc.CreateOrder(location, req); !errors.Is(err, ErrGeoTokenUsed) {
		t.Errorf("racing CreateOrder() error = %v, want %v", err, ErrGeoTokenUsed)
	}
}

func TestMarkPaid(t *testing.T) {
	tests := []struct {
		name    string
		order   *models.Order
		orderID int64
		wantErr error
	}{
		{
			name:    "cash unpaid order settles",
			order:   &models.Order{ID: 1, PaymentMethod: MethodCash, PaymentStatus: PaymentUnpaid},
			orderID: 1,
		},
		{
			name:    "card order rejected",
			order:   &models.Order{ID: 1, PaymentMethod: MethodCard, PaymentStatus: PaymentPending},
			orderID: 1,
			wantErr: ErrNotCashOrder,
		},
		{
			name:    "already paid order rejected",
			order:   &models.Order{ID: 1, PaymentMethod: MethodCash, PaymentStatus: PaymentPaid},
			orderID: 1,
			wantErr: ErrAlreadyPaid,
		},
		{
			name:    "unknown order",
			orderID: 99,
			wantErr: ErrOrderNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderRepo := newFakeOrderRepo()
			if tt.order != nil {
				orderRepo.add(*tt.order)
			}
			svc := newTestOrderService(orderRepo, newFakeMenuRepo())

			got, err := svc.MarkPaid(tt.orderID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("MarkPaid() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("MarkPaid() error = %v", err)
			}
			if got.PaymentStatus != PaymentPaid {
				t.Errorf("MarkPaid().PaymentStatus = %q, want %q", got.PaymentStatus, PaymentPaid)
			}
		})
	}
}

func TestMarkPaidDoubleSettle(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	orderRepo.add(models.Order{ID: 1, PaymentMethod: MethodCash, PaymentStatus: PaymentUnpaid})
	svc := newTestOrderService(orderRepo, newFakeMenuRepo())

	if _, err := svc.MarkPaid(1); err != nil {
		t.Fatalf("first MarkPaid() error = %v", err)
	}
	if _, err := svc.MarkPaid(1); !errors.Is(err, ErrAlreadyPaid) {
		t.Errorf("second MarkPaid() error = %v, want %v", err, ErrAlreadyPaid)
	}
}

func TestEstimateTotals(t *testing.T) {
	menuRepo := newFakeMenuRepo(
		models.MenuItem{ID: 10, Name: "Burger", PriceCents: 1499, IsAvailable: true},
		models.MenuItem{ID: 11, Name: "Fries", PriceCents: 450, IsAvailable: true},
	)
	svc := newTestOrderService(newFakeOrderRepo(), menuRepo)
	location := &models.Location{ID: 1, TaxRate: 0.07}

	t.Run("full cart", func(t *testing.T) {
		got, err := svc.EstimateTotals(location, EstimateRequest{
			Items: []OrderItemRequest{
				{MenuItemID: 10, Quantity: 1, Modifiers: []OrderItemModifierRequest{{OptionName: "Extras", ValueName: "Bacon", PriceDeltaCents: 450}}},
				{MenuItemID: 10, Quantity: 1},
			},
		})
		if err != nil {
			t.Fatalf("EstimateTotals() error = %v", err)
		}
		want := Totals{SubtotalCents: 3448, TaxCents: 241, TotalCents: 3689}
		if got != want {
			t.Errorf("EstimateTotals() = %+v, want %+v", got, want)
		}
	})

	t.Run("unknown items are skipped", func(t *testing.T) {
		got, err := svc.EstimateTotals(location, EstimateRequest{
			Items: []OrderItemRequest{
				{MenuItemID: 11, Quantity: 2},
				{MenuItemID: 999, Quantity: 1},
			},
		})
		if err != nil {
			t.Fatalf("EstimateTotals() error = %v", err)
		}
		if got.SubtotalCents != 900 {
			t.Errorf("EstimateTotals().SubtotalCents = %d, want 900", got.SubtotalCents)
		}
	})

	t.Run("negative line total rejected", func(t *testing.T) {
		_, err := svc.EstimateTotals(location, EstimateRequest{
			Items: []OrderItemRequest{
				{MenuItemID: 11, Quantity: 1, Modifiers: []OrderItemModifierRequest{{OptionName: "Voucher", ValueName: "Comped", PriceDeltaCents: -2500}}},
			},
		})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("EstimateTotals() error = %v, want %v", err, ErrValidation)
		}
	})

	t.Run("quantity above cap rejected", func(t *testing.T) {
		_, err := svc.EstimateTotals(location, EstimateRequest{
			Items: []OrderItemRequest{{MenuItemID: 11, Quantity: 100}},
		})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("EstimateTotals() error = %v, want %v", err, ErrValidation)
		}
	})
}
