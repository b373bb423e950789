package services

import (
	"database/sql"
	"fmt"
	"time"

	"roms_backend/internal/models"
	"roms_backend/internal/repositories"
)

// In-memory repository fakes. They implement the guard semantics the SQL
// versions get from WHERE clauses, so service logic can be exercised without
// a database.

// fakeTx stands in for a database transaction. The fakes apply writes
// immediately, so Commit and Rollback only record that they happened.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(query string, args ...interface{}) (sql.Result, error) { return nil, nil }
func (t *fakeTx) QueryRow(query string, args ...interface{}) *sql.Row        { return nil }
func (t *fakeTx) Query(query string, args ...interface{}) (*sql.Rows, error) { return nil, nil }

func (t *fakeTx) Commit() error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	txs []*fakeTx
}

func newFakeDB() *fakeDB { return &fakeDB{} }

func (d *fakeDB) Exec(query string, args ...interface{}) (sql.Result, error) { return nil, nil }
func (d *fakeDB) QueryRow(query string, args ...interface{}) *sql.Row        { return nil }
func (d *fakeDB) Query(query string, args ...interface{}) (*sql.Rows, error) { return nil, nil }

func (d *fakeDB) Begin() (repositories.Tx, error) {
	tx := &fakeTx{}
	d.txs = append(d.txs, tx)
	return tx, nil
}

func (d *fakeDB) lastTx() *fakeTx {
	if len(d.txs) == 0 {
		return nil
	}
	return d.txs[len(d.txs)-1]
}

type fakeSequenceRepo struct {
	counters map[string]int
}

func newFakeSequenceRepo() *fakeSequenceRepo {
	return &fakeSequenceRepo{counters: map[string]int{}}
}

func (r *fakeSequenceRepo) NextOrderNumber(_ repositories.SQLExecutor, locationID int64, date string) (int, error) {
	key := fmt.Sprintf("%d/%s", locationID, date)
	r.counters[key]++
	return r.counters[key], nil
}

type fakeGeoTokenRepo struct {
	tokens map[string]*models.GeoToken
	nextID int64
}

func newFakeGeoTokenRepo() *fakeGeoTokenRepo {
	return &fakeGeoTokenRepo{tokens: map[string]*models.GeoToken{}}
}

func (r *fakeGeoTokenRepo) Create(token *models.GeoToken) (int64, error) {
	r.nextID++
	token.ID = r.nextID
	copied := *token
	r.tokens[token.Token] = &copied
	return token.ID, nil
}

func (r *fakeGeoTokenRepo) FindValidByToken(token string) (*models.GeoToken, error) {
	gt, ok := r.tokens[token]
	if !ok || !gt.ExpiresAt.After(time.Now()) {
		return nil, repositories.ErrNotFound
	}
	copied := *gt
	return &copied, nil
}

func (r *fakeGeoTokenRepo) Consume(_ repositories.SQLExecutor, tokenID int64, usedAt time.Time) error {
	for _, gt := range r.tokens {
		if gt.ID == tokenID {
			if gt.UsedAt != nil || !gt.ExpiresAt.After(usedAt) {
				return repositories.ErrNotFound
			}
			at := usedAt
			gt.UsedAt = &at
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeOrderRepo struct {
	orders              map[int64]*models.Order
	items               map[int64][]models.OrderItem
	nextID              int64
	lastPaymentExecutor repositories.SQLExecutor
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[int64]*models.Order{}, items: map[int64][]models.OrderItem{}}
}

func (r *fakeOrderRepo) add(order models.Order) *models.Order {
	if order.ID == 0 {
		r.nextID++
		order.ID = r.nextID
	}
	r.orders[order.ID] = &order
	return r.orders[order.ID]
}

func (r *fakeOrderRepo) CreateOrder(_ repositories.SQLExecutor, order *models.Order) (int64, error) {
	r.nextID++
	order.ID = r.nextID
	copied := *order
	r.orders[order.ID] = &copied
	return order.ID, nil
}

func (r *fakeOrderRepo) CreateOrderItem(_ repositories.SQLExecutor, item *models.OrderItem) (int64, error) {
	r.nextID++
	item.ID = r.nextID
	r.items[item.OrderID] = append(r.items[item.OrderID], *item)
	return item.ID, nil
}

func (r *fakeOrderRepo) CreateOrderItemModifier(_ repositories.SQLExecutor, modifier *models.OrderItemModifier) (int64, error) {
	r.nextID++
	modifier.ID = r.nextID
	return modifier.ID, nil
}

func (r *fakeOrderRepo) GetOrderByID(orderID int64) (*models.Order, error) {
	order, ok := r.orders[orderID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *fakeOrderRepo) GetOrderByIDForUpdate(_ repositories.SQLExecutor, orderID int64) (*models.Order, error) {
	return r.GetOrderByID(orderID)
}

func (r *fakeOrderRepo) GetOrderByPaymentIntentID(paymentIntentID string) (*models.Order, error) {
	for _, order := range r.orders {
		if order.PaymentIntentID != nil && *order.PaymentIntentID == paymentIntentID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeOrderRepo) GetOrderItems(orderID int64) ([]models.OrderItem, error) {
	return r.items[orderID], nil
}

func (r *fakeOrderRepo) GetOrders(locationID int64, filters models.OrderFilters) ([]models.Order, int, error) {
	var out []models.Order
	for _, order := range r.orders {
		if order.LocationID == locationID {
			out = append(out, *order)
		}
	}
	return out, len(out), nil
}

func (r *fakeOrderRepo) GetPendingOrders(locationID int64) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.orders {
		if order.LocationID != locationID {
			continue
		}
		switch order.Status {
		case StatusPlaced, StatusAccepted, StatusPreparing, StatusReady:
			out = append(out, *order)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateOrderStatus(_ repositories.SQLExecutor, orderID int64, newStatus string, stamps repositories.StatusStamps) error {
	order, ok := r.orders[orderID]
	if !ok {
		return repositories.ErrNotFound
	}
	order.Status = newStatus
	if stamps.AcceptedAt != nil {
		order.AcceptedAt = stamps.AcceptedAt
	}
	if stamps.CompletedAt != nil {
		order.CompletedAt = stamps.CompletedAt
	}
	if stamps.CancelledAt != nil {
		order.CancelledAt = stamps.CancelledAt
		order.CancelledReason = stamps.CancelledReason
	}
	return nil
}

func (r *fakeOrderRepo) UpdatePaymentStatusFrom(executor repositories.SQLExecutor, orderID int64, fromStatuses []string, newStatus string) (bool, error) {
	r.lastPaymentExecutor = executor
	order, ok := r.orders[orderID]
	if !ok {
		return false, nil
	}
	for _, from := range fromStatuses {
		if order.PaymentStatus == from {
			order.PaymentStatus = newStatus
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOrderRepo) SetPaymentIntent(_ repositories.SQLExecutor, orderID int64, paymentIntentID string, paymentStatus string) error {
	order, ok := r.orders[orderID]
	if !ok {
		return repositories.ErrNotFound
	}
	order.PaymentIntentID = &paymentIntentID
	order.PaymentStatus = paymentStatus
	return nil
}

type fakePlatformFeeRepo struct {
	fees         map[int64]*models.PlatformFee
	nextID       int64
	lastExecutor repositories.SQLExecutor
	failNext     error
}

func newFakePlatformFeeRepo() *fakePlatformFeeRepo {
	return &fakePlatformFeeRepo{fees: map[int64]*models.PlatformFee{}}
}

func (r *fakePlatformFeeRepo) Create(executor repositories.SQLExecutor, fee *models.PlatformFee) (int64, error) {
	r.lastExecutor = executor
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return 0, err
	}
	if _, exists := r.fees[fee.OrderID]; exists {
		return 0, repositories.ErrDuplicateKey
	}
	r.nextID++
	fee.ID = r.nextID
	copied := *fee
	r.fees[fee.OrderID] = &copied
	return fee.ID, nil
}

func (r *fakePlatformFeeRepo) GetByOrderID(orderID int64) (*models.PlatformFee, error) {
	fee, ok := r.fees[orderID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *fee
	return &copied, nil
}

type fakeMenuRepo struct {
	items map[int64]*models.MenuItem
}

func newFakeMenuRepo(items ...models.MenuItem) *fakeMenuRepo {
	r := &fakeMenuRepo{items: map[int64]*models.MenuItem{}}
	for i := range items {
		r.items[items[i].ID] = &items[i]
	}
	return r
}

func (r *fakeMenuRepo) GetItemByID(itemID int64) (*models.MenuItem, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (r *fakeMenuRepo) GetMenuForLocation(locationID int64) ([]models.MenuCategory, error) {
	return nil, nil
}

type fakeLocationRepo struct {
	locations map[int64]*models.Location
	members   map[string]bool // "userID/locationID"
}

func newFakeLocationRepo(locations ...models.Location) *fakeLocationRepo {
	r := &fakeLocationRepo{locations: map[int64]*models.Location{}, members: map[string]bool{}}
	for i := range locations {
		r.locations[locations[i].ID] = &locations[i]
	}
	return r
}

func (r *fakeLocationRepo) addMember(userID, locationID int64) {
	r.members[fmt.Sprintf("%d/%d", userID, locationID)] = true
}

func (r *fakeLocationRepo) GetActiveByPublicCode(publicCode string) (*models.Location, error) {
	for _, loc := range r.locations {
		if loc.PublicCode == publicCode && loc.IsActive {
			copied := *loc
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeLocationRepo) GetByID(id int64) (*models.Location, error) {
	loc, ok := r.locations[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *loc
	return &copied, nil
}

func (r *fakeLocationRepo) UserHasAccess(userID, locationID int64) (bool, error) {
	return r.members[fmt.Sprintf("%d/%d", userID, locationID)], nil
}

type fakeChargeFees struct {
	fees map[string]int64
}

func (f *fakeChargeFees) GetChargeFee(chargeID string) int64 {
	return f.fees[chargeID]
}
