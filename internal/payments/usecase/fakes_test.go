package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/grailpoint/storefront/internal/errors"
	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
	paymentsDomain "github.com/grailpoint/storefront/internal/payments/domain"
)

// In-memory fakes implementing the collaborator interfaces with the same
// conditional-write semantics as the SQL repositories.

type fakeTxManager struct{}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*ordersDomain.Order
	items     map[uuid.UUID][]ordersDomain.OrderItem
	stock     map[uuid.UUID]int
	snapshots map[uuid.UUID]*ordersDomain.ShippingSnapshot

	failPrimary   bool
	markPaidCalls int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:    make(map[uuid.UUID]*ordersDomain.Order),
		items:     make(map[uuid.UUID][]ordersDomain.OrderItem),
		stock:     make(map[uuid.UUID]int),
		snapshots: make(map[uuid.UUID]*ordersDomain.ShippingSnapshot),
	}
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, orderID uuid.UUID) (*ordersDomain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderRepo) GetByPaymentReference(
	ctx context.Context,
	chargeID, paymentIntentID string,
) (*ordersDomain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if chargeID != "" && order.ChargeID != nil && *order.ChargeID == chargeID {
			copied := *order
			return &copied, nil
		}
		if paymentIntentID != "" && order.PaymentIntentID != nil && *order.PaymentIntentID == paymentIntentID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeOrderRepo) ConditionalUpdateStatus(
	ctx context.Context,
	orderID uuid.UUID,
	from []ordersDomain.OrderStatus,
	to ordersDomain.OrderStatus,
	paymentIntentID *string,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return false, nil
	}
	if !statusIn(order.Status, from) {
		return false, nil
	}
	order.Status = to
	if paymentIntentID != nil {
		order.PaymentIntentID = paymentIntentID
	}
	return true, nil
}

func (f *fakeOrderRepo) MarkPaidAndDecrementStock(
	ctx context.Context,
	orderID uuid.UUID,
	paymentIntentID string,
	chargeID *string,
	items []ordersDomain.OrderItem,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markPaidCalls++
	if f.failPrimary {
		return false, apperrors.New("primary transition failure")
	}
	order, ok := f.orders[orderID]
	if !ok {
		return false, nil
	}
	if !statusIn(order.Status, ordersDomain.PaidSources()) {
		return false, nil
	}
	for _, item := range items {
		if item.VariantID == nil {
			continue
		}
		if f.stock[*item.VariantID] < item.Quantity {
			return false, ordersDomain.ErrInsufficientStock
		}
	}
	for _, item := range items {
		if item.VariantID == nil {
			continue
		}
		f.stock[*item.VariantID] -= item.Quantity
	}
	order.Status = ordersDomain.StatusPaid
	order.PaymentIntentID = &paymentIntentID
	if chargeID != nil {
		order.ChargeID = chargeID
	}
	return true, nil
}

func (f *fakeOrderRepo) UpdateRefundSummary(
	ctx context.Context,
	orderID uuid.UUID,
	refundAmountCents int64,
	refundedAt *time.Time,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if order.RefundAmount > refundAmountCents {
		return nil
	}
	order.RefundAmount = refundAmountCents
	if order.RefundedAt == nil {
		order.RefundedAt = refundedAt
	}
	return nil
}

func (f *fakeOrderRepo) UpdateGuestEmail(ctx context.Context, orderID uuid.UUID, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if order.UserID == nil {
		order.GuestEmail = &email
	}
	return nil
}

func (f *fakeOrderRepo) SetFulfillmentStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order, ok := f.orders[orderID]; ok {
		order.FulfillmentStatus = &status
	}
	return nil
}

func (f *fakeOrderRepo) SetTaxTransactionID(ctx context.Context, orderID uuid.UUID, taxTransactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order, ok := f.orders[orderID]; ok {
		order.TaxTransactionID = &taxTransactionID
	}
	return nil
}

func (f *fakeOrderRepo) GetItems(ctx context.Context, orderID uuid.UUID) ([]ordersDomain.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[orderID], nil
}

func (f *fakeOrderRepo) InsertShippingSnapshot(
	ctx context.Context,
	snapshot *ordersDomain.ShippingSnapshot,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.snapshots[snapshot.OrderID]; ok {
		return nil
	}
	f.snapshots[snapshot.OrderID] = snapshot
	return nil
}

func (f *fakeOrderRepo) GetShippingSnapshot(
	ctx context.Context,
	orderID uuid.UUID,
) (*ordersDomain.ShippingSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.snapshots[orderID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return snapshot, nil
}

func statusIn(status ordersDomain.OrderStatus, set []ordersDomain.OrderStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

type fakeOrderEventRepo struct {
	mu     sync.Mutex
	events []*ordersDomain.OrderEvent
}

func (f *fakeOrderEventRepo) HasEvent(
	ctx context.Context,
	orderID uuid.UUID,
	eventType ordersDomain.OrderEventType,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, event := range f.events {
		if event.OrderID == orderID && event.Type == eventType {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrderEventRepo) Append(ctx context.Context, event *ordersDomain.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *event
	if copied.ID == uuid.Nil {
		copied.ID = uuid.Must(uuid.NewV7())
	}
	copied.CreatedAt = time.Now().UTC()
	f.events = append(f.events, &copied)
	return nil
}

func (f *fakeOrderEventRepo) ListByOrder(
	ctx context.Context,
	orderID uuid.UUID,
) ([]*ordersDomain.OrderEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*ordersDomain.OrderEvent
	for _, event := range f.events {
		if event.OrderID == orderID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeOrderEventRepo) count(orderID uuid.UUID, eventType ordersDomain.OrderEventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, event := range f.events {
		if event.OrderID == orderID && event.Type == eventType {
			n++
		}
	}
	return n
}

type fakeProcessedEventRepo struct {
	mu     sync.Mutex
	seen   map[string]*paymentsDomain.ProcessedEvent
	failOn string
}

func newFakeProcessedEventRepo() *fakeProcessedEventRepo {
	return &fakeProcessedEventRepo{seen: make(map[string]*paymentsDomain.ProcessedEvent)}
}

func (f *fakeProcessedEventRepo) Exists(ctx context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.seen[eventID]
	return ok, nil
}

func (f *fakeProcessedEventRepo) RecordProcessed(
	ctx context.Context,
	event *paymentsDomain.ProcessedEvent,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == event.EventID {
		return apperrors.New("record failure")
	}
	if _, ok := f.seen[event.EventID]; !ok {
		f.seen[event.EventID] = event
	}
	return nil
}

type fakeGateway struct {
	mu sync.Mutex

	refunds  []paymentsDomain.Refund
	listErr  error
	listCall int

	charge    *paymentsDomain.Charge
	chargeErr error

	paymentMethod    *paymentsDomain.PaymentMethod
	paymentMethodErr error

	taxTransactionID string
	taxCalls         int
}

func (f *fakeGateway) ListRefunds(ctx context.Context, paymentIntentID string) ([]paymentsDomain.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCall++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.refunds, nil
}

func (f *fakeGateway) GetCharge(ctx context.Context, chargeID string) (*paymentsDomain.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	if f.charge == nil {
		return nil, apperrors.ErrNotFound
	}
	return f.charge, nil
}

func (f *fakeGateway) GetPaymentMethod(
	ctx context.Context,
	paymentMethodID string,
) (*paymentsDomain.PaymentMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.paymentMethodErr != nil {
		return nil, f.paymentMethodErr
	}
	if f.paymentMethod == nil {
		return nil, apperrors.ErrNotFound
	}
	return f.paymentMethod, nil
}

func (f *fakeGateway) CreateTaxTransaction(
	ctx context.Context,
	taxCalculationID, reference, tenantID string,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taxCalls++
	if f.taxTransactionID == "" {
		return "taxtxn_fake", nil
	}
	return f.taxTransactionID, nil
}

type fakeMailer struct {
	mu            sync.Mutex
	confirmations int
	pickups       int
	sendErr       error
}

func (f *fakeMailer) SendOrderConfirmation(
	ctx context.Context,
	order *ordersDomain.Order,
	items []ordersDomain.OrderItem,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.confirmations++
	return nil
}

func (f *fakeMailer) SendPickupInstructions(ctx context.Context, order *ordersDomain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.pickups++
	return nil
}

type fakeStaffNotifier struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeStaffNotifier) NotifyNewOrder(ctx context.Context, order *ordersDomain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

type fakeCatalogSyncer struct {
	mu       sync.Mutex
	syncErr  error
	products [][]uuid.UUID
}

func (f *fakeCatalogSyncer) SyncSizeTags(ctx context.Context, productIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.syncErr != nil {
		return f.syncErr
	}
	f.products = append(f.products, productIDs)
	return nil
}

type fakeTaxRecorder struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTaxRecorder) RecordSale(
	ctx context.Context,
	order *ordersDomain.Order,
	items []ordersDomain.OrderItem,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

type fakeCacheInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeCacheInvalidator) InvalidateProducts(ctx context.Context, productIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

type fakePickupThreads struct {
	mu    sync.Mutex
	calls int
}

func (f *fakePickupThreads) EnsureThread(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

// fixture bundles a use case wired to fakes plus the fakes themselves.
type fixture struct {
	useCase   *WebhookUseCase
	orderRepo *fakeOrderRepo
	eventRepo *fakeOrderEventRepo
	processed *fakeProcessedEventRepo
	gateway   *fakeGateway
	mailer    *fakeMailer
	staff     *fakeStaffNotifier
	catalog   *fakeCatalogSyncer
	tax       *fakeTaxRecorder
	cache     *fakeCacheInvalidator
	pickup    *fakePickupThreads
}

func newFixture() *fixture {
	f := &fixture{
		orderRepo: newFakeOrderRepo(),
		eventRepo: &fakeOrderEventRepo{},
		processed: newFakeProcessedEventRepo(),
		gateway:   &fakeGateway{},
		mailer:    &fakeMailer{},
		staff:     &fakeStaffNotifier{},
		catalog:   &fakeCatalogSyncer{},
		tax:       &fakeTaxRecorder{},
		cache:     &fakeCacheInvalidator{},
		pickup:    &fakePickupThreads{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.useCase = NewWebhookUseCase(
		Config{GuestEmailDomain: "example.com", EffectTimeout: time.Second},
		&fakeTxManager{},
		f.orderRepo,
		f.eventRepo,
		f.processed,
		f.gateway,
		f.mailer,
		f.staff,
		f.catalog,
		f.tax,
		f.cache,
		f.pickup,
		logger,
		nil,
	)
	return f
}

// seedOrder creates a pending ship order with one line item of qty 2 and a
// variant with the given stock, returning the order and variant ids.
func (f *fixture) seedOrder(totalCents int64, stock int) (uuid.UUID, uuid.UUID) {
	orderID := uuid.Must(uuid.NewV7())
	variantID := uuid.Must(uuid.NewV7())
	productID := uuid.Must(uuid.NewV7())

	f.orderRepo.orders[orderID] = &ordersDomain.Order{
		ID:          orderID,
		Status:      ordersDomain.StatusPending,
		Fulfillment: ordersDomain.FulfillmentShip,
		Currency:    "usd",
		Total:       totalCents,
	}
	f.orderRepo.items[orderID] = []ordersDomain.OrderItem{
		{
			ID:             uuid.Must(uuid.NewV7()),
			OrderID:        orderID,
			ProductID:      productID,
			VariantID:      &variantID,
			Quantity:       2,
			UnitPriceCents: totalCents / 2,
			LineTotalCents: totalCents,
		},
	}
	f.orderRepo.stock[variantID] = stock
	return orderID, variantID
}
