package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/assia/internal/cart"
	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/RoyceAzure/lab/assia/internal/infra/metrics"
	"github.com/RoyceAzure/lab/assia/internal/infra/repository/kv"
	"github.com/RoyceAzure/lab/assia/internal/infra/repository/order_repo"
	"github.com/RoyceAzure/lab/assia/internal/parser"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type failingStore struct {
	kv.IStore
	mu   sync.Mutex
	fail bool
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errors.New("store unavailable")
	}
	return f.IStore.Set(ctx, key, value)
}

func (f *failingStore) setFail(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

type recordingProducer struct {
	mu      sync.Mutex
	events  []string
	failAll bool
}

func (p *recordingProducer) record(evt string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	if p.failAll {
		return errors.New("broker down")
	}
	return nil
}

func (p *recordingProducer) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// blockingProducer 模擬 broker 無回應，直到 release 被關閉
type blockingProducer struct {
	recordingProducer
	release chan struct{}
}

func (p *blockingProducer) PublishOrderCreated(ctx context.Context, o model.Order) error {
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.record("created:" + o.ID)
}

func (p *recordingProducer) PublishOrderCreated(_ context.Context, o model.Order) error {
	return p.record("created:" + o.ID)
}

func (p *recordingProducer) PublishOrderUpdated(_ context.Context, o model.Order) error {
	return p.record("updated:" + o.ID + ":" + string(o.Status))
}

func (p *recordingProducer) PublishOrderDeleted(_ context.Context, id string) error {
	return p.record("deleted:" + id)
}

func (p *recordingProducer) Close() error { return nil }

func bibleCard() model.ProductCard {
	return model.ProductCard{
		Name:         "**Bíblia de Estudo**",
		PriceDisplay: "Preço: $49.90",
		Price:        parser.ParsePrice("Preço: $49.90"),
	}
}

func sampleCustomer() model.CustomerInfo {
	return model.CustomerInfo{
		Name: "Maria", Email: "m@example.com", Phone: "1", Street: "Main",
		HouseNumber: "1", Neighborhood: "Allston", City: "Boston", State: "MA", PostalCode: "02134",
	}
}

func samplePayment() model.PaymentCapture {
	return model.PaymentCapture{CardholderName: "MARIA", CardNumber: "4111111111111111", Expiry: "12/29", CVV: "123"}
}

type OrderServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	store    *failingStore
	repo     *order_repo.OrderRepo
	producer *recordingProducer
	metrics  *metrics.Metrics
	service  *OrderService
	now      time.Time
}

func TestOrderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func (s *OrderServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = &failingStore{IStore: kv.NewMemoryStore()}
	s.repo = order_repo.NewOrderRepo(s.store, "")
	s.producer = &recordingProducer{}
	s.metrics = metrics.New("test")
	s.now = time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)
	logger := zerolog.Nop()
	s.service = NewOrderService(s.repo, &logger,
		WithClock(func() time.Time { return s.now }),
		WithOrderProducer(s.producer),
		WithOrderMetrics(s.metrics),
	)
	s.Require().NoError(s.service.Load(s.ctx))
}

func (s *OrderServiceTestSuite) TearDownTest() {
	s.NoError(s.service.Close(s.ctx))
}

// flush 等待排隊中的事件送出後回傳已送出的事件
func (s *OrderServiceTestSuite) flush() []string {
	ctx, cancel := context.WithTimeout(s.ctx, time.Second)
	defer cancel()
	s.Require().NoError(s.service.Close(ctx))
	return s.producer.snapshot()
}

func (s *OrderServiceTestSuite) commit() *model.Order {
	c := cart.New()
	c.Add(bibleCard())
	order, err := s.service.Commit(s.ctx, c, sampleCustomer(), samplePayment())
	s.Require().NoError(err)
	return order
}

func (s *OrderServiceTestSuite) TestEndToEndTotals() {
	c := cart.New()
	c.Add(bibleCard())
	c.Add(bibleCard())
	s.Require().Equal(1, c.Len())
	s.Require().Equal(2, c.Lines()[0].Quantity)
	s.Require().True(decimal.RequireFromString("99.80").Equal(c.Subtotal()))

	order, err := s.service.Commit(s.ctx, c, sampleCustomer(), samplePayment())
	s.Require().NoError(err)

	s.True(decimal.RequireFromString("99.80").Equal(order.Subtotal))
	s.True(decimal.RequireFromString("6.99").Equal(order.ShippingFee))
	s.True(decimal.RequireFromString("106.79").Equal(order.Total), "total %s", order.Total)
	s.Equal(model.OrderStatusProcessing, order.Status)
	s.True(c.IsEmpty(), "cart must be cleared after commit")
	s.Require().Len(order.LineItems, 1)
	s.Equal("Bíblia de Estudo", order.LineItems[0].Name)

	// 只保存遮蔽後的卡號
	s.Equal("************1111", order.Payment.MaskedCardNumber)
	raw, _, err := s.store.Get(s.ctx, order_repo.DefaultOrdersKey)
	s.Require().NoError(err)
	s.NotContains(string(raw), "4111111111111111")
	s.NotContains(string(raw), `"cvv"`)

	s.Equal([]string{"created:" + order.ID}, s.flush())
}

func (s *OrderServiceTestSuite) TestIDScheme() {
	order := s.commit()

	millis := strconv.FormatInt(s.now.UnixMilli(), 10)
	s.Require().Len(order.ID, len(millis)+3)
	s.Equal(millis, order.ID[:len(millis)])
	suffix, err := strconv.Atoi(order.ID[len(millis):])
	s.Require().NoError(err)
	s.GreaterOrEqual(suffix, 100)
	s.LessOrEqual(suffix, 999)
}

func (s *OrderServiceTestSuite) TestIDRegeneratedOnCollision() {
	suffixes := []int{123, 123, 456}
	s.service.suffix = func() int {
		v := suffixes[0]
		suffixes = suffixes[1:]
		return v
	}
	first := s.commit()
	second := s.commit()
	s.NotEqual(first.ID, second.ID)
	s.Equal("456", second.ID[len(second.ID)-3:])
}

func (s *OrderServiceTestSuite) TestLineItemsAreSnapshots() {
	c := cart.New()
	c.Add(bibleCard())
	order, err := s.service.Commit(s.ctx, c, sampleCustomer(), samplePayment())
	s.Require().NoError(err)

	c.Add(bibleCard())
	order.LineItems[0].Quantity = 99

	stored, result := s.service.Get(order.ID)
	s.Require().Equal(Found, result)
	s.Equal(1, stored.LineItems[0].Quantity)
}

func (s *OrderServiceTestSuite) TestCommitRollbackOnPersistFailure() {
	s.store.setFail(true)

	c := cart.New()
	c.Add(bibleCard())
	_, err := s.service.Commit(s.ctx, c, sampleCustomer(), samplePayment())
	s.Error(err)
	s.Empty(s.service.List())
	s.False(c.IsEmpty(), "cart must be kept when persisting fails")
	s.Empty(s.flush())
}

func (s *OrderServiceTestSuite) TestUpdateStatus() {
	order := s.commit()

	result, err := s.service.UpdateStatus(s.ctx, order.ID, model.OrderStatusCompleted)
	s.Require().NoError(err)
	s.Equal(Found, result)

	// 可以任意切換回去
	result, err = s.service.UpdateStatus(s.ctx, order.ID, model.OrderStatusProcessing)
	s.Require().NoError(err)
	s.Equal(Found, result)

	stored, _ := s.service.Get(order.ID)
	s.Equal(model.OrderStatusProcessing, stored.Status)

	result, err = s.service.UpdateStatus(s.ctx, "missing", model.OrderStatusCompleted)
	s.NoError(err)
	s.Equal(NotFound, result)

	_, err = s.service.UpdateStatus(s.ctx, order.ID, model.OrderStatus("Shipped"))
	s.ErrorIs(err, ErrInvalidStatus)
}

func (s *OrderServiceTestSuite) TestUpdateCustomer() {
	order := s.commit()

	customer := sampleCustomer()
	customer.City = "Framingham"
	result, err := s.service.UpdateCustomer(s.ctx, order.ID, customer, nil)
	s.Require().NoError(err)
	s.Equal(Found, result)

	stored, _ := s.service.Get(order.ID)
	s.Equal("Framingham", stored.Customer.City)
	s.Equal(model.OrderStatusProcessing, stored.Status)

	cancelled := model.OrderStatusCancelled
	_, err = s.service.UpdateCustomer(s.ctx, order.ID, customer, &cancelled)
	s.Require().NoError(err)
	stored, _ = s.service.Get(order.ID)
	s.Equal(model.OrderStatusCancelled, stored.Status)
}

func (s *OrderServiceTestSuite) TestUpdateRollbackOnPersistFailure() {
	order := s.commit()
	s.store.setFail(true)

	result, err := s.service.UpdateStatus(s.ctx, order.ID, model.OrderStatusCompleted)
	s.Error(err)
	s.Equal(Found, result)

	stored, _ := s.service.Get(order.ID)
	s.Equal(model.OrderStatusProcessing, stored.Status)
}

func (s *OrderServiceTestSuite) TestDelete() {
	first := s.commit()
	second := s.commit()

	result, err := s.service.Delete(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(Found, result)

	orders := s.service.List()
	s.Require().Len(orders, 1)
	s.Equal(second.ID, orders[0].ID)

	result, err = s.service.Delete(s.ctx, first.ID)
	s.NoError(err)
	s.Equal(NotFound, result)

	s.Contains(s.flush(), "deleted:"+first.ID)
}

func (s *OrderServiceTestSuite) TestDeleteRollbackOnPersistFailure() {
	order := s.commit()
	s.store.setFail(true)

	_, err := s.service.Delete(s.ctx, order.ID)
	s.Error(err)
	s.Len(s.service.List(), 1)
}

func (s *OrderServiceTestSuite) TestPersistedAcrossReload() {
	order := s.commit()
	_, err := s.service.UpdateStatus(s.ctx, order.ID, model.OrderStatusCompleted)
	s.Require().NoError(err)

	logger := zerolog.Nop()
	reloaded := NewOrderService(s.repo, &logger)
	s.Require().NoError(reloaded.Load(s.ctx))

	stored, result := reloaded.Get(order.ID)
	s.Require().Equal(Found, result)
	s.Equal(model.OrderStatusCompleted, stored.Status)
	s.True(order.CreatedAt.Equal(stored.CreatedAt))
	s.True(order.Total.Equal(stored.Total))
}

func (s *OrderServiceTestSuite) TestPublishFailureDoesNotFailMutation() {
	s.producer.failAll = true
	order := s.commit()

	_, result := s.service.Get(order.ID)
	s.Equal(Found, result)
}

func (s *OrderServiceTestSuite) TestEventsKeepMutationOrder() {
	order := s.commit()
	_, err := s.service.UpdateStatus(s.ctx, order.ID, model.OrderStatusCompleted)
	s.Require().NoError(err)
	_, err = s.service.Delete(s.ctx, order.ID)
	s.Require().NoError(err)

	s.Equal([]string{
		"created:" + order.ID,
		"updated:" + order.ID + ":" + string(model.OrderStatusCompleted),
		"deleted:" + order.ID,
	}, s.flush())
}

func (s *OrderServiceTestSuite) TestPublishAfterCloseIsDropped() {
	s.Require().NoError(s.service.Close(s.ctx))

	order := s.commit()
	_, result := s.service.Get(order.ID)
	s.Equal(Found, result)
	s.Empty(s.producer.snapshot())
}

func TestOrderService_SlowBrokerDoesNotBlockCommit(t *testing.T) {
	logger := zerolog.Nop()
	p := &blockingProducer{release: make(chan struct{})}
	svc := NewOrderService(order_repo.NewOrderRepo(kv.NewMemoryStore(), ""), &logger, WithOrderProducer(p))
	require.NoError(t, svc.Load(context.Background()))

	c := cart.New()
	c.Add(bibleCard())
	start := time.Now()
	order, err := svc.Commit(context.Background(), c, sampleCustomer(), samplePayment())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "commit 不應等待 broker")
	assert.Empty(t, p.snapshot())

	close(p.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.Close(ctx))
	assert.Equal(t, []string{"created:" + order.ID}, p.snapshot())
}

func TestOrderService_CloseHonorsDeadline(t *testing.T) {
	logger := zerolog.Nop()
	p := &blockingProducer{release: make(chan struct{})}
	defer close(p.release)
	svc := NewOrderService(order_repo.NewOrderRepo(kv.NewMemoryStore(), ""), &logger, WithOrderProducer(p))
	require.NoError(t, svc.Load(context.Background()))

	c := cart.New()
	c.Add(bibleCard())
	_, err := svc.Commit(context.Background(), c, sampleCustomer(), samplePayment())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Close(ctx), context.DeadlineExceeded)
}

func (s *OrderServiceTestSuite) TestListNewestFirstAndStats() {
	first := s.commit()
	s.now = s.now.Add(time.Minute)
	second := s.commit()

	orders := s.service.ListNewestFirst()
	s.Require().Len(orders, 2)
	s.Equal(second.ID, orders[0].ID)
	s.Equal(first.ID, orders[1].ID)

	_, err := s.service.UpdateStatus(s.ctx, first.ID, model.OrderStatusCompleted)
	s.Require().NoError(err)

	stats := s.service.Stats()
	s.True(decimal.RequireFromString("56.89").Equal(stats.RevenueToday), "today %s", stats.RevenueToday)
	s.Equal(1, stats.ProcessingCount)
}

func TestOrderService_CommitBeforeLoad(t *testing.T) {
	logger := zerolog.Nop()
	svc := NewOrderService(order_repo.NewOrderRepo(kv.NewMemoryStore(), ""), &logger)

	c := cart.New()
	c.Add(bibleCard())
	_, err := svc.Commit(context.Background(), c, sampleCustomer(), samplePayment())
	require.ErrorIs(t, err, ErrOrdersNotReady)
	assert.False(t, c.IsEmpty())
}
