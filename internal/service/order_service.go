package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoyceAzure/lab/assia/internal/cart"
	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/RoyceAzure/lab/assia/internal/infra/metrics"
	"github.com/RoyceAzure/lab/assia/internal/infra/producer"
	"github.com/RoyceAzure/lab/assia/internal/infra/repository/order_repo"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidStatus  = errors.New("invalid order status")
	ErrOrdersNotReady = errors.New("orders not loaded")
	ErrNilCart        = errors.New("cart is nil")
)

// DefaultShippingFee 固定運費
var DefaultShippingFee = decimal.RequireFromString("6.99")

const (
	publishTimeout = 5 * time.Second
	eventQueueSize = 256
)

type publishJob func(ctx context.Context) error

// Result 以 id 查找訂單的結果，找不到不是錯誤
type Result int

const (
	NotFound Result = iota
	Found
)

func (r Result) String() string {
	if r == Found {
		return "found"
	}
	return "not_found"
}

type IOrderService interface {
	Load(ctx context.Context) error
	Commit(ctx context.Context, c *cart.Cart, customer model.CustomerInfo, payment model.PaymentCapture) (*model.Order, error)
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (Result, error)
	UpdateCustomer(ctx context.Context, id string, customer model.CustomerInfo, status *model.OrderStatus) (Result, error)
	Delete(ctx context.Context, id string) (Result, error)
	List() []model.Order
	ListNewestFirst() []model.Order
	Get(id string) (model.Order, Result)
	Stats() Stats
	Close(ctx context.Context) error
}

/*
OrderService 整個程序共用一份訂單清單
啟動時載入一次，每次異動後整份寫回
寫回失敗時還原記憶體中的異動
*/
type OrderService struct {
	mu          sync.RWMutex
	loaded      bool
	orders      []model.Order
	repo        order_repo.IOrderRepository
	producer    producer.IOrderEventProducer
	metrics     *metrics.Metrics
	logger      *zerolog.Logger
	shippingFee decimal.Decimal
	now         func() time.Time
	suffix      func() int

	// 事件由單一 goroutine 依序送出，請求不等待 broker
	isRunning atomic.Bool
	events    chan publishJob
	isStopped chan struct{}
	chanMutex sync.RWMutex
}

var _ IOrderService = (*OrderService)(nil)

type OrderServiceOption func(*OrderService)

func WithShippingFee(fee decimal.Decimal) OrderServiceOption {
	return func(s *OrderService) {
		s.shippingFee = fee
	}
}

func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithOrderMetrics(m *metrics.Metrics) OrderServiceOption {
	return func(s *OrderService) {
		s.metrics = m
	}
}

func WithOrderProducer(p producer.IOrderEventProducer) OrderServiceOption {
	return func(s *OrderService) {
		if p != nil {
			s.producer = p
		}
	}
}

func NewOrderService(repo order_repo.IOrderRepository, logger *zerolog.Logger, options ...OrderServiceOption) *OrderService {
	if repo == nil {
		panic("order repository is nil")
	}
	if logger == nil {
		panic("logger is nil")
	}
	s := &OrderService{
		repo:        repo,
		producer:    producer.NoopProducer{},
		logger:      logger,
		shippingFee: DefaultShippingFee,
		now:         time.Now,
		suffix:      func() int { return 100 + rand.IntN(900) },
	}
	for _, option := range options {
		option(s)
	}

	s.events = make(chan publishJob, eventQueueSize)
	s.isStopped = make(chan struct{})
	s.isRunning.Store(true)
	go s.dispatch()
	return s
}

// Load 啟動時呼叫一次
func (s *OrderService) Load(ctx context.Context) error {
	orders, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.orders = orders
	s.loaded = true
	s.mu.Unlock()
	s.logger.Info().Int("count", len(orders)).Msg("orders loaded")
	return nil
}

// Commit 以購物車內容建立訂單，成功後清空購物車
// 空購物車不在此檢查，由呼叫端負責
func (s *OrderService) Commit(ctx context.Context, c *cart.Cart, customer model.CustomerInfo, payment model.PaymentCapture) (*model.Order, error) {
	if c == nil {
		return nil, ErrNilCart
	}

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return nil, ErrOrdersNotReady
	}

	now := s.now()
	subtotal := c.Subtotal()
	order := model.Order{
		ID:          s.nextID(now),
		CreatedAt:   now,
		Customer:    customer,
		Payment:     model.NewPaymentRecord(payment),
		LineItems:   c.Lines(),
		Subtotal:    subtotal,
		ShippingFee: s.shippingFee,
		Total:       subtotal.Add(s.shippingFee),
		Status:      model.OrderStatusProcessing,
	}

	s.orders = append(s.orders, order)
	if err := s.repo.SaveAll(ctx, s.orders); err != nil {
		s.orders = s.orders[:len(s.orders)-1]
		s.mu.Unlock()
		s.metrics.OrderMutation("commit_failed")
		return nil, fmt.Errorf("persist order failed: %w", err)
	}
	s.mu.Unlock()

	c.Clear()
	s.metrics.OrderMutation("commit")
	s.logger.Info().Str("order_id", order.ID).Str("total", order.Total.StringFixed(2)).Msg("order committed")
	s.publish(ctx, func(pctx context.Context) error {
		return s.producer.PublishOrderCreated(pctx, order)
	})

	result := order.Clone()
	return &result, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (Result, error) {
	if !status.IsValid() {
		return NotFound, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.update(ctx, id, "update_status", func(o *model.Order) {
		o.Status = status
	})
}

// UpdateCustomer status 為 nil 時不變更狀態
func (s *OrderService) UpdateCustomer(ctx context.Context, id string, customer model.CustomerInfo, status *model.OrderStatus) (Result, error) {
	if status != nil && !status.IsValid() {
		return NotFound, fmt.Errorf("%w: %q", ErrInvalidStatus, *status)
	}
	return s.update(ctx, id, "update_customer", func(o *model.Order) {
		o.Customer = customer
		if status != nil {
			o.Status = *status
		}
	})
}

func (s *OrderService) update(ctx context.Context, id, operation string, mutate func(o *model.Order)) (Result, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return NotFound, nil
	}

	prev := s.orders[idx]
	mutate(&s.orders[idx])
	updated := s.orders[idx].Clone()
	if err := s.repo.SaveAll(ctx, s.orders); err != nil {
		s.orders[idx] = prev
		s.mu.Unlock()
		s.metrics.OrderMutation(operation + "_failed")
		return Found, fmt.Errorf("persist order %s failed: %w", id, err)
	}
	s.mu.Unlock()

	s.metrics.OrderMutation(operation)
	s.logger.Info().Str("order_id", id).Str("status", string(updated.Status)).Msg("order updated")
	s.publish(ctx, func(pctx context.Context) error {
		return s.producer.PublishOrderUpdated(pctx, updated)
	})
	return Found, nil
}

func (s *OrderService) Delete(ctx context.Context, id string) (Result, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return NotFound, nil
	}

	prev := s.orders
	remaining := make([]model.Order, 0, len(prev)-1)
	remaining = append(remaining, prev[:idx]...)
	remaining = append(remaining, prev[idx+1:]...)
	s.orders = remaining
	if err := s.repo.SaveAll(ctx, s.orders); err != nil {
		s.orders = prev
		s.mu.Unlock()
		s.metrics.OrderMutation("delete_failed")
		return Found, fmt.Errorf("persist order deletion %s failed: %w", id, err)
	}
	s.mu.Unlock()

	s.metrics.OrderMutation("delete")
	s.logger.Info().Str("order_id", id).Msg("order deleted")
	s.publish(ctx, func(pctx context.Context) error {
		return s.producer.PublishOrderDeleted(pctx, id)
	})
	return Found, nil
}

// List 依建立順序
func (s *OrderService) List() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Clone()
	}
	return out
}

func (s *OrderService) ListNewestFirst() []model.Order {
	out := s.List()
	slices.Reverse(out)
	return out
}

func (s *OrderService) Get(id string) (model.Order, Result) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Order{}, NotFound
	}
	return s.orders[idx].Clone(), Found
}

func (s *OrderService) Stats() Stats {
	return ComputeStats(s.List(), s.now())
}

// 需持有 s.mu
func (s *OrderService) indexOf(id string) int {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return i
		}
	}
	return -1
}

// 需持有 s.mu
// id = 毫秒時間戳 + 三位數亂數 (100~999)，與現有 id 重複時重新產生
func (s *OrderService) nextID(now time.Time) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	for {
		id := millis + strconv.Itoa(s.suffix())
		if s.indexOf(id) < 0 {
			return id
		}
	}
}

// publish 非同步，佇列已滿或已關閉時放棄該事件
// 通知失敗只記錄，不影響訂單本身
func (s *OrderService) publish(_ context.Context, job publishJob) {
	s.chanMutex.RLock()
	defer s.chanMutex.RUnlock()
	if !s.isRunning.Load() {
		s.logger.Warn().Msg("order service closed, order event dropped")
		return
	}

	select {
	case s.events <- job:
	default:
		s.logger.Error().Msg("order event queue is full, order event dropped")
	}
}

// 結束條件是消耗完 events
func (s *OrderService) dispatch() {
	defer close(s.isStopped)
	for job := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := job(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("publish order event failed")
		}
		cancel()
	}
}

// Close 停止接收新事件，等待已排入的事件送完或 ctx 到期
// 可重複呼叫
func (s *OrderService) Close(ctx context.Context) error {
	s.chanMutex.Lock()
	if s.isRunning.CompareAndSwap(true, false) {
		close(s.events)
	}
	s.chanMutex.Unlock()

	select {
	case <-s.isStopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait order events failed: %w", ctx.Err())
	}
}
