package service

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/assia/internal/checkout"
	"github.com/RoyceAzure/lab/assia/internal/domain/model"
)

var ErrEmptyCart = errors.New("cart is empty")

// CheckoutResult Order 只有在 Submit 成功時有值
type CheckoutResult struct {
	State checkout.State `json:"state"`
	Order *model.Order   `json:"order,omitempty"`
}

type ICheckoutService interface {
	State(sessionID string) (checkout.State, error)
	Open(sessionID string) (checkout.State, error)
	Close(sessionID string) (checkout.State, error)
	Back(sessionID string) (checkout.State, error)
	SetDelivery(sessionID string, customer model.CustomerInfo) (checkout.State, error)
	Advance(sessionID string) (checkout.State, error)
	SetPaymentField(sessionID, field, value string) (checkout.State, error)
	Submit(ctx context.Context, sessionID string) (*CheckoutResult, error)
}

type CheckoutService struct {
	sessions ISessionStore
	orders   IOrderService
}

var _ ICheckoutService = (*CheckoutService)(nil)

func NewCheckoutService(sessions ISessionStore, orders IOrderService) *CheckoutService {
	if sessions == nil {
		panic("session store is nil")
	}
	if orders == nil {
		panic("order service is nil")
	}
	return &CheckoutService{sessions: sessions, orders: orders}
}

// 所有操作都回傳操作後的狀態，驗證失敗時狀態內含欄位錯誤
func (c *CheckoutService) withFlow(sessionID string, fn func(sess *Session) error) (checkout.State, error) {
	sess, err := c.sessions.Get(sessionID)
	if err != nil {
		return checkout.State{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	err = fn(sess)
	return sess.checkout.State(), err
}

func (c *CheckoutService) State(sessionID string) (checkout.State, error) {
	return c.withFlow(sessionID, func(*Session) error { return nil })
}

// Open 購物車為空時不能開啟結帳
func (c *CheckoutService) Open(sessionID string) (checkout.State, error) {
	return c.withFlow(sessionID, func(sess *Session) error {
		if sess.cart.IsEmpty() {
			return ErrEmptyCart
		}
		sess.checkout.Open()
		return nil
	})
}

func (c *CheckoutService) Close(sessionID string) (checkout.State, error) {
	return c.withFlow(sessionID, func(sess *Session) error {
		sess.checkout.Close()
		return nil
	})
}

func (c *CheckoutService) Back(sessionID string) (checkout.State, error) {
	return c.withFlow(sessionID, func(sess *Session) error {
		return sess.checkout.Back()
	})
}

func (c *CheckoutService) SetDelivery(sessionID string, customer model.CustomerInfo) (checkout.State, error) {
	return c.withFlow(sessionID, func(sess *Session) error {
		return sess.checkout.SetCustomer(customer)
	})
}

func (c *CheckoutService) Advance(sessionID string) (checkout.State, error) {
	return c.withFlow(sessionID, func(sess *Session) error {
		return sess.checkout.Advance()
	})
}

func (c *CheckoutService) SetPaymentField(sessionID, field, value string) (checkout.State, error) {
	return c.withFlow(sessionID, func(sess *Session) error {
		return sess.checkout.SetPaymentField(field, value)
	})
}

// Submit 驗證付款資料並建立訂單
// 建立失敗時購物車與表單保持原樣
func (c *CheckoutService) Submit(ctx context.Context, sessionID string) (*CheckoutResult, error) {
	var order *model.Order
	state, err := c.withFlow(sessionID, func(sess *Session) error {
		if sess.cart.IsEmpty() {
			return ErrEmptyCart
		}
		return sess.checkout.Submit(func(customer model.CustomerInfo, payment model.PaymentCapture) error {
			committed, err := c.orders.Commit(ctx, sess.cart, customer, payment)
			if err != nil {
				return err
			}
			order = committed
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return &CheckoutResult{State: state}, err
	}
	return &CheckoutResult{State: state, Order: order}, nil
}
