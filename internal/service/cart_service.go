package service

import (
	"errors"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/shopspring/decimal"
)

var ErrInvalidProduct = errors.New("product card has no name")

// CartSummary 側邊欄顯示用
// 購物車為空時 Total 為 0，不加運費
type CartSummary struct {
	Lines       []model.CartLine `json:"lines"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	ShippingFee decimal.Decimal  `json:"shipping_fee"`
	Total       decimal.Decimal  `json:"total"`
	ItemCount   int              `json:"item_count"`
}

type ICartService interface {
	Add(sessionID string, card model.ProductCard) (model.CartLine, error)
	Remove(sessionID, identity string) (bool, error)
	Summary(sessionID string) (CartSummary, error)
}

type CartService struct {
	sessions    ISessionStore
	shippingFee decimal.Decimal
}

var _ ICartService = (*CartService)(nil)

func NewCartService(sessions ISessionStore, shippingFee decimal.Decimal) *CartService {
	if sessions == nil {
		panic("session store is nil")
	}
	return &CartService{sessions: sessions, shippingFee: shippingFee}
}

func (c *CartService) Add(sessionID string, card model.ProductCard) (model.CartLine, error) {
	if card.DisplayName() == "" {
		return model.CartLine{}, ErrInvalidProduct
	}
	sess, err := c.sessions.Get(sessionID)
	if err != nil {
		return model.CartLine{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.cart.Add(card), nil
}

// Remove 不存在的項目回傳 false，不是錯誤
func (c *CartService) Remove(sessionID, identity string) (bool, error) {
	sess, err := c.sessions.Get(sessionID)
	if err != nil {
		return false, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.cart.Remove(identity), nil
}

func (c *CartService) Summary(sessionID string) (CartSummary, error) {
	sess, err := c.sessions.Get(sessionID)
	if err != nil {
		return CartSummary{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return CartSummary{
		Lines:       sess.cart.Lines(),
		Subtotal:    sess.cart.Subtotal(),
		ShippingFee: c.shippingFee,
		Total:       sess.cart.Total(c.shippingFee),
		ItemCount:   sess.cart.ItemCount(),
	}, nil
}
