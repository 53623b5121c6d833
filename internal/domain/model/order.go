package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// 沒有狀態轉移限制，三種狀態之間可以任意切換
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

type CustomerInfo struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Street       string `json:"street"`
	HouseNumber  string `json:"house_number"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
}

// PaymentCapture 結帳表單收集的付款資料，只存在於結帳流程中
type PaymentCapture struct {
	CardholderName string `json:"cardholder_name"`
	CardNumber     string `json:"card_number"`
	Expiry         string `json:"expiry"`
	CVV            string `json:"cvv"`
}

// PaymentRecord 訂單保存的付款資料
// 不保存完整卡號與CVV
type PaymentRecord struct {
	CardholderName   string `json:"cardholder_name"`
	MaskedCardNumber string `json:"masked_card_number"`
	Expiry           string `json:"expiry"`
}

func NewPaymentRecord(p PaymentCapture) PaymentRecord {
	return PaymentRecord{
		CardholderName:   p.CardholderName,
		MaskedCardNumber: MaskCardNumber(p.CardNumber),
		Expiry:           p.Expiry,
	}
}

// MaskCardNumber 只保留末四碼
func MaskCardNumber(number string) string {
	if len(number) <= 4 {
		return strings.Repeat("*", len(number))
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

// 訂單快照
// 建立後 LineItems, Payment 不會變動
// 只有 Status 與 Customer 可由後台修改
type Order struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	Customer    CustomerInfo    `json:"customer"`
	Payment     PaymentRecord   `json:"payment"`
	LineItems   []CartLine      `json:"line_items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Total       decimal.Decimal `json:"total"`
	Status      OrderStatus     `json:"status"`
}

// Clone 回傳不共享 LineItems 的副本
func (o Order) Clone() Order {
	items := make([]CartLine, len(o.LineItems))
	copy(items, o.LineItems)
	o.LineItems = items
	return o
}
