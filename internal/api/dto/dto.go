package dto

import (
	"time"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/RoyceAzure/lab/assia/internal/service"
)

// StoreDTO 前端初始化聊天視窗用
type StoreDTO struct {
	StoreName    string              `json:"store_name"`
	StoreURL     string              `json:"store_url"`
	WhatsAppLink string              `json:"whatsapp_link"`
	QuickOptions []model.QuickOption `json:"quick_options"`
}

type SessionDTO struct {
	SessionID string              `json:"session_id"`
	CreatedAt time.Time           `json:"created_at"`
	Greeting  service.MessageView `json:"greeting"`
}

type SendMessageDTO struct {
	Text string `json:"text"`
}

// AddCartItemDTO 由前端解析出的商品卡送回
// 不接受前端給的價格，單價由 price_display 推導
type AddCartItemDTO struct {
	Name         string          `json:"name"`
	PriceDisplay string          `json:"price_display"`
	StockStatus  string          `json:"stock_status"`
	Link         string          `json:"link"`
	ImageURL     string          `json:"image_url"`
}

func (d AddCartItemDTO) ToProductCard() model.ProductCard {
	return model.ProductCard{
		Name:         d.Name,
		PriceDisplay: d.PriceDisplay,
		StockStatus:  d.StockStatus,
		Link:         d.Link,
		ImageURL:     d.ImageURL,
	}
}

type AddCartItemResponse struct {
	Line model.CartLine      `json:"line"`
	Cart service.CartSummary `json:"cart"`
}

type RemoveCartItemResponse struct {
	Removed bool                `json:"removed"`
	Cart    service.CartSummary `json:"cart"`
}

type PaymentFieldDTO struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type AdminLoginDTO struct {
	Passphrase string `json:"passphrase"`
}

type AdminLoginResponse struct {
	Token string `json:"token"`
}

// UpdateOrderDTO 至少要有一個欄位
// 只有 Status 時只更新狀態
type UpdateOrderDTO struct {
	Customer *model.CustomerInfo `json:"customer"`
	Status   *model.OrderStatus  `json:"status"`
}

type OrdersResponse struct {
	Orders []model.Order `json:"orders"`
	Count  int           `json:"count"`
}
