package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

const EmphasisMarker = "**"

// ProductCard 由助理回覆解析出的商品卡，不單獨保存
// PriceDisplay, StockStatus 保留整行原文；Link, ImageURL 已去除前綴
type ProductCard struct {
	Name         string          `json:"name"`
	PriceDisplay string          `json:"price_display,omitempty"`
	Price        decimal.Decimal `json:"price"`
	StockStatus  string          `json:"stock_status,omitempty"`
	Link         string          `json:"link,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
}

// DisplayName 去除粗體標記後的商品名稱
func (p ProductCard) DisplayName() string {
	return strings.TrimSpace(strings.ReplaceAll(p.Name, EmphasisMarker, ""))
}

// CatalogRecord 型錄搜尋回傳的單筆商品
type CatalogRecord struct {
	Name         string  `json:"nome"`
	PriceDisplay string  `json:"preco"`
	Link         string  `json:"link"`
	ImageURL     *string `json:"imagem"`
	StockStatus  string  `json:"estoque"`
}
