package cart

import (
	"strings"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/RoyceAzure/lab/assia/internal/parser"
	"github.com/shopspring/decimal"
)

// Identity 由商品名稱推導購物車合併用的key
// 去除粗體標記、trim、轉小寫、連續空白換成 "-"
func Identity(name string) string {
	clean := strings.ReplaceAll(name, model.EmphasisMarker, "")
	return strings.Join(strings.Fields(strings.ToLower(clean)), "-")
}

// Cart 購物車
// 依加入順序保存，同一個 identity 只會有一筆
// 非 thread-safe，由呼叫端 (session) 負責序列化
type Cart struct {
	lines []model.CartLine
}

func New() *Cart {
	return &Cart{}
}

// Add 加入商品，已存在時數量 +1
// 單價一律由 PriceDisplay 的第一個數字推導，不採用卡片上的 Price
// 已存在的項目不會被新卡片的名稱、價格、圖片覆蓋
func (c *Cart) Add(card model.ProductCard) model.CartLine {
	id := Identity(card.Name)
	for i := range c.lines {
		if c.lines[i].Identity == id {
			c.lines[i].Quantity++
			return c.lines[i]
		}
	}

	line := model.CartLine{
		Identity:  id,
		Name:      card.DisplayName(),
		UnitPrice: parser.ParsePrice(card.PriceDisplay),
		ImageURL:  card.ImageURL,
		Quantity:  1,
	}
	c.lines = append(c.lines, line)
	return line
}

// Remove 刪除整筆項目，不存在時不做事
func (c *Cart) Remove(identity string) bool {
	for i := range c.lines {
		if c.lines[i].Identity == identity {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cart) Subtotal() decimal.Decimal {
	amount := decimal.Zero
	for _, line := range c.lines {
		amount = amount.Add(line.Amount())
	}
	return amount
}

// Total 購物車為空時不加運費
func (c *Cart) Total(shippingFee decimal.Decimal) decimal.Decimal {
	subtotal := c.Subtotal()
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	return subtotal.Add(shippingFee)
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines 回傳副本，修改不影響購物車
func (c *Cart) Lines() []model.CartLine {
	lines := make([]model.CartLine, len(c.lines))
	copy(lines, c.lines)
	return lines
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// ItemCount 所有項目數量加總
func (c *Cart) ItemCount() int {
	count := 0
	for _, line := range c.lines {
		count += line.Quantity
	}
	return count
}
