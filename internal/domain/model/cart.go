package model

import "github.com/shopspring/decimal"

// CartLine 購物車內的一個商品項目
// Quantity 永遠 >= 1
type CartLine struct {
	Identity  string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageURL  string          `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
}

func (l CartLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
