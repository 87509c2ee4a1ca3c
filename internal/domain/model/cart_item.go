package model

import "github.com/shopspring/decimal"

// カートの明細
// Productは追加時点のスナップショット（価格もここから計算する）。
type CartItem struct {
	ProductID string  `json:"productId"`
	Quantity  int64   `json:"quantity"`
	Product   Product `json:"product"`
}

// 小計 = 追加時点の価格 × 数量
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(i.Quantity))
}
