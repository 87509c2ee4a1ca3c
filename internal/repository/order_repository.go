package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	// 新しい順。明細と商品も一緒に返す。
	ListByUserID(ctx context.Context, userID string) ([]model.Order, error)
}
