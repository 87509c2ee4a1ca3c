package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 並び順
const (
	SortNewest    = "new"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// 一覧検索（空の項目は絞り込まない）
type ProductListQuery struct {
	Category     string
	Q            string
	FeaturedOnly bool
	ExcludeID    string
	Sort         string
	Limit        int
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, error)
	FindByID(ctx context.Context, id string) (model.Product, error)
	CountByCategory(ctx context.Context) ([]model.CategoryCount, error)
	Create(ctx context.Context, p model.Product) (model.Product, error)
}
