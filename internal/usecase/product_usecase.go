package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

// 画面ごとの件数
const (
	relatedProductsLimit  = 4
	featuredProductsLimit = 4
	newArrivalsLimit      = 8
	maxListLimit          = 100
)

type ProductUsecase struct {
	productRepo repo.ProductRepository
}

// DI
func NewProductUsecase(productRepo repo.ProductRepository) *ProductUsecase {
	return &ProductUsecase{productRepo: productRepo}
}

// GET /productsの入力DTO（Limit 0は件数制限なし）
type ListProductsInput struct {
	Category string
	Q        string
	Featured bool
	Sort     string
	Limit    int
}

func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) ([]model.Product, error) {
	if in.Limit < 0 || in.Limit > maxListLimit {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return nil, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	switch in.Sort {
	case "", repo.SortNewest, repo.SortPriceAsc, repo.SortPriceDesc:
	default:
		return nil, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Category:     strings.TrimSpace(in.Category),
		Q:            strings.TrimSpace(in.Q),
		FeaturedOnly: in.Featured,
		Sort:         in.Sort,
		Limit:        in.Limit,
	})
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

func (u *ProductUsecase) GetProduct(ctx context.Context, productID string) (model.Product, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p, nil
}

// 同じカテゴリの他の商品（自分自身は除く）
func (u *ProductUsecase) RelatedProducts(ctx context.Context, productID string) ([]model.Product, error) {
	p, err := u.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	items, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Category:  p.Category,
		ExcludeID: p.ID,
		Limit:     relatedProductsLimit,
	})
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

func (u *ProductUsecase) FeaturedProducts(ctx context.Context) ([]model.Product, error) {
	return u.ListProducts(ctx, ListProductsInput{Featured: true, Limit: featuredProductsLimit})
}

func (u *ProductUsecase) NewArrivals(ctx context.Context) ([]model.Product, error) {
	return u.ListProducts(ctx, ListProductsInput{Sort: repo.SortNewest, Limit: newArrivalsLimit})
}

// カテゴリ名順、商品数つき
func (u *ProductUsecase) Categories(ctx context.Context) ([]model.CategoryCount, error) {
	rows, err := u.productRepo.CountByCategory(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return rows, nil
}
