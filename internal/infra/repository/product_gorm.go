package repository

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// カテゴリ/名前検索/おすすめ/ソート/件数制限付きで返す。
func (r *ProductGormRepository) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, error) {
	var products []model.Product

	tx := r.db.WithContext(ctx).Model(&model.Product{})

	//カテゴリは完全一致
	if c := strings.TrimSpace(q.Category); c != "" {
		tx = tx.Where("category = ?", c)
	}

	// q nameを対象
	if s := strings.TrimSpace(q.Q); s != "" {
		tx = tx.Where("name ILIKE ?", "%"+s+"%")
	}

	if q.FeaturedOnly {
		tx = tx.Where("featured = ?", true)
	}

	//関連商品では自分自身を除く
	if q.ExcludeID != "" {
		tx = tx.Where("id <> ?", q.ExcludeID)
	}

	//sort
	switch q.Sort {
	case repo.SortPriceAsc:
		tx = tx.Order("price asc").Order("id asc")
	case repo.SortPriceDesc:
		tx = tx.Order("price desc").Order("id desc")
	default:
		tx = tx.Order("created_at desc").Order("id desc")
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	if err := tx.Find(&products).Error; err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id string) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// カテゴリごとの商品数（カテゴリ名順）
func (r *ProductGormRepository) CountByCategory(ctx context.Context) ([]model.CategoryCount, error) {
	var rows []model.CategoryCount

	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Select("category, count(*) as count").
		Group("category").
		Order("category asc").
		Scan(&rows).Error
	if err != nil {
		return []model.CategoryCount{}, err
	}
	return rows, nil
}

// 商品の作成
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, err
	}
	return p, nil
}
