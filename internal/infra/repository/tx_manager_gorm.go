package repository

import (
	"context"

	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

// 注文確定で使うrepo一式（同じtxを共有する）
type gormTxRepos struct{ tx *gorm.DB }

func (r gormTxRepos) Orders() repo.OrderRepository         { return NewOrderGormRepository(r.tx) }
func (r gormTxRepos) OrderItems() repo.OrderItemRepository { return NewOrderItemGormRepository(r.tx) }
func (r gormTxRepos) Products() repo.ProductRepository     { return NewProductGormRepository(r.tx) }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

// fnがerrorを返したらrollback
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(gormTxRepos{tx: tx})
	})
}
