package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 商品（カタログ側が所有。ストアからは読み取り専用）
type Product struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Category    string          `gorm:"type:varchar(100);not null;index" json:"category"`
	ImageURL    string          `gorm:"type:text" json:"image_url"`
	Stock       int64           `gorm:"not null" json:"stock"`
	Featured    bool            `gorm:"not null;index" json:"featured"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

// カテゴリ名と商品数
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
