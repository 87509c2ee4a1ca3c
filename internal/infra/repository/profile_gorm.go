package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type ProfileGormRepository struct {
	db *gorm.DB
}

// DI
func NewProfileGormRepository(db *gorm.DB) *ProfileGormRepository {
	return &ProfileGormRepository{db: db}
}

// 空のプロフィールを作成
func (r *ProfileGormRepository) Create(ctx context.Context, p model.Profile) error {
	return r.db.WithContext(ctx).Create(&p).Error
}

// IDでプロフィールを取得
func (r *ProfileGormRepository) FindByID(ctx context.Context, id string) (model.Profile, error) {
	var p model.Profile

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Profile{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// 指定された項目だけ更新
func (r *ProfileGormRepository) Update(ctx context.Context, id string, patch model.ProfilePatch) error {
	cols := patchColumns(patch)
	if len(cols) == 0 {
		return nil
	}

	//addressはjsonbのserializerを通すため構造体で更新する
	res := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ?", id).
		Select(cols).
		Updates(model.Profile{
			FirstName: patch.FirstName,
			LastName:  patch.LastName,
			AvatarURL: patch.AvatarURL,
			Phone:     patch.Phone,
			Address:   patch.Address,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// nilでない項目のカラム名
func patchColumns(patch model.ProfilePatch) []string {
	cols := make([]string, 0, 6)
	if patch.FirstName != nil {
		cols = append(cols, "first_name")
	}
	if patch.LastName != nil {
		cols = append(cols, "last_name")
	}
	if patch.AvatarURL != nil {
		cols = append(cols, "avatar_url")
	}
	if patch.Phone != nil {
		cols = append(cols, "phone")
	}
	if patch.Address != nil {
		cols = append(cols, "address")
	}
	if len(cols) > 0 {
		cols = append(cols, "updated_at")
	}
	return cols
}
