package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type refreshTokenGormRepository struct {
	db *gorm.DB
}

// GORM実装
func NewRefreshTokenRepository(db *gorm.DB) repo.RefreshTokenRepository {
	return &refreshTokenGormRepository{db: db}
}

func (r *refreshTokenGormRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// 平文ではなくSHA-256のhexで引く
func (r *refreshTokenGormRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var token model.RefreshToken

	err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// rotation時に1回だけ成功する（2回目以降はErrRefreshTokenNotFound）
func (r *refreshTokenGormRepository) MarkUsed(ctx context.Context, tokenID string) error {
	return r.stamp(ctx, tokenID, "used_at", "used_at IS NULL AND revoked_at IS NULL")
}

func (r *refreshTokenGormRepository) Revoke(ctx context.Context, tokenID string) error {
	return r.stamp(ctx, tokenID, "revoked_at", "revoked_at IS NULL")
}

// reuse検知時にそのユーザーのセッションを全部切る
func (r *refreshTokenGormRepository) DeleteAllByUserID(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.RefreshToken{}).Error
}

// columnに現在時刻を入れる。条件に合う行がなければErrRefreshTokenNotFound。
func (r *refreshTokenGormRepository) stamp(ctx context.Context, tokenID string, column string, cond string) error {
	res := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("id = ?", tokenID).
		Where(cond).
		Update(column, time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrRefreshTokenNotFound
	}
	return nil
}
