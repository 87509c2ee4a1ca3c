package auth

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/repository"
)

type LogoutUsecase struct {
	rtRepo repository.RefreshTokenRepository
}

func NewLogoutUsecase(rtRepo repository.RefreshTokenRepository) *LogoutUsecase {
	return &LogoutUsecase{rtRepo: rtRepo}
}

// refresh tokenを失効させる。既に無いtokenはログアウト済みとみなす。
func (u *LogoutUsecase) Execute(ctx context.Context, plainRefresh string) error {
	if strings.TrimSpace(plainRefresh) == "" {
		return ErrInvalidRefreshToken
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(plainRefresh))
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rt.RevokedAt != nil {
		return nil
	}
	return u.rtRepo.Revoke(ctx, rt.ID)
}
