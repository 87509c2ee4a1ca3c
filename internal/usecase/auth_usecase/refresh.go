package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/repository"
)

var (
	// 存在しない・期限切れ・失効済み
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// 使用済みのtokenが再度来た
	ErrRefreshTokenReused = errors.New("refresh token reused")
)

type RefreshInput struct {
	RefreshToken string
	UserAgent    string
}

// refresh tokenのローテーション
type RefreshUsecase struct {
	userRepo   repository.UserRepository
	rtRepo     repository.RefreshTokenRepository
	issuer     AccessTokenIssuer
	idGen      IDGenerator
	clock      Clock
	refreshTTL time.Duration
}

func NewRefreshUsecase(
	userRepo repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	issuer AccessTokenIssuer,
	idGen IDGenerator,
	clock Clock,
	refreshTTL time.Duration,
) *RefreshUsecase {
	return &RefreshUsecase{
		userRepo:   userRepo,
		rtRepo:     rtRepo,
		issuer:     issuer,
		idGen:      idGen,
		clock:      clock,
		refreshTTL: refreshTTL,
	}
}

// 出力はログインと同じ形
func (u *RefreshUsecase) Execute(ctx context.Context, in RefreshInput) (LoginOutput, LoginSideEffect, error) {
	var out LoginOutput
	var side LoginSideEffect

	if strings.TrimSpace(in.RefreshToken) == "" {
		return out, side, ErrInvalidRefreshToken
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(in.RefreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return out, side, ErrInvalidRefreshToken
		}
		return out, side, err
	}

	now := u.clock.Now()

	//revoked
	if rt.RevokedAt != nil {
		return out, side, ErrInvalidRefreshToken
	}

	//used済みが来たら replay → 全削除
	if rt.UsedAt != nil {
		if err := u.rtRepo.DeleteAllByUserID(ctx, rt.UserID); err != nil {
			return out, side, err
		}
		return out, side, ErrRefreshTokenReused
	}

	//期限切れ
	if !rt.ExpiresAt.After(now) {
		return out, side, ErrInvalidRefreshToken
	}

	user, err := u.userRepo.FindByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return out, side, ErrInvalidRefreshToken
		}
		return out, side, err
	}
	if !user.IsActive {
		return out, side, ErrUserInactive
	}

	//旧tokenをusedにする
	if err := u.rtRepo.MarkUsed(ctx, rt.ID); err != nil {
		return out, side, err
	}

	token, plainRefresh, err := issueSession(ctx, u.rtRepo, u.issuer, u.idGen, user, in.UserAgent, now, u.refreshTTL)
	if err != nil {
		return out, side, err
	}

	safeUser := *user
	safeUser.PasswordHash = ""

	out.User = safeUser
	out.Token = token
	side.PlainRefreshToken = plainRefresh
	return out, side, nil
}
