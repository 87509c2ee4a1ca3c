package auth

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
)

// handlerからusecaseに渡す入力
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
}

// token 形
type JwtAccessToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// handlerがJSONにして返す
type LoginOutput struct {
	User  model.User     `json:"user"`
	Token JwtAccessToken `json:"token"`
}

// 平文のrefresh tokenは一度しか返さない
type LoginSideEffect struct {
	PlainRefreshToken string
}

// メールまたはパスワードが違う
var ErrInvalidCredentials = errors.New("invalid credentials")

// 停止済みユーザー
var ErrUserInactive = errors.New("user is inactive")

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(userID string, email string, now time.Time) (token string, expiresAt time.Time, err error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

type LoginUsecase struct {
	userRepo   repository.UserRepository
	rtRepo     repository.RefreshTokenRepository
	validator  CredentialValidator
	verifier   PasswordVerifier
	issuer     AccessTokenIssuer
	idGen      IDGenerator
	clock      Clock
	refreshTTL time.Duration
}

func NewLoginUsecase(
	userRepo repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	validator CredentialValidator,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	idGen IDGenerator,
	clock Clock,
	refreshTTL time.Duration,
) *LoginUsecase {
	return &LoginUsecase{
		userRepo:   userRepo,
		rtRepo:     rtRepo,
		validator:  validator,
		verifier:   verifier,
		issuer:     issuer,
		idGen:      idGen,
		clock:      clock,
		refreshTTL: refreshTTL,
	}
}

// ログイン処理を実行する
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (LoginOutput, LoginSideEffect, error) {
	var out LoginOutput
	var side LoginSideEffect

	email := normalizeEmail(in.Email)
	if err := u.validator.ValidateLogin(email, in.Password); err != nil {
		return out, side, err
	}

	//emailでユーザー取得
	user, err := u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return out, side, ErrInvalidCredentials
		}
		return out, side, err
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return out, side, ErrUserInactive
	}

	//パスワード照合
	if ok := u.verifier.Verify(in.Password, user.PasswordHash); !ok {
		return out, side, ErrInvalidCredentials
	}

	now := u.clock.Now()
	token, plainRefresh, err := issueSession(ctx, u.rtRepo, u.issuer, u.idGen, user, in.UserAgent, now, u.refreshTTL)
	if err != nil {
		return out, side, err
	}

	//最終ログイン時刻更新
	user.LastLoginAt = &now
	if err := u.userRepo.Update(ctx, user); err != nil {
		return out, side, err
	}

	safeUser := *user
	safeUser.PasswordHash = ""

	out.User = safeUser
	out.Token = token
	side.PlainRefreshToken = plainRefresh
	return out, side, nil
}

// access tokenとrefresh tokenを作って保存する（ログインとリフレッシュで共通）
func issueSession(
	ctx context.Context,
	rtRepo repository.RefreshTokenRepository,
	issuer AccessTokenIssuer,
	idGen IDGenerator,
	user *model.User,
	userAgent string,
	now time.Time,
	refreshTTL time.Duration,
) (JwtAccessToken, string, error) {
	accessToken, accessExp, err := issuer.Issue(user.ID, user.Email, now)
	if err != nil {
		return JwtAccessToken{}, "", err
	}

	plainRefresh, err := generateSecureToken(32)
	if err != nil {
		return JwtAccessToken{}, "", err
	}

	refresh := &model.RefreshToken{
		ID:        idGen.NewID(),
		UserID:    user.ID,
		TokenHash: hashToken(plainRefresh),
		UserAgent: userAgent,
		ExpiresAt: now.Add(refreshTTL),
	}
	if err := rtRepo.Create(ctx, refresh); err != nil {
		return JwtAccessToken{}, "", err
	}

	return JwtAccessToken{
		AccessToken: accessToken,
		ExpiresIn:   int(accessExp.Sub(now).Seconds()),
		ExpiresAt:   accessExp,
	}, plainRefresh, nil
}
