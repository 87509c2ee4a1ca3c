// Package backend はrepositoryからusecase一式を組み立てる。
// HTTP API と in-process クライアントの両方がこれを使う。
package backend

import (
	"time"

	"storefront/internal/config"
	infraRepo "storefront/internal/infra/repository"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
	"storefront/internal/validator"

	"gorm.io/gorm"
)

type Repos struct {
	Users         repo.UserRepository
	RefreshTokens repo.RefreshTokenRepository
	Profiles      repo.ProfileRepository
	Products      repo.ProductRepository
	Orders        repo.OrderRepository
	Tx            repo.TransactionManager
}

type Settings struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		JWTSecret:  cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		BcryptCost: 12,
	}
}

type Backend struct {
	Register *auth.RegisterUserUsecase
	Login    *auth.LoginUsecase
	Refresh  *auth.RefreshUsecase
	Logout   *auth.LogoutUsecase
	Tokens   *auth.JWTIssuer

	Products *usecase.ProductUsecase
	Profiles *usecase.ProfileUsecase
	Orders   *usecase.OrderUsecase

	RefreshTTL time.Duration
}

func New(s Settings, r Repos) *Backend {
	//usecaseに渡す部品
	idGen := auth.UUIDGenerator{}
	clock := auth.SystemClock{}
	v := validator.NewAuthValidator()

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := auth.NewBcryptPasswordHasher(s.BcryptCost)
	verifier := auth.NewBcryptPasswordVerifier()

	issuer := auth.NewJWTIssuer(s.JWTSecret, s.AccessTTL)

	return &Backend{
		Register: auth.NewRegisterUserUsecase(r.Users, v, hasher, idGen, clock),
		Login:    auth.NewLoginUsecase(r.Users, r.RefreshTokens, v, verifier, issuer, idGen, clock, s.RefreshTTL),
		Refresh:  auth.NewRefreshUsecase(r.Users, r.RefreshTokens, issuer, idGen, clock, s.RefreshTTL),
		Logout:   auth.NewLogoutUsecase(r.RefreshTokens),
		Tokens:   issuer,

		Products: usecase.NewProductUsecase(r.Products),
		Profiles: usecase.NewProfileUsecase(r.Profiles),
		Orders:   usecase.NewOrderUsecase(r.Tx, r.Orders),

		RefreshTTL: s.RefreshTTL,
	}
}

// GORM実装のrepositoryで組み立てる
func NewGorm(db *gorm.DB, s Settings) *Backend {
	return New(s, Repos{
		Users:         infraRepo.NewUserGormRepository(db),
		RefreshTokens: infraRepo.NewRefreshTokenRepository(db),
		Profiles:      infraRepo.NewProfileGormRepository(db),
		Products:      infraRepo.NewProductGormRepository(db),
		Orders:        infraRepo.NewOrderGormRepository(db),
		Tx:            infraRepo.NewTxManagerGorm(db),
	})
}
