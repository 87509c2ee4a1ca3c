// Package remote は認証・プロフィール・カタログ・注文を提供するバックエンドとの約束。
// ストアとアプリはこのインターフェースだけに依存する。
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

var (
	// 行が存在しない
	ErrNoRows = errors.New("no rows")
	// セッションが無いのに本人限定の操作をした
	ErrNotAuthenticated = errors.New("not authenticated")
)

// バックエンドが返したエラー（ステータス付き）
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote %d: %s", e.Status, e.Message)
}

type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         AuthUser  `json:"user"`
}

// サインイン・サインアップの結果。成功してもUserがnilのことがある。
type AuthResult struct {
	User    *AuthUser
	Session *Session
}

type Auth interface {
	SignInWithPassword(ctx context.Context, email string, password string) (*AuthResult, error)
	SignUp(ctx context.Context, email string, password string) (*AuthResult, error)
	SignOut(ctx context.Context) error
	// セッションが無ければnil, nil
	GetSession(ctx context.Context) (*Session, error)
}

type Profiles interface {
	InsertProfile(ctx context.Context, id string) error
	// 無ければErrNoRows
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) error
}

// 商品一覧の絞り込み（空の項目は絞り込まない）
type ProductFilter struct {
	Category string
	Q        string
	Featured bool
	Sort     string
	Limit    int
}

type Catalog interface {
	ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (model.Product, error)
	RelatedProducts(ctx context.Context, id string) ([]model.Product, error)
	FeaturedProducts(ctx context.Context) ([]model.Product, error)
	NewArrivals(ctx context.Context) ([]model.Product, error)
	Categories(ctx context.Context) ([]model.CategoryCount, error)
}

// 注文明細（Priceはカートに入れた時点の価格）
type OrderLine struct {
	ProductID string
	Quantity  int64
	Price     decimal.Decimal
}

type PlaceOrderInput struct {
	Total           decimal.Decimal
	ShippingAddress model.ShippingAddress
	Items           []OrderLine
}

type Orders interface {
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (model.Order, error)
	// ログイン中ユーザーの注文（新しい順）
	ListOrders(ctx context.Context) ([]model.Order, error)
}
