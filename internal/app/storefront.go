// Package app はカートとログイン状態を1つずつ持つアプリ本体。
package app

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain/model"
	"storefront/internal/infra/storage"
	"storefront/internal/logger"
	"storefront/internal/remote"
	"storefront/internal/store/auth"
	"storefront/internal/store/cart"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotSignedIn = errors.New("sign in required")
	ErrEmptyCart   = errors.New("cart is empty")
)

// アプリが使うリモートの機能一式
type Remote interface {
	remote.Auth
	remote.Profiles
	remote.Catalog
	remote.Orders
}

type Storefront struct {
	remote Remote
	cart   *cart.Store
	auth   *auth.Store
	log    *logrus.Logger
}

type CheckoutInput struct {
	ShippingAddress model.ShippingAddress
}

// カートを復元し、セッションからユーザーを読み込んでから返す
func New(ctx context.Context, r Remote, st storage.Store, log *logrus.Logger) *Storefront {
	log = logger.OrDiscard(log)

	s := &Storefront{
		remote: r,
		cart:   cart.New(ctx, st.Slot(storage.CartNamespace), log),
		auth:   auth.New(r, r, log),
		log:    log,
	}
	s.auth.LoadUser(ctx)
	return s
}

func (s *Storefront) Cart() *cart.Store { return s.cart }

func (s *Storefront) Auth() *auth.Store { return s.auth }

func (s *Storefront) Catalog() remote.Catalog { return s.remote }

// 商品を取得してからカートに入れる（価格はこの時点のもの）
func (s *Storefront) AddToCart(ctx context.Context, productID string, quantity int64) (model.Product, error) {
	p, err := s.remote.GetProduct(ctx, productID)
	if err != nil {
		return model.Product{}, fmt.Errorf("get product %s: %w", productID, err)
	}
	s.cart.AddItem(p, quantity)
	return p, nil
}

// プロフィールに住所があればそれを使う
func (s *Storefront) DefaultShippingAddress() (model.ShippingAddress, bool) {
	u := s.auth.User()
	if u == nil || u.Profile == nil || u.Profile.Address == nil {
		return model.ShippingAddress{}, false
	}
	return *u.Profile.Address, true
}

// カートの内容で注文する。成功したときだけカートを空にする。
func (s *Storefront) Checkout(ctx context.Context, in CheckoutInput) (model.Order, error) {
	if !s.auth.IsAuthenticated() {
		return model.Order{}, ErrNotSignedIn
	}

	items := s.cart.Items()
	if len(items) == 0 {
		return model.Order{}, ErrEmptyCart
	}

	//合計はスナップショットから出す（TotalPriceと同じ計算）
	total := decimal.Zero
	lines := make([]remote.OrderLine, 0, len(items))
	for _, it := range items {
		total = total.Add(it.Subtotal())
		lines = append(lines, remote.OrderLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Product.Price,
		})
	}

	order, err := s.remote.PlaceOrder(ctx, remote.PlaceOrderInput{
		Total:           total,
		ShippingAddress: in.ShippingAddress,
		Items:           lines,
	})
	if err != nil {
		return model.Order{}, err
	}

	s.cart.ClearCart()
	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"total":    order.Total.StringFixed(2),
	}).Info("order placed")
	return order, nil
}

func (s *Storefront) OrderHistory(ctx context.Context) ([]model.Order, error) {
	if !s.auth.IsAuthenticated() {
		return nil, ErrNotSignedIn
	}
	return s.remote.ListOrders(ctx)
}
