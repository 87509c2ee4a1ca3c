package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"storefront/internal/backend"
	"storefront/internal/domain/model"
	"storefront/internal/infra/storage"
	"storefront/internal/logger"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/sirupsen/logrus"
)

// 期限直前のtokenは更新しておく
const expirySkew = 10 * time.Second

// Client はバックエンドのusecaseを同じプロセス内で呼ぶ実装。
// セッションはメモリに持ち、slotがあれば保存して再起動後に復元する。
type Client struct {
	b    *backend.Backend
	slot storage.Slot
	log  *logrus.Logger

	mu      sync.Mutex
	session *Session
	loaded  bool
	now     func() time.Time
}

var (
	_ Auth     = (*Client)(nil)
	_ Profiles = (*Client)(nil)
	_ Catalog  = (*Client)(nil)
	_ Orders   = (*Client)(nil)
)

func NewClient(b *backend.Backend, slot storage.Slot, log *logrus.Logger) *Client {
	return &Client{
		b:    b,
		slot: slot,
		log:  logger.OrDiscard(log),
		now:  time.Now,
	}
}

// =====================
// Auth
// =====================

func (c *Client) SignInWithPassword(ctx context.Context, email string, password string) (*AuthResult, error) {
	out, side, err := c.b.Login.Execute(ctx, auth.LoginInput{Email: email, Password: password, UserAgent: "storefront"})
	if err != nil {
		return nil, err
	}

	s := sessionFrom(out, side)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
	c.setSessionLocked(ctx, s)

	u := s.User
	cp := *s
	return &AuthResult{User: &u, Session: &cp}, nil
}

// 登録後そのままサインインする。
// サインインだけ失敗した場合もアカウントはできているので、Session無しで成功を返す。
func (c *Client) SignUp(ctx context.Context, email string, password string) (*AuthResult, error) {
	out, err := c.b.Register.Execute(ctx, auth.RegisterUserInput{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	res, err := c.SignInWithPassword(ctx, email, password)
	if err != nil {
		c.log.WithError(err).WithField("user_id", out.User.ID).Warn("registered but sign in failed")
		return &AuthResult{User: &AuthUser{ID: out.User.ID, Email: out.User.Email}}, nil
	}
	return res, nil
}

// サーバー側の失敗に関わらずローカルのセッションは消す
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureLoadedLocked(ctx)
	if c.session == nil {
		return nil
	}

	err := c.b.Logout.Execute(ctx, c.session.RefreshToken)
	c.setSessionLocked(ctx, nil)
	return err
}

func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureLoadedLocked(ctx)
	if c.session == nil {
		return nil, nil
	}

	if c.now().Add(expirySkew).Before(c.session.ExpiresAt) {
		if _, err := c.b.Tokens.Verify(c.session.AccessToken); err == nil {
			s := *c.session
			return &s, nil
		}
	}

	//期限切れ（または検証NG）はrefresh tokenで更新
	out, side, err := c.b.Refresh.Execute(ctx, auth.RefreshInput{RefreshToken: c.session.RefreshToken, UserAgent: "storefront"})
	if err != nil {
		if isSessionGone(err) {
			c.log.WithError(err).Info("session dropped")
			c.setSessionLocked(ctx, nil)
			return nil, nil
		}
		return nil, err
	}

	s := sessionFrom(out, side)
	c.setSessionLocked(ctx, s)

	cp := *s
	return &cp, nil
}

// =====================
// Profiles
// =====================

func (c *Client) InsertProfile(ctx context.Context, id string) error {
	actor, err := c.actor(ctx)
	if err != nil {
		return err
	}
	return toRemoteError(c.b.Profiles.CreateProfile(ctx, actor, id))
}

func (c *Client) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	actor, err := c.actor(ctx)
	if err != nil {
		return nil, err
	}

	p, err := c.b.Profiles.GetProfile(ctx, actor, id)
	if err != nil {
		return nil, toRemoteError(err)
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) error {
	actor, err := c.actor(ctx)
	if err != nil {
		return err
	}
	return toRemoteError(c.b.Profiles.UpdateProfile(ctx, actor, id, patch))
}

// =====================
// Catalog
// =====================

func (c *Client) ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	items, err := c.b.Products.ListProducts(ctx, usecase.ListProductsInput{
		Category: f.Category,
		Q:        f.Q,
		Featured: f.Featured,
		Sort:     f.Sort,
		Limit:    f.Limit,
	})
	return items, toRemoteError(err)
}

func (c *Client) GetProduct(ctx context.Context, id string) (model.Product, error) {
	p, err := c.b.Products.GetProduct(ctx, id)
	return p, toRemoteError(err)
}

func (c *Client) RelatedProducts(ctx context.Context, id string) ([]model.Product, error) {
	items, err := c.b.Products.RelatedProducts(ctx, id)
	return items, toRemoteError(err)
}

func (c *Client) FeaturedProducts(ctx context.Context) ([]model.Product, error) {
	items, err := c.b.Products.FeaturedProducts(ctx)
	return items, toRemoteError(err)
}

func (c *Client) NewArrivals(ctx context.Context) ([]model.Product, error) {
	items, err := c.b.Products.NewArrivals(ctx)
	return items, toRemoteError(err)
}

func (c *Client) Categories(ctx context.Context) ([]model.CategoryCount, error) {
	rows, err := c.b.Products.Categories(ctx)
	return rows, toRemoteError(err)
}

// =====================
// Orders
// =====================

func (c *Client) PlaceOrder(ctx context.Context, in PlaceOrderInput) (model.Order, error) {
	actor, err := c.actor(ctx)
	if err != nil {
		return model.Order{}, err
	}

	items := make([]usecase.PlaceOrderItemInput, 0, len(in.Items))
	for _, l := range in.Items {
		items = append(items, usecase.PlaceOrderItemInput{ProductID: l.ProductID, Quantity: l.Quantity, Price: l.Price})
	}

	o, err := c.b.Orders.PlaceOrder(ctx, actor, usecase.PlaceOrderInput{
		Total:           in.Total,
		ShippingAddress: in.ShippingAddress,
		Items:           items,
	})
	return o, toRemoteError(err)
}

func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	actor, err := c.actor(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := c.b.Orders.ListMyOrders(ctx, actor)
	return orders, toRemoteError(err)
}

// =====================
// session
// =====================

// 行アクセスはセッションのユーザーで判定する
func (c *Client) actor(ctx context.Context) (string, error) {
	s, err := c.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", ErrNotAuthenticated
	}
	return s.User.ID, nil
}

// mu保持中に呼ぶ
func (c *Client) ensureLoadedLocked(ctx context.Context) {
	if c.loaded {
		return
	}
	c.loaded = true

	if c.slot == nil {
		return
	}

	b, err := c.slot.Load(ctx)
	if err != nil {
		c.log.WithError(err).Warn("failed to load session")
		return
	}
	if b == nil {
		return
	}

	var s Session
	if err := json.Unmarshal(b, &s); err != nil || s.RefreshToken == "" {
		c.log.WithError(err).Warn("stored session is broken, ignored")
		return
	}
	c.session = &s
}

// mu保持中に呼ぶ。nilならセッション削除。
func (c *Client) setSessionLocked(ctx context.Context, s *Session) {
	c.session = s
	if c.slot == nil {
		return
	}

	if s == nil {
		if err := c.slot.Clear(ctx); err != nil {
			c.log.WithError(err).Warn("failed to clear session")
		}
		return
	}

	b, err := json.Marshal(s)
	if err != nil {
		c.log.WithError(err).Warn("failed to encode session")
		return
	}
	if err := c.slot.Save(ctx, b); err != nil {
		c.log.WithError(err).Warn("failed to save session")
	}
}

func sessionFrom(out auth.LoginOutput, side auth.LoginSideEffect) *Session {
	return &Session{
		AccessToken:  out.Token.AccessToken,
		RefreshToken: side.PlainRefreshToken,
		ExpiresAt:    out.Token.ExpiresAt,
		User:         AuthUser{ID: out.User.ID, Email: out.User.Email},
	}
}

// refreshできないセッションは捨てる
func isSessionGone(err error) bool {
	return errors.Is(err, auth.ErrInvalidRefreshToken) ||
		errors.Is(err, auth.ErrRefreshTokenReused) ||
		errors.Is(err, auth.ErrUserInactive)
}

func toRemoteError(err error) error {
	if err == nil {
		return nil
	}
	he, ok := usecase.AsHTTPError(err)
	if !ok {
		return err
	}
	switch he.Status {
	case http.StatusNotFound:
		return ErrNoRows
	case http.StatusUnauthorized:
		return ErrNotAuthenticated
	}
	return &Error{Status: he.Status, Message: he.Message}
}
