package remote

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storefront/internal/backend"
	"storefront/internal/domain/model"
	"storefront/internal/infra/memory"
	"storefront/internal/infra/storage"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mugID = "44444444-4444-4444-8444-444444444444"

func newTestBackend(t *testing.T) *backend.Backend {
	t.Helper()

	db := memory.New()
	_, err := db.Products().Create(context.Background(), model.Product{
		ID: mugID, Name: "Mug", Category: "kitchen", Price: decimal.RequireFromString("12.50"), Stock: 4,
	})
	require.NoError(t, err)

	return backend.New(backend.Settings{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		BcryptCost: 4,
	}, backend.Repos{
		Users:         db.Users(),
		RefreshTokens: db.RefreshTokens(),
		Profiles:      db.Profiles(),
		Products:      db.Products(),
		Orders:        db.Orders(),
		Tx:            db,
	})
}

func newSlot(t *testing.T) storage.Slot {
	t.Helper()
	return storage.NewFileStore(t.TempDir()).Slot(storage.SessionNamespace)
}

func TestClient_NoSessionInitially(t *testing.T) {
	c := NewClient(newTestBackend(t), newSlot(t), nil)

	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = c.GetProfile(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = c.ListOrders(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestClient_SignUpPersistsSession(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	slot := newSlot(t)

	c := NewClient(b, slot, nil)
	res, err := c.SignUp(ctx, "ann@example.com", "secret")
	require.NoError(t, err)
	require.NotNil(t, res.User)
	assert.Equal(t, "ann@example.com", res.User.Email)

	raw, err := slot.Load(ctx)
	require.NoError(t, err)
	var stored Session
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, res.User.ID, stored.User.ID)

	//別プロセス相当：同じslotから復元
	restored := NewClient(b, slot, nil)
	s, err := restored.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, res.User.ID, s.User.ID)
}

func TestClient_ExpiredAccessTokenIsRefreshed(t *testing.T) {
	ctx := context.Background()
	c := NewClient(newTestBackend(t), newSlot(t), nil)

	res, err := c.SignUp(ctx, "ann@example.com", "secret")
	require.NoError(t, err)
	oldRefresh := res.Session.RefreshToken

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NotEqual(t, oldRefresh, s.RefreshToken)
	assert.Equal(t, res.User.ID, s.User.ID)
}

func TestClient_UnrefreshableSessionIsDropped(t *testing.T) {
	ctx := context.Background()
	slot := newSlot(t)
	c := NewClient(newTestBackend(t), slot, nil)

	//別のバックエンドで発行されたセッション
	require.NoError(t, slot.Save(ctx, []byte(`{"access_token":"x","refresh_token":"unknown","expires_at":"2000-01-01T00:00:00Z","user":{"id":"u","email":"a@example.com"}}`)))

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	raw, err := slot.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestClient_BrokenStoredSessionIsIgnored(t *testing.T) {
	ctx := context.Background()
	slot := newSlot(t)
	require.NoError(t, slot.Save(ctx, []byte("{not json")))

	s, err := NewClient(newTestBackend(t), slot, nil).GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestClient_Profiles(t *testing.T) {
	ctx := context.Background()
	c := NewClient(newTestBackend(t), newSlot(t), nil)

	res, err := c.SignUp(ctx, "ann@example.com", "secret")
	require.NoError(t, err)
	id := res.User.ID

	_, err = c.GetProfile(ctx, id)
	assert.ErrorIs(t, err, ErrNoRows)

	require.NoError(t, c.InsertProfile(ctx, id))

	phone := "555-0100"
	require.NoError(t, c.UpdateProfile(ctx, id, model.ProfilePatch{Phone: &phone}))

	p, err := c.GetProfile(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p.Phone)
	assert.Equal(t, phone, *p.Phone)

	//他人の行
	err = c.UpdateProfile(ctx, "someone-else", model.ProfilePatch{Phone: &phone})
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 403, re.Status)
}

func TestClient_OrdersAndSignOut(t *testing.T) {
	ctx := context.Background()
	slot := newSlot(t)
	c := NewClient(newTestBackend(t), slot, nil)

	_, err := c.SignUp(ctx, "ann@example.com", "secret")
	require.NoError(t, err)

	o, err := c.PlaceOrder(ctx, PlaceOrderInput{
		Total: decimal.RequireFromString("25.00"),
		ShippingAddress: model.ShippingAddress{
			Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US",
		},
		Items: []OrderLine{{ProductID: mugID, Quantity: 2, Price: decimal.RequireFromString("12.50")}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, o.Status)

	orders, err := c.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, o.ID, orders[0].ID)

	require.NoError(t, c.SignOut(ctx))

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	raw, err := slot.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestClient_Catalog(t *testing.T) {
	ctx := context.Background()
	c := NewClient(newTestBackend(t), nil, nil)

	items, err := c.ListProducts(ctx, ProductFilter{Category: "kitchen"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = c.GetProduct(ctx, "55555555-5555-4555-8555-555555555555")
	assert.ErrorIs(t, err, ErrNoRows)

	cats, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.CategoryCount{{Category: "kitchen", Count: 1}}, cats)
}

// 登録直後のユーザーを停止状態で保存する（確認待ちのアカウント相当）
type inactiveOnCreateUsers struct {
	repo.UserRepository
}

func (r inactiveOnCreateUsers) Create(ctx context.Context, user *model.User) error {
	cp := *user
	cp.IsActive = false
	return r.UserRepository.Create(ctx, &cp)
}

func TestClient_SignUp_SignInFailsAfterRegister(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	b := backend.New(backend.Settings{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		BcryptCost: 4,
	}, backend.Repos{
		Users:         inactiveOnCreateUsers{db.Users()},
		RefreshTokens: db.RefreshTokens(),
		Profiles:      db.Profiles(),
		Products:      db.Products(),
		Orders:        db.Orders(),
		Tx:            db,
	})
	slot := newSlot(t)
	c := NewClient(b, slot, nil)

	res, err := c.SignUp(ctx, "ann@example.com", "secret")
	require.NoError(t, err)
	require.NotNil(t, res.User)
	assert.NotEmpty(t, res.User.ID)
	assert.Equal(t, "ann@example.com", res.User.Email)
	assert.Nil(t, res.Session)

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	//アカウントはできているので同じemailでは登録できない
	_, err = c.SignUp(ctx, "ann@example.com", "secret")
	assert.Error(t, err)
}
