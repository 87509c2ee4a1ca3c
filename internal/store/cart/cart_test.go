package cart

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/storage"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, price string) model.Product {
	return model.Product{
		ID:        id,
		Name:      "Product " + id,
		Price:     decimal.RequireFromString(price),
		Category:  "misc",
		Stock:     10,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func fileSlot(t *testing.T) storage.Slot {
	t.Helper()
	return storage.NewFileStore(t.TempDir()).Slot(storage.CartNamespace)
}

// 保存に必ず失敗するslot
type brokenSlot struct{}

func (brokenSlot) Load(ctx context.Context) ([]byte, error) { return nil, errors.New("disk gone") }
func (brokenSlot) Save(ctx context.Context, b []byte) error { return errors.New("disk gone") }
func (brokenSlot) Clear(ctx context.Context) error          { return errors.New("disk gone") }

func TestCart_Scenario(t *testing.T) {
	s := New(context.Background(), nil, nil)
	p1 := product("p1", "10")

	s.AddItem(p1, 2)
	assert.Equal(t, int64(2), s.TotalItems())
	assert.True(t, s.TotalPrice().Equal(decimal.NewFromInt(20)))

	s.AddItem(p1, 3)
	assert.Equal(t, int64(5), s.TotalItems())
	require.Len(t, s.Items(), 1)

	s.UpdateQuantity("p1", 0)
	assert.Empty(t, s.Items())
	assert.Equal(t, int64(0), s.TotalItems())
	assert.True(t, s.TotalPrice().IsZero())
}

func TestCart_TotalsAcrossProducts(t *testing.T) {
	s := New(context.Background(), nil, nil)

	s.AddItem(product("p1", "10.50"), 2)
	s.AddItem(product("p2", "0.25"), 4)

	assert.Equal(t, int64(6), s.TotalItems())
	assert.Equal(t, "22", s.TotalPrice().String())
}

func TestCart_PriceSnapshotKept(t *testing.T) {
	s := New(context.Background(), nil, nil)

	s.AddItem(product("p1", "10"), 1)
	//カタログ側で値上げされた後に同じ商品を追加
	s.AddItem(product("p1", "15"), 1)

	assert.True(t, s.TotalPrice().Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "10", s.Items()[0].Product.Price.String())
}

func TestCart_AddItem_NonPositive(t *testing.T) {
	s := New(context.Background(), nil, nil)

	//新しい行は作らない
	s.AddItem(product("p1", "1"), 0)
	s.AddItem(product("p2", "1"), -3)
	assert.Empty(t, s.Items())

	//既存の行は合計が0以下になったら消える
	s.AddItem(product("p1", "1"), 3)
	s.AddItem(product("p1", "1"), -1)
	assert.Equal(t, int64(2), s.TotalItems())
	s.AddItem(product("p1", "1"), -2)
	assert.Empty(t, s.Items())
}

func TestCart_RemoveAndUpdate(t *testing.T) {
	s := New(context.Background(), nil, nil)

	s.AddItem(product("p1", "1"), 1)
	s.AddItem(product("p2", "1"), 1)
	s.AddItem(product("p3", "1"), 1)

	s.RemoveItem("missing")
	s.UpdateQuantity("missing", 5)
	assert.Len(t, s.Items(), 3)

	s.UpdateQuantity("p2", 7)
	s.RemoveItem("p1")

	got := s.Items()
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].ProductID)
	assert.Equal(t, int64(7), got[0].Quantity)
	assert.Equal(t, "p3", got[1].ProductID)

	s.ClearCart()
	assert.Empty(t, s.Items())
}

func TestCart_ItemsIsACopy(t *testing.T) {
	s := New(context.Background(), nil, nil)
	s.AddItem(product("p1", "1"), 1)

	items := s.Items()
	items[0].Quantity = 99

	assert.Equal(t, int64(1), s.TotalItems())
}

func TestCart_RoundTripAcrossRestart(t *testing.T) {
	ctx := context.Background()

	for name, open := range map[string]func(t *testing.T) storage.Slot{
		"file": fileSlot,
		"sqlite": func(t *testing.T) storage.Slot {
			st, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "kv.db"))
			require.NoError(t, err)
			t.Cleanup(func() { st.Close() })
			return st.Slot(storage.CartNamespace)
		},
	} {
		t.Run(name, func(t *testing.T) {
			slot := open(t)

			before := New(ctx, slot, nil)
			before.AddItem(product("p1", "10.00"), 2)
			before.AddItem(product("p2", "3.99"), 1)
			before.UpdateQuantity("p2", 4)

			after := New(ctx, slot, nil)
			if diff := cmp.Diff(before.Items(), after.Items()); diff != "" {
				t.Fatalf("rehydrated cart mismatch (-before +after):\n%s", diff)
			}
			assert.True(t, before.TotalPrice().Equal(after.TotalPrice()))
		})
	}
}

func TestCart_PersistedFormat(t *testing.T) {
	ctx := context.Background()
	slot := fileSlot(t)

	s := New(ctx, slot, nil)
	s.AddItem(product("p1", "10"), 2)

	raw, err := slot.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"state": {"items": [{
			"productId": "p1",
			"quantity": 2,
			"product": {
				"id": "p1", "name": "Product p1", "description": "", "price": "10",
				"category": "misc", "image_url": "", "stock": 10, "featured": false,
				"created_at": "2024-05-01T12:00:00Z"
			}
		}]},
		"version": 0
	}`, string(raw))

	s.ClearCart()
	raw, err = slot.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":{"items":[]},"version":0}`, string(raw))
}

func TestCart_RehydrateRepairsStoredState(t *testing.T) {
	ctx := context.Background()
	slot := fileSlot(t)

	require.NoError(t, slot.Save(ctx, []byte(`{"state":{"items":[
		{"productId":"p1","quantity":1,"product":{"id":"p1","price":"2"}},
		{"productId":"p1","quantity":2,"product":{"id":"p1","price":"2"}},
		{"productId":"p2","quantity":0,"product":{"id":"p2","price":"5"}},
		{"productId":"","quantity":1,"product":{"price":"5"}}
	]},"version":0}`)))

	s := New(ctx, slot, nil)
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].Quantity)
}

func TestCart_CorruptOrFailingStorageStartsEmpty(t *testing.T) {
	ctx := context.Background()

	slot := fileSlot(t)
	require.NoError(t, slot.Save(ctx, []byte("{oops")))
	assert.Empty(t, New(ctx, slot, nil).Items())

	//保存できなくても操作は成功する
	s := New(ctx, brokenSlot{}, nil)
	s.AddItem(product("p1", "1"), 2)
	assert.Equal(t, int64(2), s.TotalItems())
}

func TestCart_Subscribe(t *testing.T) {
	s := New(context.Background(), nil, nil)

	var got [][]model.CartItem
	unsubscribe := s.Subscribe(func(items []model.CartItem) {
		got = append(got, items)
	})

	s.AddItem(product("p1", "1"), 1)
	s.AddItem(product("p1", "1"), 1)
	unsubscribe()
	s.ClearCart()

	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[1][0].Quantity)
}

func TestCart_ConcurrentAdds(t *testing.T) {
	s := New(context.Background(), fileSlot(t), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddItem(product("p1", "1"), 1)
			_ = s.TotalPrice()
		}()
	}
	wg.Wait()

	require.Len(t, s.Items(), 1)
	assert.Equal(t, int64(20), s.TotalItems())
}

func TestCart_AddItem_SaturatesAtMaxInt64(t *testing.T) {
	s := New(context.Background(), nil, nil)
	p := product("p1", "1")

	s.AddItem(p, math.MaxInt64)
	s.AddItem(p, 1)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(math.MaxInt64), items[0].Quantity)

	//負の数は通常どおり減らす
	s.AddItem(p, -1)
	assert.Equal(t, int64(math.MaxInt64-1), s.TotalItems())
}

func TestCart_SubscribersSeeLatestUnderConcurrency(t *testing.T) {
	s := New(context.Background(), nil, nil)

	var mu sync.Mutex
	var last []model.CartItem
	s.Subscribe(func(items []model.CartItem) {
		mu.Lock()
		defer mu.Unlock()
		last = items
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%3 == 0 {
				s.UpdateQuantity("p1", int64(i))
				return
			}
			s.AddItem(product("p1", "1"), 1)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff(s.Items(), last); diff != "" {
		t.Fatalf("last notification differs from Items() (-items +notified):\n%s", diff)
	}
}
