// Package cart はカートの明細を持つストア。
// 変更のたびに明細全体をslotへ保存し、起動時にそこから復元する。
package cart

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/storage"
	"storefront/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	persistVersion = 0
	persistTimeout = 5 * time.Second
)

// 保存形式 {"state":{"items":[...]},"version":0}
type persistedCart struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

type persistedState struct {
	Items []model.CartItem `json:"items"`
}

type Store struct {
	mu    sync.RWMutex
	items []model.CartItem
	slot  storage.Slot
	log   *logrus.Logger

	//更新と通知を直列にする（購読者は変更順に受け取る）
	notifyMu sync.Mutex

	subsMu sync.Mutex
	subs   map[int]func([]model.CartItem)
	nextID int
}

// slotがnilならメモリだけで持つ
func New(ctx context.Context, slot storage.Slot, log *logrus.Logger) *Store {
	s := &Store{
		slot: slot,
		log:  logger.OrDiscard(log),
		subs: map[int]func([]model.CartItem){},
	}
	s.items = s.rehydrate(ctx)
	return s
}

// 同じ商品があれば数量を足す（合計が0以下なら削除）。なければ末尾に追加。
func (s *Store) AddItem(product model.Product, quantity int64) {
	s.mutate(func(items []model.CartItem) []model.CartItem {
		return addItem(items, product, quantity)
	})
}

func (s *Store) RemoveItem(productID string) {
	s.mutate(func(items []model.CartItem) []model.CartItem {
		return removeItem(items, productID)
	})
}

// 0以下はRemoveItemと同じ。無い商品は何もしない。
func (s *Store) UpdateQuantity(productID string, quantity int64) {
	s.mutate(func(items []model.CartItem) []model.CartItem {
		return updateQuantity(items, productID, quantity)
	})
}

func (s *Store) ClearCart() {
	s.mutate(func([]model.CartItem) []model.CartItem {
		return []model.CartItem{}
	})
}

// 数量の合計（商品の種類数ではない）
func (s *Store) TotalItems() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// 追加時点の価格で計算する
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (s *Store) Items() []model.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneItems(s.items)
}

// 変更のたびに新しい明細でfnを呼ぶ。戻り値で解除。
// fnの中からカートを変更してはいけない。
func (s *Store) Subscribe(fn func([]model.CartItem)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

// メモリ更新→保存まではmu、通知まではnotifyMuの中
func (s *Store) mutate(fn func([]model.CartItem) []model.CartItem) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.items = fn(s.items)
	snapshot := cloneItems(s.items)
	s.persist(snapshot)
	s.mu.Unlock()

	s.notify(snapshot)
}

func (s *Store) notify(items []model.CartItem) {
	s.subsMu.Lock()
	fns := make([]func([]model.CartItem), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(cloneItems(items))
	}
}

// 保存に失敗してもメモリ上のカートはそのまま使う
func (s *Store) persist(items []model.CartItem) {
	if s.slot == nil {
		return
	}

	b, err := json.Marshal(persistedCart{State: persistedState{Items: items}, Version: persistVersion})
	if err != nil {
		s.log.WithError(err).Error("failed to encode cart")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.slot.Save(ctx, b); err != nil {
		s.log.WithError(err).WithField("namespace", storage.CartNamespace).Error("failed to persist cart")
	}
}

func (s *Store) rehydrate(ctx context.Context) []model.CartItem {
	empty := []model.CartItem{}
	if s.slot == nil {
		return empty
	}

	b, err := s.slot.Load(ctx)
	if err != nil {
		s.log.WithError(err).Warn("failed to load cart, starting empty")
		return empty
	}
	if b == nil {
		return empty
	}

	var p persistedCart
	if err := json.Unmarshal(b, &p); err != nil {
		s.log.WithError(err).Warn("stored cart is broken, starting empty")
		return empty
	}

	//壊れた行は捨て、重複は数量を足して1行にまとめる
	items := empty
	for _, it := range p.State.Items {
		if it.ProductID == "" || it.Quantity < 1 {
			s.log.WithField("product_id", it.ProductID).Warn("dropped invalid cart line")
			continue
		}
		it.Product.ID = it.ProductID
		items = addItem(items, it.Product, it.Quantity)
	}
	return items
}

// =====================
// 明細の操作（純粋関数）
// =====================

func indexOf(items []model.CartItem, productID string) int {
	for i, it := range items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func addItem(items []model.CartItem, product model.Product, quantity int64) []model.CartItem {
	if i := indexOf(items, product.ID); i >= 0 {
		return updateQuantity(items, product.ID, addQuantity(items[i].Quantity, quantity))
	}
	//新しい行は1以上のときだけ
	if quantity < 1 {
		return items
	}
	return append(items, model.CartItem{ProductID: product.ID, Quantity: quantity, Product: product})
}

// 正の数同士の和はMaxInt64で頭打ち
func addQuantity(current int64, delta int64) int64 {
	if delta > 0 && current > math.MaxInt64-delta {
		return math.MaxInt64
	}
	return current + delta
}

func removeItem(items []model.CartItem, productID string) []model.CartItem {
	i := indexOf(items, productID)
	if i < 0 {
		return items
	}
	out := make([]model.CartItem, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func updateQuantity(items []model.CartItem, productID string, quantity int64) []model.CartItem {
	if quantity <= 0 {
		return removeItem(items, productID)
	}
	i := indexOf(items, productID)
	if i < 0 {
		return items
	}
	out := cloneItems(items)
	out[i].Quantity = quantity
	return out
}

func cloneItems(items []model.CartItem) []model.CartItem {
	out := make([]model.CartItem, len(items))
	copy(out, items)
	return out
}
