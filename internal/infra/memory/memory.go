// Package memory はrepositoryのインメモリ実装（テストとローカル確認用）。
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type DB struct {
	mu       sync.Mutex
	users    map[string]model.User
	tokens   map[string]model.RefreshToken
	profiles map[string]model.Profile
	products map[string]model.Product
	orders   map[string]model.Order
	items    map[string][]model.OrderItem
}

func New() *DB {
	return &DB{
		users:    map[string]model.User{},
		tokens:   map[string]model.RefreshToken{},
		profiles: map[string]model.Profile{},
		products: map[string]model.Product{},
		orders:   map[string]model.Order{},
		items:    map[string][]model.OrderItem{},
	}
}

func (d *DB) Users() repo.UserRepository                 { return userRepo{d} }
func (d *DB) RefreshTokens() repo.RefreshTokenRepository { return refreshTokenRepo{d} }
func (d *DB) Profiles() repo.ProfileRepository           { return profileRepo{d} }
func (d *DB) Products() repo.ProductRepository           { return productRepo{d} }
func (d *DB) Orders() repo.OrderRepository               { return orderRepo{d} }
func (d *DB) OrderItems() repo.OrderItemRepository       { return orderItemRepo{d} }

// ロールバックはしない
func (d *DB) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(d)
}

// =====================
// users
// =====================

type userRepo struct{ d *DB }

func (r userRepo) Create(ctx context.Context, user *model.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, u := range r.d.users {
		if u.Email == user.Email {
			return repo.ErrDuplicateEmail
		}
	}
	r.d.users[user.ID] = *user
	return nil
}

func (r userRepo) FindByID(ctx context.Context, userID string) (*model.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	u, ok := r.d.users[userID]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	return &u, nil
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, u := range r.d.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repo.ErrUserNotFound
}

func (r userRepo) Update(ctx context.Context, user *model.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.users[user.ID]; !ok {
		return repo.ErrUserNotFound
	}
	r.d.users[user.ID] = *user
	return nil
}

// =====================
// refresh_tokens
// =====================

type refreshTokenRepo struct{ d *DB }

func (r refreshTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	r.d.tokens[token.ID] = *token
	return nil
}

func (r refreshTokenRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, t := range r.d.tokens {
		if t.TokenHash == tokenHash {
			t := t
			return &t, nil
		}
	}
	return nil, repo.ErrRefreshTokenNotFound
}

func (r refreshTokenRepo) MarkUsed(ctx context.Context, tokenID string) error {
	return r.stamp(tokenID, func(t *model.RefreshToken, now time.Time) bool {
		if t.UsedAt != nil {
			return false
		}
		t.UsedAt = &now
		return true
	})
}

func (r refreshTokenRepo) Revoke(ctx context.Context, tokenID string) error {
	return r.stamp(tokenID, func(t *model.RefreshToken, now time.Time) bool {
		if t.RevokedAt != nil {
			return false
		}
		t.RevokedAt = &now
		return true
	})
}

func (r refreshTokenRepo) DeleteAllByUserID(ctx context.Context, userID string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for id, t := range r.d.tokens {
		if t.UserID == userID {
			delete(r.d.tokens, id)
		}
	}
	return nil
}

// 更新できなければgorm版と同じくnot found
func (r refreshTokenRepo) stamp(tokenID string, fn func(t *model.RefreshToken, now time.Time) bool) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	t, ok := r.d.tokens[tokenID]
	if !ok || !fn(&t, time.Now()) {
		return repo.ErrRefreshTokenNotFound
	}
	t.UpdatedAt = time.Now()
	r.d.tokens[tokenID] = t
	return nil
}

// =====================
// profiles
// =====================

type profileRepo struct{ d *DB }

func (r profileRepo) Create(ctx context.Context, p model.Profile) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.d.profiles[p.ID] = p
	return nil
}

func (r profileRepo) FindByID(ctx context.Context, id string) (model.Profile, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	p, ok := r.d.profiles[id]
	if !ok {
		return model.Profile{}, repo.ErrNotFound
	}
	return p, nil
}

func (r profileRepo) Update(ctx context.Context, id string, patch model.ProfilePatch) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	p, ok := r.d.profiles[id]
	if !ok {
		return repo.ErrNotFound
	}
	if patch.FirstName != nil {
		p.FirstName = patch.FirstName
	}
	if patch.LastName != nil {
		p.LastName = patch.LastName
	}
	if patch.AvatarURL != nil {
		p.AvatarURL = patch.AvatarURL
	}
	if patch.Phone != nil {
		p.Phone = patch.Phone
	}
	if patch.Address != nil {
		a := *patch.Address
		p.Address = &a
	}
	p.UpdatedAt = time.Now()
	r.d.profiles[id] = p
	return nil
}

// =====================
// products
// =====================

type productRepo struct{ d *DB }

func (r productRepo) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	needle := strings.ToLower(q.Q)
	out := make([]model.Product, 0, len(r.d.products))
	for _, p := range r.d.products {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		if q.FeaturedOnly && !p.Featured {
			continue
		}
		if q.ExcludeID != "" && p.ID == q.ExcludeID {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.Sort {
		case repo.SortPriceAsc:
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
		case repo.SortPriceDesc:
			if !a.Price.Equal(b.Price) {
				return a.Price.GreaterThan(b.Price)
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r productRepo) FindByID(ctx context.Context, id string) (model.Product, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	p, ok := r.d.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r productRepo) CountByCategory(ctx context.Context) ([]model.CategoryCount, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	counts := map[string]int64{}
	for _, p := range r.d.products {
		counts[p.Category]++
	}

	out := make([]model.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, model.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (r productRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	r.d.products[p.ID] = p
	return p, nil
}

// =====================
// orders
// =====================

type orderRepo struct{ d *DB }

func (r orderRepo) Create(ctx context.Context, order *model.Order) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	o := *order
	o.Items = nil
	r.d.orders[o.ID] = o
	return nil
}

func (r orderRepo) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	o, ok := r.d.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	o.Items = r.d.itemsWithProduct(o.ID)
	return o, nil
}

func (r orderRepo) ListByUserID(ctx context.Context, userID string) ([]model.Order, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	out := []model.Order{}
	for _, o := range r.d.orders {
		if o.UserID != userID {
			continue
		}
		o.Items = r.d.itemsWithProduct(o.ID)
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type orderItemRepo struct{ d *DB }

func (r orderItemRepo) CreateBulk(ctx context.Context, orderID string, items []model.OrderItem) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, it := range items {
		it.OrderID = orderID
		it.Product = nil
		r.d.items[orderID] = append(r.d.items[orderID], it)
	}
	return nil
}

func (r orderItemRepo) ListByOrderID(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	return r.d.itemsWithProduct(orderID), nil
}

// mu保持中に呼ぶ
func (d *DB) itemsWithProduct(orderID string) []model.OrderItem {
	src := d.items[orderID]
	out := make([]model.OrderItem, 0, len(src))
	for _, it := range src {
		if p, ok := d.products[it.ProductID]; ok {
			p := p
			it.Product = &p
		}
		out = append(out, it)
	}
	return out
}
