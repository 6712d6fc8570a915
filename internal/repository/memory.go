package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/luxbag-api/internal/model"
)

// MemoryStore keeps every collection in process memory. It is used by tests
// and by STORE_DRIVER=memory for local runs. Values are copied on the way in
// and out so callers never share slices with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]model.Product
	carts    map[uuid.UUID]model.Cart // keyed by user id
	orders   map[uuid.UUID]model.Order
	users    map[uuid.UUID]model.User
	seq      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[uuid.UUID]model.Product),
		carts:    make(map[uuid.UUID]model.Cart),
		orders:   make(map[uuid.UUID]model.Order),
		users:    make(map[uuid.UUID]model.User),
	}
}

func NewMemoryRepositories(s *MemoryStore) Repositories {
	return Repositories{
		Products: &memProductRepo{s},
		Carts:    &memCartRepo{s},
		Orders:   &memOrderRepo{s},
		Users:    &memUserRepo{s},
	}
}

// now returns strictly increasing timestamps so newest-first ordering is
// stable even when records are created within the same clock tick.
func (s *MemoryStore) now() time.Time {
	s.seq++
	return time.Now().UTC().Add(time.Duration(s.seq) * time.Microsecond)
}

func copyProduct(p model.Product) model.Product {
	p.Images = append([]model.Image{}, p.Images...)
	if p.Dimensions != nil {
		d := *p.Dimensions
		p.Dimensions = &d
	}
	return p
}

func copyCart(c model.Cart) model.Cart {
	items := make([]model.CartItem, len(c.Items))
	for i, it := range c.Items {
		it.Product = nil
		items[i] = it
	}
	c.Items = items
	return c
}

func copyOrder(o model.Order) model.Order {
	o.Items = append([]model.OrderItem{}, o.Items...)
	if o.PaymentResult != nil {
		pr := *o.PaymentResult
		o.PaymentResult = &pr
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		o.DeliveredAt = &t
	}
	o.User = nil
	return o
}

func copyUser(u model.User) model.User {
	u.Addresses = append([]model.Address{}, u.Addresses...)
	return u
}

type memProductRepo struct{ s *MemoryStore }

func (r *memProductRepo) Create(_ context.Context, product *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := r.s.now()
	product.CreatedAt, product.UpdatedAt = now, now
	if product.Images == nil {
		product.Images = []model.Image{}
	}
	r.s.products[product.ID] = copyProduct(*product)
	return nil
}

func (r *memProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	p = copyProduct(p)
	return &p, nil
}

func (r *memProductRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Product{}
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, copyProduct(p))
		}
	}
	return out, nil
}

func matchesSearch(p model.Product, search string) bool {
	for _, term := range strings.Fields(strings.ToLower(search)) {
		text := strings.ToLower(p.Name + " " + p.Description + " " + p.Brand)
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func matchesFilter(p model.Product, f ProductFilter) bool {
	switch {
	case f.Search != "" && !matchesSearch(p, f.Search):
		return false
	case f.Category != "" && string(p.Category) != f.Category:
		return false
	case f.Brand != "" && p.Brand != f.Brand:
		return false
	case f.Material != "" && string(p.Material) != f.Material:
		return false
	case f.Color != "" && !strings.Contains(strings.ToLower(p.Color), strings.ToLower(f.Color)):
		return false
	case f.MinPrice != nil && p.Price.LessThan(*f.MinPrice):
		return false
	case f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice):
		return false
	}
	return true
}

func sortProducts(products []model.Product, mode string) {
	less := map[string]func(a, b model.Product) bool{
		SortOldest:    func(a, b model.Product) bool { return a.CreatedAt.Before(b.CreatedAt) },
		SortPriceAsc:  func(a, b model.Product) bool { return a.Price.LessThan(b.Price) },
		SortPriceDesc: func(a, b model.Product) bool { return a.Price.GreaterThan(b.Price) },
		SortName:      func(a, b model.Product) bool { return a.Name < b.Name },
	}[mode]
	if less == nil {
		less = func(a, b model.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}

func (r *memProductRepo) List(_ context.Context, f ProductFilter) ([]model.Product, int64, error) {
	r.s.mu.RLock()
	matched := []model.Product{}
	for _, p := range r.s.products {
		if matchesFilter(p, f) {
			matched = append(matched, copyProduct(p))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID.String() < matched[j].ID.String() })
	sortProducts(matched, f.Sort)

	total := int64(len(matched))
	start := min(f.Offset, len(matched))
	end := len(matched)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(matched))
	}
	return matched[start:end], total, nil
}

func (r *memProductRepo) ListFeatured(ctx context.Context, limit int) ([]model.Product, error) {
	r.s.mu.RLock()
	featured := []model.Product{}
	for _, p := range r.s.products {
		if p.IsFeatured {
			featured = append(featured, copyProduct(p))
		}
	}
	r.s.mu.RUnlock()

	sortProducts(featured, SortNewest)
	if len(featured) > limit {
		featured = featured[:limit]
	}
	return featured, nil
}

func (r *memProductRepo) ListLowStock(_ context.Context, threshold, limit int) ([]model.Product, error) {
	r.s.mu.RLock()
	low := []model.Product{}
	for _, p := range r.s.products {
		if p.Stock < threshold {
			low = append(low, copyProduct(p))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(low, func(i, j int) bool {
		if low[i].Stock != low[j].Stock {
			return low[i].Stock < low[j].Stock
		}
		return low[i].Name < low[j].Name
	})
	if len(low) > limit {
		low = low[:limit]
	}
	return low, nil
}

func (r *memProductRepo) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.products)), nil
}

func (r *memProductRepo) Update(_ context.Context, product *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.products[product.ID]
	if !ok {
		return ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = r.s.now()
	r.s.products[product.ID] = copyProduct(*product)
	return nil
}

func (r *memProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *memProductRepo) DecrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || p.Stock < quantity {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	return nil
}

func (r *memProductRepo) IncrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Stock += quantity
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	return nil
}

type memCartRepo struct{ s *MemoryStore }

func (r *memCartRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.carts[userID]
	if !ok {
		return nil, nil
	}
	c = copyCart(c)
	return &c, nil
}

func (r *memCartRepo) GetOrCreate(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[userID]
	if !ok {
		c = *model.NewCart(userID)
		now := r.s.now()
		c.CreatedAt, c.UpdatedAt = now, now
		r.s.carts[userID] = c
	}
	c = copyCart(c)
	return &c, nil
}

func (r *memCartRepo) Save(_ context.Context, cart *model.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.carts[cart.UserID]
	if !ok || existing.ID != cart.ID {
		return ErrNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ID == uuid.Nil {
			cart.Items[i].ID = uuid.New()
		}
	}
	cart.UpdatedAt = r.s.now()
	r.s.carts[cart.UserID] = copyCart(*cart)
	return nil
}

type memOrderRepo struct{ s *MemoryStore }

func (r *memOrderRepo) Create(_ context.Context, order *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := r.s.now()
	order.CreatedAt, order.UpdatedAt = now, now
	r.s.orders[order.ID] = copyOrder(*order)
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	o = copyOrder(o)
	return &o, nil
}

func (r *memOrderRepo) collect(keep func(model.Order) bool, limit int) []model.Order {
	r.s.mu.RLock()
	orders := []model.Order{}
	for _, o := range r.s.orders {
		if keep(o) {
			orders = append(orders, copyOrder(o))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders
}

func (r *memOrderRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.collect(func(o model.Order) bool { return o.UserID == userID }, 0), nil
}

func (r *memOrderRepo) ListAll(context.Context) ([]model.Order, error) {
	return r.collect(func(model.Order) bool { return true }, 0), nil
}

func (r *memOrderRepo) ListRecent(_ context.Context, limit int) ([]model.Order, error) {
	return r.collect(func(model.Order) bool { return true }, limit), nil
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, order *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.orders[order.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Status = order.Status
	existing.PaymentStatus = order.PaymentStatus
	existing.DeliveredAt = order.DeliveredAt
	existing.UpdatedAt = r.s.now()
	order.UpdatedAt = existing.UpdatedAt
	r.s.orders[order.ID] = copyOrder(existing)
	return nil
}

func (r *memOrderRepo) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.orders)), nil
}

func (r *memOrderRepo) CountByStatus(context.Context) ([]model.StatusCount, error) {
	r.s.mu.RLock()
	byStatus := map[model.OrderStatus]int64{}
	for _, o := range r.s.orders {
		byStatus[o.Status]++
	}
	r.s.mu.RUnlock()

	counts := make([]model.StatusCount, 0, len(byStatus))
	for status, n := range byStatus {
		counts = append(counts, model.StatusCount{Status: status, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Status < counts[j].Status })
	return counts, nil
}

func (r *memOrderRepo) SumTotalByStatus(_ context.Context, status model.OrderStatus) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	total := decimal.Zero
	for _, o := range r.s.orders {
		if o.Status == status {
			total = total.Add(o.TotalPrice)
		}
	}
	return total, nil
}

type memUserRepo struct{ s *MemoryStore }

func (r *memUserRepo) emailTaken(email string, except uuid.UUID) bool {
	for _, u := range r.s.users {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.emailTaken(user.Email, uuid.Nil) {
		return ErrDuplicate
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Addresses == nil {
		user.Addresses = []model.Address{}
	}
	now := r.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = copyUser(*user)
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	u = copyUser(u)
	return &u, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			u = copyUser(u)
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.User{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, copyUser(u))
		}
	}
	return out, nil
}

func (r *memUserRepo) List(context.Context) ([]model.User, error) {
	r.s.mu.RLock()
	users := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, copyUser(u))
	}
	r.s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (r *memUserRepo) Update(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if r.emailTaken(user.Email, user.ID) {
		return ErrDuplicate
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = copyUser(*user)
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r *memUserRepo) CountByRole(_ context.Context, role model.Role) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, u := range r.s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}
