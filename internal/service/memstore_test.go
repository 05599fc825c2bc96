package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

// memState is the committed content of a memStore.
type memState struct {
	products   map[int64]model.Product
	carts      map[string]model.Cart
	items      map[int64]map[int64]int // cart id -> product id -> quantity
	coupons    map[int64]model.Coupon
	orders     map[int64]model.Order
	orderItems map[int64][]model.OrderItem
	reviews    map[int64]model.Review
	outbox     []model.OutboxEvent
	nextID     int64
}

func (s memState) clone() memState {
	c := memState{
		products:   make(map[int64]model.Product, len(s.products)),
		carts:      make(map[string]model.Cart, len(s.carts)),
		items:      make(map[int64]map[int64]int, len(s.items)),
		coupons:    make(map[int64]model.Coupon, len(s.coupons)),
		orders:     make(map[int64]model.Order, len(s.orders)),
		orderItems: make(map[int64][]model.OrderItem, len(s.orderItems)),
		reviews:    make(map[int64]model.Review, len(s.reviews)),
		outbox:     append([]model.OutboxEvent(nil), s.outbox...),
		nextID:     s.nextID,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.items {
		m := make(map[int64]int, len(v))
		for pid, q := range v {
			m[pid] = q
		}
		c.items[k] = m
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = append([]model.OrderItem(nil), v...)
	}
	return c
}

// memStore is an in-memory database for service tests. Begin snapshots the state
// and Rollback before Commit restores it, so partial writes never survive a failure.
type memStore struct {
	state     memState
	calls     []string
	failOn    map[string]error
	commits   int
	rollbacks int
	now       time.Time
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{
			products:   map[int64]model.Product{},
			carts:      map[string]model.Cart{},
			items:      map[int64]map[int64]int{},
			coupons:    map[int64]model.Coupon{},
			orders:     map[int64]model.Order{},
			orderItems: map[int64][]model.OrderItem{},
			reviews:    map[int64]model.Review{},
			nextID:     100,
		},
		failOn: map[string]error{},
		now:    fixedNow,
	}
}

func (m *memStore) record(op string) error {
	m.calls = append(m.calls, op)
	return m.failOn[op]
}

func (m *memStore) id() int64 {
	m.state.nextID++
	return m.state.nextID
}

func (m *memStore) repos() Repositories {
	return Repositories{
		Products: memProducts{m},
		Carts:    memCarts{m},
		Coupons:  memCoupons{m},
		Orders:   memOrders{m},
		Outbox:   memOutbox{m},
	}
}

func (m *memStore) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := m.record("Begin"); err != nil {
		return nil, err
	}
	saved := m.state.clone()
	done := false
	return &mockTx{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			if strings.Contains(sql, "lock_timeout") {
				m.calls = append(m.calls, "SetLockTimeout")
			}
			return &stubRow{}
		},
		commitFn: func(ctx context.Context) error {
			if err := m.record("Commit"); err != nil {
				return err
			}
			done = true
			m.commits++
			return nil
		},
		rollbackFn: func(ctx context.Context) error {
			if done {
				return pgx.ErrTxClosed
			}
			done = true
			m.state = saved
			m.rollbacks++
			return nil
		},
	}, nil
}

func (m *memStore) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("SELECT 0"), nil
}

func (m *memStore) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &stubRow{}
}

func (m *memStore) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

// Seeding helpers.

func (m *memStore) addProduct(id int64, name, price string, stock int) {
	m.state.products[id] = model.Product{
		ID:            id,
		Name:          name,
		Slug:          strings.ToLower(name),
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsInStock:     stock > 0,
		CreatedAt:     m.now,
		UpdatedAt:     m.now,
	}
}

func (m *memStore) putInCart(userID string, productID int64, quantity int) {
	cart, ok := m.state.carts[userID]
	if !ok {
		cart = model.Cart{ID: m.id(), UserID: userID}
		m.state.carts[userID] = cart
		m.state.items[cart.ID] = map[int64]int{}
	}
	m.state.items[cart.ID][productID] = quantity
}

func (m *memStore) addCoupon(c model.Coupon) int64 {
	c.ID = m.id()
	m.state.coupons[c.ID] = c
	return c.ID
}

func (m *memStore) addOrder(o model.Order) int64 {
	o.ID = m.id()
	m.state.orders[o.ID] = o
	return o.ID
}

func (m *memStore) cartItems(userID string) map[int64]int {
	cart, ok := m.state.carts[userID]
	if !ok {
		return nil
	}
	return m.state.items[cart.ID]
}

func (m *memStore) stock(productID int64) int {
	return m.state.products[productID].StockQuantity
}

func (m *memStore) coupon(id int64) model.Coupon {
	return m.state.coupons[id]
}

// callsMatching returns the recorded calls that contain any of the substrings, in order.
func (m *memStore) callsMatching(subs ...string) []string {
	var out []string
	for _, c := range m.calls {
		for _, s := range subs {
			if strings.Contains(c, s) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

type memProducts struct{ *memStore }

func (r memProducts) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error) {
	if err := r.record("Products.List"); err != nil {
		return nil, 0, err
	}
	out := []model.Product{}
	for _, p := range r.state.products {
		if p.IsDeleted && !filter.IncludeDeleted {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r memProducts) GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Product, error) {
	if err := r.record("Products.GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.state.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (r memProducts) GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Product, error) {
	if err := r.record("Products.GetForUpdate"); err != nil {
		return nil, err
	}
	p, ok := r.state.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (r memProducts) Insert(ctx context.Context, product *model.Product) error {
	if err := r.record("Products.Insert"); err != nil {
		return err
	}
	for _, p := range r.state.products {
		if p.Slug == product.Slug {
			return ErrProductExists
		}
	}
	product.ID = r.id()
	product.CreatedAt, product.UpdatedAt = r.now, r.now
	r.state.products[product.ID] = *product
	return nil
}

func (r memProducts) Update(ctx context.Context, tx database.TxQuerier, product *model.Product) error {
	if err := r.record("Products.Update"); err != nil {
		return err
	}
	if _, ok := r.state.products[product.ID]; !ok {
		return ErrProductNotFound
	}
	r.state.products[product.ID] = *product
	return nil
}

func (r memProducts) SetDeleted(ctx context.Context, tx database.TxQuerier, id int64, deletedAt *time.Time) error {
	if err := r.record("Products.SetDeleted"); err != nil {
		return err
	}
	p, ok := r.state.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.IsDeleted = deletedAt != nil
	p.DeletedAt = deletedAt
	r.state.products[id] = p
	return nil
}

func (r memProducts) DecrementStock(ctx context.Context, tx database.TxQuerier, id int64, quantity int) error {
	if err := r.record("Products.DecrementStock"); err != nil {
		return err
	}
	p, ok := r.state.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.StockQuantity -= quantity
	if p.StockQuantity < 0 {
		p.StockQuantity = 0
	}
	p.IsInStock = p.StockQuantity > 0
	r.state.products[id] = p
	return nil
}

func (r memProducts) AddImage(ctx context.Context, image *model.ProductImage) error {
	if err := r.record("Products.AddImage"); err != nil {
		return err
	}
	p, ok := r.state.products[image.ProductID]
	if !ok {
		return ErrProductNotFound
	}
	image.ID = r.id()
	url := image.ImageURL
	p.PrimaryImage = &url
	r.state.products[p.ID] = p
	return nil
}

type memCarts struct{ *memStore }

func (r memCarts) GetOrCreate(ctx context.Context, q database.TxQuerier, userID string) (*model.Cart, error) {
	if err := r.record("Carts.GetOrCreate"); err != nil {
		return nil, err
	}
	cart, ok := r.state.carts[userID]
	if !ok {
		cart = model.Cart{ID: r.id(), UserID: userID, CreatedAt: r.now, UpdatedAt: r.now}
		r.state.carts[userID] = cart
		r.state.items[cart.ID] = map[int64]int{}
	}
	return &cart, nil
}

func (r memCarts) GetByUserForUpdate(ctx context.Context, tx database.TxQuerier, userID string) (*model.Cart, error) {
	if err := r.record("Carts.GetByUserForUpdate"); err != nil {
		return nil, err
	}
	cart, ok := r.state.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return &cart, nil
}

func (r memCarts) lines(cartID int64) []model.CartLine {
	lines := []model.CartLine{}
	for pid, qty := range r.state.items[cartID] {
		p, ok := r.state.products[pid]
		if !ok {
			continue
		}
		lines = append(lines, model.CartLine{
			ItemID:        pid,
			ProductID:     pid,
			Quantity:      qty,
			ProductName:   p.Name,
			UnitPrice:     p.Price,
			StockQuantity: p.StockQuantity,
			IsDeleted:     p.IsDeleted,
			PrimaryImage:  p.PrimaryImage,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

func (r memCarts) ListLines(ctx context.Context, q database.TxQuerier, cartID int64) ([]model.CartLine, error) {
	if err := r.record("Carts.ListLines"); err != nil {
		return nil, err
	}
	return r.lines(cartID), nil
}

func (r memCarts) ListLinesForUpdate(ctx context.Context, tx database.TxQuerier, cartID int64) ([]model.CartLine, error) {
	if err := r.record("Carts.ListLinesForUpdate"); err != nil {
		return nil, err
	}
	return r.lines(cartID), nil
}

func (r memCarts) GetItem(ctx context.Context, q database.TxQuerier, cartID, productID int64) (*model.CartItem, error) {
	if err := r.record("Carts.GetItem"); err != nil {
		return nil, err
	}
	qty, ok := r.state.items[cartID][productID]
	if !ok {
		return nil, ErrCartItemNotFound
	}
	return &model.CartItem{ID: productID, CartID: cartID, ProductID: productID, Quantity: qty}, nil
}

func (r memCarts) SetItemQuantity(ctx context.Context, q database.TxQuerier, cartID, productID int64, quantity int) error {
	if err := r.record("Carts.SetItemQuantity"); err != nil {
		return err
	}
	if _, ok := r.state.products[productID]; !ok {
		return ErrProductNotFound
	}
	if r.state.items[cartID] == nil {
		r.state.items[cartID] = map[int64]int{}
	}
	r.state.items[cartID][productID] = quantity
	return nil
}

func (r memCarts) DeleteItem(ctx context.Context, q database.TxQuerier, cartID, productID int64) error {
	if err := r.record("Carts.DeleteItem"); err != nil {
		return err
	}
	if _, ok := r.state.items[cartID][productID]; !ok {
		return ErrCartItemNotFound
	}
	delete(r.state.items[cartID], productID)
	return nil
}

func (r memCarts) ClearItems(ctx context.Context, q database.TxQuerier, cartID int64) (int64, error) {
	if err := r.record("Carts.ClearItems"); err != nil {
		return 0, err
	}
	n := int64(len(r.state.items[cartID]))
	r.state.items[cartID] = map[int64]int{}
	return n, nil
}

type memCoupons struct{ *memStore }

func (r memCoupons) Insert(ctx context.Context, coupon *model.Coupon) error {
	if err := r.record("Coupons.Insert"); err != nil {
		return err
	}
	for _, c := range r.state.coupons {
		if c.Code == coupon.Code {
			return ErrCouponExists
		}
	}
	coupon.ID = r.id()
	r.state.coupons[coupon.ID] = *coupon
	return nil
}

func (r memCoupons) GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Coupon, error) {
	if err := r.record("Coupons.GetByID"); err != nil {
		return nil, err
	}
	c, ok := r.state.coupons[id]
	if !ok {
		return nil, ErrCouponNotFound
	}
	return &c, nil
}

func (r memCoupons) GetByIDForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Coupon, error) {
	if err := r.record("Coupons.GetByIDForUpdate"); err != nil {
		return nil, err
	}
	c, ok := r.state.coupons[id]
	if !ok {
		return nil, ErrCouponNotFound
	}
	return &c, nil
}

func (r memCoupons) GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error) {
	if err := r.record("Coupons.GetByCodeForUpdate"); err != nil {
		return nil, err
	}
	for _, c := range r.state.coupons {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, ErrCouponNotFound
}

func (r memCoupons) List(ctx context.Context, activeAt *time.Time) ([]model.Coupon, error) {
	if err := r.record("Coupons.List"); err != nil {
		return nil, err
	}
	out := []model.Coupon{}
	for _, c := range r.state.coupons {
		if activeAt != nil && (!c.IsActive || !c.ExpiresAt.After(*activeAt)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memCoupons) Update(ctx context.Context, tx database.TxQuerier, coupon *model.Coupon) error {
	if err := r.record("Coupons.Update"); err != nil {
		return err
	}
	r.state.coupons[coupon.ID] = *coupon
	return nil
}

func (r memCoupons) Delete(ctx context.Context, id int64) error {
	if err := r.record("Coupons.Delete"); err != nil {
		return err
	}
	if _, ok := r.state.coupons[id]; !ok {
		return ErrCouponNotFound
	}
	delete(r.state.coupons, id)
	return nil
}

func (r memCoupons) IncrementUsage(ctx context.Context, tx database.TxQuerier, id int64) error {
	if err := r.record("Coupons.IncrementUsage"); err != nil {
		return err
	}
	c := r.state.coupons[id]
	c.TimesUsed++
	r.state.coupons[id] = c
	return nil
}

func (r memCoupons) Deactivate(ctx context.Context, q database.TxQuerier, id int64) error {
	if err := r.record("Coupons.Deactivate"); err != nil {
		return err
	}
	c := r.state.coupons[id]
	c.IsActive = false
	r.state.coupons[id] = c
	return nil
}

func (r memCoupons) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := r.record("Coupons.DeactivateExpired"); err != nil {
		return 0, err
	}
	var n int64
	for id, c := range r.state.coupons {
		if c.IsActive && c.ExpiresAt.Before(now) {
			c.IsActive = false
			r.state.coupons[id] = c
			n++
		}
	}
	return n, nil
}

type memOrders struct{ *memStore }

func (r memOrders) Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
	if err := r.record("Orders.Insert"); err != nil {
		return err
	}
	order.ID = r.id()
	order.CreatedAt, order.UpdatedAt = r.now, r.now
	stored := *order
	stored.Items = nil
	r.state.orders[order.ID] = stored
	return nil
}

func (r memOrders) InsertItems(ctx context.Context, tx database.TxQuerier, orderID int64, items []model.OrderItem) error {
	if err := r.record("Orders.InsertItems"); err != nil {
		return err
	}
	for i := range items {
		items[i].ID = r.id()
		items[i].OrderID = orderID
	}
	r.state.orderItems[orderID] = append([]model.OrderItem(nil), items...)
	return nil
}

func (r memOrders) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	if err := r.record("Orders.GetByID"); err != nil {
		return nil, err
	}
	o, ok := r.state.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (r memOrders) GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Order, error) {
	if err := r.record("Orders.GetForUpdate"); err != nil {
		return nil, err
	}
	o, ok := r.state.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (r memOrders) ListItems(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	if err := r.record("Orders.ListItems"); err != nil {
		return nil, err
	}
	out := make(map[int64][]model.OrderItem, len(orderIDs))
	for _, id := range orderIDs {
		if items, ok := r.state.orderItems[id]; ok {
			out[id] = append([]model.OrderItem(nil), items...)
		}
	}
	return out, nil
}

func (r memOrders) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	if err := r.record("Orders.List"); err != nil {
		return nil, 0, err
	}
	matched := []model.Order{}
	for _, o := range r.state.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (r memOrders) Update(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
	if err := r.record("Orders.Update"); err != nil {
		return err
	}
	if _, ok := r.state.orders[order.ID]; !ok {
		return ErrOrderNotFound
	}
	stored := *order
	stored.Items = nil
	stored.UpdatedAt = r.now
	r.state.orders[order.ID] = stored
	return nil
}

func (r memOrders) HasDeliveredProduct(ctx context.Context, q database.TxQuerier, userID string, productID int64) (bool, error) {
	if err := r.record("Orders.HasDeliveredProduct"); err != nil {
		return false, err
	}
	for id, o := range r.state.orders {
		if o.UserID != userID || o.Status != model.OrderStatusDelivered {
			continue
		}
		for _, it := range r.state.orderItems[id] {
			if it.ProductID != nil && *it.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

type memReviews struct{ *memStore }

func (r memReviews) List(ctx context.Context, productID int64, limit, offset int) ([]model.Review, error) {
	if err := r.record("Reviews.List"); err != nil {
		return nil, err
	}
	out := []model.Review{}
	for _, rv := range r.state.reviews {
		if rv.ProductID == productID {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memReviews) Stats(ctx context.Context, productID int64) (*model.RatingStats, error) {
	if err := r.record("Reviews.Stats"); err != nil {
		return nil, err
	}
	stats := &model.RatingStats{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	sum := 0
	for _, rv := range r.state.reviews {
		if rv.ProductID != productID {
			continue
		}
		stats.Count++
		stats.Distribution[rv.Rating]++
		sum += rv.Rating
	}
	if stats.Count > 0 {
		avg := decimal.NewFromInt(int64(sum)).DivRound(decimal.NewFromInt(int64(stats.Count)), 1)
		stats.Average = &avg
	}
	return stats, nil
}

func (r memReviews) GetByUser(ctx context.Context, q database.TxQuerier, productID int64, userID string) (*model.Review, error) {
	if err := r.record("Reviews.GetByUser"); err != nil {
		return nil, err
	}
	for _, rv := range r.state.reviews {
		if rv.ProductID == productID && rv.UserID == userID {
			return &rv, nil
		}
	}
	return nil, ErrReviewNotFound
}

func (r memReviews) Insert(ctx context.Context, q database.TxQuerier, review *model.Review) error {
	if err := r.record("Reviews.Insert"); err != nil {
		return err
	}
	for _, rv := range r.state.reviews {
		if rv.ProductID == review.ProductID && rv.UserID == review.UserID {
			return ErrReviewExists
		}
	}
	review.ID = r.id()
	review.CreatedAt, review.UpdatedAt = r.now, r.now
	r.state.reviews[review.ID] = *review
	return nil
}

func (r memReviews) Update(ctx context.Context, q database.TxQuerier, review *model.Review) error {
	if err := r.record("Reviews.Update"); err != nil {
		return err
	}
	if _, ok := r.state.reviews[review.ID]; !ok {
		return ErrReviewNotFound
	}
	review.UpdatedAt = r.now
	r.state.reviews[review.ID] = *review
	return nil
}

func (r memReviews) Delete(ctx context.Context, productID int64, userID string) error {
	if err := r.record("Reviews.Delete"); err != nil {
		return err
	}
	for id, rv := range r.state.reviews {
		if rv.ProductID == productID && rv.UserID == userID {
			delete(r.state.reviews, id)
			return nil
		}
	}
	return ErrReviewNotFound
}

type memOutbox struct{ *memStore }

func (r memOutbox) Insert(ctx context.Context, q database.TxQuerier, event *model.OutboxEvent) error {
	if err := r.record("Outbox.Insert"); err != nil {
		return err
	}
	event.ID = r.id()
	event.CreatedAt = r.now
	r.state.outbox = append(r.state.outbox, *event)
	return nil
}
