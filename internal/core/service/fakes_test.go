package service

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/rl1809/shoe-erp/internal/core/domain"
	"github.com/rl1809/shoe-erp/internal/port"
)

// memStore mimics the MySQL adapter: a reservation takes a per-product lock
// held until the transaction ends, like an InnoDB row lock.
type memStore struct {
	mu     sync.Mutex
	stock  map[int64]int
	rows   map[int64]*sync.Mutex
	orders []domain.Order
	nextID int64

	insertErr error
	commitErr error
	begins    atomic.Int32
	locks     atomic.Int32
}

func newMemStore(stock map[int64]int) *memStore {
	return &memStore{
		stock: stock,
		rows:  make(map[int64]*sync.Mutex),
	}
}

type memTx struct {
	store    *memStore
	held     map[int64]*sync.Mutex
	reserved map[int64]int
	pending  *domain.Order
	done     bool
}

func (s *memStore) BeginTx(ctx context.Context) (port.Tx, error) {
	s.begins.Add(1)
	return &memTx{
		store:    s,
		held:     make(map[int64]*sync.Mutex),
		reserved: make(map[int64]int),
	}, nil
}

func (s *memStore) rowLock(productID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.rows[productID]
	if !ok {
		l = &sync.Mutex{}
		s.rows[productID] = l
	}
	return l
}

func (s *memStore) LockStock(ctx context.Context, tx port.Tx, productIDs []int64) error {
	t := tx.(*memTx)
	ids := slices.Clone(productIDs)
	slices.Sort(ids)
	for _, id := range slices.Compact(ids) {
		if _, ok := t.held[id]; ok {
			continue
		}
		l := s.rowLock(id)
		l.Lock()
		t.held[id] = l
	}
	s.locks.Add(1)
	return nil
}

func (s *memStore) Reserve(ctx context.Context, tx port.Tx, productID int64, quantity int) error {
	t := tx.(*memTx)
	if _, ok := t.held[productID]; !ok {
		l := s.rowLock(productID)
		l.Lock()
		t.held[productID] = l
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	available, ok := s.stock[productID]
	if !ok {
		return fmt.Errorf("reserve product %d: %w", productID, domain.ErrProductNotFound)
	}
	if available < quantity {
		return &domain.InsufficientStockError{ProductID: productID, Requested: quantity, Available: available}
	}

	s.stock[productID] = available - quantity
	t.reserved[productID] += quantity
	return nil
}

func (s *memStore) GetInventory(ctx context.Context, productID int64) (*domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	available, ok := s.stock[productID]
	if !ok {
		return nil, nil
	}
	return &domain.Inventory{ProductID: productID, Available: available, MinStock: 2}, nil
}

func (s *memStore) SetStock(ctx context.Context, productID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stock[productID]; !ok {
		return domain.ErrProductNotFound
	}
	s.stock[productID] = quantity
	return nil
}

func (s *memStore) InsertOrder(ctx context.Context, tx port.Tx, order *domain.Order) (int64, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	cp := *order
	cp.ID = s.nextID
	cp.Lines = append([]domain.OrderLine(nil), order.Lines...)
	tx.(*memTx).pending = &cp
	return cp.ID, nil
}

func (s *memStore) ListOrders(ctx context.Context) ([]domain.OrderSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.OrderSummary, 0, len(s.orders))
	for i := len(s.orders) - 1; i >= 0; i-- {
		out = append(out, summaryOf(s.orders[i]))
	}
	return out, nil
}

func (s *memStore) GetOrder(ctx context.Context, id int64) (*domain.OrderSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID == id {
			sum := summaryOf(o)
			return &sum, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetOrderDetail(ctx context.Context, id int64) (*domain.OrderDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID != id {
			continue
		}
		d := &domain.OrderDetail{
			ID:         o.ID,
			ClientID:   o.ClientID,
			ClientName: fmt.Sprintf("client-%d", o.ClientID),
			UserID:     o.UserID,
			UserName:   fmt.Sprintf("user-%d", o.UserID),
			CreatedAt:  o.CreatedAt,
			Total:      o.Total,
			Status:     o.Status,
		}
		for _, l := range o.Lines {
			d.Lines = append(d.Lines, domain.OrderDetailLine{
				ProductID:   l.ProductID,
				ProductName: fmt.Sprintf("product-%d", l.ProductID),
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				Subtotal:    l.Subtotal,
			})
		}
		return d, nil
	}
	return nil, nil
}

func (s *memStore) stockOf(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[productID]
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (t *memTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	if t.store.commitErr != nil {
		return t.store.commitErr
	}

	t.store.mu.Lock()
	if t.pending != nil {
		t.store.orders = append(t.store.orders, *t.pending)
	}
	t.store.mu.Unlock()

	t.finish()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}

	t.store.mu.Lock()
	for productID, qty := range t.reserved {
		t.store.stock[productID] += qty
	}
	t.store.mu.Unlock()

	t.finish()
	return nil
}

func (t *memTx) finish() {
	t.done = true
	for _, l := range t.held {
		l.Unlock()
	}
}

func summaryOf(o domain.Order) domain.OrderSummary {
	return domain.OrderSummary{
		ID:        o.ID,
		ClientID:  o.ClientID,
		UserID:    o.UserID,
		CreatedAt: o.CreatedAt,
		Total:     o.Total,
		Status:    o.Status,
	}
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) ClaimRequest(ctx context.Context, key string) (int64, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *mockCache) CompleteRequest(ctx context.Context, key string, orderID int64) error {
	args := m.Called(ctx, key, orderID)
	return args.Error(0)
}

func (m *mockCache) ReleaseRequest(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockCache) GetOrderDetail(ctx context.Context, id int64) (*domain.OrderDetail, error) {
	args := m.Called(ctx, id)
	detail, _ := args.Get(0).(*domain.OrderDetail)
	return detail, args.Error(1)
}

func (m *mockCache) SetOrderDetail(ctx context.Context, detail *domain.OrderDetail) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}
