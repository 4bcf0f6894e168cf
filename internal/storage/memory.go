package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gestorebinder/internal/core"
)

// MemoryStore keeps everything in process memory. Ids come from one
// monotonic counter per table and are never reused.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[int64]User
	binders      map[int64]core.Binder
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	seq          struct{ user, binder, category, transaction int64 }
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[int64]User),
		binders:      make(map[int64]core.Binder),
		categories:   make(map[int64]core.Category),
		transactions: make(map[int64]core.Transaction),
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }

func (m *MemoryStore) CreateUser(_ context.Context, username, passwordHash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return User{}, fmt.Errorf("create user %s: %w", username, ErrConflict)
		}
	}
	m.seq.user++
	u := User{ID: m.seq.user, Username: username, PasswordHash: passwordHash}
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryStore) UserByUsername(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("get user: %w", ErrNotFound)
}

// aggregate helpers; callers hold the lock.

func (m *MemoryStore) category(id int64) core.Category {
	c := m.categories[id]
	c.TotalAmount, c.TransactionsCount = core.Money{}, 0
	for _, t := range m.transactions {
		if t.CategoryID == id {
			c.TotalAmount = c.TotalAmount.Add(t.Amount)
			c.TransactionsCount++
		}
	}
	return c
}

func (m *MemoryStore) binder(id int64) core.Binder {
	b := m.binders[id]
	b.TotalAmount, b.CategoriesCount = core.Money{}, 0
	for cid, c := range m.categories {
		if c.BinderID == id {
			b.TotalAmount = b.TotalAmount.Add(m.category(cid).TotalAmount)
			b.CategoriesCount++
		}
	}
	return b
}

func (m *MemoryStore) ownsBinder(userID, id int64) bool {
	b, ok := m.binders[id]
	return ok && b.UserID == userID
}

func (m *MemoryStore) ownsCategory(userID, id int64) bool {
	c, ok := m.categories[id]
	return ok && m.ownsBinder(userID, c.BinderID)
}

func (m *MemoryStore) ownsTransaction(userID, id int64) bool {
	t, ok := m.transactions[id]
	return ok && m.ownsCategory(userID, t.CategoryID)
}

func (m *MemoryStore) ListBinders(_ context.Context, userID int64) ([]core.Binder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []core.Binder{}
	for id, b := range m.binders {
		if b.UserID == userID {
			out = append(out, m.binder(id))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetBinder(_ context.Context, userID, id int64) (core.Binder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ownsBinder(userID, id) {
		return core.Binder{}, fmt.Errorf("get binder: %w", ErrNotFound)
	}
	return m.binder(id), nil
}

func (m *MemoryStore) CreateBinder(_ context.Context, userID int64, name string) (core.Binder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq.binder++
	b := core.Binder{ID: m.seq.binder, Name: name, UserID: userID}
	m.binders[b.ID] = b
	return b, nil
}

func (m *MemoryStore) UpdateBinder(_ context.Context, userID, id int64, name string) (core.Binder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ownsBinder(userID, id) {
		return core.Binder{}, fmt.Errorf("update binder: %w", ErrNotFound)
	}
	b := m.binders[id]
	b.Name = name
	m.binders[id] = b
	return m.binder(id), nil
}

func (m *MemoryStore) DeleteBinder(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ownsBinder(userID, id) {
		return fmt.Errorf("delete binder: %w", ErrNotFound)
	}
	for cid, c := range m.categories {
		if c.BinderID == id {
			m.deleteCategory(cid)
		}
	}
	delete(m.binders, id)
	return nil
}

func (m *MemoryStore) ListCategories(_ context.Context, userID, binderID int64) ([]core.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ownsBinder(userID, binderID) {
		return nil, fmt.Errorf("list categories: %w", ErrNotFound)
	}
	out := []core.Category{}
	for id, c := range m.categories {
		if c.BinderID == binderID {
			out = append(out, m.category(id))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetCategory(_ context.Context, userID, id int64) (core.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ownsCategory(userID, id) {
		return core.Category{}, fmt.Errorf("get category: %w", ErrNotFound)
	}
	return m.category(id), nil
}

func (m *MemoryStore) CreateCategory(_ context.Context, userID, binderID int64, name string) (core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ownsBinder(userID, binderID) {
		return core.Category{}, fmt.Errorf("create category: %w", ErrNotFound)
	}
	m.seq.category++
	c := core.Category{ID: m.seq.category, Name: name, BinderID: binderID}
	m.categories[c.ID] = c
	return c, nil
}

func (m *MemoryStore) UpdateCategory(_ context.Context, userID, id int64, name string) (core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ownsCategory(userID, id) {
		return core.Category{}, fmt.Errorf("update category: %w", ErrNotFound)
	}
	c := m.categories[id]
	c.Name = name
	m.categories[id] = c
	return m.category(id), nil
}

func (m *MemoryStore) DeleteCategory(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ownsCategory(userID, id) {
		return fmt.Errorf("delete category: %w", ErrNotFound)
	}
	m.deleteCategory(id)
	return nil
}

func (m *MemoryStore) deleteCategory(id int64) {
	for tid, t := range m.transactions {
		if t.CategoryID == id {
			delete(m.transactions, tid)
		}
	}
	delete(m.categories, id)
}

func (m *MemoryStore) ListTransactions(_ context.Context, userID, categoryID int64) (core.TransactionList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ownsCategory(userID, categoryID) {
		return core.TransactionList{}, fmt.Errorf("list transactions: %w", ErrNotFound)
	}
	list := core.TransactionList{Transactions: []core.Transaction{}}
	for _, t := range m.transactions {
		if t.CategoryID == categoryID {
			list.Transactions = append(list.Transactions, t)
		}
	}
	sort.Slice(list.Transactions, func(i, j int) bool {
		a, b := list.Transactions[i], list.Transactions[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		return a.ID > b.ID
	})
	list.Total = core.SumTransactions(list.Transactions)
	return list, nil
}

func (m *MemoryStore) GetTransaction(_ context.Context, userID, id int64) (core.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ownsTransaction(userID, id) {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", ErrNotFound)
	}
	return m.transactions[id], nil
}

func (m *MemoryStore) CreateTransaction(_ context.Context, userID, categoryID int64, in core.TransactionInput) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ownsCategory(userID, categoryID) {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", ErrNotFound)
	}
	m.seq.transaction++
	t := core.Transaction{
		ID:          m.seq.transaction,
		Date:        truncateDay(in.Date),
		Description: in.Description,
		Amount:      in.Amount,
		CategoryID:  categoryID,
	}
	m.transactions[t.ID] = t
	return t, nil
}

func (m *MemoryStore) UpdateTransaction(_ context.Context, userID, id int64, in core.TransactionInput) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ownsTransaction(userID, id) {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", ErrNotFound)
	}
	t := m.transactions[id]
	t.Date, t.Description, t.Amount = truncateDay(in.Date), in.Description, in.Amount
	m.transactions[id] = t
	return t, nil
}

func (m *MemoryStore) DeleteTransaction(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ownsTransaction(userID, id) {
		return fmt.Errorf("delete transaction: %w", ErrNotFound)
	}
	delete(m.transactions, id)
	return nil
}

// truncateDay keeps the calendar day, matching what the sqlite store keeps.
func truncateDay(d core.Date) core.Date {
	u := d.UTC()
	return core.NewDate(u.Year(), int(u.Month()), u.Day())
}
