// Package storage persists users, binders, categories and transactions for
// the backend. Aggregates are computed at read time and every lookup is
// scoped to the owning user: resources of other users read as ErrNotFound.
package storage

import (
	"context"
	"errors"

	"gestorebinder/internal/core"
)

var (
	// ErrNotFound is returned for missing or foreign resources.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a unique value already exists.
	ErrConflict = errors.New("storage: conflict")
)

// User is a backend account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
}

// Store is implemented by SQLiteRepository and MemoryStore.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)

	ListBinders(ctx context.Context, userID int64) ([]core.Binder, error)
	GetBinder(ctx context.Context, userID, id int64) (core.Binder, error)
	CreateBinder(ctx context.Context, userID int64, name string) (core.Binder, error)
	UpdateBinder(ctx context.Context, userID, id int64, name string) (core.Binder, error)
	DeleteBinder(ctx context.Context, userID, id int64) error

	ListCategories(ctx context.Context, userID, binderID int64) ([]core.Category, error)
	GetCategory(ctx context.Context, userID, id int64) (core.Category, error)
	CreateCategory(ctx context.Context, userID, binderID int64, name string) (core.Category, error)
	UpdateCategory(ctx context.Context, userID, id int64, name string) (core.Category, error)
	DeleteCategory(ctx context.Context, userID, id int64) error

	ListTransactions(ctx context.Context, userID, categoryID int64) (core.TransactionList, error)
	GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
	CreateTransaction(ctx context.Context, userID, categoryID int64, in core.TransactionInput) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id int64, in core.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error

	Ping(ctx context.Context) error
	Close() error
}
