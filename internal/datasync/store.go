package datasync

import (
	"context"
	"fmt"

	"gestorebinder/internal/core"
	applog "gestorebinder/internal/log"
	"gestorebinder/internal/query"
)

// API is the subset of the REST client the store drives.
type API interface {
	ListBinders(ctx context.Context) ([]core.Binder, error)
	GetBinder(ctx context.Context, id int64) (core.Binder, error)
	CreateBinder(ctx context.Context, name string) (core.Binder, error)
	UpdateBinder(ctx context.Context, id int64, name string) (core.Binder, error)
	DeleteBinder(ctx context.Context, id int64) error

	ListCategories(ctx context.Context, binderID int64) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	CreateCategory(ctx context.Context, binderID int64, name string) (core.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (core.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListTransactions(ctx context.Context, categoryID int64) (core.TransactionList, error)
	CreateTransaction(ctx context.Context, categoryID int64, in core.TransactionInput) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// Store exposes the entity queries and mutations over a shared query cache.
type Store struct {
	api      API
	cache    *query.Cache
	scheme   Scheme
	notifier Notifier
	logger   *applog.Logger
}

// StoreOption customises a Store.
type StoreOption func(*Store)

func WithScheme(s Scheme) StoreOption {
	return func(st *Store) { st.scheme = s }
}

func WithNotifier(n Notifier) StoreOption {
	return func(st *Store) { st.notifier = n }
}

func WithLogger(l *applog.Logger) StoreOption {
	return func(st *Store) { st.logger = l }
}

// NewStore creates a store using the canonical scheme unless told otherwise.
func NewStore(api API, cache *query.Cache, opts ...StoreOption) *Store {
	s := &Store{
		api:      api,
		cache:    cache,
		scheme:   Canonical,
		notifier: NotifierFunc(func(Notification) {}),
		logger:   applog.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(applog.ComponentSync)
	return s
}

// Scheme returns the key scheme in use.
func (s *Store) Scheme() Scheme {
	return s.scheme
}

// Cache returns the shared query cache.
func (s *Store) Cache() *query.Cache {
	return s.cache
}

// Queries

func (s *Store) Binders(ctx context.Context) ([]core.Binder, error) {
	return query.Fetch(ctx, s.cache, s.scheme.BindersKey(), s.api.ListBinders)
}

func (s *Store) Binder(ctx context.Context, id int64) (core.Binder, error) {
	return query.Fetch(ctx, s.cache, s.scheme.BinderKey(id), s.binderFetcher(id))
}

func (s *Store) Categories(ctx context.Context, binderID int64) ([]core.Category, error) {
	return query.Fetch(ctx, s.cache, s.scheme.CategoriesKey(binderID), s.categoriesFetcher(binderID))
}

func (s *Store) Category(ctx context.Context, id int64) (core.Category, error) {
	return query.Fetch(ctx, s.cache, s.scheme.CategoryKey(id), s.categoryFetcher(id))
}

func (s *Store) Transactions(ctx context.Context, categoryID int64) (core.TransactionList, error) {
	return query.Fetch(ctx, s.cache, s.scheme.TransactionsKey(categoryID), s.transactionsFetcher(categoryID))
}

func (s *Store) binderFetcher(id int64) func(context.Context) (core.Binder, error) {
	return func(ctx context.Context) (core.Binder, error) { return s.api.GetBinder(ctx, id) }
}

func (s *Store) categoriesFetcher(binderID int64) func(context.Context) ([]core.Category, error) {
	return func(ctx context.Context) ([]core.Category, error) { return s.api.ListCategories(ctx, binderID) }
}

func (s *Store) categoryFetcher(id int64) func(context.Context) (core.Category, error) {
	return func(ctx context.Context) (core.Category, error) { return s.api.GetCategory(ctx, id) }
}

func (s *Store) transactionsFetcher(categoryID int64) func(context.Context) (core.TransactionList, error) {
	return func(ctx context.Context) (core.TransactionList, error) {
		return s.api.ListTransactions(ctx, categoryID)
	}
}

// Observers. Each keeps its key refetched on invalidation until the
// returned function is called.

func (s *Store) ObserveBinders(fn func([]core.Binder, error)) func() {
	return observe(s.cache, s.scheme.BindersKey(), s.api.ListBinders, fn)
}

func (s *Store) ObserveBinder(id int64, fn func(core.Binder, error)) func() {
	return observe(s.cache, s.scheme.BinderKey(id), s.binderFetcher(id), fn)
}

func (s *Store) ObserveCategories(binderID int64, fn func([]core.Category, error)) func() {
	return observe(s.cache, s.scheme.CategoriesKey(binderID), s.categoriesFetcher(binderID), fn)
}

func (s *Store) ObserveCategory(id int64, fn func(core.Category, error)) func() {
	return observe(s.cache, s.scheme.CategoryKey(id), s.categoryFetcher(id), fn)
}

func (s *Store) ObserveTransactions(categoryID int64, fn func(core.TransactionList, error)) func() {
	return observe(s.cache, s.scheme.TransactionsKey(categoryID), s.transactionsFetcher(categoryID), fn)
}

func observe[T any](c *query.Cache, key query.Key, fetch func(context.Context) (T, error), fn func(T, error)) func() {
	return c.Observe(key,
		func(ctx context.Context) (any, error) { return fetch(ctx) },
		func(data any, err error) {
			if fn == nil {
				return
			}
			v, _ := data.(T)
			fn(v, err)
		},
	)
}

// Mutations

func (s *Store) CreateBinder(ctx context.Context, name string) (core.Binder, error) {
	var b core.Binder
	err := s.mutate(ctx, CreateBinder, Target{}, func(ctx context.Context) error {
		if err := core.ValidateName(name); err != nil {
			return err
		}
		var err error
		b, err = s.api.CreateBinder(ctx, name)
		return err
	})
	return b, err
}

func (s *Store) UpdateBinder(ctx context.Context, id int64, name string) (core.Binder, error) {
	var b core.Binder
	err := s.mutate(ctx, UpdateBinder, Target{BinderID: id}, func(ctx context.Context) error {
		if err := core.ValidateName(name); err != nil {
			return err
		}
		var err error
		b, err = s.api.UpdateBinder(ctx, id, name)
		return err
	})
	return b, err
}

func (s *Store) DeleteBinder(ctx context.Context, id int64) error {
	return s.mutate(ctx, DeleteBinder, Target{BinderID: id}, func(ctx context.Context) error {
		return s.api.DeleteBinder(ctx, id)
	})
}

func (s *Store) CreateCategory(ctx context.Context, binderID int64, name string) (core.Category, error) {
	var c core.Category
	err := s.mutate(ctx, CreateCategory, Target{BinderID: binderID}, func(ctx context.Context) error {
		if err := core.ValidateName(name); err != nil {
			return err
		}
		var err error
		c, err = s.api.CreateCategory(ctx, binderID, name)
		return err
	})
	return c, err
}

// UpdateCategory renames category id, which belongs to binderID.
func (s *Store) UpdateCategory(ctx context.Context, binderID, id int64, name string) (core.Category, error) {
	var c core.Category
	target := Target{BinderID: binderID, CategoryID: id}
	err := s.mutate(ctx, UpdateCategory, target, func(ctx context.Context) error {
		if err := core.ValidateName(name); err != nil {
			return err
		}
		var err error
		c, err = s.api.UpdateCategory(ctx, id, name)
		return err
	})
	return c, err
}

// DeleteCategory removes category id, which belongs to binderID.
func (s *Store) DeleteCategory(ctx context.Context, binderID, id int64) error {
	target := Target{BinderID: binderID, CategoryID: id}
	return s.mutate(ctx, DeleteCategory, target, func(ctx context.Context) error {
		return s.api.DeleteCategory(ctx, id)
	})
}

func (s *Store) CreateTransaction(ctx context.Context, categoryID int64, in core.TransactionInput) (core.Transaction, error) {
	var tx core.Transaction
	err := s.mutate(ctx, CreateTransaction, s.transactionTarget(categoryID), func(ctx context.Context) error {
		if err := in.Validate(); err != nil {
			return err
		}
		var err error
		tx, err = s.api.CreateTransaction(ctx, categoryID, in)
		return err
	})
	return tx, err
}

func (s *Store) UpdateTransaction(ctx context.Context, categoryID, id int64, in core.TransactionInput) (core.Transaction, error) {
	var tx core.Transaction
	err := s.mutate(ctx, UpdateTransaction, s.transactionTarget(categoryID), func(ctx context.Context) error {
		if err := in.Validate(); err != nil {
			return err
		}
		var err error
		tx, err = s.api.UpdateTransaction(ctx, id, in)
		return err
	})
	return tx, err
}

func (s *Store) DeleteTransaction(ctx context.Context, categoryID, id int64) error {
	return s.mutate(ctx, DeleteTransaction, s.transactionTarget(categoryID), func(ctx context.Context) error {
		return s.api.DeleteTransaction(ctx, id)
	})
}

// transactionTarget resolves the parent binder from the cached category, if
// that category has been loaded.
func (s *Store) transactionTarget(categoryID int64) Target {
	t := Target{CategoryID: categoryID}
	if cat, ok := query.GetData[core.Category](s.cache, s.scheme.CategoryKey(categoryID)); ok {
		t.ParentBinderID = cat.BinderID
		t.ParentLoaded = true
	}
	return t
}

// mutate runs call, then invalidates the declared keys and notifies. A
// failed refetch after a successful write is logged, not returned: the
// write itself went through.
func (s *Store) mutate(ctx context.Context, kind MutationKind, t Target, call func(context.Context) error) error {
	fields := applog.NewFields().
		WithOperation(kind.String()).
		WithEntity(t.BinderID, t.CategoryID, 0)

	if err := call(ctx); err != nil {
		s.logger.WarnContext(ctx, "Mutation failed", append(fields.WithError(err).ToSlice(), applog.FieldMutation, kind.String())...)
		s.notifier.Notify(FailureNotification(kind))
		return fmt.Errorf("%s: %w", kind, err)
	}

	keys := s.scheme.Invalidations(kind, t)
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.WarnContext(ctx, "Refetch after mutation failed", append(fields.WithError(err).ToSlice(), applog.FieldMutation, kind.String())...)
	}
	s.logger.InfoContext(ctx, "Mutation succeeded", append(fields.ToSlice(), "invalidated", len(keys))...)
	s.notifier.Notify(SuccessNotification(kind))
	return nil
}
