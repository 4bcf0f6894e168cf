package datasync

import (
	"fmt"

	"gestorebinder/internal/query"
)

// MutationKind enumerates every write the client can issue.
type MutationKind int

const (
	CreateBinder MutationKind = iota
	UpdateBinder
	DeleteBinder
	CreateCategory
	UpdateCategory
	DeleteCategory
	CreateTransaction
	UpdateTransaction
	DeleteTransaction
)

var mutationNames = map[MutationKind]string{
	CreateBinder:      "create_binder",
	UpdateBinder:      "update_binder",
	DeleteBinder:      "delete_binder",
	CreateCategory:    "create_category",
	UpdateCategory:    "update_category",
	DeleteCategory:    "delete_category",
	CreateTransaction: "create_transaction",
	UpdateTransaction: "update_transaction",
	DeleteTransaction: "delete_transaction",
}

func (k MutationKind) String() string {
	if name, ok := mutationNames[k]; ok {
		return name
	}
	return fmt.Sprintf("MutationKind(%d)", int(k))
}

// Target carries the ids a mutation's invalidation rules refer to.
// ParentBinderID is only meaningful for transaction mutations and only when
// ParentLoaded reports that the owning category was in the cache.
type Target struct {
	BinderID       int64
	CategoryID     int64
	ParentBinderID int64
	ParentLoaded   bool
}

// rule yields one key to invalidate, or false when it does not apply.
type rule func(s Scheme, t Target) (query.Key, bool)

func always(fn func(Scheme, Target) query.Key) rule {
	return func(s Scheme, t Target) (query.Key, bool) { return fn(s, t), true }
}

func whenParentLoaded(fn func(Scheme, Target) query.Key) rule {
	return func(s Scheme, t Target) (query.Key, bool) {
		if !t.ParentLoaded {
			return query.Key{}, false
		}
		return fn(s, t), true
	}
}

var (
	binderList   = always(func(s Scheme, _ Target) query.Key { return s.BindersKey() })
	binderTree   = always(func(s Scheme, t Target) query.Key { return s.BinderKey(t.BinderID) })
	categoryTree = always(func(s Scheme, t Target) query.Key { return s.CategoryKey(t.CategoryID) })

	// Historical shapes. The category create key matches the categories
	// query; the update/delete and transaction keys are path-shaped and
	// match nothing the queries register.
	legacyCategoriesCreated = always(func(_ Scheme, t Target) query.Key {
		return query.NewKey("/api/binders/categories", t.BinderID)
	})
	legacyCategoriesChanged = always(func(_ Scheme, t Target) query.Key {
		return query.NewKey(fmt.Sprintf("/api/binders/%d/categories", t.BinderID))
	})
	legacyTransactions = always(func(s Scheme, t Target) query.Key { return s.TransactionsKey(t.CategoryID) })
	legacyParentCategories = whenParentLoaded(func(_ Scheme, t Target) query.Key {
		return query.NewKey(fmt.Sprintf("/api/binders/%d/categories", t.ParentBinderID))
	})
)

// invalidations is the declarative mutation to keys table. Keys are
// prefixes: invalidating ["binders", 1] also covers ["binders", 1, "categories"].
// Child writes in the canonical scheme invalidate the binder list because
// its aggregates count categories and sum transactions.
var invalidations = map[Scheme]map[MutationKind][]rule{
	Canonical: {
		CreateBinder:      {binderList},
		UpdateBinder:      {binderList},
		DeleteBinder:      {binderList},
		CreateCategory:    {binderTree, binderList},
		UpdateCategory:    {binderTree, categoryTree, binderList},
		DeleteCategory:    {binderTree, categoryTree, binderList},
		CreateTransaction: {categoryTree, binderList},
		UpdateTransaction: {categoryTree, binderList},
		DeleteTransaction: {categoryTree, binderList},
	},
	Legacy: {
		CreateBinder:      {binderList},
		UpdateBinder:      {binderList},
		DeleteBinder:      {binderList},
		CreateCategory:    {legacyCategoriesCreated},
		UpdateCategory:    {legacyCategoriesChanged},
		DeleteCategory:    {legacyCategoriesChanged},
		CreateTransaction: {legacyTransactions, legacyParentCategories},
		UpdateTransaction: {legacyTransactions, legacyParentCategories},
		DeleteTransaction: {legacyTransactions, legacyParentCategories},
	},
}

// Invalidations returns the keys a successful mutation of kind invalidates.
func (s Scheme) Invalidations(kind MutationKind, t Target) []query.Key {
	rules := invalidations[s][kind]
	keys := make([]query.Key, 0, len(rules))
	for _, r := range rules {
		if k, ok := r(s, t); ok {
			keys = append(keys, k)
		}
	}
	return keys
}
