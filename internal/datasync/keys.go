// Package datasync binds the REST client to the query cache: one query per
// entity listing or detail, and mutations that invalidate a declared set of
// keys and raise a notification on success and on failure.
package datasync

import (
	"fmt"
	"strings"

	"gestorebinder/internal/query"
)

// Scheme selects the shape of the query keys.
type Scheme int

const (
	// Canonical uses one key family per resource, so every mutation
	// invalidates keys that the queries actually use.
	Canonical Scheme = iota
	// Legacy reproduces the historical key shapes, including the category
	// update/delete and transaction keys that match no query.
	Legacy
)

func (s Scheme) String() string {
	switch s {
	case Canonical:
		return "canonical"
	case Legacy:
		return "legacy"
	default:
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
}

// ParseScheme maps a configuration value to a Scheme. Empty means canonical.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "canonical":
		return Canonical, nil
	case "legacy":
		return Legacy, nil
	default:
		return Canonical, fmt.Errorf("unknown invalidation scheme %q", s)
	}
}

// BindersKey addresses the binder listing.
func (s Scheme) BindersKey() query.Key {
	if s == Legacy {
		return query.NewKey("/api/binders")
	}
	return query.NewKey("binders")
}

// BinderKey addresses one binder.
func (s Scheme) BinderKey(id int64) query.Key {
	if s == Legacy {
		return query.NewKey("/api/binders", id)
	}
	return query.NewKey("binders", id)
}

// CategoriesKey addresses the categories of a binder.
func (s Scheme) CategoriesKey(binderID int64) query.Key {
	if s == Legacy {
		return query.NewKey("/api/binders/categories", binderID)
	}
	return query.NewKey("binders", binderID, "categories")
}

// CategoryKey addresses one category.
func (s Scheme) CategoryKey(id int64) query.Key {
	if s == Legacy {
		return query.NewKey(fmt.Sprintf("/api/categories/%d", id))
	}
	return query.NewKey("categories", id)
}

// TransactionsKey addresses the transactions of a category.
func (s Scheme) TransactionsKey(categoryID int64) query.Key {
	if s == Legacy {
		return query.NewKey(fmt.Sprintf("/api/categories/%d/transactions", categoryID))
	}
	return query.NewKey("categories", categoryID, "transactions")
}
