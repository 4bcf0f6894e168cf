package datasync

import (
	"testing"

	"gestorebinder/internal/query"
)

func TestInvalidationTable(t *testing.T) {
	loaded := Target{BinderID: 1, CategoryID: 2, ParentBinderID: 1, ParentLoaded: true}
	unloaded := Target{BinderID: 1, CategoryID: 2}

	tests := []struct {
		scheme Scheme
		kind   MutationKind
		target Target
		want   []query.Key
	}{
		{Canonical, CreateBinder, Target{}, []query.Key{query.NewKey("binders")}},
		{Canonical, DeleteBinder, loaded, []query.Key{query.NewKey("binders")}},
		{Canonical, CreateCategory, loaded, []query.Key{query.NewKey("binders", 1), query.NewKey("binders")}},
		{Canonical, UpdateCategory, loaded, []query.Key{
			query.NewKey("binders", 1), query.NewKey("categories", 2), query.NewKey("binders"),
		}},
		{Canonical, DeleteTransaction, loaded, []query.Key{query.NewKey("categories", 2), query.NewKey("binders")}},
		{Canonical, CreateTransaction, unloaded, []query.Key{query.NewKey("categories", 2), query.NewKey("binders")}},

		{Legacy, UpdateBinder, loaded, []query.Key{query.NewKey("/api/binders")}},
		{Legacy, CreateCategory, loaded, []query.Key{query.NewKey("/api/binders/categories", 1)}},
		{Legacy, UpdateCategory, loaded, []query.Key{query.NewKey("/api/binders/1/categories")}},
		{Legacy, DeleteCategory, loaded, []query.Key{query.NewKey("/api/binders/1/categories")}},
		{Legacy, UpdateTransaction, loaded, []query.Key{
			query.NewKey("/api/categories/2/transactions"),
			query.NewKey("/api/binders/1/categories"),
		}},
		{Legacy, CreateTransaction, unloaded, []query.Key{query.NewKey("/api/categories/2/transactions")}},
	}

	for _, tt := range tests {
		t.Run(tt.scheme.String()+"/"+tt.kind.String(), func(t *testing.T) {
			got := tt.scheme.Invalidations(tt.kind, tt.target)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Fatalf("key %d: got %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEveryMutationHasRulesAndMessages(t *testing.T) {
	for kind := CreateBinder; kind <= DeleteTransaction; kind++ {
		for _, scheme := range []Scheme{Canonical, Legacy} {
			if len(invalidations[scheme][kind]) == 0 {
				t.Fatalf("%s/%s has no invalidation rule", scheme, kind)
			}
		}
		if SuccessNotification(kind).Title == "" || FailureNotification(kind).Description == "" {
			t.Fatalf("%s lacks notification texts", kind)
		}
	}
}

func TestLegacyUpdateKeyMatchesNoQuery(t *testing.T) {
	key := Legacy.Invalidations(UpdateCategory, Target{BinderID: 5})[0]
	if Legacy.CategoriesKey(5).HasPrefix(key) {
		t.Fatalf("legacy update key unexpectedly matches the categories query")
	}
	created := Legacy.Invalidations(CreateCategory, Target{BinderID: 5})[0]
	if !Legacy.CategoriesKey(5).HasPrefix(created) {
		t.Fatalf("legacy create key should match the categories query")
	}
}

func TestParseScheme(t *testing.T) {
	if s, err := ParseScheme("LEGACY"); err != nil || s != Legacy {
		t.Fatalf("ParseScheme(LEGACY) = %v, %v", s, err)
	}
	if s, err := ParseScheme(""); err != nil || s != Canonical {
		t.Fatalf("empty should be canonical")
	}
	if _, err := ParseScheme("other"); err == nil {
		t.Fatalf("expected error")
	}
}
