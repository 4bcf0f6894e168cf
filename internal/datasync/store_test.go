package datasync

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gestorebinder/internal/apiclient"
	"gestorebinder/internal/core"
	"gestorebinder/internal/query"
)

// fakeAPI keeps entities in maps and computes aggregates on read.
type fakeAPI struct {
	mu           sync.Mutex
	nextID       int64
	binders      map[int64]core.Binder
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	calls        map[string]int
	failWrites   bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		binders:      map[int64]core.Binder{},
		categories:   map[int64]core.Category{},
		transactions: map[int64]core.Transaction{},
		calls:        map[string]int{},
	}
}

func (f *fakeAPI) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) writeErr(path string) error {
	if f.failWrites {
		return &apiclient.MutationError{Method: "POST", Path: path, Status: 500, Message: "boom"}
	}
	return nil
}

func (f *fakeAPI) category(id int64) core.Category {
	c := f.categories[id]
	c.TotalAmount, c.TransactionsCount = core.Money{}, 0
	for _, tx := range f.transactions {
		if tx.CategoryID == id {
			c.TotalAmount = c.TotalAmount.Add(tx.Amount)
			c.TransactionsCount++
		}
	}
	return c
}

func (f *fakeAPI) binder(id int64) core.Binder {
	b := f.binders[id]
	b.TotalAmount, b.CategoriesCount = core.Money{}, 0
	for cid, c := range f.categories {
		if c.BinderID == id {
			b.TotalAmount = b.TotalAmount.Add(f.category(cid).TotalAmount)
			b.CategoriesCount++
		}
	}
	return b
}

func (f *fakeAPI) ListBinders(context.Context) ([]core.Binder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListBinders"]++
	out := []core.Binder{}
	for id := range f.binders {
		out = append(out, f.binder(id))
	}
	return out, nil
}

func (f *fakeAPI) GetBinder(_ context.Context, id int64) (core.Binder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetBinder"]++
	if _, ok := f.binders[id]; !ok {
		return core.Binder{}, &apiclient.FetchError{Path: apiclient.BinderPath(id), Status: 404}
	}
	return f.binder(id), nil
}

func (f *fakeAPI) CreateBinder(_ context.Context, name string) (core.Binder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writeErr(apiclient.BindersPath); err != nil {
		return core.Binder{}, err
	}
	b := core.Binder{ID: f.id(), Name: name, UserID: 1}
	f.binders[b.ID] = b
	return b, nil
}

func (f *fakeAPI) UpdateBinder(_ context.Context, id int64, name string) (core.Binder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.binders[id]
	b.Name = name
	f.binders[id] = b
	return f.binder(id), nil
}

func (f *fakeAPI) DeleteBinder(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.binders, id)
	return nil
}

func (f *fakeAPI) ListCategories(_ context.Context, binderID int64) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListCategories"]++
	out := []core.Category{}
	for id, c := range f.categories {
		if c.BinderID == binderID {
			out = append(out, f.category(id))
		}
	}
	return out, nil
}

func (f *fakeAPI) GetCategory(_ context.Context, id int64) (core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetCategory"]++
	if _, ok := f.categories[id]; !ok {
		return core.Category{}, &apiclient.FetchError{Path: apiclient.CategoryPath(id), Status: 404}
	}
	return f.category(id), nil
}

func (f *fakeAPI) CreateCategory(_ context.Context, binderID int64, name string) (core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := core.Category{ID: f.id(), Name: name, BinderID: binderID}
	f.categories[c.ID] = c
	return c, nil
}

func (f *fakeAPI) UpdateCategory(_ context.Context, id int64, name string) (core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.categories[id]
	c.Name = name
	f.categories[id] = c
	return f.category(id), nil
}

func (f *fakeAPI) DeleteCategory(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.categories, id)
	return nil
}

func (f *fakeAPI) ListTransactions(_ context.Context, categoryID int64) (core.TransactionList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListTransactions"]++
	list := core.TransactionList{Transactions: []core.Transaction{}}
	for _, tx := range f.transactions {
		if tx.CategoryID == categoryID {
			list.Transactions = append(list.Transactions, tx)
		}
	}
	list.Total = core.SumTransactions(list.Transactions)
	return list, nil
}

func (f *fakeAPI) CreateTransaction(_ context.Context, categoryID int64, in core.TransactionInput) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := core.Transaction{ID: f.id(), Date: in.Date, Description: in.Description, Amount: in.Amount, CategoryID: categoryID}
	f.transactions[tx.ID] = tx
	return tx, nil
}

func (f *fakeAPI) UpdateTransaction(_ context.Context, id int64, in core.TransactionInput) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := f.transactions[id]
	tx.Date, tx.Description, tx.Amount = in.Date, in.Description, in.Amount
	f.transactions[id] = tx
	return tx, nil
}

func (f *fakeAPI) DeleteTransaction(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.transactions, id)
	return nil
}

func newTestStore(scheme Scheme) (*Store, *fakeAPI, *Recorder) {
	api := newFakeAPI()
	rec := &Recorder{}
	return NewStore(api, query.New(), WithScheme(scheme), WithNotifier(rec)), api, rec
}

func TestCreateInvalidatesListForSameParent(t *testing.T) {
	for _, scheme := range []Scheme{Canonical, Legacy} {
		t.Run(scheme.String(), func(t *testing.T) {
			ctx := context.Background()
			s, _, rec := newTestStore(scheme)

			var seen []core.Binder
			defer s.ObserveBinders(func(b []core.Binder, _ error) { seen = b })()

			if _, err := s.Binders(ctx); err != nil {
				t.Fatal(err)
			}
			b, err := s.CreateBinder(ctx, "Spese Mensili")
			if err != nil {
				t.Fatal(err)
			}
			if len(seen) != 1 || seen[0].ID != b.ID {
				t.Fatalf("observer should see the new binder, got %+v", seen)
			}
			if n, _ := rec.Last(); n.Title != "Binder creato" {
				t.Fatalf("unexpected notification %+v", n)
			}

			var cats []core.Category
			defer s.ObserveCategories(b.ID, func(c []core.Category, _ error) { cats = c })()
			if _, err := s.CreateCategory(ctx, b.ID, "Spesa"); err != nil {
				t.Fatal(err)
			}
			if len(cats) != 1 || cats[0].Name != "Spesa" {
				t.Fatalf("category list should refresh after create, got %+v", cats)
			}
		})
	}
}

func TestLegacyCategoryUpdateLeavesListStale(t *testing.T) {
	ctx := context.Background()
	s, api, _ := newTestStore(Legacy)
	b, _ := s.CreateBinder(ctx, "Casa")
	c, _ := s.CreateCategory(ctx, b.ID, "Bollette")

	if _, err := s.Categories(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	before := api.count("ListCategories")
	refetched := false
	defer s.ObserveCategories(b.ID, func([]core.Category, error) { refetched = true })()

	if _, err := s.UpdateCategory(ctx, b.ID, c.ID, "Utenze"); err != nil {
		t.Fatal(err)
	}
	if refetched {
		t.Fatalf("legacy update key must not match the categories query")
	}
	cats, _ := s.Categories(ctx, b.ID)
	if cats[0].Name != "Bollette" || api.count("ListCategories") != before {
		t.Fatalf("legacy cache should still serve the old name, got %+v", cats)
	}

	canon, capi, _ := newTestStore(Canonical)
	b2, _ := canon.CreateBinder(ctx, "Casa")
	c2, _ := canon.CreateCategory(ctx, b2.ID, "Bollette")
	if _, err := canon.Categories(ctx, b2.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := canon.UpdateCategory(ctx, b2.ID, c2.ID, "Utenze"); err != nil {
		t.Fatal(err)
	}
	cats, _ = canon.Categories(ctx, b2.ID)
	if cats[0].Name != "Utenze" || capi.count("ListCategories") != 2 {
		t.Fatalf("canonical scheme should refetch, got %+v", cats)
	}
}

func TestChildWritesRefreshBinderAggregates(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(Canonical)
	b, _ := s.CreateBinder(ctx, "Spese Mensili")

	binders, err := s.Binders(ctx)
	if err != nil || len(binders) != 1 || binders[0].CategoriesCount != 0 {
		t.Fatalf("unexpected binder list %+v %v", binders, err)
	}
	var binder core.Binder
	defer s.ObserveBinder(b.ID, func(got core.Binder, _ error) { binder = got })()

	c, _ := s.CreateCategory(ctx, b.ID, "Spesa")
	binders, _ = s.Binders(ctx)
	if binders[0].CategoriesCount != 1 {
		t.Fatalf("binder list should count the new category, got %+v", binders[0])
	}

	var list core.TransactionList
	defer s.ObserveTransactions(c.ID, func(got core.TransactionList, _ error) { list = got })()
	in := core.TransactionInput{Date: core.NewDate(2024, 1, 5), Description: "Spesa settimanale", Amount: core.Money{Cents: -4550}}

	// The category detail was never read; the binder still refreshes.
	if _, err := s.CreateTransaction(ctx, c.ID, in); err != nil {
		t.Fatal(err)
	}
	if list.Total.Cents != -4550 {
		t.Fatalf("transaction list total = %d", list.Total.Cents)
	}
	if binder.TotalAmount.Cents != -4550 || binder.CategoriesCount != 1 {
		t.Fatalf("observed binder should refresh, got %+v", binder)
	}
	binders, _ = s.Binders(ctx)
	if binders[0].TotalAmount.Cents != -4550 {
		t.Fatalf("binder list total = %d", binders[0].TotalAmount.Cents)
	}

	if err := s.DeleteCategory(ctx, b.ID, c.ID); err != nil {
		t.Fatal(err)
	}
	binders, _ = s.Binders(ctx)
	if binders[0].CategoriesCount != 0 || binders[0].TotalAmount.Cents != 0 {
		t.Fatalf("binder list after category delete = %+v", binders[0])
	}
}

func TestMutationFailureNotifiesAndSkipsInvalidation(t *testing.T) {
	ctx := context.Background()
	s, api, rec := newTestStore(Canonical)
	if _, err := s.Binders(ctx); err != nil {
		t.Fatal(err)
	}
	api.failWrites = true

	_, err := s.CreateBinder(ctx, "X")
	var me *apiclient.MutationError
	if !errors.As(err, &me) || me.Message != "boom" {
		t.Fatalf("expected mutation error, got %v", err)
	}
	n, _ := rec.Last()
	if n.Variant != VariantDestructive || n.Title != "Errore" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if st, _ := s.Cache().Peek(s.Scheme().BindersKey()); st.Stale {
		t.Fatalf("failed mutation must not invalidate")
	}

	if _, err := s.CreateBinder(ctx, "  "); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchErrorSurfacesStatus(t *testing.T) {
	s, _, _ := newTestStore(Canonical)
	_, err := s.Binder(context.Background(), 99)
	if !apiclient.IsNotFound(err) {
		t.Fatalf("expected 404 fetch error, got %v", err)
	}
}

func TestDetailIsIdempotentWithoutMutation(t *testing.T) {
	ctx := context.Background()
	s, api, _ := newTestStore(Canonical)
	b, _ := s.CreateBinder(ctx, "Casa")
	first, _ := s.Binder(ctx, b.ID)
	second, _ := s.Binder(ctx, b.ID)
	if first != second || api.count("GetBinder") != 1 {
		t.Fatalf("expected identical cached detail")
	}
}
