package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"gestorebinder/internal/core"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "gestorebinder.db"), nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return map[string]Store{"memory": NewMemoryStore(), "sqlite": repo}
}

func mustUser(t *testing.T, s Store, name string) User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), name, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestMonthlyScenario(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			u := mustUser(t, s, "USER")

			b, err := s.CreateBinder(ctx, u.ID, "Spese Mensili")
			if err != nil {
				t.Fatal(err)
			}
			c, err := s.CreateCategory(ctx, u.ID, b.ID, "Spesa")
			if err != nil {
				t.Fatal(err)
			}
			tx, err := s.CreateTransaction(ctx, u.ID, c.ID, core.TransactionInput{
				Date:        core.NewDate(2024, 1, 5),
				Description: "Spesa settimanale",
				Amount:      core.Money{Cents: -4550},
			})
			if err != nil {
				t.Fatal(err)
			}
			if tx.CategoryID != c.ID || !tx.Date.Equal(core.NewDate(2024, 1, 5).Time) {
				t.Fatalf("unexpected transaction %+v", tx)
			}

			gotCat, _ := s.GetCategory(ctx, u.ID, c.ID)
			if gotCat.TotalAmount.Cents != -4550 || gotCat.TransactionsCount != 1 {
				t.Fatalf("category aggregate = %+v", gotCat)
			}
			gotBinder, _ := s.GetBinder(ctx, u.ID, b.ID)
			if gotBinder.TotalAmount.Cents != -4550 || gotBinder.CategoriesCount != 1 {
				t.Fatalf("binder aggregate = %+v", gotBinder)
			}

			if err := s.DeleteCategory(ctx, u.ID, c.ID); err != nil {
				t.Fatal(err)
			}
			gotBinder, _ = s.GetBinder(ctx, u.ID, b.ID)
			if gotBinder.TotalAmount.Cents != 0 || gotBinder.CategoriesCount != 0 {
				t.Fatalf("binder after delete = %+v", gotBinder)
			}
			if _, err := s.GetTransaction(ctx, u.ID, tx.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("child transaction should be gone, got %v", err)
			}
		})
	}
}

func TestAggregateConsistency(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			u := mustUser(t, s, "USER")
			b, _ := s.CreateBinder(ctx, u.ID, "Casa")
			c1, _ := s.CreateCategory(ctx, u.ID, b.ID, "Entrate")
			c2, _ := s.CreateCategory(ctx, u.ID, b.ID, "Uscite")
			for _, cents := range []int64{5000, -1234} {
				if _, err := s.CreateTransaction(ctx, u.ID, c1.ID, core.TransactionInput{
					Date: core.NewDate(2024, 3, 1), Description: "x", Amount: core.Money{Cents: cents},
				}); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := s.CreateTransaction(ctx, u.ID, c2.ID, core.TransactionInput{
				Date: core.NewDate(2024, 3, 2), Description: "y", Amount: core.Money{Cents: -500},
			}); err != nil {
				t.Fatal(err)
			}

			list, _ := s.ListTransactions(ctx, u.ID, c1.ID)
			if list.Total.Cents != 3766 || len(list.Transactions) != 2 {
				t.Fatalf("category list = %+v", list)
			}
			cats, _ := s.ListCategories(ctx, u.ID, b.ID)
			if core.SumCategories(cats).Cents != 3266 {
				t.Fatalf("categories sum = %d", core.SumCategories(cats).Cents)
			}
			got, _ := s.GetBinder(ctx, u.ID, b.ID)
			if got.TotalAmount.Cents != 3266 || got.CategoriesCount != 2 {
				t.Fatalf("binder = %+v", got)
			}
		})
	}
}

func TestDeleteBinderCascades(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			u := mustUser(t, s, "USER")
			b, _ := s.CreateBinder(ctx, u.ID, "Viaggi")
			c, _ := s.CreateCategory(ctx, u.ID, b.ID, "Treni")
			tx, _ := s.CreateTransaction(ctx, u.ID, c.ID, core.TransactionInput{
				Date: core.NewDate(2024, 5, 1), Description: "Roma", Amount: core.Money{Cents: -3000},
			})

			if err := s.DeleteBinder(ctx, u.ID, b.ID); err != nil {
				t.Fatal(err)
			}
			binders, _ := s.ListBinders(ctx, u.ID)
			if len(binders) != 0 {
				t.Fatalf("binder still listed: %+v", binders)
			}
			if _, err := s.GetCategory(ctx, u.ID, c.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("category should be unreachable, got %v", err)
			}
			if _, err := s.GetTransaction(ctx, u.ID, tx.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("transaction should be unreachable, got %v", err)
			}

			next, _ := s.CreateBinder(ctx, u.ID, "Nuovo")
			if next.ID == b.ID {
				t.Fatalf("ids must not be reused")
			}
		})
	}
}

func TestOwnershipScoping(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			alice := mustUser(t, s, "alice")
			bob := mustUser(t, s, "bob")
			b, _ := s.CreateBinder(ctx, alice.ID, "Privato")
			c, _ := s.CreateCategory(ctx, alice.ID, b.ID, "Segreti")

			if _, err := s.GetBinder(ctx, bob.ID, b.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("foreign binder should be not found, got %v", err)
			}
			if _, err := s.CreateCategory(ctx, bob.ID, b.ID, "x"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("creating in a foreign binder should fail, got %v", err)
			}
			if _, err := s.UpdateCategory(ctx, bob.ID, c.ID, "x"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("foreign update should fail, got %v", err)
			}
			if err := s.DeleteBinder(ctx, bob.ID, b.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("foreign delete should fail, got %v", err)
			}
			if _, err := s.CreateUser(ctx, "alice", "h"); !errors.Is(err, ErrConflict) {
				t.Fatalf("duplicate user should conflict, got %v", err)
			}
		})
	}
}

func TestTransactionsMostRecentFirst(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			u := mustUser(t, s, "USER")
			b, _ := s.CreateBinder(ctx, u.ID, "B")
			c, _ := s.CreateCategory(ctx, u.ID, b.ID, "C")
			for _, day := range []int{3, 10, 1} {
				_, _ = s.CreateTransaction(ctx, u.ID, c.ID, core.TransactionInput{
					Date: core.NewDate(2024, 2, day), Description: "d", Amount: core.Money{Cents: 100},
				})
			}
			list, _ := s.ListTransactions(ctx, u.ID, c.ID)
			if list.Transactions[0].Date.Day() != 10 || list.Transactions[2].Date.Day() != 1 {
				t.Fatalf("unexpected order %+v", list.Transactions)
			}

			upd, err := s.UpdateTransaction(ctx, u.ID, list.Transactions[0].ID, core.TransactionInput{
				Date: core.NewDate(2024, 2, 11), Description: "nuovo", Amount: core.Money{Cents: -100},
			})
			if err != nil || upd.Description != "nuovo" || upd.Amount.Cents != -100 {
				t.Fatalf("update = %+v, %v", upd, err)
			}
		})
	}
}

func TestSQLiteRepositoryErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewSQLiteRepositoryFromDB(db, nil)
	ctx := context.Background()

	mock.ExpectExec("UPDATE binders SET name").
		WithArgs("Nuovo", int64(9), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if _, err := repo.UpdateBinder(ctx, 1, 9, "Nuovo"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM binders").
		WithArgs(int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM transactions").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()
	if err := repo.DeleteBinder(ctx, 1, 2); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("UNIQUE constraint failed: users.username"))
	if _, err := repo.CreateUser(ctx, "USER", "h"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
