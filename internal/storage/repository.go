package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gestorebinder/internal/core"
	applog "gestorebinder/internal/log"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db     *sql.DB
	logger *applog.Logger
}

// NewSQLiteRepository opens and migrates the database at dbPath.
func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	db, err := OpenSQLite(dbPath, migrationsFS)
	if err != nil {
		return nil, err
	}
	return NewSQLiteRepositoryFromDB(db, logger), nil
}

// NewSQLiteRepositoryFromDB wraps an open, migrated database.
func NewSQLiteRepositoryFromDB(db *sql.DB, logger *applog.Logger) *SQLiteRepository {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SQLiteRepository{db: db, logger: logger.WithComponent(applog.ComponentStorage)}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`, username, passwordHash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return User{}, fmt.Errorf("create user %s: %w", username, ErrConflict)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

func (r *SQLiteRepository) UserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		return User{}, notFound(err, "get user")
	}
	return u, nil
}

// Binders

const binderColumns = `
	b.id, b.name, b.user_id,
	COALESCE((SELECT SUM(t.amount_cents) FROM transactions t
		JOIN categories c ON c.id = t.category_id WHERE c.binder_id = b.id), 0),
	(SELECT COUNT(*) FROM categories c WHERE c.binder_id = b.id)`

func scanBinder(row interface{ Scan(...any) error }) (core.Binder, error) {
	var b core.Binder
	err := row.Scan(&b.ID, &b.Name, &b.UserID, &b.TotalAmount.Cents, &b.CategoriesCount)
	return b, err
}

func (r *SQLiteRepository) ListBinders(ctx context.Context, userID int64) ([]core.Binder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+binderColumns+` FROM binders b WHERE b.user_id = ? ORDER BY b.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list binders: %w", err)
	}
	defer rows.Close()

	binders := []core.Binder{}
	for rows.Next() {
		b, err := scanBinder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan binder: %w", err)
		}
		binders = append(binders, b)
	}
	return binders, rows.Err()
}

func (r *SQLiteRepository) GetBinder(ctx context.Context, userID, id int64) (core.Binder, error) {
	b, err := scanBinder(r.db.QueryRowContext(ctx,
		`SELECT`+binderColumns+` FROM binders b WHERE b.id = ? AND b.user_id = ?`, id, userID))
	if err != nil {
		return core.Binder{}, notFound(err, "get binder")
	}
	return b, nil
}

func (r *SQLiteRepository) CreateBinder(ctx context.Context, userID int64, name string) (core.Binder, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO binders (user_id, name) VALUES (?, ?)`, userID, name)
	if err != nil {
		return core.Binder{}, fmt.Errorf("create binder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Binder{}, fmt.Errorf("create binder: %w", err)
	}
	r.logger.InfoContext(ctx, "Binder saved", applog.FieldBinderID, id, applog.FieldUserID, userID)
	return core.Binder{ID: id, Name: name, UserID: userID}, nil
}

func (r *SQLiteRepository) UpdateBinder(ctx context.Context, userID, id int64, name string) (core.Binder, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE binders SET name = ? WHERE id = ? AND user_id = ?`, name, id, userID)
	if err := affected(res, err, "update binder"); err != nil {
		return core.Binder{}, err
	}
	return r.GetBinder(ctx, userID, id)
}

// DeleteBinder removes the binder with its categories and transactions.
func (r *SQLiteRepository) DeleteBinder(ctx context.Context, userID, id int64) error {
	return r.inTx(ctx, "delete binder", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM binders WHERE id = ? AND user_id = ?`, id, userID)
		if err := affected(res, err, "delete binder"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE category_id IN (SELECT id FROM categories WHERE binder_id = ?)`, id); err != nil {
			return fmt.Errorf("delete binder transactions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE binder_id = ?`, id); err != nil {
			return fmt.Errorf("delete binder categories: %w", err)
		}
		return nil
	})
}

// Categories

const categoryColumns = `
	c.id, c.name, c.binder_id,
	COALESCE((SELECT SUM(t.amount_cents) FROM transactions t WHERE t.category_id = c.id), 0),
	(SELECT COUNT(*) FROM transactions t WHERE t.category_id = c.id)`

const ownedCategory = ` FROM categories c JOIN binders b ON b.id = c.binder_id WHERE b.user_id = ?`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	err := row.Scan(&c.ID, &c.Name, &c.BinderID, &c.TotalAmount.Cents, &c.TransactionsCount)
	return c, err
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID, binderID int64) ([]core.Category, error) {
	if _, err := r.GetBinder(ctx, userID, binderID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+categoryColumns+ownedCategory+` AND c.binder_id = ? ORDER BY c.id`, userID, binderID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	cats := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT`+categoryColumns+ownedCategory+` AND c.id = ?`, userID, id))
	if err != nil {
		return core.Category{}, notFound(err, "get category")
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID, binderID int64, name string) (core.Category, error) {
	if _, err := r.GetBinder(ctx, userID, binderID); err != nil {
		return core.Category{}, err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (binder_id, name) VALUES (?, ?)`, binderID, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	r.logger.InfoContext(ctx, "Category saved", applog.FieldCategoryID, id, applog.FieldBinderID, binderID)
	return core.Category{ID: id, Name: name, BinderID: binderID}, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, userID, id int64, name string) (core.Category, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = ?
		WHERE id = ? AND binder_id IN (SELECT id FROM binders WHERE user_id = ?)`, name, id, userID)
	if err := affected(res, err, "update category"); err != nil {
		return core.Category{}, err
	}
	return r.GetCategory(ctx, userID, id)
}

// DeleteCategory removes the category with its transactions.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id int64) error {
	return r.inTx(ctx, "delete category", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM categories
			WHERE id = ? AND binder_id IN (SELECT id FROM binders WHERE user_id = ?)`, id, userID)
		if err := affected(res, err, "delete category"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE category_id = ?`, id); err != nil {
			return fmt.Errorf("delete category transactions: %w", err)
		}
		return nil
	})
}

// Transactions

const transactionColumns = `t.id, t.date, t.description, t.amount_cents, t.category_id`

const ownedTransaction = ` FROM transactions t
	JOIN categories c ON c.id = t.category_id
	JOIN binders b ON b.id = c.binder_id
	WHERE b.user_id = ?`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t    core.Transaction
		date string
	)
	if err := row.Scan(&t.ID, &date, &t.Description, &t.Amount.Cents, &t.CategoryID); err != nil {
		return core.Transaction{}, err
	}
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	t.Date = core.Date{Time: parsed}
	return t, nil
}

// ListTransactions returns the category's transactions, most recent first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID, categoryID int64) (core.TransactionList, error) {
	if _, err := r.GetCategory(ctx, userID, categoryID); err != nil {
		return core.TransactionList{}, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+ownedTransaction+` AND t.category_id = ? ORDER BY t.date DESC, t.id DESC`,
		userID, categoryID)
	if err != nil {
		return core.TransactionList{}, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	list := core.TransactionList{Transactions: []core.Transaction{}}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return core.TransactionList{}, fmt.Errorf("scan transaction: %w", err)
		}
		list.Transactions = append(list.Transactions, t)
	}
	if err := rows.Err(); err != nil {
		return core.TransactionList{}, err
	}
	list.Total = core.SumTransactions(list.Transactions)
	return list, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+ownedTransaction+` AND t.id = ?`, userID, id))
	if err != nil {
		return core.Transaction{}, notFound(err, "get transaction")
	}
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID, categoryID int64, in core.TransactionInput) (core.Transaction, error) {
	if _, err := r.GetCategory(ctx, userID, categoryID); err != nil {
		return core.Transaction{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (category_id, date, description, amount_cents) VALUES (?, ?, ?, ?)`,
		categoryID, in.Date.UTC().Format(dateLayout), in.Description, in.Amount.Cents)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	r.logger.InfoContext(ctx, "Transaction saved",
		applog.FieldTransactionID, id,
		applog.FieldCategoryID, categoryID,
		applog.FieldAmountCents, in.Amount.Cents)
	return r.GetTransaction(ctx, userID, id)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id int64, in core.TransactionInput) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET date = ?, description = ?, amount_cents = ?
		WHERE id = ? AND category_id IN (
			SELECT c.id FROM categories c JOIN binders b ON b.id = c.binder_id WHERE b.user_id = ?)`,
		in.Date.UTC().Format(dateLayout), in.Description, in.Amount.Cents, id, userID)
	if err := affected(res, err, "update transaction"); err != nil {
		return core.Transaction{}, err
	}
	return r.GetTransaction(ctx, userID, id)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM transactions
		WHERE id = ? AND category_id IN (
			SELECT c.id FROM categories c JOIN binders b ON b.id = c.binder_id WHERE b.user_id = ?)`, id, userID)
	return affected(res, err, "delete transaction")
}

func (r *SQLiteRepository) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// affected turns "zero rows touched" into ErrNotFound.
func affected(res sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
