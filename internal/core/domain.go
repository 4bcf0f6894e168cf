package core

import (
	"errors"
	"strings"
	"time"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 200
)

type (
	// Binder is a top-level budget container owned by a user. TotalAmount and
	// CategoriesCount are computed by the server over the live categories.
	Binder struct {
		ID              int64  `json:"id"`
		Name            string `json:"name"`
		UserID          int64  `json:"userId"`
		TotalAmount     Money  `json:"totalAmount"`
		CategoriesCount int    `json:"categoriesCount"`
	}

	// Category is a named subdivision of a binder. BinderID never changes
	// after creation.
	Category struct {
		ID                int64  `json:"id"`
		Name              string `json:"name"`
		BinderID          int64  `json:"binderId"`
		TotalAmount       Money  `json:"totalAmount"`
		TransactionsCount int    `json:"transactionsCount"`
	}

	// Transaction is a signed monetary entry; negative amounts are expenses.
	Transaction struct {
		ID          int64  `json:"id"`
		Date        Date   `json:"date"`
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
		CategoryID  int64  `json:"categoryId"`
	}

	// TransactionList is the payload of a category's transaction listing.
	TransactionList struct {
		Transactions []Transaction `json:"transactions"`
		Total        Money         `json:"total"`
	}

	// TransactionInput carries the editable fields of a transaction.
	TransactionInput struct {
		Date        Date   `json:"date"`
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
	}

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}
)

var (
	ErrEmptyName        = errors.New("empty name")
	ErrNameTooLong      = errors.New("name too long (max 100 characters)")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrZeroAmount       = errors.New("amount cannot be zero")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidDate      = errors.New("invalid date")
	ErrMissingParent    = errors.New("missing parent id")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ValidateName checks a binder or category name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len([]rune(name)) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (in TransactionInput) Validate() error {
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(in.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len([]rune(in.Description)) > maxDescriptionLength {
		return errors.New("description too long (max 200 characters)")
	}
	if in.Amount.Cents == 0 {
		return ErrZeroAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.CategoryID <= 0 {
		return ErrMissingParent
	}
	return t.Input().Validate()
}

// Input returns the editable part of the transaction.
func (t Transaction) Input() TransactionInput {
	return TransactionInput{Date: t.Date, Description: t.Description, Amount: t.Amount}
}
