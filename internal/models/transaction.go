package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionCategory string

const (
	CategoryGroceries     TransactionCategory = "groceries"
	CategoryTransport     TransactionCategory = "transport"
	CategoryEntertainment TransactionCategory = "entertainment"
	CategoryFood          TransactionCategory = "food"
	CategoryHealth        TransactionCategory = "health"
	CategoryShopping      TransactionCategory = "shopping"
	CategoryUtilities     TransactionCategory = "utilities"
	CategoryOther         TransactionCategory = "other"
)

// CategoryInfo is a catalogue entry shown in pickers and charts.
type CategoryInfo struct {
	Value TransactionCategory
	Label string
}

var categoryCatalogue = []CategoryInfo{
	{Value: CategoryGroceries, Label: "Groceries"},
	{Value: CategoryTransport, Label: "Transport"},
	{Value: CategoryEntertainment, Label: "Entertainment"},
	{Value: CategoryFood, Label: "Food & Dining"},
	{Value: CategoryHealth, Label: "Health"},
	{Value: CategoryShopping, Label: "Shopping"},
	{Value: CategoryUtilities, Label: "Utilities"},
	{Value: CategoryOther, Label: "Other"},
}

// Categories returns the known categories in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categoryCatalogue))
	copy(out, categoryCatalogue)
	return out
}

// Valid reports whether c is one of the known category codes.
func (c TransactionCategory) Valid() bool {
	for _, info := range categoryCatalogue {
		if info.Value == c {
			return true
		}
	}
	return false
}

// Label returns the display label, or the raw code for categories written
// before the catalogue knew about them.
func (c TransactionCategory) Label() string {
	for _, info := range categoryCatalogue {
		if info.Value == c {
			return info.Label
		}
	}
	return string(c)
}

type Transaction struct {
	ID          string              `db:"id"`
	UserID      string              `db:"user_id"`
	Amount      decimal.Decimal     `db:"amount"`
	Category    TransactionCategory `db:"category"`
	Description string              `db:"description"`
	Date        time.Time           `db:"date"`
	CreatedAt   time.Time           `db:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at"`
}

// TransactionFields holds the user-editable part of a transaction.
type TransactionFields struct {
	Amount      decimal.Decimal
	Category    TransactionCategory
	Description string
	Date        time.Time
}

// Fields returns the mutable fields of t.
func (t *Transaction) Fields() TransactionFields {
	return TransactionFields{
		Amount:      t.Amount,
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date,
	}
}

// Apply replaces every mutable field of t with f.
func (t *Transaction) Apply(f TransactionFields) {
	t.Amount = f.Amount
	t.Category = f.Category
	t.Description = f.Description
	t.Date = f.Date
}
