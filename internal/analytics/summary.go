// Package analytics holds the pure transformations behind the dashboard and
// the transaction list. Nothing here performs I/O or mutates its input.
package analytics

import (
	"slices"

	"finboard/internal/models"

	"github.com/shopspring/decimal"
)

// RecentLimit is how many transactions the dashboard shows as recent.
const RecentLimit = 5

type CategoryTotal struct {
	Category models.TransactionCategory
	Total    decimal.Decimal
}

type Summary struct {
	TotalExpenses      decimal.Decimal
	TransactionCount   int
	CategoryTotals     []CategoryTotal
	RecentTransactions []models.Transaction
}

// EmptySummary is the dashboard shown for a user with no data, or when the
// store could not be read.
func EmptySummary() Summary {
	return Summary{
		TotalExpenses:      decimal.Zero,
		CategoryTotals:     []CategoryTotal{},
		RecentTransactions: []models.Transaction{},
	}
}

// Summarize computes the dashboard for one user's transactions.
func Summarize(txs []models.Transaction) Summary {
	s := EmptySummary()
	s.TransactionCount = len(txs)

	index := make(map[models.TransactionCategory]int)
	for _, tx := range txs {
		s.TotalExpenses = s.TotalExpenses.Add(tx.Amount)

		i, ok := index[tx.Category]
		if !ok {
			i = len(s.CategoryTotals)
			index[tx.Category] = i
			s.CategoryTotals = append(s.CategoryTotals, CategoryTotal{Category: tx.Category, Total: decimal.Zero})
		}
		s.CategoryTotals[i].Total = s.CategoryTotals[i].Total.Add(tx.Amount)
	}

	// Stable: equal totals keep first-encountered order.
	slices.SortStableFunc(s.CategoryTotals, func(a, b CategoryTotal) int {
		return b.Total.Cmp(a.Total)
	})

	s.RecentTransactions = Recent(txs, RecentLimit)
	return s
}

// Recent returns up to n transactions with the latest dates, newest first.
// Transactions sharing a date keep their input order.
func Recent(txs []models.Transaction, n int) []models.Transaction {
	sorted := Sort(txs, SortByDate, Descending)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
