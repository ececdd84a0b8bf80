package analytics

import (
	"fmt"
	"slices"
	"strings"

	"finboard/internal/models"
)

type SortKey string

const (
	SortByDate   SortKey = "date"
	SortByAmount SortKey = "amount"
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// ParseSortKey accepts "amount" or "date" in any case. An empty string yields
// the default key, date.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(SortByDate):
		return SortByDate, nil
	case string(SortByAmount):
		return SortByAmount, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// ParseSortOrder accepts "asc" or "desc" in any case. An empty string yields
// descending order.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Descending):
		return Descending, nil
	case string(Ascending):
		return Ascending, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// Sort returns a stably sorted copy of txs.
func Sort(txs []models.Transaction, key SortKey, order SortOrder) []models.Transaction {
	out := make([]models.Transaction, len(txs))
	copy(out, txs)

	cmp := compareBy(key)
	if order == Descending {
		asc := cmp
		cmp = func(a, b models.Transaction) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func compareBy(key SortKey) func(a, b models.Transaction) int {
	if key == SortByAmount {
		return func(a, b models.Transaction) int { return a.Amount.Cmp(b.Amount) }
	}
	return func(a, b models.Transaction) int { return a.Date.Compare(b.Date) }
}

type Query struct {
	SortKey  SortKey
	Order    SortOrder
	Page     int
	PageSize int
}

type Page struct {
	Items       []models.Transaction
	Page        int
	PageSize    int
	Total       int
	TotalPages  int
	HasPrevious bool
	HasNext     bool
}

// Paginate sorts txs by q and returns the zero-indexed page q.Page. A page
// past the end is empty, never an error. Non-positive page sizes are treated
// as one item per page and negative pages as page zero.
func Paginate(txs []models.Transaction, q Query) Page {
	size := q.PageSize
	if size < 1 {
		size = 1
	}
	page := q.Page
	if page < 0 {
		page = 0
	}

	total := len(txs)
	p := Page{
		Items:      []models.Transaction{},
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: total / size,
	}
	if total%size != 0 {
		p.TotalPages++
	}
	p.HasPrevious = page > 0
	p.HasNext = page < p.TotalPages-1

	if page >= p.TotalPages {
		return p
	}
	start := page * size
	end := start + min(size, total-start)

	sorted := Sort(txs, q.SortKey, q.Order)
	p.Items = sorted[start:end]
	return p
}
