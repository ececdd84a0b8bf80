package dto

import "finboard/internal/analytics"

type CategoryTotalResponse struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Total    string `json:"total" example:"120.00"`
}

type DashboardResponse struct {
	TotalExpenses      string                  `json:"total_expenses" example:"345.20"`
	TransactionCount   int                     `json:"transaction_count"`
	CategoryTotals     []CategoryTotalResponse `json:"category_totals"`
	RecentTransactions []TransactionResponse   `json:"recent_transactions"`
}

func NewDashboardResponse(s analytics.Summary) DashboardResponse {
	totals := make([]CategoryTotalResponse, 0, len(s.CategoryTotals))
	for _, ct := range s.CategoryTotals {
		totals = append(totals, CategoryTotalResponse{
			Category: string(ct.Category),
			Label:    ct.Category.Label(),
			Total:    ct.Total.StringFixed(2),
		})
	}
	return DashboardResponse{
		TotalExpenses:      s.TotalExpenses.StringFixed(2),
		TransactionCount:   s.TransactionCount,
		CategoryTotals:     totals,
		RecentTransactions: NewTransactionResponses(s.RecentTransactions),
	}
}
