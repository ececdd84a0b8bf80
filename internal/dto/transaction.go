package dto

import (
	"time"

	"finboard/internal/analytics"
	"finboard/internal/models"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format used for transaction dates on the wire.
const DateLayout = "2006-01-02"

type TransactionRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0,cents,maxamount" swaggertype:"number" example:"42.5"`
	Category    string          `json:"category" validate:"required,category" example:"groceries"`
	Description string          `json:"description" validate:"required,min=2,max=100" example:"Weekly groceries"`
	Date        string          `json:"date" validate:"required,txdate,notfuture,notbeforefloor" example:"2024-05-01"`
}

type TransactionResponse struct {
	ID            string `json:"id"`
	Amount        string `json:"amount" example:"42.50"`
	Category      string `json:"category"`
	CategoryLabel string `json:"category_label"`
	Description   string `json:"description"`
	Date          string `json:"date"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

type TransactionPageResponse struct {
	Items       []TransactionResponse `json:"items"`
	Sort        string                `json:"sort"`
	Order       string                `json:"order"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"page_size"`
	Total       int                   `json:"total"`
	TotalPages  int                   `json:"total_pages"`
	HasPrevious bool                  `json:"has_previous"`
	HasNext     bool                  `json:"has_next"`
}

func NewTransactionResponse(tx models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            tx.ID,
		Amount:        tx.Amount.StringFixed(2),
		Category:      string(tx.Category),
		CategoryLabel: tx.Category.Label(),
		Description:   tx.Description,
		Date:          tx.Date.UTC().Format(DateLayout),
		CreatedAt:     formatTimestamp(tx.CreatedAt),
		UpdatedAt:     formatTimestamp(tx.UpdatedAt),
	}
}

func NewTransactionResponses(txs []models.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, NewTransactionResponse(tx))
	}
	return out
}

func NewTransactionPageResponse(p analytics.Page, q analytics.Query) TransactionPageResponse {
	return TransactionPageResponse{
		Items:       NewTransactionResponses(p.Items),
		Sort:        string(q.SortKey),
		Order:       string(q.Order),
		Page:        p.Page,
		PageSize:    p.PageSize,
		Total:       p.Total,
		TotalPages:  p.TotalPages,
		HasPrevious: p.HasPrevious,
		HasNext:     p.HasNext,
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
