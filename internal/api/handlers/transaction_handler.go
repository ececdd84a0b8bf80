package handlers

import (
	"finboard/internal/analytics"
	"finboard/internal/dto"
	"finboard/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	msgAddFailed    = "Failed to add transaction."
	msgUpdateFailed = "Failed to update transaction."
	msgDeleteFailed = "Failed to delete transaction."
	msgReadFailed   = "Failed to load transaction."
)

type TransactionHandler struct {
	txService *service.TransactionService
	logger    *zap.Logger
}

func NewTransactionHandler(txService *service.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		txService: txService,
		logger:    logger,
	}
}

// ListTransactions godoc
// @Summary List transactions
// @Description Sorted, paginated list of the user's transactions. Pages are zero-indexed;
// @Description a page past the end is empty.
// @Tags transactions
// @Produce json
// @Param sort query string false "Sort key" Enums(date, amount) default(date)
// @Param order query string false "Sort direction" Enums(asc, desc) default(desc)
// @Param page query int false "Zero-indexed page" default(0)
// @Param page_size query int false "Page size" default(10)
// @Security Bearer
// @Success 200 {object} dto.TransactionPageResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	key, err := analytics.ParseSortKey(c.Query("sort"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sort key",
		})
	}
	order, err := analytics.ParseSortOrder(c.Query("order"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sort order",
		})
	}

	q := analytics.Query{
		SortKey:  key,
		Order:    order,
		Page:     c.QueryInt("page", 0),
		PageSize: c.QueryInt("page_size", 0),
	}
	page := h.txService.List(c.UserContext(), userID, q)

	return c.JSON(dto.NewTransactionPageResponse(page, q))
}

// GetTransaction godoc
// @Summary Get a transaction
// @Description Get one of the user's transactions, e.g. to prefill the edit form
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Security Bearer
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	tx, err := h.txService.Get(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respondError(c, err, msgReadFailed)
	}
	return c.JSON(dto.NewTransactionResponse(*tx))
}

// CreateTransaction godoc
// @Summary Add a transaction
// @Description Record a new expense. The response lists the views that are now stale.
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body dto.TransactionRequest true "Transaction"
// @Security Bearer
// @Success 201 {object} dto.MutationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("Invalid transaction payload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	res, err := h.txService.Add(c.UserContext(), userID, &req)
	if err != nil {
		return respondError(c, err, msgAddFailed)
	}
	return c.Status(fiber.StatusCreated).JSON(mutationResponse(res))
}

// UpdateTransaction godoc
// @Summary Update a transaction
// @Description Replace every editable field of an existing transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body dto.TransactionRequest true "Transaction"
// @Security Bearer
// @Success 200 {object} dto.MutationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("Invalid transaction payload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	res, err := h.txService.Update(c.UserContext(), userID, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err, msgUpdateFailed)
	}
	return c.JSON(mutationResponse(res))
}

// DeleteTransaction godoc
// @Summary Delete a transaction
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Security Bearer
// @Success 200 {object} dto.MutationResponse
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	res, err := h.txService.Delete(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respondError(c, err, msgDeleteFailed)
	}
	return c.JSON(mutationResponse(res))
}

func mutationResponse(res *service.MutationResult) dto.MutationResponse {
	scopes := make([]string, len(res.Invalidated))
	for i, s := range res.Invalidated {
		scopes[i] = string(s)
	}
	return dto.MutationResponse{Success: true, ID: res.ID, Invalidated: scopes}
}
