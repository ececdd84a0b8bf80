package handlers

import (
	"finboard/internal/dto"
	"finboard/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	txService *service.TransactionService
	logger    *zap.Logger
}

func NewDashboardHandler(txService *service.TransactionService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		txService: txService,
		logger:    logger,
	}
}

// GetDashboard godoc
// @Summary Get dashboard summary
// @Description Total expenses, per-category totals and the five most recent transactions.
// @Description Falls back to an empty summary when the store is unavailable.
// @Tags dashboard
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.DashboardResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	summary := h.txService.Dashboard(c.UserContext(), userID)
	return c.JSON(dto.NewDashboardResponse(summary))
}
