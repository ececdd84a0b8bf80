package handlers

import (
	"finboard/internal/dto"
	"finboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// ListCategories godoc
// @Summary List transaction categories
// @Description Get the fixed category catalogue with display labels
// @Tags categories
// @Produce json
// @Success 200 {array} dto.CategoryResponse
// @Router /api/v1/categories [get]
func (h *CategoryHandler) ListCategories(c *fiber.Ctx) error {
	return c.JSON(dto.NewCategoryResponses(models.Categories()))
}
