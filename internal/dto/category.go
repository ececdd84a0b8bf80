package dto

import "finboard/internal/models"

type CategoryResponse struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func NewCategoryResponses(infos []models.CategoryInfo) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, CategoryResponse{Value: string(info.Value), Label: info.Label})
	}
	return out
}
