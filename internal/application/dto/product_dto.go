package dto

import (
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/domain/threshold"
)

// CreateProductRequest entrada para crear un producto; sin límites se usan los por defecto.
type CreateProductRequest struct {
	CustomerID     string             `json:"customer_id" validate:"required"`
	Name           string             `json:"name" validate:"required,min=1,max=200"`
	ItemID         string             `json:"item_id"`
	ItemExternalID string             `json:"item_external_id"`
	ScaleID        string             `json:"scale_id"`
	Thresholds     *entity.Thresholds `json:"thresholds"`
}

// UpdateProductRequest campos opcionales.
type UpdateProductRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=200"`
	ItemID         *string `json:"item_id"`
	ItemExternalID *string `json:"item_external_id"`
	ScaleID        *string `json:"scale_id"`
}

// ProductStatusResponse producto con su estado frente a los límites.
type ProductStatusResponse struct {
	entity.Product
	Status     string  `json:"status"`
	Distance   float64 `json:"distance"`
	Percentage *int    `json:"percentage,omitempty"`
}

// ProductListResponse productos ordenados por urgencia.
type ProductListResponse struct {
	Items []ProductStatusResponse `json:"items"`
	Total int                     `json:"total"`
}

// UpdateThresholdsRequest límites del producto y, opcionalmente, las alertas SMS
// al cruzarlos.
type UpdateThresholdsRequest struct {
	Thresholds    entity.Thresholds        `json:"thresholds" validate:"required"`
	Notifications *threshold.Notifications `json:"notifications"`
}
