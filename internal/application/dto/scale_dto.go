package dto

import "time"

// RegisterScaleRequest registra una báscula física por su id de fábrica.
type RegisterScaleRequest struct {
	ID string `json:"id" validate:"required"`
}

// UpdateScaleRequest campos editables de una báscula.
type UpdateScaleRequest struct {
	Name      *string `json:"name"`
	ProductID *string `json:"product_id"`
	Unit      *string `json:"unit"`
	IsActive  *bool   `json:"is_active"`
}

// MeasurementRange rango de mediciones a consultar.
type MeasurementRange struct {
	From time.Time
	To   time.Time
}
