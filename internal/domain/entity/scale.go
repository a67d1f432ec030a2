package entity

import "time"

// Scale báscula física que reporta mediciones de peso de un producto.
type Scale struct {
	ID         string       `json:"scale_id"`
	Name       string       `json:"name,omitempty"`
	CustomerID string       `json:"customer_id,omitempty"`
	ProductID  string       `json:"product_id,omitempty"`
	Unit       string       `json:"unit,omitempty"`
	IsActive   bool         `json:"is_active"`
	Status     string       `json:"status,omitempty"`
	Thresholds *Thresholds  `json:"thresholds,omitempty"`
	Last       *Measurement `json:"last,omitempty"`
}

// Measurement lectura de peso de una báscula.
type Measurement struct {
	ScaleID   string    `json:"scale_id,omitempty"`
	Weight    *float64  `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
}
