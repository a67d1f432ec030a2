package dto

import "time"

// ProductAnalyticsResponse estimación de consumo y urgencia de un producto.
type ProductAnalyticsResponse struct {
	ProductID           string `json:"product_id,omitempty"`
	ProductName         string `json:"product_name,omitempty"`
	CustomerID          string `json:"customer_id"`
	ItemExternalID      string `json:"item_external_id"`
	OrderCount          int    `json:"order_count"`
	InsufficientHistory bool   `json:"insufficient_history"`

	FirstOrderDate             *time.Time `json:"first_order_date,omitempty"`
	LastOrderDate              *time.Time `json:"last_order_date,omitempty"`
	TotalPeriod                int        `json:"total_period,omitempty"`
	TotalQuantity              float64    `json:"total_quantity,omitempty"`
	DailyAverage               float64    `json:"daily_average,omitempty"`
	QuantityLastOrder          float64    `json:"quantity_last_order,omitempty"`
	DaysFromLastOrder          int        `json:"days_from_last_order,omitempty"`
	EstimationQuantityLeft     float64    `json:"estimation_quantity_left,omitempty"`
	AverageDaysBetweenOrders   float64    `json:"average_days_between_orders,omitempty"`
	DailyConsumptionPercentage float64    `json:"daily_consumption_percentage,omitempty"`
	EstimatedDaysLeft          *float64   `json:"estimated_days_left,omitempty"`

	QuantityScore int    `json:"quantity_score"`
	DaysScore     int    `json:"days_score"`
	Severity      int    `json:"severity"`
	Level         string `json:"level"`
}

// OverviewRequest productos a analizar en lote (por cliente y artículo).
type OverviewRequest struct {
	CustomerID string `json:"customer_id" query:"customer_id"`
}

// OverviewResponse análisis de todos los productos, del más urgente al menos.
type OverviewResponse struct {
	Items       []ProductAnalyticsResponse `json:"items"`
	Critical    int                        `json:"critical"`
	High        int                        `json:"high"`
	GeneratedAt time.Time                  `json:"generated_at"`
}
