package entity

import "github.com/shopspring/decimal"

// Estados de pedidos y facturas reportados por la integración de pedidos.
const (
	DocumentStatusOpen      = "open"
	DocumentStatusClosed    = "closed"
	DocumentStatusCancelled = "cancelled"
)

// DocumentLine línea de una factura o pedido.
type DocumentLine struct {
	ItemExternalID string          `json:"item_external_id"`
	ItemName       string          `json:"item_name,omitempty"`
	Quantity       NumericString   `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Total          decimal.Decimal `json:"total"`
}

// Invoice factura importada desde el sistema contable del vendedor.
type Invoice struct {
	ID           string          `json:"invoice_id"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	InvoiceDate  string          `json:"invoice_date"`
	Status       string          `json:"status,omitempty"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Notes        string          `json:"notes,omitempty"`
	Items        []DocumentLine  `json:"items,omitempty"`
}

// Order pedido importado; inmutable una vez registrado.
type Order struct {
	ID           string          `json:"order_id"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	OrderDate    string          `json:"order_date"` // DD-MM-YY
	Status       string          `json:"status,omitempty"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Notes        string          `json:"notes,omitempty"`
	Items        []DocumentLine  `json:"items,omitempty"`
}

// OrderHistoryEntry un pedido de un artículo concreto para un cliente concreto.
// Es la entrada del estimador de consumo.
type OrderHistoryEntry struct {
	OrderDate      string          `json:"order_date"` // DD-MM-YY
	Quantity       NumericString   `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Total          decimal.Decimal `json:"total"`
	ItemExternalID string          `json:"item_external_id"`
}

// Page página de un listado con cursor opaco (start_key / next_page_token).
type Page[T any] struct {
	Items         []T    `json:"items"`
	PageSize      int    `json:"page_size"`
	NextPageToken string `json:"next_page_token,omitempty"`
}
