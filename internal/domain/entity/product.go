package entity

// Thresholds límites de peso (upper/lower) que colorean la urgencia de reposición.
type Thresholds struct {
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// DefaultThresholds valores iniciales de un producto nuevo.
func DefaultThresholds() Thresholds {
	return Thresholds{Upper: 40, Lower: 8}
}

// Product producto de un cliente, opcionalmente vinculado a una báscula (cero o una).
type Product struct {
	ID             string       `json:"product_id"`
	CustomerID     string       `json:"customer_id"`
	CustomerName   string       `json:"customer_name,omitempty"`
	ItemID         string       `json:"item_id,omitempty"`
	ItemExternalID string       `json:"item_external_id,omitempty"`
	Name           string       `json:"name"`
	ScaleID        string       `json:"scale_id,omitempty"`
	Thresholds     *Thresholds  `json:"thresholds,omitempty"`
	Measurement    *Measurement `json:"measurement,omitempty"`
}

// HasScale indica si el producto tiene báscula vinculada.
func (p *Product) HasScale() bool { return p.ScaleID != "" }
