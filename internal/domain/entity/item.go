package entity

// Item artículo del catálogo del vendedor (external_id = código en el sistema contable).
type Item struct {
	ID          string `json:"item_id"`
	ExternalID  string `json:"external_id,omitempty"`
	Name        string `json:"name"`
	UOM         string `json:"uom,omitempty"`
	Description string `json:"description,omitempty"`
}

// IntegrationType integración disponible (ERP, contabilidad) y su instancia conectada si existe.
type IntegrationType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Connected   bool   `json:"connected"`
	InstanceID  string `json:"instance_id,omitempty"`
}

// Subscription plan contratado por el vendedor.
type Subscription struct {
	TierID    string         `json:"tier_id"`
	Status    string         `json:"status"`
	Limits    map[string]int `json:"limits,omitempty"`
	ExpiresAt string         `json:"expires_at,omitempty"`
}
