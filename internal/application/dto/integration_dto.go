package dto

// ConnectIntegrationRequest credenciales o parámetros de la integración a conectar.
type ConnectIntegrationRequest struct {
	TypeID string            `json:"type_id" validate:"required"`
	Config map[string]string `json:"config"`
}

// UpgradeSubscriptionRequest plan destino.
type UpgradeSubscriptionRequest struct {
	TierID string `json:"tier_id" validate:"required"`
}
