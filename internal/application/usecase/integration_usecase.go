package usecase

import (
	"context"
	"strings"

	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

// IntegrationUseCase integraciones con sistemas externos y plan de suscripción.
type IntegrationUseCase struct {
	api ports.Backend
}

// NewIntegrationUseCase construye el caso de uso.
func NewIntegrationUseCase(api ports.Backend) *IntegrationUseCase {
	return &IntegrationUseCase{api: api}
}

// List tipos de integración disponibles y su estado de conexión.
func (uc *IntegrationUseCase) List(ctx context.Context) ([]entity.IntegrationType, error) {
	var list []entity.IntegrationType
	if err := uc.api.Get(ctx, "integrations", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Connect conecta una integración con su configuración.
func (uc *IntegrationUseCase) Connect(ctx context.Context, in dto.ConnectIntegrationRequest) (*entity.IntegrationType, error) {
	typeID := strings.TrimSpace(in.TypeID)
	if err := requireID("type_id", typeID); err != nil {
		return nil, err
	}
	cfg := in.Config
	if cfg == nil {
		cfg = map[string]string{}
	}
	var out entity.IntegrationType
	if err := uc.api.Post(ctx, p("integrations/%s/connect", typeID), map[string]any{"config": cfg}, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		out = entity.IntegrationType{ID: typeID, Connected: true}
	}
	return &out, nil
}

// Disconnect desconecta una instancia conectada.
func (uc *IntegrationUseCase) Disconnect(ctx context.Context, instanceID string) error {
	if err := requireID("instance_id", instanceID); err != nil {
		return err
	}
	return uc.api.Post(ctx, p("integrations/instance/%s/disconnect", instanceID), nil, nil)
}

// Subscription plan actual del vendedor.
func (uc *IntegrationUseCase) Subscription(ctx context.Context) (*entity.Subscription, error) {
	var s entity.Subscription
	if err := uc.api.Get(ctx, "subscription", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Upgrade cambia el plan.
func (uc *IntegrationUseCase) Upgrade(ctx context.Context, in dto.UpgradeSubscriptionRequest) (*entity.Subscription, error) {
	tier := strings.TrimSpace(in.TierID)
	if err := requireID("tier_id", tier); err != nil {
		return nil, err
	}
	var s entity.Subscription
	if err := uc.api.Post(ctx, "subscription/upgrade", map[string]string{"tier_id": tier}, &s); err != nil {
		return nil, err
	}
	if s.TierID == "" {
		s.TierID = tier
	}
	return &s, nil
}
