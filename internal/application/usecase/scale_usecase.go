package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

// maxMeasurementRange rango máximo consultable de una vez.
const maxMeasurementRange = 366 * 24 * time.Hour

// ScaleUseCase básculas y sus mediciones.
type ScaleUseCase struct {
	api ports.Backend
	now func() time.Time
}

// NewScaleUseCase construye el caso de uso.
func NewScaleUseCase(api ports.Backend) *ScaleUseCase {
	return &ScaleUseCase{api: api, now: time.Now}
}

// List lista las básculas de la sesión.
func (uc *ScaleUseCase) List(ctx context.Context) ([]entity.Scale, error) {
	var list []entity.Scale
	if err := uc.api.Get(ctx, "scales", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetByID obtiene una báscula.
func (uc *ScaleUseCase) GetByID(ctx context.Context, id string) (*entity.Scale, error) {
	if err := requireID("scale_id", id); err != nil {
		return nil, err
	}
	var s entity.Scale
	if err := uc.api.Get(ctx, p("scales/%s", id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Register registra una báscula física por su id de fábrica.
func (uc *ScaleUseCase) Register(ctx context.Context, in dto.RegisterScaleRequest) (*entity.Scale, error) {
	id := strings.TrimSpace(in.ID)
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	var s entity.Scale
	if err := uc.api.Post(ctx, "scales/register", map[string]string{"id": id}, &s); err != nil {
		return nil, err
	}
	if s.ID == "" {
		s.ID = id
	}
	return &s, nil
}

// Update aplica los campos presentes.
func (uc *ScaleUseCase) Update(ctx context.Context, id string, in dto.UpdateScaleRequest) (*entity.Scale, error) {
	s, err := uc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		s.Name = strings.TrimSpace(*in.Name)
	}
	if in.ProductID != nil {
		s.ProductID = strings.TrimSpace(*in.ProductID)
	}
	if in.Unit != nil {
		s.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	}
	s.Last = nil

	var updated entity.Scale
	if err := uc.api.Put(ctx, p("scales/%s", id), s, &updated); err != nil {
		return nil, err
	}
	if updated.ID == "" {
		return s, nil
	}
	return &updated, nil
}

// Delete elimina la báscula.
func (uc *ScaleUseCase) Delete(ctx context.Context, id string) error {
	if err := requireID("scale_id", id); err != nil {
		return err
	}
	return uc.api.Delete(ctx, p("scales/%s", id), nil)
}

// Measurements lecturas en el rango. Sin rango se toman las últimas 24 horas.
func (uc *ScaleUseCase) Measurements(ctx context.Context, scaleID string, r dto.MeasurementRange) ([]entity.Measurement, error) {
	if err := requireID("scale_id", scaleID); err != nil {
		return nil, err
	}
	if r.To.IsZero() {
		r.To = uc.now()
	}
	if r.From.IsZero() {
		r.From = r.To.Add(-24 * time.Hour)
	}
	if !r.From.Before(r.To) {
		return nil, fmt.Errorf("%w: el inicio del rango debe ser anterior al fin", domain.ErrInvalidInput)
	}
	if r.To.Sub(r.From) > maxMeasurementRange {
		return nil, fmt.Errorf("%w: el rango no puede superar un año", domain.ErrInvalidInput)
	}
	q := url.Values{}
	q.Set("start_date", r.From.UTC().Format(time.RFC3339))
	q.Set("end_date", r.To.UTC().Format(time.RFC3339))

	var list []entity.Measurement
	if err := uc.api.Get(ctx, p("measurements/scale/%s", scaleID), q, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Latest última lectura de la báscula.
func (uc *ScaleUseCase) Latest(ctx context.Context, scaleID string) (*entity.Measurement, error) {
	if err := requireID("scale_id", scaleID); err != nil {
		return nil, err
	}
	var m entity.Measurement
	if err := uc.api.Get(ctx, p("measurements/scale/%s/latest", scaleID), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// latestReading lectura del listado general: el backend identifica la báscula
// en vendor_id en lugar de scale_id.
type latestReading struct {
	entity.Measurement
	VendorID string `json:"vendor_id"`
}

// LatestAll última lectura de cada báscula de la sesión.
func (uc *ScaleUseCase) LatestAll(ctx context.Context) ([]entity.Measurement, error) {
	var raw []latestReading
	if err := uc.api.Get(ctx, "measurements", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]entity.Measurement, 0, len(raw))
	for _, r := range raw {
		m := r.Measurement
		if m.ScaleID == "" {
			m.ScaleID = r.VendorID
		}
		out = append(out, m)
	}
	return out, nil
}
