package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/domain/threshold"
)

// measurementFanOut lecturas de básculas consultadas en paralelo al listar.
const measurementFanOut = 8

// ProductUseCase productos de los clientes, sus límites y su estado actual.
type ProductUseCase struct {
	api ports.Backend
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(api ports.Backend) *ProductUseCase {
	return &ProductUseCase{api: api}
}

// List lista los productos con su estado, del más urgente al menos.
// Con customerID vacío trae todos los productos visibles para la sesión.
func (uc *ProductUseCase) List(ctx context.Context, customerID string) (*dto.ProductListResponse, error) {
	products, err := uc.ListEntities(ctx, customerID)
	if err != nil {
		return nil, err
	}
	weights, err := uc.latestWeights(ctx, products)
	if err != nil {
		return nil, err
	}

	ranked := threshold.Rank(products, weights)
	out := &dto.ProductListResponse{Items: make([]dto.ProductStatusResponse, 0, len(ranked)), Total: len(ranked)}
	for _, r := range ranked {
		out.Items = append(out.Items, toProductStatus(r, weights[r.Product.ScaleID]))
	}
	return out, nil
}

// ListEntities productos sin enriquecer.
func (uc *ProductUseCase) ListEntities(ctx context.Context, customerID string) ([]entity.Product, error) {
	path := "products"
	if customerID != "" {
		path = p("products/customer/%s", customerID)
	}
	var products []entity.Product
	if err := uc.api.Get(ctx, path, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID obtiene un producto con su estado.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductStatusResponse, error) {
	prod, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	weights, err := uc.latestWeights(ctx, []entity.Product{*prod})
	if err != nil {
		return nil, err
	}
	w := weights[prod.ScaleID]
	resp := toProductStatus(threshold.Ranked{Product: *prod, Info: threshold.Classify(w, prod.Thresholds)}, w)
	return &resp, nil
}

// Create crea el producto; sin límites explícitos usa los por defecto.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*entity.Product, error) {
	if err := requireID("customer_id", in.CustomerID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: el nombre es requerido", domain.ErrInvalidInput)
	}
	t := entity.DefaultThresholds()
	if in.Thresholds != nil {
		t = *in.Thresholds
	}
	if err := threshold.Validate(t); err != nil {
		return nil, err
	}
	prod := entity.Product{
		CustomerID:     in.CustomerID,
		Name:           name,
		ItemID:         strings.TrimSpace(in.ItemID),
		ItemExternalID: strings.TrimSpace(in.ItemExternalID),
		ScaleID:        strings.TrimSpace(in.ScaleID),
		Thresholds:     &t,
	}
	var created entity.Product
	if err := uc.api.Post(ctx, "products", prod, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return &prod, nil
	}
	return &created, nil
}

// Update aplica los campos presentes. Un scale_id vacío desvincula la báscula.
func (uc *ProductUseCase) Update(ctx context.Context, id string, in dto.UpdateProductRequest) (*entity.Product, error) {
	prod, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: el nombre es requerido", domain.ErrInvalidInput)
		}
		prod.Name = name
	}
	if in.ItemID != nil {
		prod.ItemID = strings.TrimSpace(*in.ItemID)
	}
	if in.ItemExternalID != nil {
		prod.ItemExternalID = strings.TrimSpace(*in.ItemExternalID)
	}
	if in.ScaleID != nil {
		prod.ScaleID = strings.TrimSpace(*in.ScaleID)
	}
	prod.Measurement = nil
	return uc.put(ctx, prod)
}

// UpdateThresholds valida y guarda los límites (y las alertas si vienen).
func (uc *ProductUseCase) UpdateThresholds(ctx context.Context, id string, in dto.UpdateThresholdsRequest) (*entity.Product, error) {
	if err := threshold.Validate(in.Thresholds); err != nil {
		return nil, err
	}
	if in.Notifications != nil {
		if err := threshold.ValidateNotifications(*in.Notifications); err != nil {
			return nil, err
		}
	}
	if err := requireID("product_id", id); err != nil {
		return nil, err
	}
	body := map[string]any{"thresholds": in.Thresholds}
	if in.Notifications != nil {
		body["notifications"] = in.Notifications
	}
	var updated entity.Product
	if err := uc.api.Put(ctx, p("products/%s", id), body, &updated); err != nil {
		return nil, err
	}
	if updated.ID == "" {
		return uc.get(ctx, id)
	}
	return &updated, nil
}

// Delete elimina el producto.
func (uc *ProductUseCase) Delete(ctx context.Context, id string) error {
	if err := requireID("product_id", id); err != nil {
		return err
	}
	return uc.api.Delete(ctx, p("products/%s", id), nil)
}

func (uc *ProductUseCase) get(ctx context.Context, id string) (*entity.Product, error) {
	if err := requireID("product_id", id); err != nil {
		return nil, err
	}
	var prod entity.Product
	if err := uc.api.Get(ctx, p("products/%s", id), nil, &prod); err != nil {
		return nil, err
	}
	return &prod, nil
}

func (uc *ProductUseCase) put(ctx context.Context, prod *entity.Product) (*entity.Product, error) {
	var updated entity.Product
	if err := uc.api.Put(ctx, p("products/%s", prod.ID), prod, &updated); err != nil {
		return nil, err
	}
	if updated.ID == "" {
		return prod, nil
	}
	return &updated, nil
}

// latestWeights última lectura por scale_id. Una báscula sin lecturas o que falla
// queda sin peso (estado unknown); solo la sesión vencida corta el listado.
func (uc *ProductUseCase) latestWeights(ctx context.Context, products []entity.Product) (map[string]*float64, error) {
	weights := make(map[string]*float64, len(products))
	var pending []string
	seen := make(map[string]bool)
	for _, prod := range products {
		if !prod.HasScale() || seen[prod.ScaleID] {
			continue
		}
		seen[prod.ScaleID] = true
		if prod.Measurement != nil {
			weights[prod.ScaleID] = prod.Measurement.Weight
			continue
		}
		pending = append(pending, prod.ScaleID)
	}

	results := make([]*float64, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(measurementFanOut)
	for i, scaleID := range pending {
		g.Go(func() error {
			var m entity.Measurement
			err := uc.api.Get(gctx, p("measurements/scale/%s/latest", scaleID), nil, &m)
			switch {
			case err == nil:
				results[i] = m.Weight
			case errors.Is(err, domain.ErrAuthenticationRequired):
				return err
			case !errors.Is(err, domain.ErrNotFound):
				log.Warn().Err(err).Str("scale_id", scaleID).Msg("productos: no se pudo leer la última medición")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, scaleID := range pending {
		weights[scaleID] = results[i]
	}
	return weights, nil
}

func toProductStatus(r threshold.Ranked, weight *float64) dto.ProductStatusResponse {
	resp := dto.ProductStatusResponse{
		Product:  r.Product,
		Status:   string(r.Info.Status),
		Distance: r.Info.Distance,
	}
	if weight != nil && r.Product.Thresholds != nil {
		pct := threshold.Percentage(*weight, *r.Product.Thresholds)
		resp.Percentage = &pct
	}
	return resp
}
