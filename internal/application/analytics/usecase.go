// Package analytics estima el consumo de cada producto a partir del historial de
// pedidos y ordena los productos por urgencia de reposición.
package analytics

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/consumption"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

const (
	// batchSize pares cliente/artículo por llamada a item-history.
	batchSize = 50
	// batchFanOut lotes consultados en paralelo.
	batchFanOut = 4
)

// UseCase análisis de consumo sobre el historial de pedidos del backend.
type UseCase struct {
	api ports.Backend
	now func() time.Time
}

// NewUseCase construye el caso de uso.
func NewUseCase(api ports.Backend) *UseCase {
	return &UseCase{api: api, now: time.Now}
}

// ProductAnalytics estimación para un cliente y un artículo (item_external_id).
// Con menos de dos pedidos la respuesta sale con insufficient_history y sin cifras.
func (uc *UseCase) ProductAnalytics(ctx context.Context, customerID, itemExternalID string) (*dto.ProductAnalyticsResponse, error) {
	if strings.TrimSpace(customerID) == "" || strings.TrimSpace(itemExternalID) == "" {
		return nil, domain.ErrInvalidInput
	}
	var orders []entity.OrderHistoryEntry
	path := "orders/customer/" + url.PathEscape(customerID) + "/item-history/" + url.PathEscape(itemExternalID)
	if err := uc.api.Get(ctx, path, nil, &orders); err != nil {
		return nil, err
	}
	resp, err := uc.analyze(dto.ProductAnalyticsResponse{CustomerID: customerID, ItemExternalID: itemExternalID}, orders)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForProduct resuelve el artículo del producto por su último pedido y lo analiza.
func (uc *UseCase) ForProduct(ctx context.Context, productID string) (*dto.ProductAnalyticsResponse, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, domain.ErrInvalidInput
	}
	var prod entity.Product
	if err := uc.api.Get(ctx, "products/"+url.PathEscape(productID), nil, &prod); err != nil {
		return nil, err
	}
	itemExternalID := prod.ItemExternalID
	if itemExternalID == "" {
		if prod.ItemID == "" {
			return nil, domain.ErrInsufficientHistory
		}
		var last entity.OrderHistoryEntry
		if err := uc.api.Get(ctx, "orders/customer/"+url.PathEscape(prod.CustomerID)+"/last-order/"+url.PathEscape(prod.ItemID), nil, &last); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrInsufficientHistory
			}
			return nil, err
		}
		itemExternalID = last.ItemExternalID
	}
	resp, err := uc.ProductAnalytics(ctx, prod.CustomerID, itemExternalID)
	if err != nil {
		return nil, err
	}
	resp.ProductID, resp.ProductName = prod.ID, prod.Name
	return resp, nil
}

// historyKey par cliente/artículo tal como lo espera item-history.
type historyKey struct {
	CustomerID string `json:"customer_id"`
	ItemID     string `json:"item_id"`
}

func (k historyKey) result() string { return k.CustomerID + "_" + k.ItemID }

type historyBatchResponse struct {
	Results map[string][]entity.OrderHistoryEntry `json:"results"`
}

// Overview analiza todos los productos (de un cliente o de la sesión) en lotes
// concurrentes y los devuelve del más urgente al menos. Un lote que falla deja
// sus productos sin historial; solo la sesión vencida corta el análisis.
func (uc *UseCase) Overview(ctx context.Context, in dto.OverviewRequest) (*dto.OverviewResponse, error) {
	path := "products"
	if in.CustomerID != "" {
		path = "products/customer/" + url.PathEscape(in.CustomerID)
	}
	var products []entity.Product
	if err := uc.api.Get(ctx, path, nil, &products); err != nil {
		return nil, err
	}

	keys := make([]historyKey, len(products))
	var unique []historyKey
	seen := make(map[historyKey]bool)
	for i, prod := range products {
		if prod.CustomerID == "" || prod.ItemID == "" {
			continue
		}
		k := historyKey{CustomerID: lastSegment(prod.CustomerID), ItemID: lastSegment(prod.ItemID)}
		keys[i] = k
		if !seen[k] {
			seen[k] = true
			unique = append(unique, k)
		}
	}

	histories, err := uc.fetchHistories(ctx, unique)
	if err != nil {
		return nil, err
	}

	out := &dto.OverviewResponse{Items: make([]dto.ProductAnalyticsResponse, 0, len(products)), GeneratedAt: uc.now().UTC()}
	for i, prod := range products {
		base := dto.ProductAnalyticsResponse{
			ProductID:      prod.ID,
			ProductName:    prod.Name,
			CustomerID:     prod.CustomerID,
			ItemExternalID: prod.ItemExternalID,
		}
		row, err := uc.analyze(base, histories[keys[i].result()])
		if err != nil {
			log.Warn().Err(err).Str("product_id", prod.ID).Msg("analytics: historial inválido")
			row = base
			row.InsufficientHistory = true
			row.Level = string(consumption.LevelNone)
		}
		switch consumption.Level(row.Level) {
		case consumption.LevelCritical:
			out.Critical++
		case consumption.LevelHigh:
			out.High++
		}
		out.Items = append(out.Items, row)
	}

	sort.SliceStable(out.Items, func(i, j int) bool {
		a, b := out.Items[i], out.Items[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.InsufficientHistory != b.InsufficientHistory {
			return !a.InsufficientHistory
		}
		return a.ProductName < b.ProductName
	})
	return out, nil
}

func (uc *UseCase) fetchHistories(ctx context.Context, keys []historyKey) (map[string][]entity.OrderHistoryEntry, error) {
	var batches [][]historyKey
	for start := 0; start < len(keys); start += batchSize {
		batches = append(batches, keys[start:min(start+batchSize, len(keys))])
	}

	results := make([]map[string][]entity.OrderHistoryEntry, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchFanOut)
	for i, batch := range batches {
		g.Go(func() error {
			var resp historyBatchResponse
			err := uc.api.Post(gctx, "orders/customers/item-history", map[string]any{"items": batch}, &resp)
			if err != nil {
				if errors.Is(err, domain.ErrAuthenticationRequired) {
					return err
				}
				log.Warn().Err(err).Int("batch", i).Int("items", len(batch)).Msg("analytics: lote de historial falló")
				return nil
			}
			results[i] = resp.Results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string][]entity.OrderHistoryEntry, len(keys))
	for _, r := range results {
		for k, v := range r {
			merged[k] = v
		}
	}
	return merged, nil
}

// analyze completa la fila con la estimación; el historial insuficiente no es error.
func (uc *UseCase) analyze(row dto.ProductAnalyticsResponse, orders []entity.OrderHistoryEntry) (dto.ProductAnalyticsResponse, error) {
	row.OrderCount = len(orders)
	if row.ItemExternalID == "" && len(orders) > 0 {
		row.ItemExternalID = orders[0].ItemExternalID
	}
	e, err := consumption.EstimateFrom(orders, uc.now())
	if errors.Is(err, domain.ErrInsufficientHistory) {
		row.InsufficientHistory = true
		row.Level = string(consumption.LevelNone)
		return row, nil
	}
	if err != nil {
		return row, err
	}

	first, last := e.FirstOrderDate, e.LastOrderDate
	row.FirstOrderDate = &first
	row.LastOrderDate = &last
	row.TotalPeriod = e.TotalPeriod
	row.TotalQuantity = e.TotalQuantity
	row.DailyAverage = e.DailyAverage
	row.QuantityLastOrder = e.QuantityLastOrder
	row.DaysFromLastOrder = e.DaysFromLastOrder
	row.EstimationQuantityLeft = e.EstimationQuantityLeft
	row.AverageDaysBetweenOrders = e.AverageDaysBetweenOrders
	row.DailyConsumptionPercentage = e.DailyConsumptionPercentage
	row.EstimatedDaysLeft = e.EstimatedDaysLeft

	s := consumption.Score(e)
	row.QuantityScore = s.Quantity
	row.DaysScore = s.Days
	row.Severity = s.Severity
	row.Level = string(s.Level)
	return row, nil
}

// lastSegment ids compuestos "<vendor>_<id>": item-history espera solo el último tramo.
func lastSegment(id string) string {
	if i := strings.LastIndex(id, "_"); i >= 0 {
		return id[i+1:]
	}
	return id
}
