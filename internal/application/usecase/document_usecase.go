package usecase

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

// DocumentUseCase catálogo de artículos, facturas y pedidos importados.
type DocumentUseCase struct {
	api ports.Backend
}

// NewDocumentUseCase construye el caso de uso.
func NewDocumentUseCase(api ports.Backend) *DocumentUseCase {
	return &DocumentUseCase{api: api}
}

// Items catálogo de artículos del vendedor.
func (uc *DocumentUseCase) Items(ctx context.Context) ([]entity.Item, error) {
	var list []entity.Item
	if err := uc.api.Get(ctx, "items", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Invoices página de facturas.
func (uc *DocumentUseCase) Invoices(ctx context.Context, page dto.PageRequest) (*dto.PageResponse[entity.Invoice], error) {
	var out entity.Page[entity.Invoice]
	if err := uc.api.Get(ctx, "invoices", pageQuery(&page), &out); err != nil {
		return nil, err
	}
	return toPageResponse(out, page.Limit), nil
}

// Orders página de pedidos.
func (uc *DocumentUseCase) Orders(ctx context.Context, page dto.PageRequest) (*dto.PageResponse[entity.Order], error) {
	var out entity.Page[entity.Order]
	if err := uc.api.Get(ctx, "orders", pageQuery(&page), &out); err != nil {
		return nil, err
	}
	return toPageResponse(out, page.Limit), nil
}

// LastOrder último pedido del cliente que incluye el artículo.
func (uc *DocumentUseCase) LastOrder(ctx context.Context, customerID, itemID string) (*entity.Order, error) {
	if err := requireID("customer_id", customerID); err != nil {
		return nil, err
	}
	if err := requireID("item_id", itemID); err != nil {
		return nil, err
	}
	var o entity.Order
	if err := uc.api.Get(ctx, p("orders/customer/%s/last-order/%s", customerID, itemID), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func pageQuery(page *dto.PageRequest) url.Values {
	page.DefaultPage()
	q := url.Values{}
	q.Set("limit", strconv.Itoa(page.Limit))
	q.Set("start_key", page.StartKey)
	q.Set("status", strings.TrimSpace(page.Status))
	q.Set("search", strings.TrimSpace(page.Search))
	return q
}

// toPageResponse conserva el cursor del backend; sin page_size se informa el límite pedido.
func toPageResponse[T any](in entity.Page[T], limit int) *dto.PageResponse[T] {
	items := in.Items
	if items == nil {
		items = []T{}
	}
	size := in.PageSize
	if size == 0 {
		size = limit
	}
	return &dto.PageResponse[T]{Items: items, PageSize: size, NextPageToken: in.NextPageToken}
}
