package dto

// PageRequest paginación por cursor para listados del backend (facturas, pedidos).
type PageRequest struct {
	Limit    int    `query:"limit" validate:"min=1,max=100"`
	StartKey string `query:"start_key"`
	Status   string `query:"status"`
	Search   string `query:"search"`
}

// DefaultPage aplica valores por defecto y acota Limit.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
}

// PageResponse respuesta paginada: items, tamaño de página y cursor siguiente.
type PageResponse[T any] struct {
	Items         []T    `json:"items"`
	PageSize      int    `json:"page_size"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageResponse confirmación simple.
type MessageResponse struct {
	Message string `json:"message"`
}
