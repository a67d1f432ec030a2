package ports

import (
	"context"
	"net/url"
)

// Backend puerto de salida hacia el backend REST (sistema de registro de clientes,
// productos, básculas, pedidos...). La sesión del usuario viaja en el contexto;
// el adaptador se encarga del bearer token, el reintento y el refresh.
//
// Los errores de respuesta envuelven los errores de dominio (ErrNotFound,
// ErrInvalidInput, ErrConflict...) y una sesión rechazada se reporta como
// domain.ErrAuthenticationRequired.
type Backend interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}
