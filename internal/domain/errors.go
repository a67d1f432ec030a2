package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// ErrAuthenticationRequired: el backend rechazó la sesión incluso tras refrescar el token.
	// El cliente debe volver a iniciar sesión.
	ErrAuthenticationRequired = errors.New("se requiere iniciar sesión de nuevo")
	ErrUpstreamUnavailable    = errors.New("el backend no está disponible")

	ErrInvalidCredentials  = errors.New("credenciales inválidas")
	ErrEmailNotVerified    = errors.New("el email no ha sido verificado")
	ErrIdentityUnavailable = errors.New("el proveedor de identidad no está disponible")

	ErrInsufficientHistory = errors.New("se necesitan al menos dos pedidos para estimar el consumo")
	ErrInvalidOrderDate    = errors.New("fecha de pedido inválida, formato esperado DD-MM-YY")

	ErrSuperseded      = errors.New("solicitud reemplazada por una más reciente")
	ErrMapsUnavailable = errors.New("el servicio de mapas no está disponible")
)
