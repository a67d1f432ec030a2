package ports

import (
	"context"

	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

// IdentityProvider puerto de salida hacia el pool de usuarios (Cognito o el simulado).
//
// Errores esperados: domain.ErrInvalidCredentials, domain.ErrEmailNotVerified,
// domain.ErrConflict (usuario ya existe), domain.ErrInvalidInput (código inválido o
// vencido, contraseña que no cumple la política) y domain.ErrIdentityUnavailable.
type IdentityProvider interface {
	// SignUp registra el usuario; devuelve true si quedó confirmado sin código.
	SignUp(ctx context.Context, email, password string, attrs map[string]string) (bool, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	ResendCode(ctx context.Context, email string) error
	SignIn(ctx context.Context, email, password string) (entity.Identity, entity.TokenSet, error)
	// SignOut invalida los tokens del proveedor (global sign out).
	SignOut(ctx context.Context, accessToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error
	ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error
	// ExchangeCode canjea el código OAuth del inicio de sesión federado (Google).
	ExchangeCode(ctx context.Context, code string) (entity.Identity, entity.TokenSet, error)
}
