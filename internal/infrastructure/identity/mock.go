package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
)

var _ ports.IdentityProvider = (*MockProvider)(nil)

// MockProvider proveedor simulado para desarrollo cuando no hay pool configurado:
// acepta cualquier email con contraseña no vacía.
type MockProvider struct{}

// NewMockProvider construye el proveedor simulado.
func NewMockProvider() *MockProvider {
	log.Warn().Msg("identity: pool de usuarios no configurado, usando autenticación simulada")
	return &MockProvider{}
}

func (MockProvider) SignUp(_ context.Context, email, password string, _ map[string]string) (bool, error) {
	if email == "" || password == "" {
		return false, domain.ErrInvalidInput
	}
	return true, nil
}

func (MockProvider) ConfirmSignUp(context.Context, string, string) error { return nil }

func (MockProvider) ResendCode(context.Context, string) error { return nil }

func (MockProvider) SignIn(_ context.Context, email, password string) (entity.Identity, entity.TokenSet, error) {
	if email == "" || password == "" {
		return entity.Identity{}, entity.TokenSet{}, domain.ErrInvalidCredentials
	}
	return mockIdentity(email), mockTokens(), nil
}

func (MockProvider) SignOut(context.Context, string) error { return nil }

func (MockProvider) ForgotPassword(context.Context, string) error { return nil }

func (MockProvider) ConfirmForgotPassword(context.Context, string, string, string) error { return nil }

func (MockProvider) ChangePassword(context.Context, string, string, string) error { return nil }

func (MockProvider) ExchangeCode(_ context.Context, code string) (entity.Identity, entity.TokenSet, error) {
	if code == "" {
		return entity.Identity{}, entity.TokenSet{}, domain.ErrInvalidCredentials
	}
	return mockIdentity("google-user@example.com"), mockTokens(), nil
}

func mockIdentity(email string) entity.Identity {
	email = strings.ToLower(strings.TrimSpace(email))
	return entity.Identity{
		Subject:  uuid.NewSHA1(uuid.NameSpaceURL, []byte("mock:"+email)).String(),
		Email:    email,
		Verified: true,
	}
}

func mockTokens() entity.TokenSet {
	return entity.TokenSet{
		AccessToken:  "mock-access-" + uuid.NewString(),
		RefreshToken: "mock-refresh-" + uuid.NewString(),
		ExpiresIn:    3600,
	}
}
