package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/scale-monitor-api/internal/application/dto"
	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/domain/repository"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/backend"
	"github.com/jhoicas/scale-monitor-api/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// TokenSource entrega el token vigente de una sesión (refrescándolo si hace falta).
type TokenSource interface {
	Token(ctx context.Context, sessionID string) (string, error)
}

// AuthUseCase registro, inicio y cierre de sesión contra el proveedor de identidad.
// La sesión guarda los tokens del backend; el navegador solo recibe el JWT de sesión.
type AuthUseCase struct {
	idp        ports.IdentityProvider
	sessions   repository.SessionRepository
	tokens     TokenSource
	api        ports.Backend
	jwtCfg     JWTConfig
	sessionTTL time.Duration
	now        func() time.Time
}

// NewAuthUseCase construye el caso de uso de auth. api se usa para resolver el vendedor
// del usuario tras iniciar sesión y puede ser nil.
func NewAuthUseCase(idp ports.IdentityProvider, sessions repository.SessionRepository, tokens TokenSource, api ports.Backend, jwtCfg JWTConfig, sessionTTL time.Duration) *AuthUseCase {
	return &AuthUseCase{
		idp:        idp,
		sessions:   sessions,
		tokens:     tokens,
		api:        api,
		jwtCfg:     jwtCfg,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// SignUp registra el usuario. Si el pool exige verificación se envía un código al email.
func (uc *AuthUseCase) SignUp(ctx context.Context, in dto.SignUpRequest) (*dto.SignUpResponse, error) {
	email := normalizeEmail(in.Email)
	if email == "" || len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: email y contraseña (mínimo 8 caracteres) son requeridos", domain.ErrInvalidInput)
	}
	attrs := map[string]string{}
	if name := strings.TrimSpace(in.Name); name != "" {
		attrs["name"] = name
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		attrs["phone_number"] = phone
	}
	confirmed, err := uc.idp.SignUp(ctx, email, in.Password, attrs)
	if err != nil {
		return nil, err
	}
	msg := "Revisa tu correo para confirmar la cuenta"
	if confirmed {
		msg = "Cuenta creada"
	}
	return &dto.SignUpResponse{UserConfirmed: confirmed, Message: msg}, nil
}

// ConfirmSignUp confirma el registro con el código del email.
func (uc *AuthUseCase) ConfirmSignUp(ctx context.Context, in dto.ConfirmSignUpRequest) error {
	if normalizeEmail(in.Email) == "" || strings.TrimSpace(in.Code) == "" {
		return domain.ErrInvalidInput
	}
	return uc.idp.ConfirmSignUp(ctx, normalizeEmail(in.Email), strings.TrimSpace(in.Code))
}

// ResendCode reenvía el código de confirmación.
func (uc *AuthUseCase) ResendCode(ctx context.Context, in dto.EmailRequest) error {
	if normalizeEmail(in.Email) == "" {
		return domain.ErrInvalidInput
	}
	return uc.idp.ResendCode(ctx, normalizeEmail(in.Email))
}

// ForgotPassword envía el código de recuperación.
func (uc *AuthUseCase) ForgotPassword(ctx context.Context, in dto.EmailRequest) error {
	if normalizeEmail(in.Email) == "" {
		return domain.ErrInvalidInput
	}
	return uc.idp.ForgotPassword(ctx, normalizeEmail(in.Email))
}

// ResetPassword fija la nueva contraseña con el código de recuperación.
func (uc *AuthUseCase) ResetPassword(ctx context.Context, in dto.ResetPasswordRequest) error {
	if normalizeEmail(in.Email) == "" || strings.TrimSpace(in.Code) == "" || len(in.NewPassword) < 8 {
		return domain.ErrInvalidInput
	}
	return uc.idp.ConfirmForgotPassword(ctx, normalizeEmail(in.Email), strings.TrimSpace(in.Code), in.NewPassword)
}

// Login verifica las credenciales, crea la sesión y retorna token + usuario.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	ident, tokens, err := uc.idp.SignIn(ctx, email, in.Password)
	if err != nil {
		return nil, err
	}
	return uc.startSession(ctx, ident, tokens)
}

// OAuthCallback canjea el código del inicio de sesión federado y crea la sesión.
func (uc *AuthUseCase) OAuthCallback(ctx context.Context, in dto.OAuthCallbackRequest) (*dto.LoginResponse, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: code es requerido", domain.ErrInvalidInput)
	}
	ident, tokens, err := uc.idp.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return uc.startSession(ctx, ident, tokens)
}

// Logout elimina la sesión y revoca los tokens en el proveedor (best-effort).
func (uc *AuthUseCase) Logout(ctx context.Context, sessionID string) error {
	s, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := uc.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	if s != nil && s.IdentityToken != "" {
		if err := uc.idp.SignOut(ctx, s.IdentityToken); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("auth: sign out en el proveedor falló")
		}
	}
	return nil
}

// ChangePassword cambia la contraseña del usuario de la sesión.
func (uc *AuthUseCase) ChangePassword(ctx context.Context, sessionID string, in dto.ChangePasswordRequest) error {
	if in.OldPassword == "" || len(in.NewPassword) < 8 {
		return fmt.Errorf("%w: la nueva contraseña debe tener al menos 8 caracteres", domain.ErrInvalidInput)
	}
	s, err := uc.session(ctx, sessionID)
	if err != nil {
		return err
	}
	return uc.idp.ChangePassword(ctx, s.IdentityToken, in.OldPassword, in.NewPassword)
}

// Me usuario de la sesión.
func (uc *AuthUseCase) Me(ctx context.Context, sessionID string) (*dto.UserResponse, error) {
	s, err := uc.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toUserResponse(s), nil
}

// Refresh asegura un token del backend vigente y emite un JWT de sesión nuevo.
func (uc *AuthUseCase) Refresh(ctx context.Context, sessionID string) (*dto.LoginResponse, error) {
	if _, err := uc.tokens.Token(ctx, sessionID); err != nil {
		return nil, err
	}
	s, err := uc.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return uc.issue(s)
}

func (uc *AuthUseCase) startSession(ctx context.Context, ident entity.Identity, tokens entity.TokenSet) (*dto.LoginResponse, error) {
	if ident.Subject == "" {
		return nil, domain.ErrInvalidCredentials
	}
	s := backend.NewSession(uuid.New().String(), ident, roleFromGroups(ident.Groups), tokens, uc.now())
	if err := uc.sessions.Save(ctx, s, uc.sessionTTL); err != nil {
		return nil, fmt.Errorf("auth: guardar sesión: %w", err)
	}

	if s.Role != entity.RoleCustomer && uc.api != nil {
		uc.resolveVendor(ctx, s)
	}
	log.Info().Str("session_id", s.ID).Str("user_id", s.UserID).Str("role", s.Role).Msg("auth: sesión iniciada")
	return uc.issue(s)
}

// resolveVendor asocia el vendedor del usuario a la sesión. Un fallo no impide
// iniciar sesión: el vendedor se resuelve de nuevo en la siguiente sesión.
func (uc *AuthUseCase) resolveVendor(ctx context.Context, s *entity.Session) {
	var v entity.Vendor
	if err := uc.api.Get(backend.WithSession(ctx, s.ID), "vendors/me", nil, &v); err != nil {
		log.Warn().Err(err).Str("session_id", s.ID).Msg("auth: no se pudo resolver el vendedor")
		return
	}
	if v.ID == "" {
		return
	}
	// el refresh pudo haber reemplazado los tokens
	current, err := uc.sessions.Get(ctx, s.ID)
	if err != nil || current == nil {
		return
	}
	current.VendorID = v.ID
	if err := uc.sessions.Save(ctx, current, uc.sessionTTL); err != nil {
		log.Warn().Err(err).Str("session_id", s.ID).Msg("auth: no se pudo guardar el vendedor")
		return
	}
	*s = *current
}

func (uc *AuthUseCase) session(ctx context.Context, sessionID string) (*entity.Session, error) {
	s, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	return s, nil
}

func (uc *AuthUseCase) issue(s *entity.Session) (*dto.LoginResponse, error) {
	token, err := jwt.Generate(uc.jwtCfg.Secret, jwt.SessionClaims{
		UserID:    s.UserID,
		Email:     s.Email,
		VendorID:  s.VendorID,
		SessionID: s.ID,
		Role:      s.Role,
	}, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token:     token,
		ExpiresIn: uc.jwtCfg.ExpMinutes * 60,
		User:      *toUserResponse(s),
	}, nil
}

// roleFromGroups admin y customer vienen de los grupos del pool; el resto es vendedor.
func roleFromGroups(groups []string) string {
	role := entity.RoleVendor
	for _, g := range groups {
		switch strings.ToLower(strings.TrimSpace(g)) {
		case "admin", "admins":
			return entity.RoleAdmin
		case "customer", "customers":
			role = entity.RoleCustomer
		}
	}
	return role
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserResponse(s *entity.Session) *dto.UserResponse {
	if s == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:       s.UserID,
		Email:    s.Email,
		Role:     s.Role,
		VendorID: s.VendorID,
	}
}
