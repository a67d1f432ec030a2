// Package identity implementa el puerto IdentityProvider contra el pool de usuarios
// de Cognito (API JSON pública, sin firma) y un proveedor simulado para desarrollo.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/pkg/config"
)

// Verificar en tiempo de compilación que CognitoProvider implementa IdentityProvider.
var _ ports.IdentityProvider = (*CognitoProvider)(nil)

const targetPrefix = "AWSCognitoIdentityProviderService."

// CognitoProvider adaptador del pool de usuarios.
type CognitoProvider struct {
	endpoint   string
	clientID   string
	oauth      *oauth2.Config
	httpClient *http.Client
}

// NewCognitoProvider construye el adaptador. endpoint vacío = endpoint regional de AWS.
func NewCognitoProvider(cfg config.IdentityConfig, endpoint string, hc *http.Client) *CognitoProvider {
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/", cfg.Region)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &CognitoProvider{
		endpoint:   endpoint,
		clientID:   cfg.ClientID,
		oauth:      oauthConfig(cfg),
		httpClient: hc,
	}
}

// oauthConfig endpoints del dominio hospedado para el canje del código federado.
func oauthConfig(cfg config.IdentityConfig) *oauth2.Config {
	if cfg.Domain == "" {
		return nil
	}
	clientID := cfg.OAuthClientID
	if clientID == "" {
		clientID = cfg.ClientID
	}
	base := cfg.Domain
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	base = strings.TrimRight(base, "/")
	return &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: cfg.RedirectURI,
		Scopes:      []string{"email", "openid", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   base + "/oauth2/authorize",
			TokenURL:  base + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// ── Estructuras de la API de Cognito ─────────────────────────────────────────

type attribute struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type authResult struct {
	AuthenticationResult *struct {
		AccessToken  string `json:"AccessToken"`
		IdToken      string `json:"IdToken"`
		RefreshToken string `json:"RefreshToken"`
		ExpiresIn    int    `json:"ExpiresIn"`
	} `json:"AuthenticationResult"`
	ChallengeName string `json:"ChallengeName"`
}

// ── Implementación del puerto ─────────────────────────────────────────────────

// SignUp registra el usuario con su email como username.
func (p *CognitoProvider) SignUp(ctx context.Context, email, password string, attrs map[string]string) (bool, error) {
	list := []attribute{{Name: "email", Value: email}}
	for k, v := range attrs {
		if k == "email" || v == "" {
			continue
		}
		list = append(list, attribute{Name: k, Value: v})
	}
	var out struct {
		UserConfirmed bool `json:"UserConfirmed"`
	}
	err := p.call(ctx, "SignUp", map[string]any{
		"ClientId":       p.clientID,
		"Username":       email,
		"Password":       password,
		"UserAttributes": list,
	}, &out)
	return out.UserConfirmed, err
}

// ConfirmSignUp confirma la cuenta con el código enviado por email.
func (p *CognitoProvider) ConfirmSignUp(ctx context.Context, email, code string) error {
	return p.call(ctx, "ConfirmSignUp", map[string]any{
		"ClientId":         p.clientID,
		"Username":         email,
		"ConfirmationCode": code,
	}, nil)
}

// ResendCode reenvía el código de confirmación.
func (p *CognitoProvider) ResendCode(ctx context.Context, email string) error {
	return p.call(ctx, "ResendConfirmationCode", map[string]any{
		"ClientId": p.clientID,
		"Username": email,
	}, nil)
}

// SignIn autentica con USER_PASSWORD_AUTH.
func (p *CognitoProvider) SignIn(ctx context.Context, email, password string) (entity.Identity, entity.TokenSet, error) {
	var out authResult
	err := p.call(ctx, "InitiateAuth", map[string]any{
		"ClientId":       p.clientID,
		"AuthFlow":       "USER_PASSWORD_AUTH",
		"AuthParameters": map[string]string{"USERNAME": email, "PASSWORD": password},
	}, &out)
	if err != nil {
		return entity.Identity{}, entity.TokenSet{}, err
	}
	if out.AuthenticationResult == nil {
		// NEW_PASSWORD_REQUIRED, MFA, etc. no están soportados por el dashboard.
		log.Warn().Str("challenge", out.ChallengeName).Msg("identity: challenge no soportado")
		return entity.Identity{}, entity.TokenSet{}, fmt.Errorf("%w: challenge %s", domain.ErrInvalidCredentials, out.ChallengeName)
	}
	r := out.AuthenticationResult
	tokens := entity.TokenSet{
		AccessToken:  r.AccessToken,
		IDToken:      r.IdToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
	}
	ident, err := IdentityFromIDToken(r.IdToken)
	if err != nil {
		return entity.Identity{}, entity.TokenSet{}, err
	}
	if ident.Email == "" {
		ident.Email = email
	}
	return ident, tokens, nil
}

// SignOut invalida todos los tokens emitidos al usuario.
func (p *CognitoProvider) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return p.call(ctx, "GlobalSignOut", map[string]any{"AccessToken": accessToken}, nil)
}

// ForgotPassword envía el código de recuperación.
func (p *CognitoProvider) ForgotPassword(ctx context.Context, email string) error {
	return p.call(ctx, "ForgotPassword", map[string]any{
		"ClientId": p.clientID,
		"Username": email,
	}, nil)
}

// ConfirmForgotPassword fija la nueva contraseña con el código recibido.
func (p *CognitoProvider) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	return p.call(ctx, "ConfirmForgotPassword", map[string]any{
		"ClientId":         p.clientID,
		"Username":         email,
		"ConfirmationCode": code,
		"Password":         newPassword,
	}, nil)
}

// ChangePassword cambia la contraseña del usuario autenticado.
func (p *CognitoProvider) ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error {
	if accessToken == "" {
		return domain.ErrAuthenticationRequired
	}
	return p.call(ctx, "ChangePassword", map[string]any{
		"AccessToken":      accessToken,
		"PreviousPassword": oldPassword,
		"ProposedPassword": newPassword,
	}, nil)
}

// ExchangeCode canjea el código del dominio hospedado por tokens.
func (p *CognitoProvider) ExchangeCode(ctx context.Context, code string) (entity.Identity, entity.TokenSet, error) {
	if p.oauth == nil {
		return entity.Identity{}, entity.TokenSet{}, fmt.Errorf("%w: COGNITO_DOMAIN no configurado", domain.ErrIdentityUnavailable)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
			return entity.Identity{}, entity.TokenSet{}, fmt.Errorf("%w: código OAuth rechazado", domain.ErrInvalidCredentials)
		}
		return entity.Identity{}, entity.TokenSet{}, fmt.Errorf("%w: oauth: %v", domain.ErrIdentityUnavailable, err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	ident, err := IdentityFromIDToken(idToken)
	if err != nil {
		return entity.Identity{}, entity.TokenSet{}, err
	}
	expiresIn := 0
	if !tok.Expiry.IsZero() {
		expiresIn = int(time.Until(tok.Expiry).Seconds())
	}
	return ident, entity.TokenSet{
		AccessToken:  tok.AccessToken,
		IDToken:      idToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// IdentityFromIDToken lee los claims del id token. El token llega directo del
// proveedor por TLS, por eso no se verifica la firma aquí.
func IdentityFromIDToken(idToken string) (entity.Identity, error) {
	if idToken == "" {
		return entity.Identity{}, fmt.Errorf("%w: respuesta sin id token", domain.ErrIdentityUnavailable)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return entity.Identity{}, fmt.Errorf("%w: id token ilegible: %v", domain.ErrIdentityUnavailable, err)
	}
	ident := entity.Identity{}
	ident.Subject, _ = claims["sub"].(string)
	ident.Email, _ = claims["email"].(string)
	switch v := claims["email_verified"].(type) {
	case bool:
		ident.Verified = v
	case string:
		ident.Verified = v == "true"
	}
	if groups, ok := claims["cognito:groups"].([]any); ok {
		for _, g := range groups {
			if s, ok := g.(string); ok {
				ident.Groups = append(ident.Groups, s)
			}
		}
	}
	return ident, nil
}

// call ejecuta una operación de la API JSON de Cognito.
func (p *CognitoProvider) call(ctx context.Context, op string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("identity: serializar %s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("identity: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-amz-json-1.1")
	req.Header.Set("X-Amz-Target", targetPrefix+op)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("identity: %s: %w", op, ctx.Err())
		}
		return fmt.Errorf("%w: %s: %v", domain.ErrIdentityUnavailable, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("identity: leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return mapError(op, resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("identity: deserializar %s: %w", op, err)
	}
	return nil
}

// mapError traduce el "__type" de Cognito a errores de dominio.
func mapError(op string, status int, raw []byte) error {
	kind := gjson.GetBytes(raw, "__type").String()
	if i := strings.LastIndex(kind, "#"); i >= 0 {
		kind = kind[i+1:]
	}
	msg := gjson.GetBytes(raw, "message").String()
	if msg == "" {
		msg = gjson.GetBytes(raw, "Message").String()
	}
	log.Info().Str("op", op).Str("type", kind).Int("status", status).Msg("identity: operación rechazada")

	switch kind {
	case "NotAuthorizedException", "UserNotFoundException":
		return fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, msg)
	case "UserNotConfirmedException":
		return domain.ErrEmailNotVerified
	case "UsernameExistsException", "AliasExistsException":
		return fmt.Errorf("%w: %s", domain.ErrConflict, msg)
	case "CodeMismatchException", "ExpiredCodeException", "InvalidPasswordException", "InvalidParameterException":
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
	case "LimitExceededException", "TooManyRequestsException", "TooManyFailedAttemptsException":
		return fmt.Errorf("%w: %s", domain.ErrIdentityUnavailable, msg)
	}
	if status >= 500 {
		return fmt.Errorf("%w: %s HTTP %d", domain.ErrIdentityUnavailable, op, status)
	}
	return fmt.Errorf("identity: %s: %s %s", op, kind, msg)
}
