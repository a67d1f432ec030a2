package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/domain/repository"
)

var _ TokenProvider = (*TokenSource)(nil)

// RefreshBuffer margen antes del vencimiento en el que el token ya se considera expirado.
const RefreshBuffer = 5 * time.Minute

// TokenSource guarda los tokens del backend por sesión y los refresca con
// POST {API}/auth/refresh. Los refrescos concurrentes de una misma sesión se
// agrupan en una única llamada.
type TokenSource struct {
	store      repository.SessionRepository
	refreshURL string
	httpClient *http.Client
	sessionTTL time.Duration
	group      singleflight.Group
	now        func() time.Time
}

// NewTokenSource construye el token source sobre el almacén de sesiones.
func NewTokenSource(store repository.SessionRepository, baseURL string, sessionTTL time.Duration, hc *http.Client) *TokenSource {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenSource{
		store:      store,
		refreshURL: strings.TrimRight(baseURL, "/") + "/auth/refresh",
		httpClient: hc,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Token devuelve el access token vigente, refrescándolo si vence dentro del margen.
func (ts *TokenSource) Token(ctx context.Context, sessionID string) (string, error) {
	s, err := ts.store.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("token: leer sesión: %w", err)
	}
	if s == nil || s.AccessToken == "" {
		return "", domain.ErrAuthenticationRequired
	}
	if !s.ExpiresWithin(ts.now(), RefreshBuffer) {
		return s.AccessToken, nil
	}

	tok, err := ts.Refresh(ctx, sessionID, s.AccessToken)
	if err != nil {
		// Dentro del margen el token aún sirve; si ya venció no hay nada que hacer.
		if ts.now().Before(s.ExpiresAt) {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("token: refresh anticipado falló, se usa el token actual")
			return s.AccessToken, nil
		}
		return "", err
	}
	return tok, nil
}

// Refresh obtiene un token nuevo. Llamadas concurrentes para la misma sesión comparten
// el resultado, y si otro refresh ya reemplazó staleToken se devuelve el token guardado.
func (ts *TokenSource) Refresh(ctx context.Context, sessionID, staleToken string) (string, error) {
	v, err, shared := ts.group.Do(sessionID, func() (any, error) {
		return ts.refresh(context.WithoutCancel(ctx), sessionID, staleToken)
	})
	if err != nil {
		return "", err
	}
	if shared {
		log.Debug().Str("session_id", sessionID).Msg("token: refresh compartido")
	}
	return v.(string), nil
}

// Invalidate elimina la sesión: el usuario deberá volver a iniciar sesión.
func (ts *TokenSource) Invalidate(ctx context.Context, sessionID string) error {
	return ts.store.Delete(ctx, sessionID)
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

func (ts *TokenSource) refresh(ctx context.Context, sessionID, staleToken string) (string, error) {
	s, err := ts.store.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("token: leer sesión: %w", err)
	}
	if s == nil || s.RefreshToken == "" {
		return "", domain.ErrAuthenticationRequired
	}
	if staleToken != "" && s.AccessToken != staleToken && !s.ExpiresWithin(ts.now(), RefreshBuffer) {
		return s.AccessToken, nil
	}

	body, _ := json.Marshal(map[string]string{"refresh_token": s.RefreshToken})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.refreshURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("token: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: refresh: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("token: leer respuesta: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusForbidden:
		log.Info().Str("session_id", sessionID).Int("status", resp.StatusCode).Msg("token: refresh rechazado")
		return "", domain.ErrAuthenticationRequired
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: refresh HTTP %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var out refreshResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("token: deserializar refresh: %w", err)
	}
	if out.AccessToken == "" {
		return "", domain.ErrAuthenticationRequired
	}

	s.AccessToken = out.AccessToken
	if out.RefreshToken != "" {
		s.RefreshToken = out.RefreshToken
	}
	s.ExpiresAt = expiry(ts.now(), out.ExpiresIn)
	if err := ts.store.Save(ctx, s, ts.sessionTTL); err != nil {
		return "", fmt.Errorf("token: guardar sesión: %w", err)
	}
	log.Info().Str("session_id", sessionID).Time("expires_at", s.ExpiresAt).Msg("token: refrescado")
	return s.AccessToken, nil
}

// expiry vencimiento a partir de expiresIn en segundos; 0 = una hora.
func expiry(now time.Time, expiresIn int) time.Time {
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return now.Add(time.Duration(expiresIn) * time.Second)
}

// NewSession arma una sesión nueva a partir de los tokens de inicio de sesión.
func NewSession(id string, ident entity.Identity, role string, tokens entity.TokenSet, now time.Time) *entity.Session {
	access := tokens.AccessToken
	if tokens.IDToken != "" {
		access = tokens.IDToken
	}
	return &entity.Session{
		ID:           id,
		UserID:       ident.Subject,
		Email:        ident.Email,
		Role:         role,
		AccessToken:  access,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    expiry(now, tokens.ExpiresIn),
		CreatedAt:    now,

		IdentityToken: tokens.AccessToken,
	}
}
