// Package backend es el cliente del backend REST que guarda clientes, productos,
// básculas, pedidos y el resto de recursos del dashboard.
//
// Cada llamada adjunta el bearer token de la sesión (refrescado justo a tiempo),
// reintenta una sola vez ante fallos de red tras un retraso fijo y, ante un 401,
// refresca el token una vez y repite la petición antes de rendirse con
// domain.ErrAuthenticationRequired.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/jhoicas/scale-monitor-api/internal/application/ports"
	"github.com/jhoicas/scale-monitor-api/internal/domain"
)

var _ ports.Backend = (*Client)(nil)

const maxResponseBytes = 8 << 20

// TokenProvider entrega y refresca el access token de una sesión.
type TokenProvider interface {
	Token(ctx context.Context, sessionID string) (string, error)
	// Refresh obtiene un token nuevo; staleToken es el que el backend rechazó.
	Refresh(ctx context.Context, sessionID, staleToken string) (string, error)
	Invalidate(ctx context.Context, sessionID string) error
}

// Recorder registra métricas de cada llamada al backend.
type Recorder interface {
	ObserveUpstream(endpoint, method string, status int, elapsed time.Duration)
}

// Config parámetros del cliente.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryDelay time.Duration
	HTTPClient *http.Client
	Metrics    Recorder
}

// Client cliente HTTP del backend. Es seguro para uso concurrente.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	retryDelay time.Duration
	tokens     TokenProvider
	metrics    Recorder
}

// NewClient construye el cliente. tokens puede ser nil para llamadas anónimas.
func NewClient(cfg Config, tokens TokenProvider) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("backend: base URL inválida: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		base:       base,
		httpClient: hc,
		retryDelay: cfg.RetryDelay,
		tokens:     tokens,
		metrics:    cfg.Metrics,
	}, nil
}

// Get GET path?query y decodifica en out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post POST path con body JSON.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put PUT path con body JSON.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete DELETE path.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do ejecuta la petición completa: token, reintento por red y refresh ante 401.
// out puede ser nil, un puntero a string (respuestas de texto) o cualquier destino JSON.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target, err := c.resolve(path, query)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: serializar body: %w", err)
		}
	}

	sessionID := SessionFrom(ctx)
	token := ""
	if sessionID != "" && c.tokens != nil {
		token, err = c.tokens.Token(ctx, sessionID)
		if err != nil {
			return err
		}
	}

	endpoint := endpointLabel(path)
	resp, raw, err := c.send(ctx, method, target, payload, token, endpoint)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if sessionID == "" || c.tokens == nil {
			return domain.ErrAuthenticationRequired
		}
		log.Info().Str("endpoint", endpoint).Str("session_id", sessionID).Msg("backend: 401, refrescando token")
		token, err = c.tokens.Refresh(ctx, sessionID, token)
		if err != nil {
			c.dropSession(ctx, sessionID)
			return domain.ErrAuthenticationRequired
		}
		resp, raw, err = c.send(ctx, method, target, payload, token, endpoint)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.dropSession(ctx, sessionID)
			return domain.ErrAuthenticationRequired
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(method, endpoint, resp.StatusCode, raw)
	}
	return decode(resp, raw, out)
}

// send hace un intento con un único reintento si falla la red (no ante respuestas HTTP).
func (c *Client) send(ctx context.Context, method, target string, payload []byte, token, endpoint string) (*http.Response, []byte, error) {
	resp, raw, err := c.attempt(ctx, method, target, payload, token, endpoint)
	if err == nil {
		return resp, raw, nil
	}
	if ctx.Err() != nil {
		return nil, nil, fmt.Errorf("backend: %s %s: %w", method, endpoint, ctx.Err())
	}
	log.Warn().Err(err).Str("endpoint", endpoint).Dur("delay", c.retryDelay).Msg("backend: fallo de red, reintentando")

	select {
	case <-time.After(c.retryDelay):
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("backend: %s %s: %w", method, endpoint, ctx.Err())
	}

	resp, raw, err = c.attempt(ctx, method, target, payload, token, endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s %s: %v", domain.ErrUpstreamUnavailable, method, endpoint, err)
	}
	return resp, raw, nil
}

func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, token, endpoint string) (*http.Response, []byte, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, nil, fmt.Errorf("backend: crear request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, method, 0, time.Since(start))
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.observe(endpoint, method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, nil, fmt.Errorf("leer respuesta: %w", err)
	}
	log.Debug().Str("method", method).Str("endpoint", endpoint).Int("status", resp.StatusCode).Msg("backend")
	return resp, raw, nil
}

func (c *Client) observe(endpoint, method string, status int, d time.Duration) {
	if c.metrics != nil {
		c.metrics.ObserveUpstream(endpoint, method, status, d)
	}
}

func (c *Client) dropSession(ctx context.Context, sessionID string) {
	if err := c.tokens.Invalidate(context.WithoutCancel(ctx), sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("backend: no se pudo invalidar la sesión")
	}
}

// resolve une la base con el path normalizado (sin barras iniciales duplicadas).
func (c *Client) resolve(path string, query url.Values) (string, error) {
	rel, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("backend: path inválido %q: %w", path, err)
	}
	u := c.base.ResolveReference(rel)
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				if v != "" {
					q.Add(k, v)
				}
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func decode(resp *http.Response, raw []byte, out any) error {
	if out == nil {
		return nil
	}
	if s, ok := out.(*string); ok {
		*s = string(raw)
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if !isJSON(resp.Header.Get("Content-Type")) {
		return fmt.Errorf("backend: respuesta no JSON (%s)", resp.Header.Get("Content-Type"))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("backend: deserializar respuesta: %w", err)
	}
	return nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// APIError respuesta no exitosa del backend.
type APIError struct {
	Method   string
	Endpoint string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s %s: HTTP %d: %s", e.Method, e.Endpoint, e.Status, e.Message)
}

// Unwrap traduce el status a un error de dominio para errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return domain.ErrNotFound
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return domain.ErrInvalidInput
	case e.Status == http.StatusForbidden:
		return domain.ErrForbidden
	case e.Status == http.StatusConflict:
		return domain.ErrConflict
	case e.Status >= 500:
		return domain.ErrUpstreamUnavailable
	default:
		return nil
	}
}

func newAPIError(method, endpoint string, status int, raw []byte) *APIError {
	msg := ""
	if gjson.ValidBytes(raw) {
		for _, k := range []string{"message", "error.message", "error", "detail"} {
			if r := gjson.GetBytes(raw, k); r.Exists() && r.Type == gjson.String {
				msg = r.String()
				break
			}
		}
	}
	if msg == "" {
		msg = truncate(strings.ToValidUTF8(strings.TrimSpace(string(raw)), ""), maxErrorRunes)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Method: method, Endpoint: endpoint, Status: status, Message: msg}
}

// maxErrorRunes largo máximo del cuerpo de texto copiado al mensaje de error.
const maxErrorRunes = 200

// truncate corta s en n runas sin partir un carácter multibyte.
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// AsAPIError extrae el APIError de una cadena de errores.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// endpointLabel reduce un path a una etiqueta estable para métricas: los segmentos
// con dígitos (ids) se reemplazan por ":id".
func endpointLabel(path string) string {
	path = strings.Trim(strings.SplitN(path, "?", 2)[0], "/")
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if strings.ContainsAny(s, "0123456789") {
			segs[i] = ":id"
		}
	}
	return strings.Join(segs, "/")
}

type sessionKey struct{}

// WithSession asocia la sesión del dashboard al contexto de la petición.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionFrom devuelve la sesión asociada al contexto o "".
func SessionFrom(ctx context.Context) string {
	s, _ := ctx.Value(sessionKey{}).(string)
	return s
}
