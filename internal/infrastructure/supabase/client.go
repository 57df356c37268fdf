package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/pkg/config"
)

const (
	signUpPath   = "/auth/v1/signup"
	tokenPath    = "/auth/v1/token"
	logoutPath   = "/auth/v1/logout"
	userPath     = "/auth/v1/user"
	maxBodyBytes = 64 * 1024
)

// Client adaptador REST del servicio de identidad (GoTrue). Usa net/http; no requiere SDK.
// Todas las llamadas exigen IsConfigured; sin configuración devuelven domain.ErrNotConfigured.
type Client struct {
	baseURL    string
	apiKey     string
	configured bool
	httpClient *http.Client
}

// NewClient construye el adaptador. El timeout de red es un tope; cada llamada trae además
// el context.WithTimeout del llamador.
func NewClient(cfg config.RemoteConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		configured: cfg.IsConfigured(),
		httpClient: &http.Client{Timeout: 2 * timeout},
	}
}

// WithHTTPClient reemplaza el cliente HTTP (tests).
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

// IsConfigured informa si URL y API key son valores reales (no placeholders).
func (c *Client) IsConfigured() bool {
	return c != nil && c.configured
}

// ── Estructuras del protocolo ─────────────────────────────────────────────────

// User identidad devuelta por el proveedor.
type User struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Session tokens de una sesión de identidad.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

type credentials struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         *User  `json:"user"`
}

// signUpResponse con confirmación de email el proveedor devuelve el usuario plano;
// sin ella devuelve una sesión con el usuario anidado.
type signUpResponse struct {
	User
	Nested *User `json:"user"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

// APIError respuesta no exitosa del proveedor. Se considera fallo remoto (domain.ErrRemote).
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase %s: HTTP %d: %s", e.Op, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return domain.ErrRemote }

// Unauthorized informa si el proveedor rechazó el token o las credenciales.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden ||
		(e.Status == http.StatusBadRequest && strings.Contains(strings.ToLower(e.Message), "invalid"))
}

// ── Operaciones ───────────────────────────────────────────────────────────────

// SignUp registra la identidad con metadatos de usuario.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*User, error) {
	var resp signUpResponse
	err := c.do(ctx, "sign up", http.MethodPost, signUpPath, "", credentials{Email: email, Password: password, Data: metadata}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Nested != nil && resp.Nested.ID != "" {
		return resp.Nested, nil
	}
	u := resp.User
	return &u, nil
}

// SignInWithPassword abre una sesión con email y contraseña.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var resp tokenResponse
	if err := c.do(ctx, "sign in", http.MethodPost, tokenPath+"?grant_type=password", "", credentials{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return resp.session(), nil
}

// RefreshSession renueva la sesión con el refresh token.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var resp tokenResponse
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, "refresh", http.MethodPost, tokenPath+"?grant_type=refresh_token", "", body, &resp); err != nil {
		return nil, err
	}
	return resp.session(), nil
}

// SignOut revoca el token de acceso.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, "sign out", http.MethodPost, logoutPath, accessToken, nil, nil)
}

// GetUser valida el token de acceso y devuelve su identidad.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.do(ctx, "get user", http.MethodGet, userPath, accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r tokenResponse) session() *Session {
	s := &Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(r.ExpiresIn) * time.Second),
	}
	if r.User != nil {
		s.User = *r.User
	}
	return s
}

func (c *Client) do(ctx context.Context, op, method, path, bearer string, payload, out any) error {
	if !c.IsConfigured() {
		return fmt.Errorf("supabase %s: %w", op, domain.ErrNotConfigured)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("supabase %s: serializar request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("supabase %s: crear HTTP request: %v: %w", op, err, domain.ErrRemote)
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("supabase %s: timeout o cancelación: %v: %w", op, ctx.Err(), domain.ErrRemote)
		}
		return fmt.Errorf("supabase %s: llamada HTTP fallida: %v: %w", op, err, domain.ErrRemote)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("supabase %s: leer respuesta: %v: %w", op, err, domain.ErrRemote)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("supabase %s: deserializar respuesta: %v: %w", op, err, domain.ErrRemote)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil {
		for _, m := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
			if m != "" {
				return m
			}
		}
	}
	return strings.TrimSpace(string(raw))
}
