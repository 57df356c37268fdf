package supabase_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/infrastructure/supabase"
	"github.com/jhoicas/insightos/pkg/config"
)

const testAPIKey = "anon-key-for-tests"

// memTokens almacén en memoria para la sesión de identidad.
type memTokens struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemTokens() *memTokens { return &memTokens{data: map[string]string{}} }

func (m *memTokens) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memTokens) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memTokens) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// fakeGoTrue servidor mínimo del proveedor de identidad.
type fakeGoTrue struct {
	mu        sync.Mutex
	validTok  map[string]string // access token -> user id
	refreshes int
	logouts   int
}

func (f *fakeGoTrue) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testAPIKey, r.Header.Get("apikey"))
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Query().Get("grant_type") {
		case "password":
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
				return
			}
			f.issue(w, "tok-1", "ref-1", "user-1", body["email"])
		case "refresh_token":
			f.mu.Lock()
			f.refreshes++
			f.mu.Unlock()
			if body["refresh_token"] != "ref-1" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token"}`))
				return
			}
			f.issue(w, "tok-2", "ref-2", "user-1", "a@acme.com")
		}
	})
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		tok := r.Header.Get("Authorization")[len("Bearer "):]
		f.mu.Lock()
		id, ok := f.validTok[tok]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "email": "a@acme.com"})
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.logouts++
		delete(f.validTok, r.Header.Get("Authorization")[len("Bearer "):])
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == "taken@acme.com" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":422,"msg":"User already registered"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "user-9", "email": body["email"], "user_metadata": body["data"]})
	})
	return mux
}

func (f *fakeGoTrue) issue(w http.ResponseWriter, access, refresh, userID, email string) {
	f.mu.Lock()
	f.validTok[access] = userID
	f.mu.Unlock()
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"expires_in":    3600,
		"user":          map[string]string{"id": userID, "email": email},
	})
}

func (f *fakeGoTrue) counts() (refreshes, logouts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes, f.logouts
}

func newTestAuth(t *testing.T) (*supabase.Auth, *fakeGoTrue, *memTokens) {
	t.Helper()
	fake := &fakeGoTrue{validTok: map[string]string{}}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	client := supabase.NewClient(config.RemoteConfig{URL: srv.URL, APIKey: testAPIKey, Timeout: 2 * time.Second})
	tokens := newMemTokens()
	return supabase.NewAuth(client, tokens, nil), fake, tokens
}

func TestClient_NotConfigured(t *testing.T) {
	c := supabase.NewClient(config.RemoteConfig{URL: "https://your-project.supabase.co", APIKey: "your-anon-key"})
	assert.False(t, c.IsConfigured())

	_, err := c.SignInWithPassword(context.Background(), "a@acme.com", "secret")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.True(t, domain.IsFallback(err))
}

func TestClient_SignInFailureIsRemoteError(t *testing.T) {
	a, _, _ := newTestAuth(t)
	_, err := a.Client().SignInWithPassword(context.Background(), "a@acme.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemote, "un rechazo del proveedor permite el fallback")

	var apiErr *supabase.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
}

func TestClient_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := supabase.NewClient(config.RemoteConfig{URL: url, APIKey: testAPIKey, Timeout: time.Second})
	_, err := c.GetUser(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrRemote)
}

func TestClient_SignUp(t *testing.T) {
	a, _, _ := newTestAuth(t)
	u, err := a.SignUp(context.Background(), "new@acme.com", "secret", map[string]any{"name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "user-9", u.ID)
	assert.Equal(t, "Ana", u.Metadata["name"])

	_, err = a.SignUp(context.Background(), "taken@acme.com", "secret", nil)
	assert.ErrorIs(t, err, domain.ErrRemote)
}

func TestAuth_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	a, fake, tokens := newTestAuth(t)

	var events []supabase.Event
	unsubscribe := a.OnAuthStateChange(func(ev supabase.Event) { events = append(events, ev) })
	defer unsubscribe()

	s, err := a.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s, "sin sesión persistida no hay sesión")

	s, err = a.SignIn(ctx, "a@acme.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", s.AccessToken)
	_, stored, _ := tokens.Get(ctx, supabase.TokenKey)
	assert.True(t, stored, "la sesión se persiste en el almacén del perfil")

	s, err = a.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "user-1", s.User.ID)

	require.NoError(t, a.SignOut(ctx))
	_, logouts := fake.counts()
	assert.Equal(t, 1, logouts)
	s, err = a.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	require.Len(t, events, 2)
	assert.Equal(t, supabase.EventSignedIn, events[0].Type)
	assert.Equal(t, supabase.Event{Type: supabase.EventSignedOut, UserID: "user-1", Email: "a@acme.com"}, events[1])
}

func TestAuth_GetSessionRefreshesExpiredToken(t *testing.T) {
	ctx := context.Background()
	a, fake, _ := newTestAuth(t)

	_, err := a.SignIn(ctx, "a@acme.com", "secret")
	require.NoError(t, err)

	fake.mu.Lock()
	delete(fake.validTok, "tok-1")
	fake.mu.Unlock()

	s, err := a.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "tok-2", s.AccessToken)
	refreshes, _ := fake.counts()
	assert.Equal(t, 1, refreshes)
}

func TestAuth_ListenerUnsubscribe(t *testing.T) {
	a, _, _ := newTestAuth(t)
	calls := 0
	unsubscribe := a.OnAuthStateChange(func(supabase.Event) { calls++ })
	a.NotifyUserUpdated("user-1")
	unsubscribe()
	a.NotifyUserUpdated("user-1")
	assert.Equal(t, 1, calls)
}
