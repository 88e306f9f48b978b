package http_server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"session_service/internal/auth"
	"session_service/internal/http_server"
	jwtlib "session_service/internal/lib/jwt"
	"session_service/internal/models"
	"session_service/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]*models.User)}
}

func (s *memStore) SaveUser(_ context.Context, email, name string, passHash []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return 0, storage.ErrUserExists
		}
	}

	s.nextID++
	now := time.Now()
	s.users[s.nextID] = &models.User{
		ID:        s.nextID,
		Email:     email,
		Name:      name,
		PassHash:  passHash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return s.nextID, nil
}

func (s *memStore) UserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return *u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (s *memStore) UserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return *u, nil
}

func (s *memStore) UpdateRefreshHash(_ context.Context, userID int64, refreshHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.RefreshHash = refreshHash
	u.UpdatedAt = time.Now()

	return nil
}

func (s *memStore) ClearRefreshHash(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok && u.RefreshHash != nil {
		u.RefreshHash = nil
		u.UpdatedAt = time.Now()
	}

	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwtlib.NewIssuer("at-secret", "rt-secret", 10*time.Minute, time.Hour)
	store := newMemStore()
	authService := auth.New(log, store, store, tokens, nil)

	srv := httptest.NewServer(http_server.NewRouter(log, validator.New(), tokens, authService))
	t.Cleanup(srv.Close)

	return srv
}

type tokenResponse struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func postJSON(t *testing.T, url string, body any, bearer string) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()

	return res, raw
}

func decodeTokens(t *testing.T, raw []byte) tokenResponse {
	t.Helper()

	var parsed tokenResponse
	require.NoError(t, json.Unmarshal(raw, &parsed))

	return parsed
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	signupBody := map[string]string{
		"name":     "John",
		"email":    "j@x.com",
		"password": "Strong#123",
	}

	// Signup returns 201 with both tokens.
	res, raw := postJSON(t, srv.URL+"/auth/signup", signupBody, "")
	require.Equal(t, http.StatusCreated, res.StatusCode)

	signupTokens := decodeTokens(t, raw)
	require.NotEmpty(t, signupTokens.AccessToken)
	require.NotEmpty(t, signupTokens.RefreshToken)

	// Duplicate signup is rejected.
	res, _ = postJSON(t, srv.URL+"/auth/signup", signupBody, "")
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// Wrong password collapses to access denied.
	res, _ = postJSON(t, srv.URL+"/auth/signin", map[string]string{
		"email":    "j@x.com",
		"password": "Wrong#123",
	}, "")
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// Correct signin rotates the session.
	res, raw = postJSON(t, srv.URL+"/auth/signin", map[string]string{
		"email":    "j@x.com",
		"password": "Strong#123",
	}, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	signinTokens := decodeTokens(t, raw)

	// The signup-era refresh token was invalidated by the signin rotation.
	res, _ = postJSON(t, srv.URL+"/auth/refresh", nil, signupTokens.RefreshToken)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// The current refresh token works exactly once.
	res, raw = postJSON(t, srv.URL+"/auth/refresh", nil, signinTokens.RefreshToken)
	require.Equal(t, http.StatusOK, res.StatusCode)
	refreshedTokens := decodeTokens(t, raw)
	require.NotEmpty(t, refreshedTokens.RefreshToken)

	res, _ = postJSON(t, srv.URL+"/auth/refresh", nil, signinTokens.RefreshToken)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// Signout, then the outstanding refresh token is dead.
	res, _ = postJSON(t, srv.URL+"/auth/signout", nil, refreshedTokens.AccessToken)
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res, _ = postJSON(t, srv.URL+"/auth/refresh", nil, refreshedTokens.RefreshToken)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestSignup_InvalidBody(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "missing name", body: map[string]string{"email": "j@x.com", "password": "Strong#123"}},
		{name: "missing email", body: map[string]string{"name": "John", "password": "Strong#123"}},
		{name: "missing password", body: map[string]string{"name": "John", "email": "j@x.com"}},
		{name: "weak password", body: map[string]string{"name": "John", "email": "j@x.com", "password": "123"}},
		{name: "bad email", body: map[string]string{"name": "John", "email": "not-an-email", "password": "Strong#123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _ := postJSON(t, srv.URL+"/auth/signup", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		})
	}
}

func TestCurrentUser(t *testing.T) {
	srv := newTestServer(t)

	res, raw := postJSON(t, srv.URL+"/auth/signup", map[string]string{
		"name":     "John",
		"email":    "j@x.com",
		"password": "Strong#123",
	}, "")
	require.Equal(t, http.StatusCreated, res.StatusCode)
	tokens := decodeTokens(t, raw)

	// Without a token the route rejects before the handler runs.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/auth/user", nil)
	require.NoError(t, err)

	unauth, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	unauth.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, unauth.StatusCode)

	// With the access token the profile comes back hash-free.
	req, err = http.NewRequest(http.MethodGet, srv.URL+"/auth/user", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(authed.Body)
	require.NoError(t, err)
	authed.Body.Close()
	require.Equal(t, http.StatusOK, authed.StatusCode)

	var profile map[string]any
	require.NoError(t, json.Unmarshal(body, &profile))
	assert.Equal(t, "John", profile["name"])
	assert.Equal(t, "j@x.com", profile["email"])
	assert.NotContains(t, profile, "password_hash")
	assert.NotContains(t, profile, "refresh_hash")

	// A refresh token is not an access token.
	req, err = http.NewRequest(http.MethodGet, srv.URL+"/auth/user", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokens.RefreshToken)

	crossed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	crossed.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, crossed.StatusCode)
}
