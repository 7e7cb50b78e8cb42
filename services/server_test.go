package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/krshsl/rentdesk/models"
	"github.com/krshsl/rentdesk/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Message    string          `json:"message"`
	Pagination *Pagination     `json:"pagination"`
}

type testEnv struct {
	t      *testing.T
	repo   *repository.GORMRepository
	server *Server
	router http.Handler
	token  string
}

func newTestRepo(t *testing.T) *repository.GORMRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.Open(repository.Options{
		Driver:       repository.DriverSQLite,
		URL:          fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db) })

	repo := repository.NewGORMRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func testConfig() *Config {
	return &Config{
		JWT:        JWTConfig{Secret: "test-secret"},
		Auth:       AuthConfig{AllowSignup: true},
		RateLimit:  RateLimitConfig{LoginRPS: 1000, LoginBurst: 1000},
		Scheduler:  SchedulerConfig{OverdueSpec: "@every 1h"},
		Pagination: PaginationConfig{DefaultLimit: 10, MaxLimit: 100},
	}
}

func newTestEnv(t *testing.T, opts ...func(*Config)) *testEnv {
	t.Helper()
	repo := newTestRepo(t)
	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	server := NewServer(cfg, repo)
	require.NoError(t, server.InitializeServices())

	env := &testEnv{t: t, repo: repo, server: server, router: server.SetupRoutes()}
	env.createUser("admin@rentdesk.test", "password123", models.RoleAdmin)
	env.token = env.login("admin@rentdesk.test", "password123")
	return env
}

func (e *testEnv) createUser(email, password, role string) *models.User {
	e.t.Helper()
	hashed, err := HashPassword(password)
	require.NoError(e.t, err)
	user := &models.User{Email: email, Password: hashed, FullName: strings.Split(email, "@")[0], Role: role, IsActive: true}
	require.NoError(e.t, e.repo.CreateUser(context.Background(), user))
	return user
}

func (e *testEnv) login(email, password string) string {
	e.t.Helper()
	rec, body := e.requestAs("", http.MethodPost, "/api/v1/auth/login", map[string]string{"email": email, "password": password})
	require.Equal(e.t, http.StatusOK, rec.Code, body.Error)
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(e.t, json.Unmarshal(body.Data, &data))
	require.NotEmpty(e.t, data.AccessToken)
	return data.AccessToken
}

func (e *testEnv) requestAs(token, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (e *testEnv) request(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()
	return e.requestAs(e.token, method, path, body)
}

// create posts body and decodes the created row into dst
func (e *testEnv) create(path string, body interface{}, dst interface{}) {
	e.t.Helper()
	rec, env := e.request(http.MethodPost, path, body)
	require.Equal(e.t, http.StatusCreated, rec.Code, env.Error)
	require.True(e.t, env.Success)
	if dst != nil {
		require.NoError(e.t, json.Unmarshal(env.Data, dst))
	}
}

func decode(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.requestAs("", http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "up", body["database"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.request(http.MethodGet, "/api/v1/vehicles", nil)

	rec, _ := env.requestAs("", http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rentdesk_http_requests_total")
}

func TestUnauthorizedWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/vehicles", "/api/v1/contracts", "/api/v1/lookups/vehicle-colors", "/api/v1/auth/me"} {
		rec, body := env.requestAs("", http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.False(t, body.Success)
		assert.Equal(t, "Unauthorized", body.Error)
	}

	rec, body := env.requestAs("not-a-jwt", http.MethodGet, "/api/v1/vehicles", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", body.Error)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.requestAs("", http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "admin@rentdesk.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", body.Error)

	inactive := env.createUser("gone@rentdesk.test", "password123", models.RoleStaff)
	inactive.IsActive = false
	require.NoError(t, env.repo.UpdateUser(context.Background(), inactive))

	rec, _ = env.requestAs("", http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "gone@rentdesk.test", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginSetsSessionCookies(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.requestAs("", http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "admin@rentdesk.test", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code)

	names := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		names[c.Name] = true
		assert.True(t, c.HttpOnly)
	}
	assert.True(t, names["access_token"])
	assert.True(t, names["refresh_token"])
	assert.True(t, names["permanent_token"])

	// The refresh cookie alone is enough to get back in
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh_token" {
			req.AddCookie(c)
		}
	}
	me := httptest.NewRecorder()
	env.router.ServeHTTP(me, req)
	assert.Equal(t, http.StatusOK, me.Code)
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]string{"email": "new@rentdesk.test", "password": "password123", "full_name": "New Staff"}
	rec, resp := env.requestAs("", http.MethodPost, "/api/v1/auth/signup", body)
	require.Equal(t, http.StatusCreated, rec.Code, resp.Error)

	rec, resp = env.requestAs("", http.MethodPost, "/api/v1/auth/signup", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", resp.Error)

	rec, resp = env.requestAs("", http.MethodPost, "/api/v1/auth/signup", map[string]string{"email": "x@rentdesk.test", "password": "short", "full_name": "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password must be at least 8", resp.Error)
}

func TestSignupDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.Auth.AllowSignup = false })

	rec, body := env.requestAs("", http.MethodPost, "/api/v1/auth/signup", map[string]string{"email": "a@b.test", "password": "password123", "full_name": "A"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Signup is disabled", body.Error)
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.RateLimit.LoginRPS = 0.001
		c.RateLimit.LoginBurst = 1
	})

	// newTestEnv already spent the only token on the admin login
	rec, body := env.requestAs("", http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "admin@rentdesk.test", "password": "password123"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "Too many requests, try again later", body.Error)
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.request(http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cleared := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared[c.Name] = true
		}
	}
	assert.True(t, cleared["access_token"])
	assert.True(t, cleared["refresh_token"])
}

func TestNotFoundIsJSON(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.request(http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "Not found", body.Error)
}

func TestUsersRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("staff@rentdesk.test", "password123", models.RoleStaff)
	staffToken := env.login("staff@rentdesk.test", "password123")

	rec, body := env.requestAs(staffToken, http.MethodGet, "/api/v1/users", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin role required", body.Error)

	rec, body = env.request(http.MethodGet, "/api/v1/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body.Pagination.Total)
}

func TestAdminManagesUsers(t *testing.T) {
	env := newTestEnv(t)

	var user models.User
	env.create("/api/v1/users", map[string]interface{}{
		"email": "Clerk@RentDesk.test", "password": "password123", "full_name": "Clerk", "is_active": false,
	}, &user)
	assert.Equal(t, "clerk@rentdesk.test", user.Email)
	assert.Equal(t, models.RoleStaff, user.Role)
	assert.False(t, user.IsActive)

	rec, body := env.request(http.MethodPost, "/api/v1/users", map[string]interface{}{
		"email": "clerk@rentdesk.test", "password": "password123", "full_name": "Clerk",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User with this email already exists", body.Error)

	rec, _ = env.request(http.MethodPut, "/api/v1/users/"+user.ID, map[string]interface{}{
		"full_name": "Head Clerk", "role": "admin", "is_active": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.request(http.MethodDelete, "/api/v1/users/"+user.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.request(http.MethodGet, "/api/v1/users/"+user.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletedUserEmailCanBeReused(t *testing.T) {
	env := newTestEnv(t)

	var user models.User
	env.create("/api/v1/users", map[string]interface{}{
		"email": "clerk@rentdesk.test", "password": "password123", "full_name": "Clerk",
	}, &user)
	env.login("clerk@rentdesk.test", "password123")

	rec, body := env.request(http.MethodDelete, "/api/v1/users/"+user.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, body.Error)

	var again models.User
	env.create("/api/v1/users", map[string]interface{}{
		"email": "clerk@rentdesk.test", "password": "password456", "full_name": "New Clerk",
	}, &again)
	assert.NotEqual(t, user.ID, again.ID)
	assert.Equal(t, "New Clerk", again.FullName)
	env.login("clerk@rentdesk.test", "password456")

	var tokens int64
	require.NoError(t, env.repo.DB().Unscoped().Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Count(&tokens).Error)
	assert.Zero(t, tokens)
}
