package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/luxbag-api/internal/dto"
	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/repository"
	"github.com/flicky/luxbag-api/internal/service"
)

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func init() {
	gin.SetMode(gin.TestMode)
}

type authFixture struct {
	router *gin.Engine
	users  repository.UserRepository
	auth   *service.AuthService
}

func newAuthFixture() *authFixture {
	repos := repository.NewMemoryRepositories(repository.NewMemoryStore())
	auth := service.NewAuthService(repos.Users, "test-secret", time.Hour)

	r := gin.New()
	r.Use(RequestLogger(slogDiscard()), Recovery())
	protected := r.Group("/", AuthMiddleware(auth))
	protected.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c).String(), "role": GetUserRole(c)})
	})
	protected.GET("/admin", AdminOnly(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return &authFixture{router: r, users: repos.Users, auth: auth}
}

func (f *authFixture) register(t *testing.T, email string) (string, *model.User) {
	t.Helper()
	token, user, err := f.auth.Register(context.Background(), dto.RegisterRequest{Name: "N", Email: email, Password: "secret1"})
	require.NoError(t, err)
	return token, user
}

func (f *authFixture) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

func TestAuthMiddleware(t *testing.T) {
	f := newAuthFixture()
	token, user := f.register(t, "ava@example.com")

	w := f.do(http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Not authorized, no token", messageOf(t, w))

	w = f.do(http.MethodGet, "/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Not authorized, token failed", messageOf(t, w))

	w = f.do(http.MethodGet, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	require.NoError(t, f.users.Delete(context.Background(), user.ID))
	w = f.do(http.MethodGet, "/me", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "User not found", messageOf(t, w))
}

func TestAdminOnly(t *testing.T) {
	f := newAuthFixture()
	token, user := f.register(t, "user@example.com")

	w := f.do(http.MethodGet, "/admin", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Not authorized as admin", messageOf(t, w))

	// Promotion takes effect without a new token.
	user.Role = model.RoleAdmin
	require.NoError(t, f.users.Update(context.Background(), user))
	w = f.do(http.MethodGet, "/admin", token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery(t *testing.T) {
	f := newAuthFixture()
	w := f.do(http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server error", messageOf(t, w))
}

func TestRequestLoggerKeepsIncomingID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(slogDiscard()), Tracing(), Metrics())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}
