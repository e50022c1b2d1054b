package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopassist/internal/auth"
	"shopassist/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Mode: gin.TestMode},
		Database: config.DatabaseConfig{Driver: "sqlite", AutoMigrate: true},
		AI: config.AIConfig{
			Provider: "openai",
			OpenAI:   config.OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini"},
		},
		Assistant: config.AssistantConfig{
			MaxRounds:      3,
			ModelTimeout:   time.Second,
			ToolTimeout:    time.Second,
			Retry:          config.RetryConfig{MaxAttempts: 1},
			SessionTTL:     time.Hour,
			CatalogBaseURL: "http://127.0.0.1:1/api",
		},
		Auth: config.AuthConfig{JWTSecret: "router-secret", Issuer: "shopassist-test"},
	}
}

func setupTestRouter(t *testing.T) (*gin.Engine, *AppContainer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	router, container, err := SetupRouter(context.Background(), db, testConfig())
	require.NoError(t, err)
	t.Cleanup(container.Close)
	return router, container
}

func call(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r http.Handler, email, password string) string {
	t.Helper()
	w := call(r, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	return pair.AccessToken
}

func TestSystemEndpoints(t *testing.T) {
	r, container := setupTestRouter(t)
	assert.Nil(t, container.WorkerServer)
	assert.Nil(t, container.KnowledgeService)

	w := call(r, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"connected"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = call(r, http.MethodOptions, "/api/products/", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	// 未启用知识库时不注册相关路由
	w = call(r, http.MethodGet, "/api/knowledge/search?q=returns", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStaffOnlyCatalogWrites(t *testing.T) {
	r, container := setupTestRouter(t)
	ctx := context.Background()

	w := call(r, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "shopper@example.com", "password": "shopper-pass",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	shopper := login(t, r, "shopper@example.com", "shopper-pass")

	category := map[string]string{"name": "Outerwear"}
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, "/api/categories/", category, "").Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/api/categories/", category, shopper).Code)

	_, err := container.UserService.EnsureStaff(ctx, "staff@example.com", "Store Staff", "staff-pass-1")
	require.NoError(t, err)
	staff := login(t, r, "staff@example.com", "staff-pass-1")

	w = call(r, http.MethodPost, "/api/categories/", category, staff)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(r, http.MethodGet, "/api/categories/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "outerwear")

	w = call(r, http.MethodGet, "/api/orders", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = call(r, http.MethodGet, "/api/orders", nil, shopper)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChatRouteValidation(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := call(r, http.MethodPost, "/chat", map[string]string{"message": ""}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error": "Message is required"}`, w.Body.String())

	w = call(r, http.MethodGet, "/chat/sessions/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
