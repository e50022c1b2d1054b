package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopassist/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWT() *JWTService {
	return NewJWTService(config.AuthConfig{
		JWTSecret:     "test-secret",
		Issuer:        "shopassist-test",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
	}, nil)
}

func TestTokenPairRoundTrip(t *testing.T) {
	svc := newTestJWT()
	ctx := context.Background()

	pair, err := svc.GenerateTokenPair(42, RolesFor(true, false))
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.EqualValues(t, 60, pair.ExpiresIn)

	claims, err := svc.ValidateToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.ElementsMatch(t, []string{RoleCustomer, RoleStaff}, claims.Roles)
	assert.Equal(t, "42", claims.Subject)

	refreshed, err := svc.RefreshTokenPair(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	// 访问令牌不能用于刷新
	_, err = svc.RefreshTokenPair(ctx, pair.AccessToken)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	other := NewJWTService(config.AuthConfig{JWTSecret: "other", Issuer: "shopassist-test"}, nil)
	pair, err := other.GenerateTokenPair(1, RolesFor(false, false))
	require.NoError(t, err)

	_, err = newTestJWT().ValidateToken(context.Background(), pair.AccessToken)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestInvalidateWithoutRedisIsNoop(t *testing.T) {
	svc := newTestJWT()
	pair, err := svc.GenerateTokenPair(7, RolesFor(false, false))
	require.NoError(t, err)

	require.NoError(t, svc.InvalidateToken(context.Background(), pair.AccessToken))
	assert.False(t, svc.IsTokenBlacklisted(context.Background(), pair.AccessToken))
}

func TestBcryptHasher(t *testing.T) {
	h := &BcryptHasher{Cost: 4}
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, h.Compare(hash, "correct horse"))
	assert.False(t, h.Compare(hash, "wrong horse"))
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestJWT()

	customer, err := svc.GenerateTokenPair(5, RolesFor(false, false))
	require.NoError(t, err)
	staff, err := svc.GenerateTokenPair(6, RolesFor(false, true))
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthMiddleware(svc), func(c *gin.Context) {
		u, _ := GetUserContext(c)
		fromStd, ok := GetUserContextFromStdContext(c.Request.Context())
		if !ok || fromStd.UserID != u.UserID {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"uid": u.UserID, "staff": u.IsStaff(), "limiter_key": c.GetString("user_id")})
	})
	r.GET("/admin", AuthMiddleware(svc), RequireRole(RoleStaff), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"无令牌", "/me", "", http.StatusUnauthorized},
		{"无效令牌", "/me", "Bearer garbage", http.StatusUnauthorized},
		{"刷新令牌", "/me", "Bearer " + customer.RefreshToken, http.StatusUnauthorized},
		{"访问令牌", "/me", "Bearer " + customer.AccessToken, http.StatusOK},
		{"顾客访问员工接口", "/admin", "Bearer " + customer.AccessToken, http.StatusForbidden},
		{"员工访问员工接口", "/admin", "Bearer " + staff.AccessToken, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestJWT()
	pair, err := svc.GenerateTokenPair(9, RolesFor(false, false))
	require.NoError(t, err)

	r := gin.New()
	r.GET("/open", OptionalAuthMiddleware(svc), func(c *gin.Context) {
		if _, ok := GetUserContext(c); ok {
			c.String(http.StatusOK, "user")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	for header, want := range map[string]string{
		"":                            "anonymous",
		"Bearer nope":                 "anonymous",
		"Bearer " + pair.AccessToken:  "user",
		"Bearer " + pair.RefreshToken: "anonymous",
	} {
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Body.String(), "header=%q", header)
	}
}
