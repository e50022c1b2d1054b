package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"shopassist/internal/logger"

	"github.com/gin-gonic/gin"
)

func TestRequestIDMiddlewareGeneratesAndPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		if GetRequestID(c.Request.Context()) == "" {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if logger.GetTraceID(c.Request.Context()) == "" {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if resp.Header().Get(HeaderRequestID) == "" {
		t.Fatalf("expected %s header", HeaderRequestID)
	}
	if resp.Header().Get(HeaderTraceID) != resp.Header().Get(HeaderRequestID) {
		t.Fatalf("trace id should default to request id")
	}
}

func TestRequestIDMiddlewareKeepsUpstreamHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, logger.GetTraceID(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	req.Header.Set(HeaderTraceID, "trace-1")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if got := resp.Header().Get(HeaderRequestID); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if resp.Body.String() != "trace-1" {
		t.Fatalf("expected trace-1 in context, got %q", resp.Body.String())
	}
}

func TestRateLimitMiddlewareRejectsBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(&RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 2})
	defer limiter.Stop()

	r := gin.New()
	r.Use(RateLimitMiddleware(limiter))
	r.POST("/chat", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("expected first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %d", codes[2])
	}

	// 不同客户端互不影响
	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", resp.Code)
	}
	if limiter.ActiveClients() != 2 {
		t.Fatalf("expected 2 tracked clients, got %d", limiter.ActiveClients())
	}
}
