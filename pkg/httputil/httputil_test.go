package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewClient 测试创建基础客户端
func TestNewClient(t *testing.T) {
	client := NewClient()
	if client.timeout != 30*time.Second {
		t.Errorf("默认超时时间应为30秒，实际为 %v", client.timeout)
	}
	if client.headers["User-Agent"] != "ShopAssist/1.0" {
		t.Errorf("默认User-Agent不正确: %s", client.headers["User-Agent"])
	}

	custom := NewClient(
		WithTimeout(10*time.Second),
		WithHeaders(map[string]string{"X-Custom": "value"}),
		WithRetries(3),
	)
	if custom.timeout != 10*time.Second {
		t.Errorf("自定义超时时间应为10秒，实际为 %v", custom.timeout)
	}
	if custom.headers["X-Custom"] != "value" {
		t.Errorf("自定义头未设置")
	}
	if custom.retries != 3 {
		t.Errorf("重试次数应为3，实际为 %d", custom.retries)
	}
}

// TestClientGetJSON 测试GetJSON方法
func TestClientGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("期望GET请求，实际为 %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	var result map[string]string
	if err := NewClient().GetJSON(context.Background(), server.URL, &result); err != nil {
		t.Fatalf("GetJSON失败: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("响应内容不正确: %v", result)
	}
}

// TestClientGetJSONStatusError 非200返回 StatusError
func TestClientGetJSONStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Not found."}`, http.StatusNotFound)
	}))
	defer server.Close()

	var result map[string]any
	err := NewClient(WithRetries(2)).GetJSON(context.Background(), server.URL, &result)
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("期望404 StatusError，实际为 %v", err)
	}
}

// TestClientRetriesServerErrors 5xx 重试，4xx 不重试
func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(WithRetries(1), WithBackoff(time.Millisecond))
	var result map[string]bool
	if err := client.GetJSON(context.Background(), server.URL, &result); err != nil {
		t.Fatalf("重试后应成功: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("期望请求2次，实际为 %d", calls.Load())
	}
}

// TestClientRetryRespectsContext 重试等待期间取消上下文立即返回
func TestClientRetryRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(WithRetries(5), WithBackoff(time.Second))
	start := time.Now()
	var result map[string]any
	if err := client.GetJSON(ctx, server.URL, &result); err == nil {
		t.Fatal("期望返回错误")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("取消后应尽快返回，耗时 %v", time.Since(start))
	}
}

// TestClientPostJSON 测试PostJSON方法
func TestClientPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type不正确: %s", ct)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": body["name"]})
	}))
	defer server.Close()

	var result map[string]string
	if err := NewClient(WithRetries(1)).PostJSON(context.Background(), server.URL, map[string]string{"name": "shirt"}, &result); err != nil {
		t.Fatalf("PostJSON失败: %v", err)
	}
	if result["echo"] != "shirt" {
		t.Errorf("响应内容不正确: %v", result)
	}
}

// TestCachedClientGetJSON 测试缓存命中与过期
func TestCachedClientGetJSON(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode([]map[string]string{{"slug": "shirts"}})
	}))
	defer server.Close()

	var hits, misses int
	cc := NewCachedClient(NewClient(),
		WithCacheTTL(50*time.Millisecond),
		WithCacheHooks(func() { hits++ }, func() { misses++ }),
	)

	for i := 0; i < 3; i++ {
		var result []map[string]string
		if err := cc.GetJSON(context.Background(), server.URL, &result); err != nil {
			t.Fatalf("GetJSON失败: %v", err)
		}
		if len(result) != 1 || result[0]["slug"] != "shirts" {
			t.Fatalf("响应内容不正确: %v", result)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("缓存期内应只请求1次，实际为 %d", calls.Load())
	}
	if hits != 2 || misses != 1 {
		t.Errorf("命中统计不正确: hits=%d misses=%d", hits, misses)
	}

	time.Sleep(60 * time.Millisecond)
	var result []map[string]string
	_ = cc.GetJSON(context.Background(), server.URL, &result)
	if calls.Load() != 2 {
		t.Errorf("过期后应重新请求，实际请求次数 %d", calls.Load())
	}

	cc.Invalidate()
	_ = cc.GetJSON(context.Background(), server.URL, &result)
	if calls.Load() != 3 {
		t.Errorf("清空后应重新请求，实际请求次数 %d", calls.Load())
	}
}

// TestCachedClientSkipsErrors 错误响应不缓存
func TestCachedClientSkipsErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cc := NewCachedClient(NewClient())
	var result any
	_ = cc.GetJSON(context.Background(), server.URL, &result)
	_ = cc.GetJSON(context.Background(), server.URL, &result)
	if calls.Load() != 2 {
		t.Errorf("错误响应不应缓存，实际请求次数 %d", calls.Load())
	}
}
