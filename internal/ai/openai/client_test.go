package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"shopassist/pkg/aiinterface"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(&aiinterface.ClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Model:   "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestChatCompletionMapsToolsAndToolCalls(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "get_product_details", "arguments": "{\"product_id\": 7}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	})

	resp, err := client.ChatCompletion(context.Background(), &aiinterface.ChatCompletionRequest{
		Messages: []aiinterface.Message{
			{Role: aiinterface.RoleSystem, Content: "sys"},
			{Role: aiinterface.RoleUser, Content: "Tell me about product 7"},
		},
		Tools: []aiinterface.Tool{{
			Type: "function",
			Function: aiinterface.FunctionDef{
				Name:        "get_product_details",
				Description: "details",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{"product_id": map[string]any{"type": "integer"}},
					"required":   []string{"product_id"},
				},
			},
		}},
		ToolChoice: "auto",
	})
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.ID != "call_1" || call.Function.Name != "get_product_details" || call.Function.Arguments != `{"product_id": 7}` {
		t.Fatalf("unexpected tool call: %+v", call)
	}
	if resp.Usage.TotalTokens != 17 || resp.FinishReason != "tool_calls" {
		t.Fatalf("unexpected usage/finish: %+v %s", resp.Usage, resp.FinishReason)
	}

	tools, ok := captured["tools"].([]any)
	if !ok || len(tools) != 1 {
		t.Fatalf("expected tools in request, got %v", captured["tools"])
	}
	if captured["tool_choice"] != "auto" {
		t.Fatalf("expected tool_choice auto, got %v", captured["tool_choice"])
	}
	if captured["model"] != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %v", captured["model"])
	}
}

func TestChatCompletionSendsToolMessages(t *testing.T) {
	var captured struct {
		Messages []map[string]any `json:"messages"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"id":"2","model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Done"}}]}`))
	})

	_, err := client.ChatCompletion(context.Background(), &aiinterface.ChatCompletionRequest{
		Messages: []aiinterface.Message{
			{Role: aiinterface.RoleUser, Content: "hi"},
			{Role: aiinterface.RoleAssistant, ToolCalls: []aiinterface.ToolCall{{
				ID: "call_1", Type: "function",
				Function: aiinterface.FunctionCall{Name: "get_categories", Arguments: "{}"},
			}}},
			{Role: aiinterface.RoleTool, Name: "get_categories", ToolCallID: "call_1", Content: `[]`},
		},
	})
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if len(captured.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[2]["tool_call_id"] != "call_1" {
		t.Fatalf("tool message lost tool_call_id: %v", captured.Messages[2])
	}
	if _, ok := captured.Messages[1]["tool_calls"]; !ok {
		t.Fatalf("assistant message lost tool_calls: %v", captured.Messages[1])
	}
}

func TestChatCompletionClassifiesErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	})

	_, err := client.ChatCompletion(context.Background(), &aiinterface.ChatCompletionRequest{
		Messages: []aiinterface.Message{{Role: aiinterface.RoleUser, Content: "hi"}},
	})
	var ce *aiinterface.ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if ce.Type != aiinterface.ErrorTypeRateLimit || !ce.IsRetryable() {
		t.Fatalf("expected retryable rate_limit, got %s", ce.Type)
	}
}

func TestChatCompletionEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"3","model":"m","choices":[]}`))
	})

	_, err := client.ChatCompletion(context.Background(), &aiinterface.ChatCompletionRequest{
		Messages: []aiinterface.Message{{Role: aiinterface.RoleUser, Content: "hi"}},
	})
	var ce *aiinterface.ClientError
	if !errors.As(err, &ce) || ce.Type != aiinterface.ErrorTypeEmpty {
		t.Fatalf("expected empty response error, got %v", err)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(&aiinterface.ClientConfig{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
