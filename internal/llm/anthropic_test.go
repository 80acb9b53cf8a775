package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func anthropicReply(w http.ResponseWriter, content []map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":            "msg_1",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-3-5-haiku-latest",
		"content":       content,
		"stop_reason":   "end_turn",
		"stop_sequence": "",
		"usage": map[string]any{
			"input_tokens":  10,
			"output_tokens": 2,
		},
	})
}

func TestAnthropicCompleteSeparatesSystemPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}

		var req struct {
			Model       string   `json:"model"`
			MaxTokens   int64    `json:"max_tokens"`
			Temperature *float64 `json:"temperature"`
			System      []struct {
				Text string `json:"text"`
			} `json:"system"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.MaxTokens != 8192 {
			t.Fatalf("expected max_tokens 8192, got %d", req.MaxTokens)
		}
		if req.Temperature == nil || *req.Temperature != 0.5 {
			t.Fatalf("expected temperature 0.5, got %v", req.Temperature)
		}
		if len(req.System) != 2 || req.System[1].Text != "Candidate resume summary: none." {
			t.Fatalf("expected both system prompts in system field, got %#v", req.System)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "user" || req.Messages[1].Role != "assistant" {
			t.Fatalf("unexpected chat roles: %#v", req.Messages)
		}

		anthropicReply(w, []map[string]any{
			{"type": "text", "text": " hello "},
			{"type": "text", "text": "world"},
		})
	}))
	defer server.Close()

	opts := &clientOptions{baseURL: server.URL, maxTokens: 8192}
	WithTemperature(0.5)(opts)
	client, err := newAnthropicClient("test-key", "claude-3-5-haiku-latest", opts)
	if err != nil {
		t.Fatalf("newAnthropicClient failed: %v", err)
	}

	got, err := client.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "be concise"},
		{Role: RoleSystem, Content: "Candidate resume summary: none."},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("expected combined trimmed text, got %q", got)
	}
}

func TestAnthropic_Complete_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		anthropicReply(w, []map[string]any{})
	}))
	defer server.Close()

	client, err := newAnthropicClient("test-key", "claude-3-5-haiku-latest", &clientOptions{baseURL: server.URL})
	if err != nil {
		t.Fatalf("newAnthropicClient failed: %v", err)
	}

	_, err = client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
	if err == nil {
		t.Fatal("expected error for empty content, got nil")
	}
	if !strings.Contains(err.Error(), "empty response") {
		t.Fatalf("expected 'empty response' in error, got %q", err.Error())
	}
}
