package scriptgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	payload := map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
		"usage": map[string]any{
			"prompt_tokens":     100,
			"completion_tokens": 40,
			"total_tokens":      140,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode completion: %v", err)
	}
	return data
}

func TestCompleteJSONReturnsContentAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		_, _ = w.Write(completionBody(t, `{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Model: "demo"})
	content, usage, err := client.completeJSON(context.Background(), "analysis", "system", "user")
	if err != nil {
		t.Fatalf("completeJSON returned error: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("unexpected content %q", content)
	}
	delta, ok := usage["analysis"].(map[string]any)
	if !ok {
		t.Fatalf("usage not keyed by operation: %v", usage)
	}
	if delta["requests"] != 1 || delta["totalTokens"] != int64(140) {
		t.Fatalf("usage delta wrong: %v", delta)
	}
}

func TestCompleteJSONRetriesRateLimit(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(completionBody(t, `{"ok":true}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "demo"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	if _, _, err := client.completeJSON(context.Background(), "analysis", "s", "u"); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected Retry-After honored, slept %v", slept)
	}
}

func TestCompleteJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"},
		WithSleeper(func(time.Duration) {}))
	if _, _, err := client.completeJSON(context.Background(), "analysis", "s", "u"); err == nil {
		t.Fatal("expected failure")
	}
	if calls.Load() != 1 {
		t.Fatalf("401 must not be retried, got %d attempts", calls.Load())
	}
}

func TestCompleteJSONRetriesEmptyContent(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write(completionBody(t, ""))
			return
		}
		_, _ = w.Write(completionBody(t, `{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "demo"},
		WithSleeper(func(time.Duration) {}))
	content, _, err := client.completeJSON(context.Background(), "analysis", "s", "u")
	if err != nil {
		t.Fatalf("expected empty content to retry, got %v", err)
	}
	if content == "" {
		t.Fatal("expected recovered content")
	}
}

func TestCompleteJSONRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:0", Model: "demo"})
	if _, _, err := client.completeJSON(context.Background(), "analysis", "s", "u"); err == nil {
		t.Fatal("expected api key error")
	}
}

func TestDecodeModelJSON(t *testing.T) {
	type target struct {
		OK bool `json:"ok"`
	}
	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain json", `{"ok":true}`, false},
		{"fenced json", "```json\n{\"ok\":true}\n```", false},
		{"bare fence", "```\n{\"ok\":true}\n```", false},
		{"prose around payload", "Here you go:\n{\"ok\":true}\nHope that helps!", false},
		{"empty", "   ", true},
		{"no json at all", "sorry, I cannot", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out target
			err := DecodeModelJSON(tc.content, &out)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected decode error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if !out.OK {
				t.Fatalf("payload not decoded from %q", tc.content)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("seconds form: got %v, %v", d, ok)
	}
	if _, ok := parseRetryAfter("-2"); ok {
		t.Fatal("negative seconds must be rejected")
	}
	if _, ok := parseRetryAfter(""); ok {
		t.Fatal("empty header must be rejected")
	}
	if _, ok := parseRetryAfter("garbage"); ok {
		t.Fatal("unparseable header must be rejected")
	}
}
