package push

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu          sync.Mutex
	completions [][3]string
}

func (s *recordingSink) HandlePushCompletion(jobID, shotID, resultURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions = append(s.completions, [3]string{jobID, shotID, resultURL})
}

func (s *recordingSink) all() [][3]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][3]string(nil), s.completions...)
}

func startTestServer(t *testing.T, sink CompletionSink) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", sink, nil)
	if err := server.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

func TestCompletionCallbackForwardsToSink(t *testing.T) {
	sink := &recordingSink{}
	server := startTestServer(t, sink)

	resp, err := http.Post("http://"+server.Addr()+"/v1/clips/complete", "application/json",
		bytes.NewReader([]byte(`{"job_id": "job-7", "result_url": "https://clips.example/out.mp4"}`)))
	if err != nil {
		t.Fatalf("post completion: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	got := sink.all()
	if len(got) != 1 || got[0] != [3]string{"job-7", "", "https://clips.example/out.mp4"} {
		t.Fatalf("sink received %v", got)
	}
}

func TestCompletionCallbackAcceptsShotID(t *testing.T) {
	sink := &recordingSink{}
	server := startTestServer(t, sink)

	resp, err := http.Post("http://"+server.Addr()+"/v1/clips/complete", "application/json",
		bytes.NewReader([]byte(`{"shot_id": "shot-3", "result_url": "https://clips.example/out.mp4"}`)))
	if err != nil {
		t.Fatalf("post completion: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 for shot-addressed completion, got %d", resp.StatusCode)
	}

	got := sink.all()
	if len(got) != 1 || got[0] != [3]string{"", "shot-3", "https://clips.example/out.mp4"} {
		t.Fatalf("sink received %v", got)
	}
}

func TestCompletionCallbackRejectsBadPayloads(t *testing.T) {
	sink := &recordingSink{}
	server := startTestServer(t, sink)
	url := "http://" + server.Addr() + "/v1/clips/complete"

	cases := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"missing both ids", `{"result_url": "https://x"}`},
		{"missing result url", `{"job_id": "job-1"}`},
		{"blank values", `{"job_id": "  ", "shot_id": "", "result_url": " "}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(tc.body)))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
	if len(sink.all()) != 0 {
		t.Fatalf("bad payloads must not reach the sink: %v", sink.all())
	}
}

func TestCompletionCallbackMethodRouting(t *testing.T) {
	server := startTestServer(t, &recordingSink{})

	resp, err := http.Get("http://" + server.Addr() + "/v1/clips/complete")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", resp.StatusCode)
	}

	health, err := http.Get("http://" + server.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 from healthz, got %d", health.StatusCode)
	}
}
