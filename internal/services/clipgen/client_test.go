package clipgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipforge/internal/services"
)

func TestSubmitSendsJobAndReturnsID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode submit body: %v", err)
		}
		if body["shotId"] != "shot-1" || body["frameRate"].(float64) != 12 {
			t.Fatalf("submit payload wrong: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"jobId": "job-9"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	jobID, err := client.Submit(context.Background(), services.ClipJob{
		ShotID:    "shot-1",
		ImageURL:  "https://img/s1.png",
		FrameRate: 12,
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if jobID != "job-9" {
		t.Fatalf("unexpected job id %q", jobID)
	}
}

func TestSubmitRequiresImage(t *testing.T) {
	client := NewClient(Config{APIKey: "k", BaseURL: "http://localhost:0"})
	_, err := client.Submit(context.Background(), services.ClipJob{ShotID: "shot-1"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStatusMapsServiceStates(t *testing.T) {
	progress := 60
	cases := []struct {
		name     string
		response statusResponse
		wantDone bool
		wantErr  string
	}{
		{"running", statusResponse{Progress: &progress, Status: "running"}, false, ""},
		{"succeeded", statusResponse{Status: "Succeeded", ResultURL: "https://clips/ok.mp4"}, true, ""},
		{"failed with message", statusResponse{Status: "failed", Error: "oom"}, false, "oom"},
		{"failed without message", statusResponse{Status: "failed"}, false, "clip job failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/jobs/job-1" {
					t.Fatalf("unexpected path %s", r.URL.Path)
				}
				_ = json.NewEncoder(w).Encode(tc.response)
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
			status, err := client.Status(context.Background(), "job-1")
			if err != nil {
				t.Fatalf("Status returned error: %v", err)
			}
			if status.Done != tc.wantDone || status.Err != tc.wantErr {
				t.Fatalf("status mapped wrong: %+v", status)
			}
		})
	}
}

func TestStatusUnknownJobIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	if _, err := client.Status(context.Background(), "job-gone"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
