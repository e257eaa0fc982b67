package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestCreatePrediction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/luma/ray-flash-2-720p/predictions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("authorization = %q", got)
		}

		var body struct {
			Input map[string]any `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Input["prompt"] != "gentle zoom" {
			t.Errorf("input prompt = %v", body.Input["prompt"])
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Prediction{ID: "pred-1", Status: "starting"})
	}))
	defer server.Close()

	client := NewClient("token-1", server.URL)
	prediction, err := client.CreatePrediction(context.Background(), videoModel, map[string]any{"prompt": "gentle zoom"})
	if err != nil {
		t.Fatalf("CreatePrediction: %v", err)
	}
	if prediction.ID != "pred-1" || prediction.Status != "starting" {
		t.Errorf("prediction = %+v", prediction)
	}
}

func TestCreatePredictionAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid input"}`, http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("token-1", server.URL)
	if _, err := client.CreatePrediction(context.Background(), videoModel, nil); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestWaitForPredictionPollsUntilTerminal(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "processing"
		if polls.Add(1) >= 2 {
			status = "succeeded"
		}
		json.NewEncoder(w).Encode(Prediction{ID: "pred-1", Status: status})
	}))
	defer server.Close()

	client := NewClient("token-1", server.URL)
	prediction, err := client.WaitForPrediction(context.Background(), &Prediction{ID: "pred-1", Status: "starting"})
	if err != nil {
		t.Fatalf("WaitForPrediction: %v", err)
	}
	if prediction.Status != "succeeded" {
		t.Errorf("status = %q, want succeeded", prediction.Status)
	}
	if polls.Load() < 2 {
		t.Errorf("polls = %d, want at least 2", polls.Load())
	}
}

func TestWaitForPredictionRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Prediction{ID: "pred-1", Status: "processing"})
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	client := NewClient("token-1", server.URL)
	_, err := client.WaitForPrediction(ctx, &Prediction{ID: "pred-1", Status: "processing"})
	if err == nil {
		t.Fatal("expected context error")
	}
}
