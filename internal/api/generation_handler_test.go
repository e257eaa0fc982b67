package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vidspark/vidspark/internal/generation"
	"github.com/vidspark/vidspark/internal/ledger"
	"github.com/vidspark/vidspark/internal/user"
)

type stubGenerator struct {
	prediction *generation.Prediction
	submitErr  error
	submits    int
}

func (s *stubGenerator) Stylize(_ context.Context, req generation.StylizeRequest) (*generation.Prediction, error) {
	return s.prediction, nil
}

func (s *stubGenerator) SubmitVideo(_ context.Context, userID string, req generation.VideoRequest) (*generation.Prediction, error) {
	s.submits++
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return s.prediction, nil
}

func (s *stubGenerator) Status(_ context.Context, predictionID string) (*generation.Prediction, error) {
	return s.prediction, nil
}

func videoRequest(t *testing.T, body map[string]any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations/video", bytes.NewReader(raw))
	return req.WithContext(user.WithAccount(req.Context(), testAccount()))
}

func TestSubmitVideoPaymentRequired(t *testing.T) {
	gen := &stubGenerator{submitErr: ledger.ErrInsufficientCredits}
	h := NewGenerationHandler(gen, testLogger())

	rec := httptest.NewRecorder()
	h.SubmitVideo(rec, videoRequest(t, map[string]any{
		"prompt":    "gentle zoom",
		"image_url": "https://example.com/a.jpg",
	}))

	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error != "Not enough credits" {
		t.Errorf("error = %q, want %q", resp.Error, "Not enough credits")
	}
}

func TestSubmitVideoValidatesRequest(t *testing.T) {
	gen := &stubGenerator{prediction: &generation.Prediction{ID: "pred-1"}}
	h := NewGenerationHandler(gen, testLogger())

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "missing prompt", body: map[string]any{"image_url": "https://example.com/a.jpg"}},
		{name: "missing image", body: map[string]any{"prompt": "gentle zoom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.SubmitVideo(rec, videoRequest(t, tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
	if gen.submits != 0 {
		t.Errorf("submits = %d, want 0", gen.submits)
	}
}

func TestSubmitVideoReturnsPrediction(t *testing.T) {
	gen := &stubGenerator{prediction: &generation.Prediction{ID: "pred-1", Status: "starting"}}
	h := NewGenerationHandler(gen, testLogger())

	rec := httptest.NewRecorder()
	h.SubmitVideo(rec, videoRequest(t, map[string]any{
		"prompt":    "gentle zoom",
		"image_url": "https://example.com/a.jpg",
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp generation.Prediction
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ID != "pred-1" {
		t.Errorf("prediction id = %q, want pred-1", resp.ID)
	}
}

func TestStylizeRequiresImageURL(t *testing.T) {
	h := NewGenerationHandler(&stubGenerator{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations/stylize", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	h.Stylize(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
