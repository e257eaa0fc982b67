package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stripe/stripe-go/v84"

	"github.com/vidspark/vidspark/internal/auth"
	"github.com/vidspark/vidspark/internal/generation"
	"github.com/vidspark/vidspark/internal/metrics"
	"github.com/vidspark/vidspark/internal/models"
)

type stubVerifier struct {
	identity *models.Identity
}

func (s *stubVerifier) VerifyToken(tokenString string) (*models.Identity, error) {
	if s.identity == nil {
		return nil, errors.New("invalid token")
	}
	return s.identity, nil
}

type stubBootstrapper struct {
	account *models.User
}

func (s *stubBootstrapper) BootstrapAccount(_ context.Context, identity models.Identity) (*models.User, error) {
	return s.account, nil
}

func testRouter(verifier auth.TokenVerifier) http.Handler {
	log := testLogger()
	m := metrics.New()
	accounts := NewAccountHandler(&stubAccountReader{balance: 1}, log)
	event := &stripe.Event{ID: "evt_ok", Type: "charge.refunded", Data: &stripe.EventData{Raw: []byte(`{}`)}}
	payments := NewPaymentsHandler(&stubBilling{event: event}, &stubGranter{}, log, m)
	generations := NewGenerationHandler(&stubGenerator{prediction: &generation.Prediction{ID: "pred-1"}}, log)
	bootstrapper := &stubBootstrapper{account: &models.User{ID: "user-1", Email: "a@example.com", Credits: 1}}
	return SetupRoutes(accounts, payments, generations, auth.NewMiddleware(verifier), bootstrapper, m, "http://localhost:3000", log)
}

func TestRouterRequiresBearerToken(t *testing.T) {
	router := testRouter(&stubVerifier{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRouterServesAuthenticatedProfile(t *testing.T) {
	router := testRouter(&stubVerifier{identity: &models.Identity{ID: "user-1", Email: "a@example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var account models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &account); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if account.ID != "user-1" || account.Credits != 1 {
		t.Errorf("account = %+v, want user-1 with 1 credit", account)
	}
}

func TestRouterPublicEndpoints(t *testing.T) {
	router := testRouter(&stubVerifier{})

	for _, path := range []string{"/healthz", "/metrics", "/api/v1/packs"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestRouterWebhookSkipsAuth(t *testing.T) {
	router := testRouter(&stubVerifier{})

	// No bearer token. stubBilling accepts every signature, so a 401
	// here would mean the auth chain intercepted the request.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stripe/webhook", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
