package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vidspark/vidspark/internal/models"
)

type stubVerifier struct {
	identity *models.Identity
	err      error
	token    string
}

func (s *stubVerifier) VerifyToken(tokenString string) (*models.Identity, error) {
	s.token = tokenString
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		verifier   *stubVerifier
		wantStatus int
	}{
		{
			name:       "missing header",
			header:     "",
			verifier:   &stubVerifier{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     "Basic dXNlcjpwYXNz",
			verifier:   &stubVerifier{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			header:     "Bearer bad",
			verifier:   &stubVerifier{err: errors.New("expired")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "valid token",
			header:     "Bearer good",
			verifier:   &stubVerifier{identity: &models.Identity{ID: "user-1", Email: "a@example.com"}},
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sawIdentity *models.Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				sawIdentity, _ = GetIdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			NewMiddleware(tt.verifier).RequireAuth(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if sawIdentity == nil || sawIdentity.ID != "user-1" {
					t.Errorf("identity in context = %+v, want user-1", sawIdentity)
				}
				if tt.verifier.token != "good" {
					t.Errorf("verified token = %q, want %q", tt.verifier.token, "good")
				}
			}
		})
	}
}
