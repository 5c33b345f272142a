package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/testhelpers"
)

// mockAuthService is a mock implementation of AuthService for testing.
type mockAuthService struct {
	claims      *Claims
	token       string
	validateErr error
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	if m.validateErr != nil {
		return nil, "", m.validateErr
	}
	return m.claims, m.token, nil
}

func TestMiddleware_RequireAuth_Success(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "gerencia"}}
	middleware := NewMiddleware(&mockAuthService{claims: claims, token: "test-token"}, zap.NewNop())

	var ctxToken, userID string
	handler := middleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		ctxToken, _ = GetToken(r.Context())
		userID = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ctxToken != "test-token" {
		t.Errorf("expected token 'test-token' in context, got %q", ctxToken)
	}
	if userID != "gerencia" {
		t.Errorf("expected user 'gerencia' in context, got %q", userID)
	}
}

func TestMiddleware_RequireAuth_Unauthorized(t *testing.T) {
	middleware := NewMiddleware(&mockAuthService{validateErr: ErrMissingAuthorization}, zap.NewNop())

	called := false
	handler := middleware.RequireAuthHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))

	if called {
		t.Error("handler must not run without authentication")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate header")
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "unauthorized" {
		t.Errorf("expected error 'unauthorized', got %q", body["error"])
	}
}

func TestGetUserIDFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetUserIDFromContext(req.Context()); got != "" {
		t.Errorf("expected no user without claims, got %q", got)
	}
}

func TestMiddleware_EndToEnd(t *testing.T) {
	tests := []struct {
		name   string
		config *JWKSConfig
		header string
		want   int
	}{
		{
			name:   "unsigned token in development mode",
			config: &JWKSConfig{EnableVerification: false},
			header: testhelpers.GenerateTestJWTWithBearer("recepcion"),
			want:   http.StatusOK,
		},
		{
			name:   "unsigned token rejected when verifying",
			config: &JWKSConfig{EnableVerification: true, Secret: "clinic-secret"},
			header: testhelpers.GenerateTestJWTWithBearer("recepcion"),
			want:   http.StatusUnauthorized,
		},
		{
			name:   "signed token accepted",
			config: &JWKSConfig{EnableVerification: true, Secret: "clinic-secret"},
			header: "Bearer " + testhelpers.GenerateSignedJWT("recepcion", "clinic-secret", time.Minute),
			want:   http.StatusOK,
		},
		{
			name:   "token signed with another secret",
			config: &JWKSConfig{EnableVerification: true, Secret: "clinic-secret"},
			header: "Bearer " + testhelpers.GenerateSignedJWT("recepcion", "other-secret", time.Minute),
			want:   http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewJWKSClient(tt.config)
			if err != nil {
				t.Fatalf("NewJWKSClient: %v", err)
			}
			middleware := NewMiddleware(NewAuthService(client, zap.NewNop()), zap.NewNop())

			var userID string
			handler := middleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
				userID = GetUserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && userID != "recepcion" {
				t.Errorf("user = %q, want %q", userID, "recepcion")
			}
		})
	}
}
