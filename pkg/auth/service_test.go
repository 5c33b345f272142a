package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// mockValidator is a mock TokenValidator for testing.
type mockValidator struct {
	claims *Claims
	err    error
	seen   string
}

func (m *mockValidator) ValidateToken(tokenString string) (*Claims, error) {
	m.seen = tokenString
	if m.err != nil {
		return nil, m.err
	}
	return m.claims, nil
}

func (m *mockValidator) Close() {}

func TestAuthService_ValidateRequest_Bearer(t *testing.T) {
	validator := &mockValidator{claims: &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "recepcion"}}}
	svc := NewAuthService(validator, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")

	claims, token, err := svc.ValidateRequest(req)
	if err != nil {
		t.Fatalf("ValidateRequest failed: %v", err)
	}
	if token != "abc.def.ghi" || validator.seen != "abc.def.ghi" {
		t.Errorf("expected token to be passed through, got %q", token)
	}
	if claims.Subject != "recepcion" {
		t.Errorf("expected subject 'recepcion', got %q", claims.Subject)
	}
}

func TestAuthService_ValidateRequest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		valid   *mockValidator
		wantErr error
	}{
		{"missing header", "", &mockValidator{}, ErrMissingAuthorization},
		{"wrong scheme", "Basic dXNlcjpwYXNz", &mockValidator{}, ErrInvalidAuthFormat},
		{"extra parts", "Bearer a b", &mockValidator{}, ErrInvalidAuthFormat},
		{"empty subject", "Bearer tok", &mockValidator{claims: &Claims{}}, ErrMissingSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAuthService(tt.valid, zap.NewNop())
			req := httptest.NewRequest(http.MethodGet, "/api/query", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			_, _, err := svc.ValidateRequest(req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAuthService_ValidateRequest_ValidatorError(t *testing.T) {
	boom := errors.New("token validation failed: expired")
	svc := NewAuthService(&mockValidator{err: boom}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/query", nil)
	req.Header.Set("Authorization", "Bearer tok")

	if _, _, err := svc.ValidateRequest(req); !errors.Is(err, boom) {
		t.Errorf("expected validator error, got %v", err)
	}
}
