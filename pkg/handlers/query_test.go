package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

func newQueryMux(t *testing.T) (*http.ServeMux, *mockOrchestrator, string) {
	t.Helper()
	authMiddleware, token := newTestAuth(t, "recepcion")
	orch := &mockOrchestrator{}
	mux := http.NewServeMux()
	NewQueryHandler(orch, zap.NewNop()).RegisterRoutes(mux, authMiddleware)
	return mux, orch, token
}

func TestQueryHandler_Query(t *testing.T) {
	mux, orch, token := newQueryMux(t)

	rec := serve(mux, http.MethodPost, "/api/query", `{"text":"  ¿Cuántos pacientes hay?  ","persist":true}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool               `json:"success"`
		Data    models.QueryResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, models.QueryStatusSuccess, resp.Data.Status)

	assert.Equal(t, "¿Cuántos pacientes hay?", orch.last.Text)
	assert.True(t, orch.last.Validate, "validate defaults to true")
	assert.True(t, orch.last.Persist)
	assert.Equal(t, "recepcion", orch.last.RequestedBy)
}

func TestQueryHandler_ValidateFalse(t *testing.T) {
	mux, orch, token := newQueryMux(t)

	rec := serve(mux, http.MethodPost, "/api/query", `{"text":"citas de hoy","validate":false}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, orch.last.Validate)
}

func TestQueryHandler_RejectsBadInput(t *testing.T) {
	mux, orch, token := newQueryMux(t)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed", `{"text":`, "Invalid request body"},
		{"missing text", `{}`, "Question text is required"},
		{"blank text", `{"text":"   "}`, "Question text is required"},
		{"too long", `{"text":"` + strings.Repeat("a", 2001) + `"}`, "Question is too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, http.MethodPost, "/api/query", tt.body, token)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.message)
		})
	}
	assert.Zero(t, orch.calls)
}

func TestQueryHandler_RequiresAuth(t *testing.T) {
	mux, orch, _ := newQueryMux(t)

	rec := serve(mux, http.MethodPost, "/api/query", `{"text":"x"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(mux, http.MethodPost, "/api/query", `{"text":"x"}`, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, orch.calls)
}
