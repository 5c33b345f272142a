package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
)

// ErrorResponse is a structured error returned as a tool result, so the
// calling model sees the reason instead of a protocol failure.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use it for errors the caller can act on (bad arguments, missing records,
// a rejected question). System failures are returned as Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	jsonBytes, _ := json.Marshal(ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	})
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// errorResult turns actionable service errors into tool results and passes
// everything else through as a Go error.
func errorResult(err error, action string) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return NewErrorResult("invalid_input", err.Error()), nil
	case errors.Is(err, apperrors.ErrNotFound):
		return NewErrorResult("not_found", err.Error()), nil
	default:
		return nil, fmt.Errorf("failed to %s: %w", action, err)
	}
}

// jsonResult marshals v as the tool's text content.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
