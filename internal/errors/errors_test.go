package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", InvalidRequestWithError(fmt.Errorf("bad multipart")), http.StatusBadRequest, CodeInvalidRequest},
		{"validation", ErrValidation("month", "must be 1-12"), http.StatusBadRequest, CodeValidationFailed},
		{"not loaded", DatasetNotLoaded("availability"), http.StatusNotFound, CodeDatasetNotLoaded},
		{"unknown kind", UnknownKind("weather"), http.StatusBadRequest, CodeUnknownKind},
		{"upload rejected", UploadRejected("x.csv", nil), http.StatusUnprocessableEntity, CodeUploadRejected},
		{"too large", PayloadTooLarge(10), http.StatusRequestEntityTooLarge, CodePayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestAPIErrorUnwrapsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("view: %w", DatasetNotLoaded("alarms"))

	var apiErr *APIError
	require.True(t, stderrors.As(wrapped, &apiErr))
	assert.Equal(t, CodeDatasetNotLoaded, apiErr.ErrorCode)
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "limit", Message: "must be at least 10"},
		{Field: "chart", Message: "must be one of line bar area"},
	})

	details, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, details.Errors, 2)
	assert.Equal(t, "limit", details.Errors[0].Field)
}

func TestProblemDetailsMarshalFlattensExtensions(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/x").
		WithExtension("trace_id", "abc").
		WithExtension("status", 999)

	raw, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "abc", body["trace_id"])
	assert.Equal(t, float64(http.StatusNotFound), body["status"], "standard members win")
	assert.NotContains(t, body, "detail")
}
