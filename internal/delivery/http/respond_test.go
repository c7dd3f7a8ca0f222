package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OverseedAI/tubeplanner/internal/model"
)

func TestRespondServiceError_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	respondServiceError(rec, model.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRespondServiceError_APIKeyMissingIsStructured(t *testing.T) {
	rec := httptest.NewRecorder()
	respondServiceError(rec, fmt.Errorf("wrapped: %w", model.ErrAPIKeyMissing))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// Клиент различает эту ошибку по коду и предлагает ввести ключ
	assert.Equal(t, "api_key_missing", body["code"])
	assert.NotEmpty(t, body["error"])
}

func TestRespondServiceError_InvalidSection(t *testing.T) {
	rec := httptest.NewRecorder()
	respondServiceError(rec, model.ErrInvalidSection)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRespondServiceError_GenerationParse(t *testing.T) {
	rec := httptest.NewRecorder()
	respondServiceError(rec, model.ErrGenerationParse)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRespondServiceError_Unknown(t *testing.T) {
	rec := httptest.NewRecorder()
	respondServiceError(rec, fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
