package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlfhir/bridge/internal/config"
	"github.com/nlfhir/bridge/internal/orchestrator"
)

func newTestHandler() (*Handler, *echo.Echo) {
	cfg := &config.Config{
		LLMEscalationThreshold:      0.85,
		LLMEscalationCheck:          "weighted_average",
		LLMEscalationMinEntities:    3,
		LLMTimeoutSeconds:           2.5,
		FHIRValidatorTimeoutSeconds: 5,
	}
	orc := orchestrator.NewDefault(cfg, zerolog.Nop())
	h := NewHandler(orc, zerolog.Nop())
	return h, echo.New()
}

func TestHandler_Convert_ReturnsBundle(t *testing.T) {
	h, e := newTestHandler()

	body := `{"text":"patient has hypertension, start lisinopril 10mg oral once daily"}`
	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Convert(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"resourceType":"Bundle"`)
}

func TestHandler_Convert_EmptyTextIsBadRequest(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(`{"text":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Convert(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestHandler_SummarizeBundle_NotImplemented(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/summarize-bundle", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.SummarizeBundle(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotImplemented, httpErr.Code)
}

func TestHandler_Health(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
