// Package httpapi exposes the converter over HTTP, grounded on
// Nirmitee-tech-headless-ehr-fhir's cmd/ehr-server echo setup (Recovery,
// request-id, zerolog request logging, grouped routes) re-scoped to this
// converter's three endpoints plus health/metrics.
package httpapi

import (
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/nlfhir/bridge/internal/config"
	"github.com/nlfhir/bridge/internal/errs"
	"github.com/nlfhir/bridge/internal/metrics"
	"github.com/nlfhir/bridge/internal/orchestrator"
)

// Handler wires the converter's orchestrator behind echo routes.
type Handler struct {
	orc    *orchestrator.Orchestrator
	logger zerolog.Logger
}

// NewHandler builds a Handler around an already-constructed Orchestrator.
func NewHandler(orc *orchestrator.Orchestrator, logger zerolog.Logger) *Handler {
	return &Handler{orc: orc, logger: logger}
}

// NewServer builds a fully-configured echo instance: recovery, request
// logging, and the converter's routes, in the teacher's middleware order.
func NewServer(cfg *config.Config, orc *orchestrator.Orchestrator, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(recoveryMiddleware(logger))
	e.Use(echomw.RequestID())
	e.Use(loggerMiddleware(logger))

	h := NewHandler(orc, logger)
	h.RegisterRoutes(e)

	return e
}

// RegisterRoutes mounts the converter's endpoints on an echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/ready", h.Ready)
	e.GET("/live", h.Live)
	e.GET("/metrics/prometheus", echo.WrapHandler(metrics.Handler()))

	e.POST("/convert", h.Convert)
	e.POST("/validate", h.Validate)
	e.POST("/summarize-bundle", h.SummarizeBundle)
}

// convertRequest is the wire shape for POST /convert.
type convertRequest struct {
	Text           string   `json:"text"`
	PatientRef     *string  `json:"patient_reference,omitempty"`
	KnownAllergies []string `json:"known_allergies,omitempty"`
	LogRawText     bool     `json:"log_raw_text,omitempty"`
}

// Convert runs free text through the full extraction -> factory -> bundle
// pipeline and returns the assembled transaction Bundle.
func (h *Handler) Convert(c echo.Context) error {
	var req convertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	resp, err := h.orc.Convert(c.Request().Context(), orchestrator.ConvertRequest{
		Text:           req.Text,
		PatientRef:     req.PatientRef,
		KnownAllergies: req.KnownAllergies,
		LogRawText:     req.LogRawText,
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// validateRequest is the wire shape for POST /validate.
type validateRequest struct {
	Bundle map[string]interface{} `json:"bundle"`
}

// Validate re-validates an already-assembled bundle against the configured
// external validator endpoints, falling back to local structural checks.
func (h *Handler) Validate(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	outcome, err := h.orc.Validate(c.Request().Context(), req.Bundle)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, outcome)
}

// SummarizeBundle is out of scope: natural-language summarization of an
// assembled bundle back to prose is an explicit non-goal of this converter.
func (h *Handler) SummarizeBundle(c echo.Context) error {
	return echo.NewHTTPError(http.StatusNotImplemented, "bundle summarization is not implemented")
}

// Health reports basic liveness for load balancers and uptime checks.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports readiness; the converter has no external dependencies that
// must be warmed up, so this mirrors Health.
func (h *Handler) Ready(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// Live reports process liveness for container orchestrators.
func (h *Handler) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

// mapError translates the converter's typed errors to HTTP status codes.
func mapError(err error) error {
	var inputErr *errs.InputValidationError
	if errors.As(err, &inputErr) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var internalErr *errs.InternalError
	if errors.As(err, &internalErr) {
		return echo.NewHTTPError(http.StatusInternalServerError,
			"internal error (request_id="+internalErr.RequestID+")").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func loggerMiddleware(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			evt.
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("request")

			return err
		}
	}
}

func recoveryMiddleware(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)
					logger.Error().
						Str("panic", http.StatusText(http.StatusInternalServerError)).
						Str("stack", string(stack[:n])).
						Msg("panic recovered")
					err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
				}
			}()
			return next(c)
		}
	}
}
