// Package orchestrator threads a conversion request through the extractor,
// factory registry, and bundle assembler, grounded on spec.md §4.E.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nlfhir/bridge/internal/bundle"
	"github.com/nlfhir/bridge/internal/coding"
	"github.com/nlfhir/bridge/internal/config"
	"github.com/nlfhir/bridge/internal/errs"
	"github.com/nlfhir/bridge/internal/extract"
	"github.com/nlfhir/bridge/internal/factory"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/nlfhir/bridge/internal/metrics"
	"github.com/nlfhir/bridge/internal/model"
	"github.com/nlfhir/bridge/pkg/common"
	"github.com/rs/zerolog"
)

// ConvertRequest is the input to a single conversion: free text plus an
// optional pre-existing patient reference (the caller's EHR already knows
// the patient; this converter shouldn't mint a second Patient resource) and
// any allergies already on file, fed into the medication safety cross-check.
type ConvertRequest struct {
	Text           string
	PatientRef     *string
	KnownAllergies []string
	LogRawText     bool
}

// ValidationSummary is the §4.E step-7 validation block: the bundle's
// PASSED/FAILED/PENDING_LOCAL_ONLY status, the issues behind it, and the
// endpoint (or "local-fallback") that produced the outcome.
type ValidationSummary struct {
	Status         string         `json:"status"`
	Issues         []bundle.Issue `json:"issues,omitempty"`
	SourceEndpoint string         `json:"source_endpoint,omitempty"`
}

// BundleSummary is the §4.D diagnostics block, surfaced on every response,
// populated even when validation fails.
type BundleSummary struct {
	BundleID           string         `json:"bundle_id"`
	BundleType         string         `json:"bundle_type"`
	TotalEntries       int            `json:"total_entries"`
	ResourceCounts     map[string]int `json:"resource_counts"`
	EstimatedSizeBytes int            `json:"estimated_size_bytes"`
	Timestamp          string         `json:"timestamp"`
	HasMeta            bool           `json:"has_meta"`
	SafetyAlerts       []string       `json:"safety_alerts,omitempty"`
}

// ConvertResponse is the orchestrator's output, shaped per the §4.E step-7
// response contract.
type ConvertResponse struct {
	RequestID        string             `json:"request_id"`
	Bundle           model.Resource     `json:"fhir_bundle"`
	Meta             model.TierMetadata `json:"extraction_meta"`
	Validation       ValidationSummary  `json:"validation"`
	BundleSummary    BundleSummary      `json:"bundle_summary"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
	DroppedCount     int                `json:"dropped_resource_count"`
	DroppedErrors    []string           `json:"dropped_resource_errors,omitempty"`
}

// Orchestrator wires the three core subsystems together for repeated use
// across requests; all its dependencies are safe for concurrent use.
type Orchestrator struct {
	extractor *extract.Extractor
	registry  *factory.Registry
	cfg       *config.Config
	logger    zerolog.Logger
	client    *http.Client
}

// New wires an Orchestrator from its already-constructed collaborators.
func New(extractor *extract.Extractor, registry *factory.Registry, cfg *config.Config, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		extractor: extractor,
		registry:  registry,
		cfg:       cfg,
		logger:    logger,
		client:    &http.Client{Timeout: time.Duration(cfg.FHIRValidatorTimeoutSeconds*2) * time.Second},
	}
}

// NewDefault wires an Orchestrator with no Tier-3 completer configured
// (Tier 1/2 only) and the embedded terminology corpus, useful for the CLI's
// offline path and for tests. The extractor's sufficiency gate is driven by
// cfg's LLM_ESCALATION_* options rather than the extractor's own defaults.
func NewDefault(cfg *config.Config, logger zerolog.Logger) *Orchestrator {
	extractor := extract.NewExtractor(extract.WithSufficiencyConfig(extract.SufficiencyConfig{
		Threshold:   cfg.LLMEscalationThreshold,
		Check:       cfg.LLMEscalationCheck,
		MinEntities: cfg.LLMEscalationMinEntities,
	}))
	return New(extractor, factory.NewRegistry(coding.NewCoder()), cfg, logger)
}

// Convert runs the full B -> C -> D pipeline for one request. It never
// returns a bare Go error for a single bad resource — factory failures are
// dropped and counted, matching the "single-resource failures never abort
// the whole request" contract.
func (o *Orchestrator) Convert(ctx context.Context, req ConvertRequest) (*ConvertResponse, error) {
	start := time.Now()
	requestID := uuid.New().String()
	log := o.logger.With().Str("request_id", requestID).Logger()

	if req.Text == "" {
		metrics.RequestsTotal.WithLabelValues("input_error").Inc()
		return nil, &errs.InputValidationError{Field: "text", Reason: "must not be empty"}
	}

	logEvent := log.Info()
	if req.LogRawText || o.cfg.LogRawText {
		logEvent = logEvent.Str("text", req.Text)
	}
	logEvent.Msg("conversion started")

	result := o.extractor.Extract(ctx, req.Text, requestID)
	log.Info().
		Int("tier_reached", result.Meta.TierReached).
		Int("entity_count", len(result.Entities)).
		Msg("extraction complete")
	metrics.TierEscalationsTotal.WithLabelValues(strconv.Itoa(result.Meta.TierReached)).Inc()

	ref := fhirref.NewManager()
	patientID, mintedPatient := resolvePatientID(req.PatientRef)

	envelopes, alerts, droppedErrs := o.buildResources(requestID, result, patientID, mintedPatient, req.KnownAllergies, ref)

	b := bundle.Assemble(envelopes, ref)

	log.Info().
		Int("resource_count", len(envelopes)).
		Int("dropped_count", len(droppedErrs)).
		Msg("bundle assembled")

	outcome, err := o.Validate(ctx, b)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("validation_error").Inc()
		return nil, &errs.InternalError{RequestID: requestID, Err: err}
	}

	metrics.RequestsTotal.WithLabelValues("ok").Inc()

	resp := &ConvertResponse{
		RequestID:        requestID,
		Bundle:           b,
		Meta:             result.Meta,
		Validation:       validationSummary(outcome),
		BundleSummary:    summarizeBundle(b, alerts),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		DroppedCount:     len(droppedErrs),
		DroppedErrors:    droppedErrs,
	}
	return resp, nil
}

// Validate runs the bundle assembler's external-validator failover against
// an already-assembled bundle.
func (o *Orchestrator) Validate(ctx context.Context, bundleResource model.Resource) (*bundle.ValidationOutcome, error) {
	perEndpoint := time.Duration(o.cfg.FHIRValidatorTimeoutSeconds) * time.Second
	total := 10 * time.Second
	outcome, err := bundle.Validate(ctx, o.client, bundleResource, o.cfg.FHIRValidatorEndpoints, perEndpoint, total)
	if err != nil {
		if ve, ok := errs.AsValidationUnavailable(err); ok {
			for _, endpoint := range ve.Attempted {
				metrics.ValidatorFailoversTotal.WithLabelValues(endpoint, "failure").Inc()
			}
			metrics.ValidatorFailoversTotal.WithLabelValues("local-fallback", "local_fallback").Inc()
			o.logger.Warn().Err(err).Msg("all external validators unavailable, used local fallback")
			return outcome, nil
		}
		return outcome, err
	}
	return outcome, nil
}

// validationSummary derives the §7 user-visible validation.status from a
// ValidationOutcome: PENDING_LOCAL_ONLY when every external validator was
// unreachable (the local-fallback source), FAILED when the authoritative
// validator said so, PASSED otherwise.
func validationSummary(outcome *bundle.ValidationOutcome) ValidationSummary {
	if outcome == nil {
		return ValidationSummary{Status: "FAILED"}
	}

	summary := ValidationSummary{Issues: outcome.Issues, SourceEndpoint: outcome.SourceEndpoint}

	switch {
	case outcome.SourceEndpoint == "local-fallback":
		summary.Status = "PENDING_LOCAL_ONLY"
	case !outcome.Valid:
		summary.Status = "FAILED"
	default:
		summary.Status = "PASSED"
	}
	return summary
}

// summarizeBundle builds the §4.D diagnostics block from the assembled
// bundle, independent of whether validation passed.
func summarizeBundle(b model.Resource, alerts []string) BundleSummary {
	entries, _ := b["entry"].([]interface{})
	counts := make(map[string]int)
	for _, e := range entries {
		entry, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		resource, ok := entry["resource"].(model.Resource)
		if !ok {
			continue
		}
		if rt, ok := resource["resourceType"].(string); ok {
			counts[rt]++
		}
	}

	bundleID, _ := b["id"].(string)
	timestamp, _ := b["timestamp"].(string)
	_, hasMeta := b["meta"]

	size := 0
	if encoded, err := json.Marshal(b); err == nil {
		size = len(encoded)
	}

	return BundleSummary{
		BundleID:           bundleID,
		BundleType:         "transaction",
		TotalEntries:       len(entries),
		ResourceCounts:     counts,
		EstimatedSizeBytes: size,
		Timestamp:          timestamp,
		HasMeta:            hasMeta,
		SafetyAlerts:       alerts,
	}
}

// resolvePatientID returns the id portion of an existing patient reference
// ("Patient/<id>" -> "<id>"), or mints a fresh one when the caller supplied
// none. The bool reports whether a fresh id was minted, telling the caller
// whether a placeholder Patient resource needs to go into the bundle.
func resolvePatientID(patientRef *string) (string, bool) {
	if ref := common.StringVal(patientRef); ref != "" {
		return stripPatientPrefix(ref), false
	}
	return fhirref.MintID("Patient"), true
}

func stripPatientPrefix(ref string) string {
	const prefix = "Patient/"
	if len(ref) > len(prefix) && ref[:len(prefix)] == prefix {
		return ref[len(prefix):]
	}
	return ref
}

// buildResources maps entities onto factory-created resources. Each
// resource type's input contract is satisfied from the entities the
// extractor surfaced for that category; a factory failure drops just that
// resource and is recorded, not raised.
func (o *Orchestrator) buildResources(requestID string, result model.ExtractionResult, patientID string, mintedPatient bool, knownAllergies []string, ref *fhirref.Manager) ([]bundle.Envelope, []string, []string) {
	var envelopes []bundle.Envelope
	var alerts []string
	var droppedErrs []string

	appendResource := func(resourceType string, data map[string]interface{}) {
		resource, err := o.registry.Create(resourceType, data, requestID, ref)
		if err != nil {
			droppedErrs = append(droppedErrs, fmt.Sprintf("%s: %v", resourceType, err))
			metrics.DroppedResourcesTotal.WithLabelValues(resourceType).Inc()
			return
		}
		id, _ := resource["id"].(string)
		envelopes = append(envelopes, bundle.Envelope{Type: resourceType, ID: id, Resource: resource})
		if ext, ok := resource["extension"].([]interface{}); ok {
			for _, e := range ext {
				if entry, ok := e.(map[string]interface{}); ok {
					if msg, ok := entry["valueString"].(string); ok {
						alerts = append(alerts, msg)
					}
				}
			}
		}
	}

	if mintedPatient && len(result.Entities) > 0 {
		appendResource("Patient", map[string]interface{}{"full_name": "Unknown Patient"})
		// The placeholder takes the minted id so "Patient/<patientID>" references resolve to it.
		if n := len(envelopes); n > 0 && envelopes[n-1].Type == "Patient" {
			envelopes[n-1].ID = patientID
			envelopes[n-1].Resource["id"] = patientID
		}
	}

	allergies := allergenTexts(knownAllergies)

	for _, e := range result.Entities {
		switch e.Category {
		case model.CategoryMedication:
			appendResource("MedicationRequest", map[string]interface{}{
				"medication_text":   e.Text,
				"patient_id":        patientID,
				"dosage":            firstCooccurring(result, e, model.CategoryDosage),
				"frequency":         firstCooccurring(result, e, model.CategoryFrequency),
				"route":             firstCooccurring(result, e, model.CategoryRoute),
				"patient_allergies": allergies,
			})
		case model.CategoryCondition:
			appendResource("Condition", map[string]interface{}{
				"code_text":  e.Text,
				"patient_id": patientID,
				"negated":    e.Context.Negated,
				"historical": e.Context.Historical,
			})
		case model.CategoryLabTest:
			appendResource("ServiceRequest", map[string]interface{}{
				"code_text":  e.Text,
				"patient_id": patientID,
			})
		case model.CategoryObservation:
			appendResource("Observation", map[string]interface{}{
				"code_text":  e.Text,
				"patient_id": patientID,
			})
		case model.CategoryProcedure:
			appendResource("Procedure", map[string]interface{}{
				"code_text":  e.Text,
				"patient_id": patientID,
			})
		}
	}

	return envelopes, alerts, droppedErrs
}

// allergenTexts normalizes the request's known-allergy list into the shape
// the medication safety cross-check (factory.attachSafetyAlert) expects.
// The extractor doesn't yet tag a dedicated allergy entity category, so this
// channel is caller-supplied rather than derived from free text.
func allergenTexts(knownAllergies []string) []string {
	if len(knownAllergies) == 0 {
		return nil
	}
	return knownAllergies
}

// firstCooccurring returns the text of the first entity of category cat in
// the same sentence as med, or "" if none exists.
func firstCooccurring(result model.ExtractionResult, med model.Entity, cat model.EntityCategory) string {
	for _, e := range result.Entities {
		if e.Category == cat && e.SentenceIndex == med.SentenceIndex {
			return e.Text
		}
	}
	return ""
}
