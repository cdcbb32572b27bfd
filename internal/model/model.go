// Package model holds the data types shared across the extractor, factory
// registry, and bundle assembler: the Entity produced by tier processing,
// the ExtractionResult it rolls up into, and the factory-layer
// ResourceDescriptor.
package model

import "time"

// EntityCategory classifies an extracted clinical fact.
type EntityCategory string

const (
	CategoryMedication  EntityCategory = "medications"
	CategoryDosage      EntityCategory = "dosages"
	CategoryFrequency   EntityCategory = "frequencies"
	CategoryRoute       EntityCategory = "routes"
	CategoryCondition   EntityCategory = "conditions"
	CategoryLabTest     EntityCategory = "lab_tests"
	CategoryProcedure   EntityCategory = "procedures"
	CategoryPatient     EntityCategory = "patients"
	CategoryPractitioner EntityCategory = "practitioners"
	CategoryDevice      EntityCategory = "devices"
	CategoryObservation EntityCategory = "observations"
	CategoryInstruction EntityCategory = "instructions"
)

// EntitySource names the tier that produced an Entity.
type EntitySource string

const (
	SourceTier1Clinical    EntitySource = "tier1_medspacy"
	SourceTier2Regex       EntitySource = "tier2_regex"
	SourceTier3LLM         EntitySource = "tier3_llm"
	SourceTier3LLMEmbedded EntitySource = "tier3_llm_embedded"
)

// Context carries clinical-context flags detected around an Entity's
// surface form (negation, hypothetical framing, temporality).
type Context struct {
	Negated        bool `json:"negated,omitempty"`
	Hypothetical   bool `json:"hypothetical,omitempty"`
	Historical     bool `json:"historical,omitempty"`
	FamilyHistory  bool `json:"family_history,omitempty"`
}

// NormalizedCode is a terminology binding attached to an Entity once a
// Coder lookup succeeds.
type NormalizedCode struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

// Entity is a single extracted clinical fact. Immutable once produced.
type Entity struct {
	Text           string          `json:"text"`
	Category       EntityCategory  `json:"category"`
	Confidence     float64         `json:"confidence"`
	Source         EntitySource    `json:"source"`
	NormalizedCode *NormalizedCode `json:"normalized_code,omitempty"`
	Context        Context         `json:"context,omitempty"`

	// SentenceIndex groups entities extracted from the same sentence, used
	// by the sufficiency gate's medication/dosage co-occurrence rule.
	SentenceIndex int `json:"-"`
}

// TierMetadata records per-tier timing and the reason a cascade escalated.
type TierMetadata struct {
	TierReached      int           `json:"tier_reached"`
	Tier1Latency     time.Duration `json:"tier1_latency"`
	Tier2Latency     time.Duration `json:"tier2_latency"`
	Tier3Latency     time.Duration `json:"tier3_latency"`
	EscalationReason []string      `json:"escalation_reason,omitempty"`
	WeightedConfidence float64     `json:"weighted_confidence"`
	LLMBudgetExhausted bool        `json:"llm_budget_exhausted,omitempty"`
	LLMSchemaViolation bool        `json:"llm_schema_violation,omitempty"`
	Diagnostics      []string      `json:"diagnostics,omitempty"`
}

// ExtractionResult is the extractor's output: an unordered multi-set of
// Entity plus tier metadata.
type ExtractionResult struct {
	Entities []Entity     `json:"entities"`
	Meta     TierMetadata `json:"meta"`
}

// ByCategory groups entities by category, preserving relative order.
func (r *ExtractionResult) ByCategory(cat EntityCategory) []Entity {
	var out []Entity
	for _, e := range r.Entities {
		if e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}

// ResourceDescriptor is the factory-layer intermediate: a resource type tag,
// an opaque input data map, and the owning request id. One ResourceDescriptor
// yields exactly one FHIR resource instance.
type ResourceDescriptor struct {
	ResourceType string
	Data         map[string]interface{}
	RequestID    string
}

// Resource is a FHIR R4 resource represented as a generic JSON tree.
type Resource = map[string]interface{}
