package extract

import (
	"fmt"
	"strings"

	"github.com/nlfhir/bridge/internal/model"
)

// clinicalIndicatorTokens trigger escalation rule 2 when entity count is low
// but the raw text still looks clinically substantive.
var clinicalIndicatorTokens = []string{
	"mg", "ml", "tablet", "infusion", "po", "iv", "dose", "daily",
	"start", "continue", "order",
}

// confidenceWeight assigns the per-category weight used by the weighted
// confidence gate: medications & conditions carry triple weight, dosages &
// frequencies double, everything else single.
func confidenceWeight(cat model.EntityCategory) float64 {
	switch cat {
	case model.CategoryMedication, model.CategoryCondition:
		return 3
	case model.CategoryDosage, model.CategoryFrequency:
		return 2
	default:
		return 1
	}
}

// weightedConfidence computes sum(weight*confidence) / sum(weight) over a
// set of entities. Returns 0 for an empty set, avoiding a division by zero;
// the zero-entity case itself is reported by rule 1.
func weightedConfidence(entities []model.Entity) float64 {
	if len(entities) == 0 {
		return 0
	}
	var num, den float64
	for _, e := range entities {
		w := confidenceWeight(e.Category)
		num += w * e.Confidence
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// hasClinicalIndicator reports whether text contains any of the clinical
// indicator tokens (case-insensitive whole/substring match on lowercase).
func hasClinicalIndicator(text string) bool {
	lower := strings.ToLower(text)
	for _, tok := range clinicalIndicatorTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// SufficiencyConfig parameterizes the escalation gate from the runtime
// config (internal/config's LLM_ESCALATION_* options), rather than baking
// the threshold, confidence-check mode, and minimum entity count in as
// constants.
type SufficiencyConfig struct {
	Threshold   float64
	Check       string
	MinEntities int
}

// defaultSufficiencyConfig matches internal/config's own defaults, used
// when an Extractor is built without WithSufficiencyConfig.
func defaultSufficiencyConfig() SufficiencyConfig {
	return SufficiencyConfig{Threshold: 0.85, Check: "weighted_average", MinEntities: 3}
}

// confidenceFor computes the extraction-wide confidence value per cfg.Check:
// weighted_average (the default, weighted by confidenceWeight), minimum (the
// single lowest-confidence entity), or simple_average (unweighted mean).
func confidenceFor(entities []model.Entity, check string) float64 {
	if len(entities) == 0 {
		return 0
	}
	switch check {
	case "minimum":
		min := entities[0].Confidence
		for _, e := range entities[1:] {
			if e.Confidence < min {
				min = e.Confidence
			}
		}
		return min
	case "simple_average":
		var sum float64
		for _, e := range entities {
			sum += e.Confidence
		}
		return sum / float64(len(entities))
	default:
		return weightedConfidence(entities)
	}
}

// medicationMissingDoseOrFrequency reports whether any medication entity
// lacks a co-occurring dosage or frequency entity in the same sentence.
func medicationMissingDoseOrFrequency(entities []model.Entity) bool {
	bySentence := map[int][]model.Entity{}
	for _, e := range entities {
		bySentence[e.SentenceIndex] = append(bySentence[e.SentenceIndex], e)
	}
	for _, sentEntities := range bySentence {
		hasMed, hasDose, hasFreq := false, false, false
		for _, e := range sentEntities {
			switch e.Category {
			case model.CategoryMedication:
				hasMed = true
			case model.CategoryDosage:
				hasDose = true
			case model.CategoryFrequency:
				hasFreq = true
			}
		}
		if hasMed && !(hasDose || hasFreq) {
			return true
		}
	}
	return false
}

// onlyNoiseEntities reports whether the only entities present are
// low-confidence instructions with no medical-category entity alongside.
func onlyNoiseEntities(entities []model.Entity) bool {
	sawMedical := false
	sawNoise := false
	for _, e := range entities {
		if e.Category == model.CategoryInstruction {
			if e.Confidence < 0.6 {
				sawNoise = true
			}
			continue
		}
		sawMedical = true
	}
	return sawNoise && !sawMedical
}

// sufficiencyCheck is the deterministic 5-rule gate from the tier cascade
// contract. It returns whether escalation is required and the reasons that
// triggered it (for diagnostics), plus the weighted confidence value so
// callers can record it without recomputing.
func sufficiencyCheck(text string, entities []model.Entity, cfg SufficiencyConfig) (escalate bool, reasons []string, weighted float64) {
	weighted = confidenceFor(entities, cfg.Check)

	if len(entities) == 0 {
		reasons = append(reasons, "zero entities extracted")
	}
	if len(entities) < cfg.MinEntities && hasClinicalIndicator(text) {
		reasons = append(reasons, fmt.Sprintf("fewer than %d entities with clinical-indicator text present", cfg.MinEntities))
	}
	if medicationMissingDoseOrFrequency(entities) {
		reasons = append(reasons, "medication entity without co-occurring dosage or frequency")
	}
	if weighted < cfg.Threshold {
		reasons = append(reasons, fmt.Sprintf("%s confidence below %.2f threshold", cfg.Check, cfg.Threshold))
	}
	if onlyNoiseEntities(entities) {
		reasons = append(reasons, "only low-confidence instruction entities extracted")
	}

	return len(reasons) > 0, reasons, weighted
}
