package extract

import (
	"testing"

	"github.com/nlfhir/bridge/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestSufficiencyCheck_ZeroEntities(t *testing.T) {
	escalate, reasons, _ := sufficiencyCheck("some text", nil, defaultSufficiencyConfig())
	assert.True(t, escalate)
	assert.Contains(t, reasons, "zero entities extracted")
}

func TestSufficiencyCheck_FewEntitiesWithClinicalIndicator(t *testing.T) {
	entities := []model.Entity{
		{Text: "amoxicillin", Category: model.CategoryMedication, Confidence: 0.95},
	}
	escalate, reasons, _ := sufficiencyCheck("start 500 mg amoxicillin", entities, defaultSufficiencyConfig())
	assert.True(t, escalate)
	assert.Contains(t, reasons, "fewer than 3 entities with clinical-indicator text present")
}

func TestSufficiencyCheck_MedicationWithoutDosage(t *testing.T) {
	entities := []model.Entity{
		{Text: "lisinopril", Category: model.CategoryMedication, Confidence: 0.95, SentenceIndex: 0},
		{Text: "hypertension", Category: model.CategoryCondition, Confidence: 0.95, SentenceIndex: 0},
		{Text: "oral", Category: model.CategoryRoute, Confidence: 0.9, SentenceIndex: 0},
	}
	escalate, reasons, _ := sufficiencyCheck("give lisinopril orally for hypertension", entities, defaultSufficiencyConfig())
	assert.True(t, escalate)
	assert.Contains(t, reasons, "medication entity without co-occurring dosage or frequency")
}

func TestSufficiencyCheck_SufficientResult(t *testing.T) {
	entities := []model.Entity{
		{Text: "amoxicillin", Category: model.CategoryMedication, Confidence: 0.95, SentenceIndex: 0},
		{Text: "500mg", Category: model.CategoryDosage, Confidence: 0.95, SentenceIndex: 0},
		{Text: "twice daily", Category: model.CategoryFrequency, Confidence: 0.9, SentenceIndex: 0},
		{Text: "oral", Category: model.CategoryRoute, Confidence: 0.9, SentenceIndex: 0},
	}
	escalate, reasons, weighted := sufficiencyCheck("start amoxicillin 500mg twice daily oral", entities, defaultSufficiencyConfig())
	assert.False(t, escalate, "reasons: %v", reasons)
	assert.GreaterOrEqual(t, weighted, 0.85)
}

func TestSufficiencyCheck_OnlyNoiseEntities(t *testing.T) {
	entities := []model.Entity{
		{Text: "follow up in two weeks", Category: model.CategoryInstruction, Confidence: 0.4},
	}
	escalate, reasons, _ := sufficiencyCheck("follow up in two weeks", entities, defaultSufficiencyConfig())
	assert.True(t, escalate)
	assert.Contains(t, reasons, "only low-confidence instruction entities extracted")
}

func TestWeightedConfidence_Weighting(t *testing.T) {
	entities := []model.Entity{
		{Category: model.CategoryMedication, Confidence: 1.0}, // weight 3
		{Category: model.CategoryDosage, Confidence: 0.5},     // weight 2
		{Category: model.CategoryRoute, Confidence: 0.0},      // weight 1
	}
	// (3*1.0 + 2*0.5 + 1*0.0) / (3+2+1) = 4/6
	assert.InDelta(t, 4.0/6.0, weightedConfidence(entities), 0.0001)
}
