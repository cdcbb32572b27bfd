package extract

import (
	"testing"

	"github.com/nlfhir/bridge/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFlattenMedicationEntities_SurfacesEmbeddedFields(t *testing.T) {
	raw := []llmEntity{
		{
			Text:       "amoxicillin",
			Category:   string(model.CategoryMedication),
			Confidence: 0.97,
			Dosage:     "500 mg",
			Frequency:  "twice daily",
			Route:      "oral",
		},
	}

	entities := flattenMedicationEntities(raw)

	// One medication entity plus three flattened siblings.
	assert.Len(t, entities, 4)

	var dosageCount, freqCount, routeCount int
	for _, e := range entities {
		switch e.Category {
		case model.CategoryDosage:
			dosageCount++
			assert.Equal(t, model.SourceTier3LLMEmbedded, e.Source)
			assert.Equal(t, "500 mg", e.Text)
		case model.CategoryFrequency:
			freqCount++
			assert.Equal(t, "twice daily", e.Text)
		case model.CategoryRoute:
			routeCount++
			assert.Equal(t, "oral", e.Text)
		case model.CategoryMedication:
			assert.Equal(t, model.SourceTier3LLM, e.Source)
		}
	}
	assert.Equal(t, 1, dosageCount)
	assert.Equal(t, 1, freqCount)
	assert.Equal(t, 1, routeCount)
}

func TestFlattenMedicationEntities_SkipsEmptyEmbeddedFields(t *testing.T) {
	raw := []llmEntity{
		{Text: "ibuprofen", Category: string(model.CategoryMedication), Confidence: 0.9},
	}
	entities := flattenMedicationEntities(raw)
	assert.Len(t, entities, 1, "no embedded fields present, no siblings should be synthesized")
}

func TestFlattenMedicationEntities_NonMedicationPassthrough(t *testing.T) {
	raw := []llmEntity{
		{Text: "hypertension", Category: string(model.CategoryCondition), Confidence: 0.9},
	}
	entities := flattenMedicationEntities(raw)
	assert.Len(t, entities, 1)
	assert.Equal(t, model.CategoryCondition, entities[0].Category)
}
