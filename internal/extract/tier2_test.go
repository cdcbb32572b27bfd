package extract

import (
	"testing"

	"github.com/nlfhir/bridge/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestTier2Extract_AddsNewDosageFrequencyRoute(t *testing.T) {
	added := tier2Extract("amoxicillin 500mg twice daily oral", nil)

	var sawDosage, sawFreq, sawRoute bool
	for _, e := range added {
		switch e.Category {
		case model.CategoryDosage:
			sawDosage = true
		case model.CategoryFrequency:
			sawFreq = true
		case model.CategoryRoute:
			sawRoute = true
		}
	}
	assert.True(t, sawDosage)
	assert.True(t, sawFreq)
	assert.True(t, sawRoute)
}

func TestTier2Extract_NeverOverridesExisting(t *testing.T) {
	existing := []model.Entity{
		{Text: "500mg", Category: model.CategoryDosage, Confidence: 0.99, Source: model.SourceTier1Clinical},
	}
	added := tier2Extract("500mg twice daily", existing)

	for _, e := range added {
		assert.NotEqual(t, "500mg", e.Text, "tier2 must not re-add an entity tier1 already produced")
	}
}
