package extract

import (
	"testing"

	"github.com/nlfhir/bridge/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestExpandAbbreviations(t *testing.T) {
	out := expandAbbreviations("take 500mg PO BID")
	assert.Contains(t, out, "oral")
	assert.Contains(t, out, "twice daily")
}

func TestTier1Extract_RecognizesMedicationAndCondition(t *testing.T) {
	entities := tier1Extract("patient has hypertension, start lisinopril oral")

	var sawMed, sawCond, sawRoute bool
	for _, e := range entities {
		switch e.Category {
		case model.CategoryMedication:
			sawMed = true
		case model.CategoryCondition:
			sawCond = true
		case model.CategoryRoute:
			sawRoute = true
		}
	}
	assert.True(t, sawMed)
	assert.True(t, sawCond)
	assert.True(t, sawRoute)
}

func TestTier1Extract_DetectsNegation(t *testing.T) {
	entities := tier1Extract("patient denies history of hypertension")
	var sawCondition bool
	for _, e := range entities {
		if e.Category == model.CategoryCondition {
			sawCondition = true
			assert.True(t, e.Context.Negated || e.Context.Historical)
		}
	}
	assert.True(t, sawCondition)
}
