package factory

import (
	"testing"

	"github.com/nlfhir/bridge/internal/coding"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationFactory_QuantityValueNormalizedViaUCUM(t *testing.T) {
	f := newClinicalFactory(coding.NewCoder())
	resource, err := f.Create("Observation", map[string]interface{}{
		"code_text":  "blood pressure",
		"patient_id": "patient-1",
		"value":      120.0,
		"unit":       "mm[Hg]",
	}, "req-1", fhirref.NewManager())
	require.NoError(t, err)

	qty := resource["valueQuantity"].(map[string]interface{})
	assert.InDelta(t, 120*133.322387415, qty["value"], 1e-6)
	assert.Equal(t, "Pa", qty["code"])

	cats := resource["category"].([]interface{})
	cat := cats[0].(map[string]interface{})
	codingEntry := cat["coding"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "vital-signs", codingEntry["code"])
}

func TestObservationFactory_LabTestCategorizedAsLaboratory(t *testing.T) {
	f := newClinicalFactory(coding.NewCoder())
	resource, err := f.Create("Observation", map[string]interface{}{
		"code_text":  "hemoglobin a1c",
		"patient_id": "patient-1",
		"value_text": "7.1%",
	}, "req-2", fhirref.NewManager())
	require.NoError(t, err)

	cats := resource["category"].([]interface{})
	cat := cats[0].(map[string]interface{})
	codingEntry := cat["coding"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "laboratory", codingEntry["code"])
	assert.Equal(t, "7.1%", resource["valueString"])
}

func TestConditionFactory_NegatedSetsRefutedVerificationStatus(t *testing.T) {
	f := newClinicalFactory(coding.NewCoder())
	resource, err := f.Create("Condition", map[string]interface{}{
		"code_text":  "hypertension",
		"patient_id": "patient-1",
		"negated":    true,
	}, "req-3", fhirref.NewManager())
	require.NoError(t, err)

	vs := resource["verificationStatus"].(map[string]interface{})
	c := vs["coding"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "refuted", c["code"])
}
