package factory

import (
	"testing"

	"github.com/nlfhir/bridge/internal/coding"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedicationRequestFactory_BuildsCoreFields(t *testing.T) {
	f := newMedicationFactory(coding.NewCoder())
	resource, err := f.Create("MedicationRequest", map[string]interface{}{
		"medication_text": "amoxicillin",
		"patient_id":      "patient-1",
		"dosage":          "500 mg",
		"frequency":       "twice daily",
		"route":           "oral",
	}, "req-1", fhirref.NewManager())
	require.NoError(t, err)

	assert.Equal(t, "active", resource["status"])
	assert.Equal(t, "order", resource["intent"])
	subject := resource["subject"].(map[string]interface{})
	assert.Equal(t, "Patient/patient-1", subject["reference"])
	assert.NotNil(t, resource["dosageInstruction"])
}

func TestMedicationRequestFactory_AllergyConflictAttachesSafetyExtension(t *testing.T) {
	f := newMedicationFactory(coding.NewCoder())
	resource, err := f.Create("MedicationRequest", map[string]interface{}{
		"medication_text":   "penicillin",
		"patient_id":        "patient-1",
		"patient_allergies": []string{"penicillin"},
	}, "req-2", fhirref.NewManager())
	require.NoError(t, err)

	ext := resource["extension"].([]interface{})
	require.Len(t, ext, 1)
	entry := ext[0].(map[string]interface{})
	assert.Equal(t, safetyAlertExtensionURL, entry["url"])
}

func TestMedicationRequestFactory_NoAllergyConflictNoExtension(t *testing.T) {
	f := newMedicationFactory(coding.NewCoder())
	resource, err := f.Create("MedicationRequest", map[string]interface{}{
		"medication_text":   "amoxicillin",
		"patient_id":        "patient-1",
		"patient_allergies": []string{"penicillin"},
	}, "req-3", fhirref.NewManager())
	require.NoError(t, err)
	assert.Nil(t, resource["extension"])
}

func TestMedicationFactory_MissingPatientIDIsFactoryError(t *testing.T) {
	f := newMedicationFactory(coding.NewCoder())
	_, err := f.Create("MedicationRequest", map[string]interface{}{"medication_text": "amoxicillin"}, "req-4", fhirref.NewManager())
	assert.Error(t, err)
}
