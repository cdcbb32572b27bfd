package factory

import (
	"testing"

	"github.com/nlfhir/bridge/internal/coding"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientFactory_BuildsNameGenderBirthDate(t *testing.T) {
	f := newPatientFactory(coding.NewCoder())
	resource, err := f.Create("Patient", map[string]interface{}{
		"full_name":  "John Q Smith",
		"gender":     "male",
		"birth_date": "01/15/1980",
		"phone":      "555-0100",
		"mrn":        "MRN123",
	}, "req-1", fhirref.NewManager())
	require.NoError(t, err)

	assert.Equal(t, "Patient", resource["resourceType"])
	assert.Equal(t, "male", resource["gender"])
	assert.Equal(t, "1980-01-15", resource["birthDate"])

	names := resource["name"].([]interface{})
	name := names[0].(map[string]interface{})
	assert.Equal(t, "Smith", name["family"])

	identifiers := resource["identifier"].([]interface{})
	assert.Len(t, identifiers, 1)
}

func TestPatientFactory_SingleTokenNameStoredAsFamily(t *testing.T) {
	f := newPatientFactory(coding.NewCoder())
	resource, err := f.Create("Patient", map[string]interface{}{"full_name": "Madonna"}, "req-2", fhirref.NewManager())
	require.NoError(t, err)
	name := resource["name"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Madonna", name["family"])
}

func TestPatientFactory_UnknownGenderNormalizesToUnknown(t *testing.T) {
	assert.Equal(t, "unknown", normalizeGender("nonbinary-typo-garbage"))
	assert.Equal(t, "", normalizeGender(""))
}

func TestPatientFactory_MissingFullNameIsFactoryError(t *testing.T) {
	f := newPatientFactory(coding.NewCoder())
	_, err := f.Create("Patient", map[string]interface{}{}, "req-3", fhirref.NewManager())
	assert.Error(t, err)
}

func TestRelatedPersonFactory_ReferencesPatient(t *testing.T) {
	f := newPatientFactory(coding.NewCoder())
	resource, err := f.Create("RelatedPerson", map[string]interface{}{
		"full_name":    "Mary Smith",
		"patient_id":   "patient-abc123",
		"relationship": "spouse",
	}, "req-4", fhirref.NewManager())
	require.NoError(t, err)
	patient := resource["patient"].(map[string]interface{})
	assert.Equal(t, "Patient/patient-abc123", patient["reference"])
}
