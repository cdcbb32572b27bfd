package factory

import (
	"strings"
	"testing"

	"github.com/nlfhir/bridge/internal/coding"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImagingStudyFactory_MintsDicomStudyUID(t *testing.T) {
	f := newMiscFactory(coding.NewCoder())
	resource, err := f.Create("ImagingStudy", map[string]interface{}{
		"patient_id": "patient-1",
		"status":     "available",
		"modality":   "CT",
	}, "req-1", fhirref.NewManager())
	require.NoError(t, err)

	identifiers := resource["identifier"].([]interface{})
	id := identifiers[0].(map[string]interface{})
	uid := id["value"].(string)
	assert.True(t, strings.HasPrefix(uid, "urn:oid:2.25."))
}

func TestDicomStudyUID_IsUniquePerCall(t *testing.T) {
	a := dicomStudyUID()
	b := dicomStudyUID()
	assert.NotEqual(t, a, b)
}

func TestImmunizationFactory_BuildsVaccineCode(t *testing.T) {
	f := newMiscFactory(coding.NewCoder())
	resource, err := f.Create("Immunization", map[string]interface{}{
		"vaccine_text": "influenza vaccine",
		"patient_id":   "patient-1",
		"status":       "completed",
	}, "req-2", fhirref.NewManager())
	require.NoError(t, err)
	assert.NotNil(t, resource["vaccineCode"])
}
