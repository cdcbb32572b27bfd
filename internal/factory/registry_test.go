package factory

import (
	"testing"

	"github.com/nlfhir/bridge/internal/coding"
	"github.com/nlfhir/bridge/internal/errs"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(coding.NewCoder())
}

func TestRegistry_DispatchesKnownTypes(t *testing.T) {
	r := newTestRegistry()
	for _, rt := range []string{"Patient", "MedicationRequest", "Observation", "Goal", "ImagingStudy"} {
		f, err := r.GetFactory(rt)
		require.NoError(t, err)
		assert.True(t, f.Supports(rt))
	}
}

func TestRegistry_UnknownTypeReturnsErrUnknownResource(t *testing.T) {
	r := newTestRegistry()
	_, err := r.GetFactory("NoSuchResource")
	assert.ErrorIs(t, err, errs.ErrUnknownResource)
}

func TestRegistry_ReturnsSameInstanceForSharedDomain(t *testing.T) {
	r := newTestRegistry()
	f1, err := r.GetFactory("MedicationRequest")
	require.NoError(t, err)
	f2, err := r.GetFactory("Medication")
	require.NoError(t, err)
	assert.Same(t, f1, f2, "MedicationRequest and Medication share one domain factory instance")
}

func TestRegistry_Create_BuildsResourceThroughTemplateMethod(t *testing.T) {
	r := newTestRegistry()
	ref := fhirref.NewManager()
	resource, err := r.Create("Patient", map[string]interface{}{"full_name": "Jane Doe"}, "req-1", ref)
	require.NoError(t, err)
	assert.Equal(t, "Patient", resource["resourceType"])
	assert.NotEmpty(t, resource["id"])
}

func TestRegistry_Create_MissingRequiredFieldReturnsFactoryError(t *testing.T) {
	r := newTestRegistry()
	ref := fhirref.NewManager()
	_, err := r.Create("MedicationRequest", map[string]interface{}{}, "req-2", ref)
	require.Error(t, err)
	fe, ok := errs.AsFactoryError(err)
	require.True(t, ok)
	assert.Equal(t, "MedicationRequest", fe.ResourceType)
}
