package factory

import (
	"testing"

	"github.com/nlfhir/bridge/internal/coding"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoalFactory_DefaultsToActiveLifecycleStatus(t *testing.T) {
	f := newCareFactory(coding.NewCoder())
	resource, err := f.Create("Goal", map[string]interface{}{
		"description": "lower blood pressure",
		"patient_id":  "patient-1",
	}, "req-1", fhirref.NewManager())
	require.NoError(t, err)
	assert.Equal(t, "active", resource["lifecycleStatus"])
}

func TestNormalizeLifecycleStatus_MapsSynonyms(t *testing.T) {
	assert.Equal(t, "completed", normalizeLifecycleStatus("achieved"))
	assert.Equal(t, "cancelled", normalizeLifecycleStatus("discontinued"))
	assert.Equal(t, "on-hold", normalizeLifecycleStatus("paused"))
}

func TestEncounterFactory_DefaultsToAmbulatoryClass(t *testing.T) {
	f := newCareFactory(coding.NewCoder())
	resource, err := f.Create("Encounter", map[string]interface{}{
		"patient_id": "patient-1",
	}, "req-2", fhirref.NewManager())
	require.NoError(t, err)
	class := resource["class"].(map[string]interface{})
	assert.Equal(t, "AMB", class["code"])
}

func TestCareTeamFactory_BuildsParticipants(t *testing.T) {
	f := newCareFactory(coding.NewCoder())
	resource, err := f.Create("CareTeam", map[string]interface{}{
		"patient_id":       "patient-1",
		"practitioner_ids": []string{"practitioner-1"},
	}, "req-3", fhirref.NewManager())
	require.NoError(t, err)
	participants := resource["participant"].([]interface{})
	assert.Len(t, participants, 1)
}
