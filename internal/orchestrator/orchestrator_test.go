package orchestrator

import (
	"context"
	"testing"

	"github.com/nlfhir/bridge/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		LLMEscalationThreshold:      0.85,
		LLMEscalationCheck:          "weighted_average",
		LLMEscalationMinEntities:    3,
		LLMTimeoutSeconds:           2.5,
		FHIRValidatorTimeoutSeconds: 5,
	}
}

func TestOrchestrator_Convert_BuildsBundleFromFreeText(t *testing.T) {
	o := NewDefault(testConfig(), zerolog.Nop())
	resp, err := o.Convert(context.Background(), ConvertRequest{
		Text: "patient has hypertension, start lisinopril 10mg oral once daily",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bundle", resp.Bundle["resourceType"])
	entries := resp.Bundle["entry"].([]interface{})
	assert.NotEmpty(t, entries)
}

func TestOrchestrator_Convert_EmptyTextIsInputValidationError(t *testing.T) {
	o := NewDefault(testConfig(), zerolog.Nop())
	_, err := o.Convert(context.Background(), ConvertRequest{Text: ""})
	assert.Error(t, err)
}

func TestOrchestrator_Convert_UsesExistingPatientReference(t *testing.T) {
	o := NewDefault(testConfig(), zerolog.Nop())
	patientRef := "Patient/patient-existing-1"
	resp, err := o.Convert(context.Background(), ConvertRequest{
		Text:       "continue metformin 500mg oral twice daily",
		PatientRef: &patientRef,
	})
	require.NoError(t, err)

	entries := resp.Bundle["entry"].([]interface{})
	for _, e := range entries {
		entry := e.(map[string]interface{})
		res := entry["resource"].(map[string]interface{})
		assert.NotEqual(t, "Patient", res["resourceType"], "should not mint a Patient when one was already referenced")
	}
}

func TestStripPatientPrefix(t *testing.T) {
	assert.Equal(t, "abc123", stripPatientPrefix("Patient/abc123"))
	assert.Equal(t, "abc123", stripPatientPrefix("abc123"))
}
