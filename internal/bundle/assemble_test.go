package bundle

import (
	"testing"
	"time"

	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/nlfhir/bridge/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_SetsBundleIDAndTimestamp(t *testing.T) {
	ref := fhirref.NewManager()
	envelopes := []Envelope{
		{Type: "Patient", ID: "patient-1", Resource: model.Resource{"resourceType": "Patient", "id": "patient-1"}},
	}

	result := Assemble(envelopes, ref)

	id := result["id"].(string)
	assert.Regexp(t, `^bundle-[0-9a-f-]{36}$`, id)

	ts := result["timestamp"].(string)
	_, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
}

func TestAssemble_OrdersByDependencyTier(t *testing.T) {
	ref := fhirref.NewManager()
	envelopes := []Envelope{
		{Type: "MedicationRequest", ID: "medicationrequest-1", Resource: model.Resource{"resourceType": "MedicationRequest", "id": "medicationrequest-1"}},
		{Type: "Patient", ID: "patient-1", Resource: model.Resource{"resourceType": "Patient", "id": "patient-1"}},
		{Type: "Goal", ID: "goal-1", Resource: model.Resource{"resourceType": "Goal", "id": "goal-1"}},
	}

	result := Assemble(envelopes, ref)
	entries := result["entry"].([]interface{})
	require.Len(t, entries, 3)

	order := make([]string, 0, 3)
	for _, e := range entries {
		entry := e.(map[string]interface{})
		res := entry["resource"].(model.Resource)
		order = append(order, res["resourceType"].(string))
	}
	assert.Equal(t, []string{"Patient", "MedicationRequest", "Goal"}, order)
}

func TestAssemble_FullUrlsAreLowercaseUUIDUrns(t *testing.T) {
	ref := fhirref.NewManager()
	envelopes := []Envelope{
		{Type: "Patient", ID: "patient-1", Resource: model.Resource{"resourceType": "Patient", "id": "patient-1"}},
	}
	result := Assemble(envelopes, ref)
	entries := result["entry"].([]interface{})
	entry := entries[0].(map[string]interface{})
	fullURL := entry["fullUrl"].(string)
	assert.Regexp(t, `^urn:uuid:[0-9a-f-]{36}$`, fullURL)
}

func TestAssemble_RewritesReferencesToFullUrl(t *testing.T) {
	ref := fhirref.NewManager()
	envelopes := []Envelope{
		{Type: "Patient", ID: "patient-1", Resource: model.Resource{"resourceType": "Patient", "id": "patient-1"}},
		{Type: "Observation", ID: "observation-1", Resource: model.Resource{
			"resourceType": "Observation",
			"id":           "observation-1",
			"subject":      map[string]interface{}{"reference": "Patient/patient-1"},
		}},
	}

	result := Assemble(envelopes, ref)
	entries := result["entry"].([]interface{})

	var patientFullURL string
	for _, e := range entries {
		entry := e.(map[string]interface{})
		res := entry["resource"].(model.Resource)
		if res["resourceType"] == "Patient" {
			patientFullURL = entry["fullUrl"].(string)
		}
	}
	require.NotEmpty(t, patientFullURL)

	for _, e := range entries {
		entry := e.(map[string]interface{})
		res := entry["resource"].(model.Resource)
		if res["resourceType"] == "Observation" {
			subject := res["subject"].(map[string]interface{})
			assert.Equal(t, patientFullURL, subject["reference"])
		}
	}
}

func TestAssemble_ExternalReferenceLeftUntouched(t *testing.T) {
	ref := fhirref.NewManager()
	envelopes := []Envelope{
		{Type: "Observation", ID: "observation-1", Resource: model.Resource{
			"resourceType": "Observation",
			"id":           "observation-1",
			"subject":      map[string]interface{}{"reference": "https://external.example.org/Patient/999"},
		}},
	}
	result := Assemble(envelopes, ref)
	entries := result["entry"].([]interface{})
	entry := entries[0].(map[string]interface{})
	res := entry["resource"].(model.Resource)
	subject := res["subject"].(map[string]interface{})
	assert.Equal(t, "https://external.example.org/Patient/999", subject["reference"])
}
