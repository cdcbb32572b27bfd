// Package bundle assembles factory-produced resources into a FHIR R4
// transaction Bundle and validates the result, grounded on
// pkg/validator/reference.go's traversal shape for the rewrite direction.
package bundle

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/nlfhir/bridge/internal/model"
)

// Envelope pairs a factory-built resource with the resource type and id the
// factory minted for it, input order preserved.
type Envelope struct {
	Type     string
	ID       string
	Resource model.Resource
}

// tierOf assigns each resource type to one of the four dependency tiers the
// assembler orders by. Types absent from the table default to the
// cross-cutting tier, the conservative choice for anything that might
// reference resources built earlier in the request.
var tierOf = map[string]int{
	"Organization": 1, "Location": 1, "Practitioner": 1, "Patient": 1,
	"RelatedPerson": 1, "Device": 1, "Medication": 1, "Coverage": 1,

	"MedicationRequest": 2, "ServiceRequest": 2, "CommunicationRequest": 2, "Appointment": 2,

	"Encounter": 3, "Procedure": 3, "Observation": 3, "DiagnosticReport": 3,
	"Condition": 3, "AllergyIntolerance": 3, "Immunization": 3,
	"MedicationAdministration": 3, "Specimen": 3, "ImagingStudy": 3,
	"MedicationDispense": 3, "MedicationStatement": 3,

	"Goal": 4, "CarePlan": 4, "DeviceUseStatement": 4, "RiskAssessment": 4, "CareTeam": 4,
}

const defaultTier = 4

func tier(resourceType string) int {
	if t, ok := tierOf[resourceType]; ok {
		return t
	}
	return defaultTier
}

// Assemble runs the four deterministic bundle-assembly steps: dependency
// ordering, fullUrl minting, reference rewriting, and bundle wrapping.
func Assemble(envelopes []Envelope, ref *fhirref.Manager) model.Resource {
	ordered := make([]Envelope, len(envelopes))
	copy(ordered, envelopes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return tier(ordered[i].Type) < tier(ordered[j].Type)
	})

	for _, env := range ordered {
		ref.RegisterFullURL(env.Type, env.ID)
	}

	refMap := ref.Snapshot()
	entries := make([]interface{}, 0, len(ordered))
	for _, env := range ordered {
		fullURL, _ := ref.FullURL(env.Type, env.ID)
		rewriteReferences(env.Resource, refMap)
		entries = append(entries, map[string]interface{}{
			"fullUrl":  fullURL,
			"resource": env.Resource,
		})
	}

	return model.Resource{
		"resourceType": "Bundle",
		"type":         "transaction",
		"id":           "bundle-" + uuid.New().String(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"entry":        entries,
	}
}

// rewriteReferences walks node recursively, replacing any "reference" value
// that matches a known ResourceType/id with its bundle-internal fullUrl.
// External (absolute-URL) references are left untouched. A single pass
// suffices because refMap is built before any resource is touched.
func rewriteReferences(node interface{}, refMap map[string]string) {
	switch val := node.(type) {
	case map[string]interface{}:
		if refStr, ok := val["reference"].(string); ok {
			if fullURL, known := refMap[refStr]; known {
				val["reference"] = fullURL
			}
		}
		for key, child := range val {
			if key == "reference" {
				continue
			}
			rewriteReferences(child, refMap)
		}
	case []interface{}:
		for _, item := range val {
			rewriteReferences(item, refMap)
		}
	}
}
