package factory

import (
	"fmt"
	"strings"

	"github.com/nlfhir/bridge/internal/coding"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/nlfhir/bridge/internal/model"
)

type careFactory struct {
	coder *coding.Coder
}

func newCareFactory(coder *coding.Coder) Factory {
	return &careFactory{coder: coder}
}

func (f *careFactory) Supports(resourceType string) bool {
	switch resourceType {
	case "Goal", "CareTeam", "Encounter", "CarePlan", "Procedure":
		return true
	}
	return false
}

func (f *careFactory) Create(resourceType string, data map[string]interface{}, requestID string, ref *fhirref.Manager) (model.Resource, error) {
	switch resourceType {
	case "Goal":
		return create(resourceType, data, []string{"description", "patient_id"}, f.buildGoal, ref)
	case "CareTeam":
		return create(resourceType, data, []string{"patient_id"}, f.buildCareTeam, ref)
	case "Encounter":
		return create(resourceType, data, []string{"patient_id"}, f.buildEncounter, ref)
	case "CarePlan":
		return create(resourceType, data, []string{"patient_id"}, f.buildCarePlan, ref)
	case "Procedure":
		return create(resourceType, data, []string{"code_text", "patient_id"}, f.buildProcedure, ref)
	default:
		return nil, fmt.Errorf("care factory does not support %s", resourceType)
	}
}

// normalizeLifecycleStatus maps free-text status mentions onto
// Goal.lifecycleStatus, defaulting to "active" — the status most clinical
// orders imply when none is stated explicitly.
func normalizeLifecycleStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "active", "ongoing", "in progress":
		return "active"
	case "completed", "done", "achieved":
		return "completed"
	case "cancelled", "canceled", "discontinued":
		return "cancelled"
	case "on hold", "paused":
		return "on-hold"
	case "planned", "proposed":
		return "planned"
	default:
		return "active"
	}
}

func (f *careFactory) buildGoal(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	return model.Resource{
		"lifecycleStatus": normalizeLifecycleStatus(getString(data, "status")),
		"description":     map[string]interface{}{"text": getString(data, "description")},
		"subject":         map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
	}, nil
}

func (f *careFactory) buildCareTeam(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	resource := model.Resource{
		"subject": map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
	}
	if name := getString(data, "name"); name != "" {
		resource["name"] = name
	}
	if practitioners := getStringSlice(data, "practitioner_ids"); len(practitioners) > 0 {
		participants := make([]interface{}, 0, len(practitioners))
		for _, pid := range practitioners {
			participants = append(participants, map[string]interface{}{
				"member": map[string]interface{}{"reference": fhirref.Reference("Practitioner", pid)},
			})
		}
		resource["participant"] = participants
	}
	return resource, nil
}

func (f *careFactory) buildEncounter(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	resource := model.Resource{
		"status":  orDefault(getString(data, "status"), "finished"),
		"subject": map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
		"class": map[string]interface{}{
			"system":  "http://terminology.hl7.org/CodeSystem/v3-ActCode",
			"code":    orDefault(getString(data, "class"), "AMB"),
			"display": encounterClassDisplay(orDefault(getString(data, "class"), "AMB")),
		},
	}
	if reason := getString(data, "reason_text"); reason != "" {
		resource["reasonCode"] = []interface{}{map[string]interface{}{"text": reason}}
	}
	return resource, nil
}

func encounterClassDisplay(code string) string {
	switch code {
	case "IMP":
		return "inpatient encounter"
	case "EMER":
		return "emergency"
	case "VR":
		return "virtual"
	default:
		return "ambulatory"
	}
}

func (f *careFactory) buildCarePlan(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	resource := model.Resource{
		"status":  orDefault(getString(data, "status"), "active"),
		"intent":  orDefault(getString(data, "intent"), "plan"),
		"subject": map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
	}
	if goalIDs := getStringSlice(data, "goal_ids"); len(goalIDs) > 0 {
		goals := make([]interface{}, 0, len(goalIDs))
		for _, gid := range goalIDs {
			goals = append(goals, map[string]interface{}{"reference": fhirref.Reference("Goal", gid)})
		}
		resource["goal"] = goals
	}
	return resource, nil
}

func (f *careFactory) buildProcedure(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	codeText := getString(data, "code_text")
	var match *coding.Match
	if m, ok := f.coder.Best(coding.SystemSNOMED, codeText); ok {
		match = &m
	}
	return model.Resource{
		"status":  orDefault(getString(data, "status"), "completed"),
		"code":    coding.CodeableConcept(coding.SystemSNOMED, codeText, match),
		"subject": map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
	}, nil
}
