package factory

import (
	"fmt"
	"strings"

	"github.com/nlfhir/bridge/internal/coding"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/nlfhir/bridge/internal/model"
)

// safetyAlertExtensionURL tags a resource with a medication-allergy
// cross-check hit. It's a bundle-internal convention, not a published
// profile; the orchestrator collects the extension's valueString into the
// response's safety alerts without a separate side channel.
const safetyAlertExtensionURL = "http://nlfhir.local/fhir/StructureDefinition/safety-alert"

type medicationFactory struct {
	coder *coding.Coder
}

func newMedicationFactory(coder *coding.Coder) Factory {
	return &medicationFactory{coder: coder}
}

func (f *medicationFactory) Supports(resourceType string) bool {
	switch resourceType {
	case "MedicationRequest", "MedicationAdministration", "Medication", "MedicationDispense", "MedicationStatement":
		return true
	}
	return false
}

func (f *medicationFactory) Create(resourceType string, data map[string]interface{}, requestID string, ref *fhirref.Manager) (model.Resource, error) {
	switch resourceType {
	case "Medication":
		return create(resourceType, data, []string{"medication_text"}, f.buildMedication, ref)
	case "MedicationRequest":
		return create(resourceType, data, []string{"medication_text", "patient_id"}, f.buildMedicationRequest, ref)
	case "MedicationAdministration":
		return create(resourceType, data, []string{"medication_text", "patient_id", "status"}, f.buildMedicationAdministration, ref)
	case "MedicationDispense":
		return create(resourceType, data, []string{"medication_text", "patient_id", "status"}, f.buildMedicationDispense, ref)
	case "MedicationStatement":
		return create(resourceType, data, []string{"medication_text", "patient_id", "status"}, f.buildMedicationStatement, ref)
	default:
		return nil, fmt.Errorf("medication factory does not support %s", resourceType)
	}
}

func (f *medicationFactory) medicationCodeableConcept(text string) map[string]interface{} {
	var match *coding.Match
	if m, ok := f.coder.Best(coding.SystemRxNorm, text); ok {
		match = &m
	}
	return coding.CodeableConcept(coding.SystemRxNorm, text, match)
}

func (f *medicationFactory) buildMedication(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	resource := model.Resource{
		"code": f.medicationCodeableConcept(getString(data, "medication_text")),
	}
	if form := getString(data, "form"); form != "" {
		resource["form"] = map[string]interface{}{"text": form}
	}
	return resource, nil
}

func (f *medicationFactory) buildMedicationRequest(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	medText := getString(data, "medication_text")
	resource := model.Resource{
		"status":            orDefault(getString(data, "status"), "active"),
		"intent":            orDefault(getString(data, "intent"), "order"),
		"medicationCodeableConcept": f.medicationCodeableConcept(medText),
		"subject": map[string]interface{}{
			"reference": fhirref.Reference("Patient", getString(data, "patient_id")),
		},
	}

	if dosage := buildDosage(getString(data, "dosage"), getString(data, "frequency"), getString(data, "route")); dosage != nil {
		resource["dosageInstruction"] = []interface{}{dosage}
	}

	f.attachSafetyAlert(resource, "MedicationRequest", medText, getStringSlice(data, "patient_allergies"))

	return resource, nil
}

func (f *medicationFactory) buildMedicationAdministration(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	medText := getString(data, "medication_text")
	resource := model.Resource{
		"status":                    getString(data, "status"),
		"medicationCodeableConcept": f.medicationCodeableConcept(medText),
		"subject": map[string]interface{}{
			"reference": fhirref.Reference("Patient", getString(data, "patient_id")),
		},
	}
	if dosage := buildDosage(getString(data, "dosage"), getString(data, "frequency"), getString(data, "route")); dosage != nil {
		resource["dosage"] = dosage
	}

	f.attachSafetyAlert(resource, "MedicationAdministration", medText, getStringSlice(data, "patient_allergies"))

	return resource, nil
}

func (f *medicationFactory) buildMedicationDispense(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	medText := getString(data, "medication_text")
	resource := model.Resource{
		"status":                    getString(data, "status"),
		"medicationCodeableConcept": f.medicationCodeableConcept(medText),
		"subject": map[string]interface{}{
			"reference": fhirref.Reference("Patient", getString(data, "patient_id")),
		},
	}

	f.attachSafetyAlert(resource, "MedicationDispense", medText, getStringSlice(data, "patient_allergies"))

	return resource, nil
}

func (f *medicationFactory) buildMedicationStatement(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	medText := getString(data, "medication_text")
	resource := model.Resource{
		"status":                    getString(data, "status"),
		"medicationCodeableConcept": f.medicationCodeableConcept(medText),
		"subject": map[string]interface{}{
			"reference": fhirref.Reference("Patient", getString(data, "patient_id")),
		},
	}

	f.attachSafetyAlert(resource, "MedicationStatement", medText, getStringSlice(data, "patient_allergies"))

	return resource, nil
}

// attachSafetyAlert runs the medication-allergy cross-check and, on a hit,
// tags resource with a safety-alert extension rather than failing the
// resource. The spec treats an allergy match as informational: the
// medication order still goes out, flagged for reviewer attention.
func (f *medicationFactory) attachSafetyAlert(resource model.Resource, resourceType, medicationText string, allergies []string) {
	allergen, conflict := checkAllergyConflict(medicationText, allergies)
	if !conflict {
		return
	}
	existing, _ := resource["extension"].([]interface{})
	resource["extension"] = append(existing, map[string]interface{}{
		"url":         safetyAlertExtensionURL,
		"valueString": fmt.Sprintf("%s conflicts with documented allergy to %s", medicationText, allergen),
	})
}

// checkAllergyConflict reports whether medicationText mentions any of the
// patient's documented allergens, by case-insensitive substring match.
func checkAllergyConflict(medicationText string, allergies []string) (string, bool) {
	med := strings.ToLower(medicationText)
	for _, allergen := range allergies {
		a := strings.ToLower(strings.TrimSpace(allergen))
		if a == "" {
			continue
		}
		if strings.Contains(med, a) || strings.Contains(a, med) {
			return allergen, true
		}
	}
	return "", false
}

func buildDosage(dosage, frequency, route string) map[string]interface{} {
	if dosage == "" && frequency == "" && route == "" {
		return nil
	}
	d := map[string]interface{}{}
	if dosage != "" || frequency != "" {
		text := strings.TrimSpace(strings.TrimSpace(dosage) + " " + strings.TrimSpace(frequency))
		d["text"] = text
	}
	if route != "" {
		d["route"] = map[string]interface{}{"text": route}
	}
	return d
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
