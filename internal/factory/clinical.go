package factory

import (
	"fmt"
	"strings"

	"github.com/nlfhir/bridge/internal/coding"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/nlfhir/bridge/internal/model"
	"github.com/nlfhir/bridge/pkg/ucum"
)

type clinicalFactory struct {
	coder *coding.Coder
}

func newClinicalFactory(coder *coding.Coder) Factory {
	return &clinicalFactory{coder: coder}
}

func (f *clinicalFactory) Supports(resourceType string) bool {
	switch resourceType {
	case "Observation", "Condition", "DiagnosticReport", "ServiceRequest", "AllergyIntolerance":
		return true
	}
	return false
}

func (f *clinicalFactory) Create(resourceType string, data map[string]interface{}, requestID string, ref *fhirref.Manager) (model.Resource, error) {
	switch resourceType {
	case "Observation":
		return create(resourceType, data, []string{"code_text", "patient_id"}, f.buildObservation, ref)
	case "Condition":
		return create(resourceType, data, []string{"code_text", "patient_id"}, f.buildCondition, ref)
	case "DiagnosticReport":
		return create(resourceType, data, []string{"code_text", "patient_id"}, f.buildDiagnosticReport, ref)
	case "ServiceRequest":
		return create(resourceType, data, []string{"code_text", "patient_id"}, f.buildServiceRequest, ref)
	case "AllergyIntolerance":
		return create(resourceType, data, []string{"allergen_text", "patient_id"}, f.buildAllergyIntolerance, ref)
	default:
		return nil, fmt.Errorf("clinical factory does not support %s", resourceType)
	}
}

func (f *clinicalFactory) subjectRef(data map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))}
}

func (f *clinicalFactory) buildObservation(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	codeText := getString(data, "code_text")
	var match *coding.Match
	if m, ok := f.coder.Best(coding.SystemLOINC, codeText); ok {
		match = &m
	}

	resource := model.Resource{
		"status":  orDefault(getString(data, "status"), "final"),
		"code":    coding.CodeableConcept(coding.SystemLOINC, codeText, match),
		"subject": f.subjectRef(data),
	}

	resource["category"] = []interface{}{observationCategory(codeText)}

	if value, hasValue := getFloat(data, "value"); hasValue {
		unit := getString(data, "unit")
		normalized := ucum.Normalize(value, unit)
		resource["valueQuantity"] = map[string]interface{}{
			"value":  normalized.Value,
			"unit":   normalized.Code,
			"system": "http://unitsofmeasure.org",
			"code":   normalized.Code,
		}
	} else if textValue := getString(data, "value_text"); textValue != "" {
		resource["valueString"] = textValue
	}

	return resource, nil
}

// observationCategory makes a coarse guess at the Observation.category
// binding from the LOINC term's text, defaulting to "vital-signs" for
// anything that looks like a bedside measurement and "laboratory" otherwise.
func observationCategory(codeText string) map[string]interface{} {
	category := "laboratory"
	for _, vital := range []string{"blood pressure", "heart rate", "temperature", "respiratory rate", "oxygen saturation", "pulse", "weight", "height", "bmi"} {
		if containsFold(codeText, vital) {
			category = "vital-signs"
			break
		}
	}
	return map[string]interface{}{
		"coding": []interface{}{map[string]interface{}{
			"system": "http://terminology.hl7.org/CodeSystem/observation-category",
			"code":   category,
		}},
	}
}

func (f *clinicalFactory) buildCondition(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	codeText := getString(data, "code_text")
	var match *coding.Match
	if m, ok := f.coder.Best(coding.SystemSNOMED, codeText); ok {
		match = &m
	}

	resource := model.Resource{
		"code":    coding.CodeableConcept(coding.SystemSNOMED, codeText, match),
		"subject": f.subjectRef(data),
	}

	if negated, _ := data["negated"].(bool); negated {
		resource["verificationStatus"] = map[string]interface{}{
			"coding": []interface{}{map[string]interface{}{
				"system": "http://terminology.hl7.org/CodeSystem/condition-ver-status",
				"code":   "refuted",
			}},
		}
	}
	if historical, _ := data["historical"].(bool); historical {
		resource["clinicalStatus"] = map[string]interface{}{
			"coding": []interface{}{map[string]interface{}{
				"system": "http://terminology.hl7.org/CodeSystem/condition-clinical",
				"code":   "resolved",
			}},
		}
	}

	return resource, nil
}

func (f *clinicalFactory) buildDiagnosticReport(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	codeText := getString(data, "code_text")
	var match *coding.Match
	if m, ok := f.coder.Best(coding.SystemLOINC, codeText); ok {
		match = &m
	}

	resource := model.Resource{
		"status":  orDefault(getString(data, "status"), "final"),
		"code":    coding.CodeableConcept(coding.SystemLOINC, codeText, match),
		"subject": f.subjectRef(data),
	}

	if conclusion := getString(data, "conclusion"); conclusion != "" {
		resource["conclusion"] = conclusion
	}

	return resource, nil
}

func (f *clinicalFactory) buildServiceRequest(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	codeText := getString(data, "code_text")
	var match *coding.Match
	if m, ok := f.coder.Best(coding.SystemLOINC, codeText); ok {
		match = &m
	}

	return model.Resource{
		"status":  orDefault(getString(data, "status"), "active"),
		"intent":  orDefault(getString(data, "intent"), "order"),
		"code":    coding.CodeableConcept(coding.SystemLOINC, codeText, match),
		"subject": f.subjectRef(data),
	}, nil
}

func (f *clinicalFactory) buildAllergyIntolerance(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	allergen := getString(data, "allergen_text")
	var match *coding.Match
	if m, ok := f.coder.Best(coding.SystemSNOMED, allergen); ok {
		match = &m
	}

	resource := model.Resource{
		"code":    coding.CodeableConcept(coding.SystemSNOMED, allergen, match),
		"patient": map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
	}

	if criticality := getString(data, "criticality"); criticality != "" {
		resource["criticality"] = criticality
	}

	return resource, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
