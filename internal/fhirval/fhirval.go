// Package fhirval implements the bounded local structural validator: a
// required-field / value-set / reference-syntax check against the fixed set
// of resource types this system emits. Cardinality is not checked. It is not a general StructureDefinition
// engine — grounded on the shape of pkg/validator's (deleted) generic
// engine, but re-scoped to only what this converter produces.
package fhirval

import (
	"fmt"

	"github.com/nlfhir/bridge/pkg/validator"
)

// Rule describes the required fields and bounded value sets for one
// resource type.
type Rule struct {
	RequiredFields []string
	BoundValueSets map[string][]string // field path -> allowed values
}

// rules is the fixed table of resource types this converter knows about.
// Every resource type the factory registry can produce has an entry here.
var rules = map[string]Rule{
	"Patient": {
		RequiredFields: []string{"resourceType", "id"},
		BoundValueSets: map[string][]string{
			"gender": {"male", "female", "other", "unknown"},
		},
	},
	"MedicationRequest": {
		RequiredFields: []string{"resourceType", "id", "status", "intent", "subject"},
		BoundValueSets: map[string][]string{
			"status": {"active", "on-hold", "cancelled", "completed", "entered-in-error", "stopped", "draft", "unknown"},
			"intent": {"proposal", "plan", "order", "original-order", "reflex-order", "filler-order", "instance-order", "option"},
		},
	},
	"MedicationAdministration": {
		RequiredFields: []string{"resourceType", "id", "status", "subject"},
		BoundValueSets: map[string][]string{
			"status": {"in-progress", "not-done", "on-hold", "completed", "entered-in-error", "stopped", "unknown"},
		},
	},
	"Medication": {
		RequiredFields: []string{"resourceType", "id"},
	},
	"MedicationDispense": {
		RequiredFields: []string{"resourceType", "id", "status"},
		BoundValueSets: map[string][]string{
			"status": {"preparation", "in-progress", "cancelled", "on-hold", "completed", "entered-in-error", "stopped", "declined", "unknown"},
		},
	},
	"MedicationStatement": {
		RequiredFields: []string{"resourceType", "id", "status", "subject"},
		BoundValueSets: map[string][]string{
			"status": {"active", "completed", "entered-in-error", "intended", "stopped", "on-hold", "unknown", "not-taken"},
		},
	},
	"Observation": {
		RequiredFields: []string{"resourceType", "id", "status", "code"},
		BoundValueSets: map[string][]string{
			"status": {"registered", "preliminary", "final", "amended", "corrected", "cancelled", "entered-in-error", "unknown"},
		},
	},
	"Condition": {
		RequiredFields: []string{"resourceType", "id", "subject"},
	},
	"DiagnosticReport": {
		RequiredFields: []string{"resourceType", "id", "status", "code"},
		BoundValueSets: map[string][]string{
			"status": {"registered", "partial", "preliminary", "final", "amended", "corrected", "appended", "cancelled", "entered-in-error", "unknown"},
		},
	},
	"ServiceRequest": {
		RequiredFields: []string{"resourceType", "id", "status", "intent", "subject"},
		BoundValueSets: map[string][]string{
			"status": {"draft", "active", "on-hold", "revoked", "completed", "entered-in-error", "unknown"},
			"intent": {"proposal", "plan", "directive", "order", "original-order", "reflex-order", "filler-order", "instance-order", "option"},
		},
	},
	"AllergyIntolerance": {
		RequiredFields: []string{"resourceType", "id", "patient"},
		BoundValueSets: map[string][]string{
			"criticality": {"low", "high", "unable-to-assess"},
		},
	},
	"Goal": {
		RequiredFields: []string{"resourceType", "id", "lifecycleStatus", "subject"},
		BoundValueSets: map[string][]string{
			"lifecycleStatus": {"proposed", "planned", "accepted", "active", "on-hold", "completed", "cancelled", "entered-in-error", "rejected"},
		},
	},
	"CarePlan": {
		RequiredFields: []string{"resourceType", "id", "status", "intent", "subject"},
		BoundValueSets: map[string][]string{
			"status": {"draft", "active", "on-hold", "revoked", "completed", "entered-in-error", "unknown"},
			"intent": {"proposal", "plan", "order", "option"},
		},
	},
	"CareTeam": {
		RequiredFields: []string{"resourceType", "id"},
	},
	"Encounter": {
		RequiredFields: []string{"resourceType", "id", "status"},
		BoundValueSets: map[string][]string{
			"status": {"planned", "arrived", "triaged", "in-progress", "onleave", "finished", "cancelled", "entered-in-error", "unknown"},
		},
	},
	"Procedure": {
		RequiredFields: []string{"resourceType", "id", "status", "subject"},
		BoundValueSets: map[string][]string{
			"status": {"preparation", "in-progress", "not-done", "on-hold", "stopped", "completed", "entered-in-error", "unknown"},
		},
	},
	"Location":              {RequiredFields: []string{"resourceType", "id"}},
	"Organization":          {RequiredFields: []string{"resourceType", "id"}},
	"Device":                {RequiredFields: []string{"resourceType", "id"}},
	"DeviceUseStatement":    {RequiredFields: []string{"resourceType", "id", "subject"}},
	"Appointment":           {RequiredFields: []string{"resourceType", "id", "status"}},
	"Coverage":              {RequiredFields: []string{"resourceType", "id", "beneficiary"}},
	"Specimen":              {RequiredFields: []string{"resourceType", "id"}},
	"RelatedPerson":         {RequiredFields: []string{"resourceType", "id", "patient"}},
	"Immunization": {
		RequiredFields: []string{"resourceType", "id", "status", "patient"},
		BoundValueSets: map[string][]string{
			"status": {"completed", "entered-in-error", "not-done"},
		},
	},
	"CommunicationRequest": {RequiredFields: []string{"resourceType", "id"}},
	"RiskAssessment":       {RequiredFields: []string{"resourceType", "id", "subject"}},
	"ImagingStudy":         {RequiredFields: []string{"resourceType", "id", "status", "subject"}},
}

// Validate runs the bounded structural checks for resourceType against
// resource and returns a ValidationResult. Unknown resource types produce a
// single fatal issue rather than a panic.
func Validate(resourceType string, resource map[string]interface{}) *validator.ValidationResult {
	result := validator.NewValidationResult()

	rule, known := rules[resourceType]
	if !known {
		result.AddIssue(validator.ValidationIssue{
			Severity:    validator.SeverityFatal,
			Code:        validator.IssueCodeStructure,
			Diagnostics: fmt.Sprintf("unknown resource type: %s", resourceType),
			Expression:  []string{"resourceType"},
		})
		return result
	}

	for _, field := range rule.RequiredFields {
		if !hasNonEmpty(resource, field) {
			result.AddIssue(validator.ValidationIssue{
				Severity:    validator.SeverityError,
				Code:        validator.IssueCodeRequired,
				Diagnostics: fmt.Sprintf("%s.%s is required", resourceType, field),
				Expression:  []string{resourceType + "." + field},
			})
		}
	}

	for field, allowed := range rule.BoundValueSets {
		val, ok := resource[field].(string)
		if !ok || val == "" {
			continue // absence already reported by the required-field check
		}
		if !contains(allowed, val) {
			result.AddIssue(validator.ValidationIssue{
				Severity:    validator.SeverityError,
				Code:        validator.IssueCodeCodeInvalid,
				Diagnostics: fmt.Sprintf("%s.%s value '%s' is not in the bound value set", resourceType, field, val),
				Expression:  []string{resourceType + "." + field},
			})
		}
	}

	validateReferencesRecursive(resource, resourceType, result)

	return result
}

func hasNonEmpty(resource map[string]interface{}, field string) bool {
	v, ok := resource[field]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return s != ""
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// validateReferencesRecursive walks the resource tree checking every
// "reference" string for syntactic validity, mirroring the traversal shape
// the deleted generic engine used for the same purpose.
func validateReferencesRecursive(node interface{}, path string, result *validator.ValidationResult) {
	switch val := node.(type) {
	case map[string]interface{}:
		if refStr, ok := val["reference"].(string); ok {
			parsed := validator.ParseReference(refStr)
			if !parsed.Valid {
				result.AddIssue(validator.ValidationIssue{
					Severity:    validator.SeverityError,
					Code:        validator.IssueCodeValue,
					Diagnostics: fmt.Sprintf("invalid reference format: '%s'", refStr),
					Expression:  []string{path + ".reference"},
				})
			}
		}
		for key, child := range val {
			if key == "contained" {
				continue
			}
			validateReferencesRecursive(child, path+"."+key, result)
		}
	case []interface{}:
		for i, item := range val {
			validateReferencesRecursive(item, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}

// SupportsType reports whether resourceType has a known validation rule.
func SupportsType(resourceType string) bool {
	_, ok := rules[resourceType]
	return ok
}
