package factory

import (
	"fmt"
	"strings"
	"time"

	"github.com/nlfhir/bridge/internal/coding"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/nlfhir/bridge/internal/model"
)

// birthDateLayouts are the date formats the extractor's patient entities are
// known to surface, tried in order; the first that parses wins.
var birthDateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
}

type patientFactory struct {
	coder *coding.Coder
}

func newPatientFactory(coder *coding.Coder) Factory {
	return &patientFactory{coder: coder}
}

func (f *patientFactory) Supports(resourceType string) bool {
	return resourceType == "Patient" || resourceType == "RelatedPerson"
}

func (f *patientFactory) Create(resourceType string, data map[string]interface{}, requestID string, ref *fhirref.Manager) (model.Resource, error) {
	switch resourceType {
	case "Patient":
		return create(resourceType, data, []string{"full_name"}, f.buildPatient, ref)
	case "RelatedPerson":
		return create(resourceType, data, []string{"full_name", "patient_id"}, f.buildRelatedPerson, ref)
	default:
		return nil, fmt.Errorf("patient factory does not support %s", resourceType)
	}
}

func (f *patientFactory) buildPatient(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	resource := model.Resource{
		"active": true,
		"name":   []interface{}{humanName(getString(data, "full_name"))},
	}

	if gender := normalizeGender(getString(data, "gender")); gender != "" {
		resource["gender"] = gender
	}
	if bd := getString(data, "birth_date"); bd != "" {
		if parsed, ok := parseBirthDate(bd); ok {
			resource["birthDate"] = parsed
		}
	}

	telecom := buildTelecom(getString(data, "phone"), getString(data, "email"))
	if len(telecom) > 0 {
		resource["telecom"] = telecom
	}

	identifiers := buildPatientIdentifiers(getString(data, "mrn"), getString(data, "ssn"))
	if len(identifiers) > 0 {
		resource["identifier"] = identifiers
	}

	return resource, nil
}

func (f *patientFactory) buildRelatedPerson(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	resource := model.Resource{
		"patient": map[string]interface{}{
			"reference": fhirref.Reference("Patient", getString(data, "patient_id")),
		},
		"name": []interface{}{humanName(getString(data, "full_name"))},
	}

	if relationship := getString(data, "relationship"); relationship != "" {
		var match *coding.Match
		if m, ok := f.coder.Best(coding.SystemSNOMED, relationship); ok {
			match = &m
		}
		resource["relationship"] = []interface{}{coding.CodeableConcept(coding.SystemSNOMED, relationship, match)}
	}

	if phone := getString(data, "phone"); phone != "" {
		resource["telecom"] = buildTelecom(phone, getString(data, "email"))
	}

	return resource, nil
}

// humanName splits a single free-text full name into a FHIR HumanName. The
// last whitespace-separated token is taken as family; everything before it
// is given. A single-token name is stored as family only, matching how
// clinical notes commonly render a surname alone.
func humanName(full string) map[string]interface{} {
	full = strings.TrimSpace(full)
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return map[string]interface{}{"text": full}
	}
	if len(parts) == 1 {
		return map[string]interface{}{"text": full, "family": parts[0]}
	}
	family := parts[len(parts)-1]
	given := parts[:len(parts)-1]
	givenIface := make([]interface{}, len(given))
	for i, g := range given {
		givenIface[i] = g
	}
	return map[string]interface{}{
		"text":   full,
		"family": family,
		"given":  givenIface,
	}
}

// normalizeGender maps free-text gender mentions onto AdministrativeGender.
func normalizeGender(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "m":
		return "male"
	case "female", "f":
		return "female"
	case "other", "o":
		return "other"
	case "":
		return ""
	default:
		return "unknown"
	}
}

func parseBirthDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func buildTelecom(phone, email string) []interface{} {
	var telecom []interface{}
	if phone != "" {
		telecom = append(telecom, map[string]interface{}{"system": "phone", "value": phone, "use": "home"})
	}
	if email != "" {
		telecom = append(telecom, map[string]interface{}{"system": "email", "value": email})
	}
	return telecom
}

func buildPatientIdentifiers(mrn, ssn string) []interface{} {
	var identifiers []interface{}
	if mrn != "" {
		identifiers = append(identifiers, map[string]interface{}{
			"system": "http://hospital.example.org/mrn",
			"value":  mrn,
			"type": map[string]interface{}{
				"coding": []interface{}{map[string]interface{}{
					"system": "http://terminology.hl7.org/CodeSystem/v2-0203",
					"code":   "MR",
				}},
			},
		})
	}
	if ssn != "" {
		identifiers = append(identifiers, map[string]interface{}{
			"system": "http://hl7.org/fhir/sid/us-ssn",
			"value":  ssn,
			"type": map[string]interface{}{
				"coding": []interface{}{map[string]interface{}{
					"system": "http://terminology.hl7.org/CodeSystem/v2-0203",
					"code":   "SS",
				}},
			},
		})
	}
	return identifiers
}
