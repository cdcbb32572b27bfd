package factory

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/nlfhir/bridge/internal/coding"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/nlfhir/bridge/internal/model"
)

type miscFactory struct {
	coder *coding.Coder
}

func newMiscFactory(coder *coding.Coder) Factory {
	return &miscFactory{coder: coder}
}

func (f *miscFactory) Supports(resourceType string) bool {
	switch resourceType {
	case "Location", "Organization", "Device", "DeviceUseStatement", "Appointment", "Coverage",
		"Specimen", "Immunization", "CommunicationRequest", "RiskAssessment", "ImagingStudy":
		return true
	}
	return false
}

func (f *miscFactory) Create(resourceType string, data map[string]interface{}, requestID string, ref *fhirref.Manager) (model.Resource, error) {
	switch resourceType {
	case "Location":
		return create(resourceType, data, []string{"name"}, f.buildLocation, ref)
	case "Organization":
		return create(resourceType, data, []string{"name"}, f.buildOrganization, ref)
	case "Device":
		return create(resourceType, data, []string{"device_text"}, f.buildDevice, ref)
	case "DeviceUseStatement":
		return create(resourceType, data, []string{"device_id", "patient_id"}, f.buildDeviceUseStatement, ref)
	case "Appointment":
		return create(resourceType, data, []string{"patient_id"}, f.buildAppointment, ref)
	case "Coverage":
		return create(resourceType, data, []string{"patient_id"}, f.buildCoverage, ref)
	case "Specimen":
		return create(resourceType, data, []string{"patient_id"}, f.buildSpecimen, ref)
	case "Immunization":
		return create(resourceType, data, []string{"vaccine_text", "patient_id", "status"}, f.buildImmunization, ref)
	case "CommunicationRequest":
		return create(resourceType, data, []string{"patient_id"}, f.buildCommunicationRequest, ref)
	case "RiskAssessment":
		return create(resourceType, data, []string{"patient_id"}, f.buildRiskAssessment, ref)
	case "ImagingStudy":
		return create(resourceType, data, []string{"patient_id", "status"}, f.buildImagingStudy, ref)
	default:
		return nil, fmt.Errorf("misc factory does not support %s", resourceType)
	}
}

func (f *miscFactory) buildLocation(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	resource := model.Resource{"name": getString(data, "name")}
	if status := getString(data, "status"); status != "" {
		resource["status"] = status
	}
	return resource, nil
}

func (f *miscFactory) buildOrganization(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	return model.Resource{
		"active": true,
		"name":   getString(data, "name"),
	}, nil
}

func (f *miscFactory) buildDevice(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	return model.Resource{
		"deviceName": []interface{}{map[string]interface{}{
			"name": getString(data, "device_text"),
			"type": "user-friendly-name",
		}},
	}, nil
}

func (f *miscFactory) buildDeviceUseStatement(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	return model.Resource{
		"status": orDefault(getString(data, "status"), "active"),
		"subject": map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
		"device": map[string]interface{}{"reference": fhirref.Reference("Device", getString(data, "device_id"))},
	}, nil
}

func (f *miscFactory) buildAppointment(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	resource := model.Resource{
		"status": orDefault(getString(data, "status"), "booked"),
		"participant": []interface{}{map[string]interface{}{
			"actor":  map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
			"status": "accepted",
		}},
	}
	if start := getString(data, "start"); start != "" {
		resource["start"] = start
	}
	return resource, nil
}

func (f *miscFactory) buildCoverage(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	resource := model.Resource{
		"status":      orDefault(getString(data, "status"), "active"),
		"beneficiary": map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
	}
	if payor := getString(data, "payor_name"); payor != "" {
		resource["payor"] = []interface{}{map[string]interface{}{"display": payor}}
	}
	return resource, nil
}

func (f *miscFactory) buildSpecimen(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	resource := model.Resource{
		"subject": map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
	}
	if specType := getString(data, "specimen_type"); specType != "" {
		resource["type"] = map[string]interface{}{"text": specType}
	}
	return resource, nil
}

func (f *miscFactory) buildImmunization(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	vaccine := getString(data, "vaccine_text")
	var match *coding.Match
	if m, ok := f.coder.Best(coding.SystemCVX, vaccine); ok {
		match = &m
	}
	return model.Resource{
		"status":        getString(data, "status"),
		"vaccineCode":   coding.CodeableConcept(coding.SystemCVX, vaccine, match),
		"patient":       map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
	}, nil
}

func (f *miscFactory) buildCommunicationRequest(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	resource := model.Resource{
		"status":  orDefault(getString(data, "status"), "active"),
		"subject": map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
	}
	if payload := getString(data, "payload_text"); payload != "" {
		resource["payload"] = []interface{}{map[string]interface{}{"contentString": payload}}
	}
	return resource, nil
}

func (f *miscFactory) buildRiskAssessment(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	resource := model.Resource{
		"status":  orDefault(getString(data, "status"), "final"),
		"subject": map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
	}
	if prediction := getString(data, "prediction_text"); prediction != "" {
		resource["prediction"] = []interface{}{map[string]interface{}{
			"outcome": map[string]interface{}{"text": prediction},
		}}
	}
	return resource, nil
}

func (f *miscFactory) buildImagingStudy(_ string, data map[string]interface{}, _ *fhirref.Manager) (model.Resource, error) {
	resource := model.Resource{
		"status":    getString(data, "status"),
		"subject":   map[string]interface{}{"reference": fhirref.Reference("Patient", getString(data, "patient_id"))},
		"identifier": []interface{}{map[string]interface{}{
			"system": "urn:dicom:uid",
			"value":  "urn:oid:" + dicomStudyUID(),
		}},
	}
	if modality := getString(data, "modality"); modality != "" {
		resource["modality"] = []interface{}{map[string]interface{}{
			"system": "http://dicom.nema.org/resources/ontology/DCM",
			"code":   modality,
		}}
	}
	return resource, nil
}

// dicomStudyUID mints a DICOM-valid study instance UID using the standard
// 2.25.<uuid-as-decimal> root (RFC 4122 UUID reinterpreted as an OID arc,
// per DICOM PS3.5 Annex B), avoiding the need for a registered org root.
func dicomStudyUID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	n := new(big.Int)
	n.SetString(raw, 16)
	return "2.25." + n.String()
}
