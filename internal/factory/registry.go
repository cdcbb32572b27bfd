// Package factory implements the FHIR Resource Factory Registry: a
// lazily-instantiated, per-type singleton dispatch table mapping resource
// types to the domain factory that knows how to build them, grounded on
// pkg/validator.Registry's lock-guarded check-then-create discipline but
// keyed by resource type -> domain Factory rather than by canonical URL.
package factory

import (
	"sync"

	"github.com/nlfhir/bridge/internal/coding"
	"github.com/nlfhir/bridge/internal/errs"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/nlfhir/bridge/internal/model"
)

// Factory creates typed FHIR resources for the resource types it supports.
type Factory interface {
	Supports(resourceType string) bool
	Create(resourceType string, data map[string]interface{}, requestID string, ref *fhirref.Manager) (model.Resource, error)
}

// constructor lazily builds a domain factory the first time one of its
// resource types is requested.
type constructor func(coder *coding.Coder) Factory

// Registry dispatches resource-type requests to domain factories,
// instantiating each domain factory at most once per process.
type Registry struct {
	coder *coding.Coder

	mu           sync.Mutex
	constructors map[string]constructor // resourceType -> constructor for its owning domain factory
	instances    map[string]Factory     // constructor identity key -> instantiated factory
	keyOf        map[string]string      // resourceType -> constructor identity key
}

// NewRegistry wires the fixed dispatch table of resource type -> domain
// factory constructor. The coder is shared read-only terminology lookup,
// handed to each domain factory as it's built.
func NewRegistry(coder *coding.Coder) *Registry {
	r := &Registry{
		coder:        coder,
		constructors: make(map[string]constructor),
		instances:    make(map[string]Factory),
		keyOf:        make(map[string]string),
	}
	r.register("patient", newPatientFactory, "Patient", "RelatedPerson")
	r.register("medication", newMedicationFactory, "MedicationRequest", "MedicationAdministration", "Medication", "MedicationDispense", "MedicationStatement")
	r.register("clinical", newClinicalFactory, "Observation", "Condition", "DiagnosticReport", "ServiceRequest", "AllergyIntolerance")
	r.register("care", newCareFactory, "Goal", "CareTeam", "Encounter", "CarePlan", "Procedure")
	r.register("misc", newMiscFactory, "Location", "Organization", "Device", "DeviceUseStatement", "Appointment", "Coverage", "Specimen", "Immunization", "CommunicationRequest", "RiskAssessment", "ImagingStudy")
	return r
}

func (r *Registry) register(key string, ctor constructor, resourceTypes ...string) {
	r.constructors[key] = ctor
	for _, rt := range resourceTypes {
		r.keyOf[rt] = key
	}
}

// GetFactory returns the (lazily instantiated) domain factory that supports
// resourceType. The check-then-create section is lock-guarded so concurrent
// requests for the same type race safely onto a single instance.
func (r *Registry) GetFactory(resourceType string) (Factory, error) {
	key, ok := r.keyOf[resourceType]
	if !ok {
		return nil, errs.ErrUnknownResource
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.instances[key]; ok {
		return f, nil
	}
	f := r.constructors[key](r.coder)
	r.instances[key] = f
	return f, nil
}

// Create looks up the owning factory for resourceType and runs its template
// method. Convenience wrapper so callers don't need GetFactory + Supports.
func (r *Registry) Create(resourceType string, data map[string]interface{}, requestID string, ref *fhirref.Manager) (model.Resource, error) {
	f, err := r.GetFactory(resourceType)
	if err != nil {
		return nil, &errs.FactoryError{ResourceType: resourceType, Err: err}
	}
	return f.Create(resourceType, data, requestID, ref)
}

// SupportedTypes lists every resource type the registry can dispatch to, for
// diagnostics and tests.
func (r *Registry) SupportedTypes() []string {
	types := make([]string, 0, len(r.keyOf))
	for rt := range r.keyOf {
		types = append(types, rt)
	}
	return types
}
