package factory

import (
	"github.com/nlfhir/bridge/internal/errs"
	"github.com/nlfhir/bridge/internal/fhirref"
	"github.com/nlfhir/bridge/internal/fhirval"
	"github.com/nlfhir/bridge/internal/model"
	"github.com/nlfhir/bridge/pkg/common"
	"github.com/nlfhir/bridge/pkg/validator"
)

// builder constructs the typed resource body (everything but resourceType
// and id, which the template method stamps itself) from the input data map.
type builder func(id string, data map[string]interface{}, ref *fhirref.Manager) (model.Resource, error)

// create runs the five-step factory template method shared by every domain
// factory: validate the input contract, mint an id, build the typed map,
// run local structural validation, and return a FactoryError on any failure
// rather than an incomplete resource.
func create(resourceType string, data map[string]interface{}, required []string, build builder, ref *fhirref.Manager) (model.Resource, error) {
	if err := requireFields(data, required); err != nil {
		return nil, &errs.FactoryError{ResourceType: resourceType, Path: common.GetPath(err), Err: err}
	}

	id := fhirref.MintID(resourceType)

	resource, err := build(id, data, ref)
	if err != nil {
		return nil, &errs.FactoryError{ResourceType: resourceType, Err: err}
	}
	resource["resourceType"] = resourceType
	resource["id"] = id

	result := fhirval.Validate(resourceType, resource)
	if result.HasErrors() {
		pathErr := common.WrapPathf(firstIssuePath(result), "local structural validation failed: %d issue(s)", result.ErrorCount())
		return nil, &errs.FactoryError{
			ResourceType: resourceType,
			Path:         common.GetPath(pathErr),
			Err:          pathErr,
		}
	}

	return resource, nil
}

// requireFields checks data against its per-resource input contract,
// wrapping the sentinel errs.ErrMissingRequired in a common.PathError so the
// offending field survives as the error's Path.
func requireFields(data map[string]interface{}, required []string) error {
	for _, field := range required {
		v, ok := data[field]
		if !ok || v == nil {
			return common.WrapPath(field, errs.ErrMissingRequired)
		}
		if s, isStr := v.(string); isStr && s == "" {
			return common.WrapPath(field, errs.ErrMissingRequired)
		}
	}
	return nil
}

func firstIssuePath(result *validator.ValidationResult) string {
	for _, issue := range result.Issues {
		if len(issue.Expression) > 0 {
			return issue.Expression[0]
		}
	}
	return ""
}
