package bundle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nlfhir/bridge/internal/errs"
	"github.com/nlfhir/bridge/internal/fhirval"
	"github.com/nlfhir/bridge/internal/model"
	"github.com/nlfhir/bridge/pkg/validator"
)

// Issue is a ValidationIssue annotated with the endpoint that produced it,
// "local-fallback" when every external validator was unreachable.
type Issue struct {
	validator.ValidationIssue
	SourceEndpoint string `json:"source_endpoint"`
}

// ValidationOutcome is the result returned from POST /validate. SourceEndpoint
// is set even when Issues is empty, so callers don't have to infer it from
// the first issue.
type ValidationOutcome struct {
	Valid          bool    `json:"valid"`
	SourceEndpoint string  `json:"source_endpoint"`
	Issues         []Issue `json:"issues,omitempty"`
}

// validatorRequest/validatorResponse are this system's own validate-service
// wire contract: a JSON body carrying the bundle and a JSON body carrying a
// ValidationResult, reusing pkg/validator's shared issue vocabulary so the
// external validator and the local fallback speak the same shape.
//
// The authoritative outcome field is is_valid, not valid — a prior bridge
// read the wrong key here and silently treated every external response as
// passing.
type validatorRequest struct {
	Resource model.Resource `json:"resource"`
}

type validatorResponse struct {
	IsValid bool                         `json:"is_valid"`
	Issues  []validator.ValidationIssue `json:"issues"`
}

// Validate checks bundleResource against each endpoint in order, stopping at
// the first that answers within perEndpointTimeout. The whole attempt is
// bounded by totalTimeout; if every endpoint fails, the bounded structural
// validator runs locally and every resulting issue is downgraded to warning
// with SourceEndpoint = "local-fallback", per the external-validator
// failover contract.
func Validate(ctx context.Context, client *http.Client, bundleResource model.Resource, endpoints []string, perEndpointTimeout, totalTimeout time.Duration) (*ValidationOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, totalTimeout)
	defer cancel()

	var lastErr error
	for _, endpoint := range endpoints {
		resp, err := callValidatorEndpoint(ctx, client, endpoint, bundleResource, perEndpointTimeout)
		if err != nil {
			lastErr = err
			continue
		}
		issues := make([]Issue, 0, len(resp.Issues))
		for _, iss := range resp.Issues {
			issues = append(issues, Issue{ValidationIssue: iss, SourceEndpoint: endpoint})
		}
		return &ValidationOutcome{Valid: resp.IsValid, SourceEndpoint: endpoint, Issues: issues}, nil
	}

	if len(endpoints) > 0 {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
		}
	}

	return localFallback(bundleResource), &errs.ValidationUnavailable{Attempted: endpoints, LastErr: lastErr}
}

func callValidatorEndpoint(ctx context.Context, client *http.Client, endpoint string, bundleResource model.Resource, timeout time.Duration) (*validatorResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(validatorRequest{Resource: bundleResource})
	if err != nil {
		return nil, fmt.Errorf("encoding validator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building validator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling validator endpoint %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("validator endpoint %s returned status %d", endpoint, resp.StatusCode)
	}

	var out validatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding validator response from %s: %w", endpoint, err)
	}
	return &out, nil
}

// localFallback re-runs the bounded structural validator against every
// entry in the bundle, downgrading every issue to warning: a local miss
// shouldn't itself block a transaction an external validator might have
// passed.
func localFallback(bundleResource model.Resource) *ValidationOutcome {
	outcome := &ValidationOutcome{Valid: true, SourceEndpoint: "local-fallback"}

	entries, _ := bundleResource["entry"].([]interface{})
	for _, e := range entries {
		entry, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		resource, ok := entry["resource"].(map[string]interface{})
		if !ok {
			continue
		}
		resourceType, _ := resource["resourceType"].(string)
		if !fhirval.SupportsType(resourceType) {
			continue
		}
		result := fhirval.Validate(resourceType, resource)
		for _, iss := range result.Issues {
			iss.Severity = validator.SeverityWarning
			outcome.Issues = append(outcome.Issues, Issue{ValidationIssue: iss, SourceEndpoint: "local-fallback"})
		}
	}

	return outcome
}
