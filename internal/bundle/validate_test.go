package bundle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nlfhir/bridge/internal/errs"
	"github.com/nlfhir/bridge/internal/model"
	"github.com/nlfhir/bridge/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBundle() model.Resource {
	return model.Resource{
		"resourceType": "Bundle",
		"type":         "transaction",
		"entry": []interface{}{
			map[string]interface{}{
				"fullUrl": "urn:uuid:11111111-1111-1111-1111-111111111111",
				"resource": map[string]interface{}{
					"resourceType": "Patient",
					"id":           "patient-1",
				},
			},
		},
	}
}

func TestValidate_SucceedsOnFirstEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(validatorResponse{IsValid: true})
	}))
	defer srv.Close()

	outcome, err := Validate(context.Background(), srv.Client(), testBundle(), []string{srv.URL}, time.Second, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, outcome.Valid)
}

func TestValidate_FailsOverToSecondEndpoint(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(validatorResponse{
			IsValid: false,
			Issues: []validator.ValidationIssue{
				{Severity: validator.SeverityError, Code: validator.IssueCodeRequired, Diagnostics: "missing field"},
			},
		})
	}))
	defer good.Close()

	outcome, err := Validate(context.Background(), good.Client(), testBundle(), []string{bad.URL, good.URL}, time.Second, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, outcome.Valid)
	require.Len(t, outcome.Issues, 1)
	assert.Equal(t, good.URL, outcome.Issues[0].SourceEndpoint)
}

func TestValidate_AllEndpointsFailFallsBackLocally(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	outcome, err := Validate(context.Background(), bad.Client(), testBundle(), []string{bad.URL}, time.Second, 5*time.Second)
	require.Error(t, err)
	_, ok := errs.AsValidationUnavailable(err)
	assert.True(t, ok)
	require.NotNil(t, outcome)

	for _, issue := range outcome.Issues {
		assert.Equal(t, "local-fallback", issue.SourceEndpoint)
		assert.Equal(t, validator.SeverityWarning, issue.Severity)
	}
}

func TestValidate_NoEndpointsConfiguredFallsBackLocally(t *testing.T) {
	outcome, err := Validate(context.Background(), http.DefaultClient, testBundle(), nil, time.Second, time.Second)
	require.Error(t, err)
	require.NotNil(t, outcome)
}
