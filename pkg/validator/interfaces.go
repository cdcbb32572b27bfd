// Package validator provides the shared FHIR reference-parsing and
// validation-result types used by the bounded structural validator,
// the terminology coder, and the bundle assembler.
package validator

import (
	"context"
)

// ReferenceResolver allows resolving external references.
// Useful for tests and FHIR server implementations.
type ReferenceResolver interface {
	// Resolve resolves a reference string to a resource.
	// Returns nil, nil if the reference cannot be resolved (not an error).
	Resolve(ctx context.Context, reference string) (interface{}, error)
}

// TerminologyService allows validating codes against ValueSets and CodeSystems.
// The only implementation in this module is NoopTerminologyService.
type TerminologyService interface {
	// ValidateCode checks if a code is valid in the given ValueSet.
	ValidateCode(ctx context.Context, system, code, valueSetURL string) (bool, error)

	// ExpandValueSet returns all codes in the ValueSet.
	ExpandValueSet(ctx context.Context, valueSetURL string) ([]CodeInfo, error)

	// LookupCode returns information about a specific code.
	LookupCode(ctx context.Context, system, code string) (*CodeInfo, error)
}

// CodeInfo contains information about a terminology code.
type CodeInfo struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
	Active  bool   `json:"active"`
}

// NoopReferenceResolver does not resolve any references (for local validation).
type NoopReferenceResolver struct{}

// Resolve always returns nil, nil.
func (n *NoopReferenceResolver) Resolve(ctx context.Context, ref string) (interface{}, error) {
	return nil, nil
}

// NoopTerminologyService does not validate terminology (skips validation).
type NoopTerminologyService struct{}

// ValidateCode always returns true (skip validation).
func (n *NoopTerminologyService) ValidateCode(ctx context.Context, system, code, valueSetURL string) (bool, error) {
	return true, nil
}

// ExpandValueSet returns empty (no expansion available).
func (n *NoopTerminologyService) ExpandValueSet(ctx context.Context, valueSetURL string) ([]CodeInfo, error) {
	return nil, nil
}

// LookupCode returns nil (no lookup available).
func (n *NoopTerminologyService) LookupCode(ctx context.Context, system, code string) (*CodeInfo, error) {
	return nil, nil
}
