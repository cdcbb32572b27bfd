// Package validator provides FHIR reference parsing used by the bounded
// structural validator (internal/fhirval).
package validator

import (
	"regexp"
	"strings"
)

// Reference format patterns according to FHIR specification.
// https://www.hl7.org/fhir/references.html
var (
	// relativeRefPattern matches: ResourceType/id (e.g., "Patient/123")
	relativeRefPattern = regexp.MustCompile(`^([A-Za-z]+)/([A-Za-z0-9\-.]+)$`)

	// absoluteRefPattern matches: http(s)://server/path/ResourceType/id
	absoluteRefPattern = regexp.MustCompile(`^https?://[^/]+/.*/([A-Za-z]+)/([A-Za-z0-9\-.]+)$`)

	// containedRefPattern matches: #id (reference to contained resource)
	containedRefPattern = regexp.MustCompile(`^#([A-Za-z0-9\-.]+)$`)

	// urnUUIDPattern matches: urn:uuid:xxxx (used in Bundles)
	urnUUIDPattern = regexp.MustCompile(`^urn:uuid:[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// urnOIDPattern matches: urn:oid:x.x.x.x
	urnOIDPattern = regexp.MustCompile(`^urn:oid:[012](\.\d+)+$`)
)

// ParsedReference contains the parsed components of a FHIR reference.
type ParsedReference struct {
	// Type is the reference type (relative, absolute, contained, urn-uuid, urn-oid, canonical)
	Type string
	// ResourceType is the referenced resource type (if extractable)
	ResourceType string
	// ID is the resource ID (if extractable)
	ID string
	// Raw is the original reference string
	Raw string
	// Valid indicates if the reference format is valid
	Valid bool
	// Version for canonical references
	Version string
}

// ReferenceType constants
const (
	RefTypeRelative  = "relative"
	RefTypeAbsolute  = "absolute"
	RefTypeContained = "contained"
	RefTypeUrnUUID   = "urn-uuid"
	RefTypeUrnOID    = "urn-oid"
	RefTypeCanonical = "canonical"
	RefTypeUnknown   = "unknown"
)

// ParseReference parses a FHIR reference string and extracts its components.
func ParseReference(ref string) *ParsedReference {
	if ref == "" {
		return &ParsedReference{Raw: ref, Valid: false, Type: RefTypeUnknown}
	}

	// Try contained reference first (#id)
	if matches := containedRefPattern.FindStringSubmatch(ref); matches != nil {
		return &ParsedReference{
			Type:  RefTypeContained,
			ID:    matches[1],
			Raw:   ref,
			Valid: true,
		}
	}

	// Try relative reference (ResourceType/id)
	if matches := relativeRefPattern.FindStringSubmatch(ref); matches != nil {
		return &ParsedReference{
			Type:         RefTypeRelative,
			ResourceType: matches[1],
			ID:           matches[2],
			Raw:          ref,
			Valid:        true,
		}
	}

	// Try URN:UUID
	if urnUUIDPattern.MatchString(ref) {
		return &ParsedReference{
			Type:  RefTypeUrnUUID,
			ID:    strings.TrimPrefix(ref, "urn:uuid:"),
			Raw:   ref,
			Valid: true,
		}
	}

	// Try URN:OID
	if urnOIDPattern.MatchString(ref) {
		return &ParsedReference{
			Type:  RefTypeUrnOID,
			ID:    strings.TrimPrefix(ref, "urn:oid:"),
			Raw:   ref,
			Valid: true,
		}
	}

	// Try absolute reference (http://server/path/ResourceType/id)
	// Must be checked AFTER URN patterns
	if matches := absoluteRefPattern.FindStringSubmatch(ref); matches != nil {
		return &ParsedReference{
			Type:         RefTypeAbsolute,
			ResourceType: matches[1],
			ID:           matches[2],
			Raw:          ref,
			Valid:        true,
		}
	}

	// Try canonical URL - HTTP/HTTPS URLs that don't match absolute pattern
	// (e.g., StructureDefinition URLs without ResourceType/id pattern)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		parsed := &ParsedReference{
			Type:  RefTypeCanonical,
			Raw:   ref,
			Valid: true,
		}
		// Check for version suffix
		if idx := strings.LastIndex(ref, "|"); idx != -1 {
			parsed.Version = ref[idx+1:]
		}
		return parsed
	}

	// Unknown format
	return &ParsedReference{Raw: ref, Valid: false, Type: RefTypeUnknown}
}

// pathWithoutArrayIndices removes array indices from a path.
// e.g., "Patient.contact[0].reference" -> "Patient.contact.reference"
func pathWithoutArrayIndices(path string) string {
	// Simple regex to remove [n] patterns
	indexPattern := regexp.MustCompile(`\[\d+\]`)
	return indexPattern.ReplaceAllString(path, "")
}

// extractResourceTypeFromProfile extracts the resource type from a StructureDefinition URL.
func extractResourceTypeFromProfile(profile string) string {
	// Handle standard FHIR profiles
	if strings.Contains(profile, "/StructureDefinition/") {
		parts := strings.Split(profile, "/StructureDefinition/")
		if len(parts) == 2 {
			// Handle version suffix (|4.0.1)
			typePart := strings.Split(parts[1], "|")[0]
			return typePart
		}
	}

	// Handle simple resource type names
	if !strings.Contains(profile, "/") {
		return profile
	}

	// Last segment of URL
	parts := strings.Split(profile, "/")
	return parts[len(parts)-1]
}

// formatAllowedTypes formats the list of allowed target profiles for error messages.
func formatAllowedTypes(profiles []string) string {
	types := make([]string, 0, len(profiles))
	for _, p := range profiles {
		types = append(types, extractResourceTypeFromProfile(p))
	}
	return strings.Join(types, ", ")
}
