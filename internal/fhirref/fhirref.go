// Package fhirref mints resource ids and tracks the mapping from
// ResourceType/id to bundle-internal fullUrl, the reverse of what
// pkg/validator's reference parser does when checking inbound references.
package fhirref

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nlfhir/bridge/pkg/common"
)

// Manager mints resource ids and, once the bundle assembler starts minting
// fullUrls, tracks the ResourceType/id -> urn:uuid:<fullUrl-uuid> mapping
// used for reference rewriting. One Manager per request — it is not shared
// across concurrent conversions.
type Manager struct {
	mu       sync.Mutex
	fullURLs map[string]string // "ResourceType/id" -> fullUrl
}

// NewManager returns an empty, request-scoped Manager.
func NewManager() *Manager {
	return &Manager{fullURLs: make(map[string]string)}
}

// MintID produces a resource id in the `{lowercase-resource}-<shortuuid>`
// form the spec requires (e.g. "patient-3f9a2b1c").
func MintID(resourceType string) string {
	id := uuid.New().String()
	short := strings.ReplaceAll(id, "-", "")[:8]
	return fmt.Sprintf("%s-%s", strings.ToLower(resourceType), short)
}

// Reference renders the canonical ResourceType/id form of a reference.
func Reference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}

// RegisterFullURL records the bundle-internal fullUrl minted for a resource,
// keyed by its canonical ResourceType/id reference string.
func (m *Manager) RegisterFullURL(resourceType, id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	fullURL := "urn:uuid:" + uuid.New().String()
	m.fullURLs[Reference(resourceType, id)] = fullURL
	return fullURL
}

// FullURL looks up the fullUrl registered for a ResourceType/id reference.
// The bool is false if the resource hasn't been minted into the bundle yet.
func (m *Manager) FullURL(resourceType, id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.fullURLs[Reference(resourceType, id)]
	return u, ok
}

// Snapshot returns a copy of the current ResourceType/id -> fullUrl map,
// safe for the bundle assembler's single reference-rewrite pass.
func (m *Manager) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return common.CloneMap(m.fullURLs)
}
