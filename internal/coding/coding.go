// Package coding provides bounded, in-memory terminology lookup for the
// code systems the factory layer emits against: RxNorm, LOINC, SNOMED CT,
// ICD-10, and CVX. The corpus is a small embedded dictionary, not a full
// terminology server — lookups never fail the pipeline; a miss falls back
// to a text-only CodeableConcept built by the caller.
package coding

import (
	"strings"
	"sync"

	"github.com/nlfhir/bridge/pkg/validator"
)

// System names the code systems this package knows how to look up.
type System string

const (
	SystemRxNorm   System = "rxnorm"
	SystemLOINC    System = "loinc"
	SystemSNOMED   System = "snomed"
	SystemICD10    System = "icd10"
	SystemCVX      System = "cvx"
)

// Canonical URIs for each code system, used when stamping CodeableConcept.coding.system.
var SystemURI = map[System]string{
	SystemRxNorm: "http://www.nlm.nih.gov/research/umls/rxnorm",
	SystemLOINC:  "http://loinc.org",
	SystemSNOMED: "http://snomed.info/sct",
	SystemICD10:  "http://hl7.org/fhir/sid/icd-10-cm",
	SystemCVX:    "http://hl7.org/fhir/sid/cvx",
}

// Match is a single terminology lookup hit, ranked by Score.
type Match struct {
	Code    string
	Display string
	Score   float64
}

// entry is one embedded dictionary row: a preferred term plus its synonyms,
// all mapping to the same code.
type entry struct {
	code     string
	display  string
	synonyms []string
}

// Coder performs bounded synchronous terminology lookup. Read-only after
// construction; safe for concurrent use by many requests.
type Coder struct {
	mu     sync.RWMutex
	tables map[System][]entry
}

// NewCoder builds a Coder pre-loaded with the embedded terminology corpus.
func NewCoder() *Coder {
	c := &Coder{tables: map[System][]entry{
		SystemRxNorm: rxnormEntries,
		SystemLOINC:  loincEntries,
		SystemSNOMED: snomedEntries,
		SystemICD10:  icd10Entries,
		SystemCVX:    cvxEntries,
	}}
	return c
}

// Lookup searches system's table for query, matching on the preferred
// display or any synonym (case-insensitive substring). Returns matches
// ordered by score descending; empty (not an error) on no hit.
func (c *Coder) Lookup(system System, query string) []Match {
	c.mu.RLock()
	defer c.mu.RUnlock()

	table, ok := c.tables[system]
	if !ok || query == "" {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))

	var matches []Match
	for _, e := range table {
		score := matchScore(q, e)
		if score > 0 {
			matches = append(matches, Match{Code: e.code, Display: e.display, Score: score})
		}
	}
	sortByScoreDesc(matches)
	return matches
}

// Best returns the single highest-scoring match, or (Match{}, false) on miss.
func (c *Coder) Best(system System, query string) (Match, bool) {
	matches := c.Lookup(system, query)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

func matchScore(q string, e entry) float64 {
	display := strings.ToLower(e.display)
	if display == q {
		return 1.0
	}
	for _, syn := range e.synonyms {
		if strings.ToLower(syn) == q {
			return 0.95
		}
	}
	if strings.Contains(display, q) || strings.Contains(q, display) {
		return 0.7
	}
	for _, syn := range e.synonyms {
		ls := strings.ToLower(syn)
		if strings.Contains(ls, q) || strings.Contains(q, ls) {
			return 0.6
		}
	}
	return 0
}

func sortByScoreDesc(matches []Match) {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Score > matches[j-1].Score; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
}

// CodeableConcept builds a FHIR CodeableConcept map. When a lookup match is
// supplied, it carries a `coding` entry with system/code/display plus the
// original `text`; on miss, only `text` is populated — a fallback the spec
// explicitly allows.
func CodeableConcept(system System, text string, match *Match) map[string]interface{} {
	cc := map[string]interface{}{"text": text}
	if match != nil {
		cc["coding"] = []interface{}{
			map[string]interface{}{
				"system":  SystemURI[system],
				"code":    match.Code,
				"display": match.Display,
			},
		}
	}
	return cc
}

// ValidateBoundedCode checks a code against the small value sets the local
// structural validator knows about (e.g. AdministrativeGender,
// MedicationRequest.status). Delegates to pkg/validator's shared issue
// vocabulary so callers can merge results directly.
func ValidateBoundedCode(path, value string, allowed []string) *validator.ValidationIssue {
	for _, a := range allowed {
		if a == value {
			return nil
		}
	}
	return &validator.ValidationIssue{
		Severity:    validator.SeverityError,
		Code:        validator.IssueCodeCodeInvalid,
		Diagnostics: "value '" + value + "' not in bound value set",
		Expression:  []string{path},
	}
}
