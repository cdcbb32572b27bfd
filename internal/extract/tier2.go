package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nlfhir/bridge/internal/model"
)

// Regex families, tried in order of specificity after the text's clinical
// abbreviations are expanded (the same expansion Tier 1 applies, repeated
// here so Tier 2 also works when called in isolation): dosage units first
// (most specific numeric+unit shape), then frequency, then route.
var (
	dosagePattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(mg|mcg|g|ml|l|mEq|unit|units|iu)\b`)

	frequencyPattern = regexp.MustCompile(`(?i)\b(once|twice|three times|four times)\s+(daily|a day|per day)\b|\bevery\s+\d+\s+hours?\b|\b(daily|nightly|weekly)\b`)

	routePattern = regexp.MustCompile(`(?i)\b(oral(?:ly)?|by mouth|intravenous(?:ly)?|\biv\b|intramuscular(?:ly)?|\bim\b|subcutaneous(?:ly)?|topical(?:ly)?|inhaled|sublingual(?:ly)?)\b`)
)

// routeCanonical maps a matched route surface form to its canonical token.
func routeCanonical(match string) string {
	lower := strings.ToLower(match)
	switch {
	case strings.Contains(lower, "oral") || strings.Contains(lower, "by mouth"):
		return "oral"
	case strings.Contains(lower, "intravenous") || lower == "iv":
		return "intravenous"
	case strings.Contains(lower, "intramuscular") || lower == "im":
		return "intramuscular"
	case strings.Contains(lower, "subcutaneous"):
		return "subcutaneous"
	case strings.Contains(lower, "topical"):
		return "topical"
	case strings.Contains(lower, "inhaled"):
		return "inhaled"
	case strings.Contains(lower, "sublingual"):
		return "sublingual"
	default:
		return lower
	}
}

// tier2Extract runs the regex cascade over text and returns only entities
// not already present in existing (by category+text, case-insensitive).
// It never overrides a Tier 1 entity, only adds to the set. Target latency
// <=5ms.
func tier2Extract(text string, existing []model.Entity) []model.Entity {
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[dedupeKey(e.Category, e.Text)] = true
	}

	var added []model.Entity
	sentences := splitSentences(expandAbbreviations(text))

	for si, sentence := range sentences {
		for _, m := range dosagePattern.FindAllStringSubmatch(sentence, -1) {
			text := strings.TrimSpace(m[0])
			if seen[dedupeKey(model.CategoryDosage, text)] {
				continue
			}
			value, _ := strconv.ParseFloat(m[1], 64)
			_ = value
			added = append(added, model.Entity{
				Text:          text,
				Category:      model.CategoryDosage,
				Confidence:    0.92,
				Source:        model.SourceTier2Regex,
				SentenceIndex: si,
			})
			seen[dedupeKey(model.CategoryDosage, text)] = true
		}

		for _, m := range frequencyPattern.FindAllString(sentence, -1) {
			norm := strings.ToLower(strings.TrimSpace(m))
			if seen[dedupeKey(model.CategoryFrequency, norm)] {
				continue
			}
			added = append(added, model.Entity{
				Text:          norm,
				Category:      model.CategoryFrequency,
				Confidence:    0.88,
				Source:        model.SourceTier2Regex,
				SentenceIndex: si,
			})
			seen[dedupeKey(model.CategoryFrequency, norm)] = true
		}

		for _, m := range routePattern.FindAllString(sentence, -1) {
			norm := routeCanonical(m)
			if seen[dedupeKey(model.CategoryRoute, norm)] {
				continue
			}
			added = append(added, model.Entity{
				Text:          norm,
				Category:      model.CategoryRoute,
				Confidence:    0.85,
				Source:        model.SourceTier2Regex,
				SentenceIndex: si,
			})
			seen[dedupeKey(model.CategoryRoute, norm)] = true
		}
	}

	return added
}

func dedupeKey(cat model.EntityCategory, text string) string {
	return string(cat) + "|" + strings.ToLower(text)
}
