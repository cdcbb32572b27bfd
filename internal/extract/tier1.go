package extract

import (
	"regexp"
	"strings"

	"github.com/nlfhir/bridge/internal/model"
)

// abbreviations expands common clinical shorthand before entity recognition
// runs, so downstream tiers see the canonical phrase.
var abbreviations = map[string]string{
	"bid": "twice daily",
	"tid": "three times daily",
	"qid": "four times daily",
	"qhs": "every night at bedtime",
	"prn": "as needed",
	"po":  "oral",
	"q8h": "every 8 hours",
	"q6h": "every 6 hours",
	"q12h": "every 12 hours",
	"q4h": "every 4 hours",
}

var abbreviationPattern = regexp.MustCompile(`(?i)\b(bid|tid|qid|qhs|prn|po|q8h|q6h|q12h|q4h)\b`)

// expandAbbreviations rewrites recognized abbreviations to their full form.
func expandAbbreviations(text string) string {
	return abbreviationPattern.ReplaceAllStringFunc(text, func(match string) string {
		if full, ok := abbreviations[strings.ToLower(match)]; ok {
			return full
		}
		return match
	})
}

// Lexicon entries recognized by a direct word/phrase match. Kept small and
// curated per spec scope; Tier 2's regex families pick up the patterns this
// tier misses.
var medicationLexicon = []string{
	"amoxicillin", "lisinopril", "metformin", "ibuprofen", "acetaminophen",
	"warfarin", "insulin", "heparin", "penicillin", "atorvastatin",
	"metoprolol", "furosemide", "omeprazole", "sertraline", "albuterol",
}

var conditionLexicon = []string{
	"hypertension", "diabetes", "asthma", "copd", "heart failure",
	"chronic kidney disease", "anemia", "pneumonia",
}

var routeLexicon = []string{"oral", "iv", "intravenous", "im", "intramuscular", "subcutaneous", "topical", "inhaled"}

var labTestLexicon = []string{"cbc", "complete blood count", "basic metabolic panel", "bmp", "hemoglobin a1c", "lipid panel", "glucose", "creatinine"}

var procedureLexicon = []string{"x-ray", "ct scan", "mri", "biopsy", "ultrasound", "ecg", "ekg", "colonoscopy"}

var deviceLexicon = []string{"pacemaker", "insulin pump", "catheter", "ventilator", "wheelchair", "nebulizer"}

var negationCues = []string{"denies", "no evidence of", "without", "negative for", "ruled out", "not taking"}
var hypotheticalCues = []string{"if patient develops", "should patient experience", "in case of", "if symptoms"}
var historicalCues = []string{"history of", "previously", "prior", "in the past", "formerly"}
var familyHistoryCues = []string{"family history of", "mother has", "father has", "sibling has", "parent with"}

const cueWindowChars = 40

// tier1Extract runs the lexicon/rule pass: abbreviation expansion, lexicon
// matching against the medication/condition/route/lab/procedure/device
// vocabularies, dosage and frequency pattern matching, and cue-word-window
// context detection. Deterministic and
// fast (target <=20ms); never errors on malformed text.
func tier1Extract(text string) []model.Entity {
	expanded := expandAbbreviations(text)
	lower := strings.ToLower(expanded)

	var entities []model.Entity
	sentences := splitSentences(expanded)

	for si, sentence := range sentences {
		sentLower := strings.ToLower(sentence)
		entities = append(entities, lexiconMatches(sentence, sentLower, si)...)
	}

	_ = lower
	return entities
}

func splitSentences(text string) []string {
	parts := regexp.MustCompile(`[.!?]+\s*`).Split(text, -1)
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

func lexiconMatches(sentence, sentLower string, sentenceIndex int) []model.Entity {
	var entities []model.Entity

	match := func(lexicon []string, category model.EntityCategory, confidence float64) {
		for _, term := range lexicon {
			if strings.Contains(sentLower, term) {
				entities = append(entities, model.Entity{
					Text:          term,
					Category:      category,
					Confidence:    confidence,
					Source:        model.SourceTier1Clinical,
					Context:       detectContext(sentLower, term),
					SentenceIndex: sentenceIndex,
				})
			}
		}
	}

	match(medicationLexicon, model.CategoryMedication, 0.9)
	match(conditionLexicon, model.CategoryCondition, 0.85)
	match(routeLexicon, model.CategoryRoute, 0.8)
	match(labTestLexicon, model.CategoryLabTest, 0.8)
	match(procedureLexicon, model.CategoryProcedure, 0.8)
	match(deviceLexicon, model.CategoryDevice, 0.8)

	for _, m := range dosagePattern.FindAllString(sentence, -1) {
		entities = append(entities, model.Entity{Text: strings.TrimSpace(m), Category: model.CategoryDosage,
			Confidence: 0.85, Source: model.SourceTier1Clinical, SentenceIndex: sentenceIndex})
	}
	for _, m := range frequencyPattern.FindAllString(sentence, -1) {
		entities = append(entities, model.Entity{Text: strings.ToLower(strings.TrimSpace(m)), Category: model.CategoryFrequency,
			Confidence: 0.85, Source: model.SourceTier1Clinical, SentenceIndex: sentenceIndex})
	}

	return entities
}

// detectContext scans a window of text around term's occurrence for
// negation, hypothetical, historical, or family-history cue phrases.
func detectContext(sentLower, term string) model.Context {
	idx := strings.Index(sentLower, term)
	if idx < 0 {
		return model.Context{}
	}
	start := idx - cueWindowChars
	if start < 0 {
		start = 0
	}
	window := sentLower[start:idx]

	var ctx model.Context
	for _, cue := range negationCues {
		if strings.Contains(window, cue) {
			ctx.Negated = true
			break
		}
	}
	for _, cue := range hypotheticalCues {
		if strings.Contains(window, cue) {
			ctx.Hypothetical = true
			break
		}
	}
	for _, cue := range historicalCues {
		if strings.Contains(window, cue) {
			ctx.Historical = true
			break
		}
	}
	for _, cue := range familyHistoryCues {
		if strings.Contains(window, cue) {
			ctx.FamilyHistory = true
			break
		}
	}
	return ctx
}
