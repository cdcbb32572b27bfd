package extract

import "github.com/nlfhir/bridge/internal/model"

// flattenMedicationEntities converts the LLM's structured-output entities
// into model.Entity, surfacing each medication object's embedded
// dosage/frequency/route fields as separate sibling entities.
//
// This is the critical invariant (I5): dropping it causes a dramatic
// precision/recall regression because downstream factories only ever look
// at top-level dosage/frequency/route entities, never at a medication's
// nested fields. Kept as its own pure function so it is independently
// testable against entity counts, not just medication counts.
func flattenMedicationEntities(raw []llmEntity) []model.Entity {
	out := make([]model.Entity, 0, len(raw))

	for _, le := range raw {
		entity := model.Entity{
			Text:       le.Text,
			Category:   model.EntityCategory(le.Category),
			Confidence: le.Confidence,
			Source:     model.SourceTier3LLM,
		}
		out = append(out, entity)

		if model.EntityCategory(le.Category) != model.CategoryMedication {
			continue
		}

		if le.Dosage != "" {
			out = append(out, model.Entity{
				Text:       le.Dosage,
				Category:   model.CategoryDosage,
				Confidence: le.Confidence,
				Source:     model.SourceTier3LLMEmbedded,
			})
		}
		if le.Frequency != "" {
			out = append(out, model.Entity{
				Text:       le.Frequency,
				Category:   model.CategoryFrequency,
				Confidence: le.Confidence,
				Source:     model.SourceTier3LLMEmbedded,
			})
		}
		if le.Route != "" {
			out = append(out, model.Entity{
				Text:       le.Route,
				Category:   model.CategoryRoute,
				Confidence: le.Confidence,
				Source:     model.SourceTier3LLMEmbedded,
			})
		}
	}

	return out
}
