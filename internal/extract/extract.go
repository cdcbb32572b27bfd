package extract

import (
	"context"
	"time"

	"github.com/nlfhir/bridge/internal/model"
)

// Extractor runs the three-tier cascade described in the NLP extraction
// contract: a deterministic rule pass, a regex cascade, and a cost-bounded
// LLM fallback, gated by the sufficiency check between each step.
type Extractor struct {
	completer   StructuredCompleter
	budget      *Budget
	llmTimeout  time.Duration
	sufficiency SufficiencyConfig
}

// Option configures an Extractor at construction time.
type Option func(*Extractor)

// WithCompleter installs the Tier-3 LLM client. If never set, Tier-3 is
// skipped (Tier 2's result is final) rather than failing the request.
func WithCompleter(c StructuredCompleter) Option {
	return func(e *Extractor) { e.completer = c }
}

// WithBudget installs the sliding-window LLM escalation budget.
func WithBudget(b *Budget) Option {
	return func(e *Extractor) { e.budget = b }
}

// WithLLMTimeout bounds the Tier-3 call. Defaults to 2.5s per spec.
func WithLLMTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.llmTimeout = d }
}

// WithSufficiencyConfig installs the escalation threshold, confidence-check
// mode, and minimum entity count the sufficiency gate runs between tiers.
func WithSufficiencyConfig(cfg SufficiencyConfig) Option {
	return func(e *Extractor) { e.sufficiency = cfg }
}

// NewExtractor builds an Extractor with sane defaults, overridden by opts.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		budget:      NewBudget(10, time.Minute),
		llmTimeout:  2500 * time.Millisecond,
		sufficiency: defaultSufficiencyConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs the cascade over text. Never raises on malformed text: a
// panic inside the tier 1 pass is recovered and treated as an empty tier 1
// result, with no diagnostic recorded for it, and the cascade continues from
// there.
func (e *Extractor) Extract(ctx context.Context, text, requestID string) model.ExtractionResult {
	meta := model.TierMetadata{TierReached: 1}

	t1Start := time.Now()
	entities := safeTier1(text)
	meta.Tier1Latency = time.Since(t1Start)

	escalate, reasons, weighted := sufficiencyCheck(text, entities, e.sufficiency)
	meta.WeightedConfidence = weighted
	if !escalate {
		return model.ExtractionResult{Entities: entities, Meta: meta}
	}
	meta.EscalationReason = append(meta.EscalationReason, reasons...)
	meta.TierReached = 2

	t2Start := time.Now()
	entities = append(entities, tier2Extract(text, entities)...)
	meta.Tier2Latency = time.Since(t2Start)

	escalate, reasons, weighted = sufficiencyCheck(text, entities, e.sufficiency)
	meta.WeightedConfidence = weighted
	if !escalate {
		return model.ExtractionResult{Entities: entities, Meta: meta}
	}
	meta.EscalationReason = append(meta.EscalationReason, reasons...)

	if e.completer == nil {
		meta.Diagnostics = append(meta.Diagnostics, "tier3 skipped: no llm completer configured")
		return model.ExtractionResult{Entities: entities, Meta: meta}
	}
	if !e.budget.TryAcquire() {
		meta.LLMBudgetExhausted = true
		meta.Diagnostics = append(meta.Diagnostics, "tier3 skipped: llm escalation budget exhausted")
		return model.ExtractionResult{Entities: entities, Meta: meta}
	}

	meta.TierReached = 3
	t3Start := time.Now()
	llmEntities, diag, err := tier3Extract(ctx, e.completer, text, e.llmTimeout)
	meta.Tier3Latency = time.Since(t3Start)
	if err != nil {
		meta.LLMSchemaViolation = true
		if diag != "" {
			meta.Diagnostics = append(meta.Diagnostics, diag)
		}
		// Prior tier's result returned unchanged, per the tier-3 failure contract.
		return model.ExtractionResult{Entities: entities, Meta: meta}
	}

	// Tier-3 success REPLACES the prior result, it does not union with it.
	return model.ExtractionResult{Entities: llmEntities, Meta: meta}
}

// safeTier1 recovers from any panic inside the tier 1 pass so a single
// malformed input never aborts the request; on recovery it returns an
// empty entity set, matching "never raises on malformed text".
func safeTier1(text string) (entities []model.Entity) {
	defer func() {
		if r := recover(); r != nil {
			entities = nil
		}
	}()
	return tier1Extract(text)
}
