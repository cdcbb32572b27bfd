package extract

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	response []byte
	err      error
}

func (f *fakeCompleter) CompleteStructured(_ context.Context, _ string) ([]byte, error) {
	return f.response, f.err
}

func TestExtractor_Tier1SufficientStopsEarly(t *testing.T) {
	e := NewExtractor()
	result := e.Extract(context.Background(), "amoxicillin 500mg twice daily oral for infection", "req-1")

	assert.Equal(t, 1, result.Meta.TierReached)
	assert.NotEmpty(t, result.Entities)
}

func TestExtractor_EscalatesThroughTier3OnInsufficientResult(t *testing.T) {
	resp, err := json.Marshal(llmExtractionResponse{
		Entities: []llmEntity{
			{Text: "amoxicillin", Category: "medications", Confidence: 0.95, Dosage: "500 mg", Frequency: "twice daily", Route: "oral"},
		},
	})
	require.NoError(t, err)

	e := NewExtractor(
		WithCompleter(&fakeCompleter{response: resp}),
		WithBudget(NewBudget(5, time.Minute)),
	)

	result := e.Extract(context.Background(), "xyz", "req-2")
	assert.Equal(t, 3, result.Meta.TierReached)
	assert.Len(t, result.Entities, 4) // medication + 3 flattened siblings
}

func TestExtractor_Tier3FailureKeepsPriorResult(t *testing.T) {
	e := NewExtractor(
		WithCompleter(&fakeCompleter{response: []byte("not json")}),
		WithBudget(NewBudget(5, time.Minute)),
	)

	result := e.Extract(context.Background(), "xyz", "req-3")
	assert.Equal(t, 3, result.Meta.TierReached)
	assert.True(t, result.Meta.LLMSchemaViolation)
}

func TestExtractor_BudgetExhaustedSkipsTier3(t *testing.T) {
	budget := NewBudget(0, time.Minute)
	e := NewExtractor(
		WithCompleter(&fakeCompleter{response: []byte(`{"entities":[]}`)}),
		WithBudget(budget),
	)

	result := e.Extract(context.Background(), "xyz", "req-4")
	assert.True(t, result.Meta.LLMBudgetExhausted)
}
