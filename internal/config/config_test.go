package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate_RejectsOutOfRangeThreshold(t *testing.T) {
	c := &Config{
		LLMEscalationThreshold: 1.5,
		LLMEscalationCheck:     "weighted_average",
		LLMTimeoutSeconds:      2.5,
		FHIRValidatorTimeoutSeconds: 5,
	}
	assert.Error(t, c.Validate())
}

func TestConfig_Validate_RejectsUnknownEscalationCheck(t *testing.T) {
	c := &Config{
		LLMEscalationThreshold:      0.85,
		LLMEscalationCheck:          "bogus",
		LLMTimeoutSeconds:           2.5,
		FHIRValidatorTimeoutSeconds: 5,
	}
	assert.Error(t, c.Validate())
}

func TestConfig_Validate_AcceptsDefaults(t *testing.T) {
	c := &Config{
		LLMEscalationThreshold:      0.85,
		LLMEscalationCheck:          "weighted_average",
		LLMEscalationMinEntities:    3,
		LLMTimeoutSeconds:           2.5,
		FHIRValidatorTimeoutSeconds: 5,
	}
	assert.NoError(t, c.Validate())
}

func TestConfig_IsDev(t *testing.T) {
	assert.True(t, (&Config{Env: "development"}).IsDev())
	assert.False(t, (&Config{Env: "production"}).IsDev())
}
