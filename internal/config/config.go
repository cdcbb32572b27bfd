// Package config loads the converter's runtime configuration, grounded on
// Nirmitee-tech-headless-ehr-fhir's viper + mapstructure + SetDefault/BindEnv
// idiom, re-scoped to the options this converter actually reads.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the fully-resolved runtime configuration, covering the
// extractor's tier-escalation knobs, the external validator failover
// policy, the HTTP server port, and per-factory rollout flags.
type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	LLMEscalationThreshold   float64 `mapstructure:"LLM_ESCALATION_THRESHOLD"`
	LLMEscalationCheck       string  `mapstructure:"LLM_ESCALATION_CONFIDENCE_CHECK"`
	LLMEscalationMinEntities int     `mapstructure:"LLM_ESCALATION_MIN_ENTITIES"`
	LLMTimeoutSeconds        float64 `mapstructure:"LLM_TIMEOUT_SECONDS"`
	LLMMaxCallsPerWindow     int     `mapstructure:"LLM_MAX_CALLS_PER_WINDOW"`
	LLMWindowSeconds         int     `mapstructure:"LLM_WINDOW_SECONDS"`
	LLMAPIKey                string  `mapstructure:"LLM_API_KEY"`
	LLMModel                 string  `mapstructure:"LLM_MODEL"`

	FHIRValidatorEndpoints       []string `mapstructure:"FHIR_VALIDATOR_ENDPOINTS"`
	FHIRValidatorTimeoutSeconds  float64  `mapstructure:"FHIR_VALIDATOR_TIMEOUT_SECONDS"`

	UseNewPatientFactory    bool `mapstructure:"USE_NEW_PATIENT_FACTORY"`
	UseNewMedicationFactory bool `mapstructure:"USE_NEW_MEDICATION_FACTORY"`
	UseNewClinicalFactory   bool `mapstructure:"USE_NEW_CLINICAL_FACTORY"`
	UseNewCareFactory       bool `mapstructure:"USE_NEW_CARE_FACTORY"`
	UseNewMiscFactory       bool `mapstructure:"USE_NEW_MISC_FACTORY"`

	LogRawText bool `mapstructure:"LOG_RAW_TEXT"`
}

// Load reads configuration from environment variables (and an optional
// .env file, ignored if absent), applying the spec-enumerated defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")

	v.SetDefault("LLM_ESCALATION_THRESHOLD", 0.85)
	v.SetDefault("LLM_ESCALATION_CONFIDENCE_CHECK", "weighted_average")
	v.SetDefault("LLM_ESCALATION_MIN_ENTITIES", 3)
	v.SetDefault("LLM_TIMEOUT_SECONDS", 2.5)
	v.SetDefault("LLM_MAX_CALLS_PER_WINDOW", 10)
	v.SetDefault("LLM_WINDOW_SECONDS", 60)
	v.SetDefault("LLM_MODEL", "gemini-2.0-flash")

	v.SetDefault("FHIR_VALIDATOR_ENDPOINTS", "")
	v.SetDefault("FHIR_VALIDATOR_TIMEOUT_SECONDS", 5)

	v.SetDefault("USE_NEW_PATIENT_FACTORY", true)
	v.SetDefault("USE_NEW_MEDICATION_FACTORY", true)
	v.SetDefault("USE_NEW_CLINICAL_FACTORY", true)
	v.SetDefault("USE_NEW_CARE_FACTORY", true)
	v.SetDefault("USE_NEW_MISC_FACTORY", true)

	v.SetDefault("LOG_RAW_TEXT", false)

	for _, key := range []string{
		"PORT", "ENV",
		"LLM_ESCALATION_THRESHOLD", "LLM_ESCALATION_CONFIDENCE_CHECK", "LLM_ESCALATION_MIN_ENTITIES",
		"LLM_TIMEOUT_SECONDS", "LLM_MAX_CALLS_PER_WINDOW", "LLM_WINDOW_SECONDS", "LLM_API_KEY", "LLM_MODEL",
		"FHIR_VALIDATOR_ENDPOINTS", "FHIR_VALIDATOR_TIMEOUT_SECONDS",
		"USE_NEW_PATIENT_FACTORY", "USE_NEW_MEDICATION_FACTORY", "USE_NEW_CLINICAL_FACTORY",
		"USE_NEW_CARE_FACTORY", "USE_NEW_MISC_FACTORY", "LOG_RAW_TEXT",
	} {
		_ = v.BindEnv(key)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.FHIRValidatorEndpoints == nil {
		if raw := v.GetString("FHIR_VALIDATOR_ENDPOINTS"); raw != "" {
			cfg.FHIRValidatorEndpoints = strings.Split(raw, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the resolved configuration for internally-inconsistent
// values that Unmarshal alone can't catch.
func (c *Config) Validate() error {
	if c.LLMEscalationThreshold < 0 || c.LLMEscalationThreshold > 1 {
		return fmt.Errorf("LLM_ESCALATION_THRESHOLD must be in [0,1], got %v", c.LLMEscalationThreshold)
	}
	switch c.LLMEscalationCheck {
	case "weighted_average", "minimum", "simple_average":
	default:
		return fmt.Errorf("LLM_ESCALATION_CONFIDENCE_CHECK must be one of weighted_average|minimum|simple_average, got %q", c.LLMEscalationCheck)
	}
	if c.LLMEscalationMinEntities < 0 {
		return fmt.Errorf("LLM_ESCALATION_MIN_ENTITIES must be >= 0, got %d", c.LLMEscalationMinEntities)
	}
	if c.LLMTimeoutSeconds <= 0 {
		return fmt.Errorf("LLM_TIMEOUT_SECONDS must be > 0, got %v", c.LLMTimeoutSeconds)
	}
	if c.FHIRValidatorTimeoutSeconds <= 0 {
		return fmt.Errorf("FHIR_VALIDATOR_TIMEOUT_SECONDS must be > 0, got %v", c.FHIRValidatorTimeoutSeconds)
	}
	return nil
}

// IsDev reports whether the server is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}
