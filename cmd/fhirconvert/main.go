package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nlfhir/bridge/internal/config"
	"github.com/nlfhir/bridge/internal/httpapi"
	"github.com/nlfhir/bridge/internal/orchestrator"
)

var version = "dev"

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func execute() error {
	rootCmd := newRootCmd()
	return rootCmd.Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fhirconvert",
		Short: "Converts free-text clinical orders into validated FHIR R4 transaction bundles",
		Long: `fhirconvert turns free-text clinical orders into FHIR R4 transaction
bundles.

It provides:
  - Tiered clinical NLP extraction (rules, regex pattern fallback, optional LLM escalation)
  - A FHIR resource factory registry covering the core clinical resource types
  - Transaction bundle assembly with dependency ordering and reference rewriting
  - External validator failover with a local structural fallback`,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("fhirconvert version %s\n", version)
		},
	}
}

func newConvertCmd() *cobra.Command {
	var patientRef string
	var knownAllergies []string
	var logRawText bool

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a free-text clinical order into a FHIR transaction bundle",
		Long: `Convert reads free-text clinical orders from a file (or stdin if no
file is given) and prints the assembled FHIR R4 transaction bundle as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := newLogger(cfg)
			orc := orchestrator.NewDefault(cfg, logger)

			req := orchestrator.ConvertRequest{Text: text, KnownAllergies: knownAllergies, LogRawText: logRawText}
			if patientRef != "" {
				req.PatientRef = &patientRef
			}

			resp, err := orc.Convert(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("convert: %w", err)
			}

			return outputJSON(resp)
		},
	}

	cmd.Flags().StringVar(&patientRef, "patient-ref", "", "Existing patient reference, e.g. Patient/123")
	cmd.Flags().StringSliceVar(&knownAllergies, "known-allergy", nil, "Known allergen, repeatable, fed into the medication safety cross-check")
	cmd.Flags().BoolVar(&logRawText, "log-raw-text", false, "Log the raw clinical text alongside extraction results")

	return cmd
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a FHIR transaction bundle",
		Long:  `Validate reads a FHIR transaction bundle from a file (or stdin) and runs it through the converter's validator failover chain.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}

			var bundle map[string]interface{}
			if err := json.Unmarshal([]byte(text), &bundle); err != nil {
				return fmt.Errorf("parse bundle: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := newLogger(cfg)
			orc := orchestrator.NewDefault(cfg, logger)

			outcome, err := orc.Validate(cmd.Context(), bundle)
			if err != nil {
				return fmt.Errorf("validate: %w", err)
			}

			return outputJSON(outcome)
		},
	}

	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the converter's HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	orc := orchestrator.NewDefault(cfg, logger)
	e := httpapi.NewServer(cfg, orc, logger)

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Msg("starting server")
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func readInput(args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
		return string(data), nil
	}

	data, err := readAllStdin()
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, nil
}

func readAllStdin() (string, error) {
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}
	return string(buf), nil
}

func outputJSON(v interface{}) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}
