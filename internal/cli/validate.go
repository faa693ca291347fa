package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storyweave/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.FlowWarning     `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <story>",
		Short: "Check a story file for errors",
		Long: `Check a story file without playing it.

Reports every problem at once: bounds violations, bad rule ranges,
unparsable conditions and effects, unknown targets, entities and
variables, and duplicate ids. Flow warnings (unreachable nodes, loops
with no way out) are printed but do not fail validation.

Exit codes:
  0 - Story is valid
  1 - Validation errors found
  2 - Story file could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result, err := ValidateStoryFile(path)
	if err != nil {
		code, msg := loadErrorCode(err)
		_ = formatter.Error(code, msg, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, msg))
	}
	formatter.VerboseLog("Validated %s: %d error(s), %d warning(s)", path, len(result.Errors), len(result.Warnings))

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateStoryFile loads a story and runs validation and flow analysis.
func ValidateStoryFile(path string) (*ValidationResult, error) {
	cfg, err := LoadStory(path)
	if err != nil {
		return nil, err
	}
	errs := compiler.Validate(cfg)
	return &ValidationResult{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: compiler.AnalyzeFlow(cfg),
	}, nil
}

func outputValidateSuccess(formatter *OutputFormatter, result *ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	writeWarnings(formatter, result.Warnings)
	fmt.Fprintln(formatter.Writer, "✓ Story valid")
	return nil
}

// outputValidationErrors reports failures. Validation failures are exit
// code 1.
func outputValidationErrors(formatter *OutputFormatter, result *ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		if err := formatter.Failure(result, errs[0].Code, errs[0].Message); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	writeWarnings(formatter, result.Warnings)

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

func writeWarnings(formatter *OutputFormatter, warnings []compiler.FlowWarning) {
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "⚠ %s: %s\n", w.Kind, w.Message)
	}
	if len(warnings) > 0 {
		fmt.Fprintln(formatter.Writer)
	}
}
