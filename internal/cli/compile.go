package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/storyweave/internal/compiler"
	"github.com/roach88/storyweave/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the compiled story in canonical form.
type CompilationResult struct {
	Hash       string          `json:"hash"`
	Characters int             `json:"characters"`
	Nodes      int             `json:"nodes"`
	Story      json.RawMessage `json:"story"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <story>",
		Short: "Compile a story file to canonical JSON",
		Long: `Compile a CUE or YAML story file to canonical JSON.

The story is decoded, built (tables and graph), and printed in canonical
form together with its content hash. Two files with the same hash define
the same story.

Examples:
  storyweave compile stories/dinner.yaml
  storyweave compile stories/dinner.cue -o dinner.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := LoadStory(path)
	if err != nil {
		code, msg := loadErrorCode(err)
		return outputCompileError(formatter, code, msg, err)
	}
	formatter.VerboseLog("Loaded %s: %d character(s), %d node(s)", path, len(cfg.Story.Characters), len(cfg.Story.Nodes))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		logger = newLogger(opts.RootOptions, formatter.GetErrWriter())
	}
	bundle, err := compiler.Build(cfg, compiler.WithLogger(logger))
	if err != nil {
		return outputCompileError(formatter, ErrCodeBuildFailed, err.Error(), nil)
	}

	canonical, err := ir.MarshalCanonical(cfg.Value())
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, fmt.Sprintf("marshaling story: %v", err), nil)
	}

	result := &CompilationResult{
		Hash:       bundle.Hash,
		Characters: len(cfg.Story.Characters),
		Nodes:      len(cfg.Story.Nodes),
		Story:      canonical,
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, canonical, 0o644); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d character(s), %d node(s)\n\n", result.Characters, result.Nodes)
	fmt.Fprintf(w, "Hash: %s\n", result.Hash)
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote canonical JSON to %s\n", outputFile)
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, string(result.Story))
	return nil
}

// outputCompileError reports a failure. Compilation errors are command-level
// errors (exit code 2).
func outputCompileError(formatter *OutputFormatter, code, message string, err error) error {
	var details any
	var loadErr *LoadError
	if errors.As(err, &loadErr) && (loadErr.Pos.IsValid() || loadErr.Line > 0) {
		details = loadErr.Error()
	}
	_ = formatter.Error(code, message, details)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}
