package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/storyweave/internal/compiler"
	"github.com/roach88/storyweave/internal/ir"
)

// LoadError represents an error that occurred while loading a story file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Line    int       // YAML line if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadStory reads and compiles a story file. Every failure is a *LoadError.
func LoadStory(path string) (*ir.Config, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("story file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing story file: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	cfg, err := compiler.LoadFile(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return cfg, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompileFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
			Line:    compileErr.Line,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// loadErrorCode returns the CLI code for err.
func loadErrorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// Error code constants, unified across all CLI commands. Story validation
// codes (E2xx) come from the compiler package.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeLoadFailed    = "E004" // Story file could not be read or decoded
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeBuildFailed   = "E006" // Story could not be built
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeCompileFailed = "E008" // Story file has a structural error
	ErrCodeConfig        = "E009" // Runtime settings invalid or incomplete
	ErrCodeSession       = "E010" // Play session failed
	ErrCodeTestFailed    = "E_TEST_FAILED"
)
