package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/storyweave/internal/ir"
)

// LoadFile reads a story file and compiles it into a Config. The format is
// chosen by extension: .cue, .yaml, or .yml.
func LoadFile(path string) (*ir.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading story file: %w", err)
	}

	switch filepath.Ext(path) {
	case ".cue":
		return CompileCUE(data, path)
	case ".yaml", ".yml":
		cfg, err := DecodeYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("unsupported story file extension %q (want .cue, .yaml, or .yml)", filepath.Ext(path))
	}
}

// CompileCUE compiles CUE source into a Config. filename is used for error
// positions only.
func CompileCUE(src []byte, filename string) (*ir.Config, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileStory(v)
}
