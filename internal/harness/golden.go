package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/storyweave/internal/ir"
)

// Snapshot renders a result's trace as canonical JSON. Identical runs give
// identical bytes, so snapshots can be compared byte for byte.
func Snapshot(name string, result *Result) ([]byte, error) {
	events := make(ir.List, len(result.Trace))
	for i, e := range result.Trace {
		obj := ir.Object{
			"seq":  ir.Int(e.Seq),
			"type": ir.Str(e.Type),
		}
		if e.Type == EventChange {
			obj["entity"] = ir.Str(e.Entity)
			obj["variable"] = ir.Str(e.Variable)
			obj["old"] = ir.Int(e.Old)
			obj["new"] = ir.Int(e.New)
			obj["source"] = ir.Str(e.Source)
		} else {
			obj["kind"] = ir.Str(e.Kind)
			obj["to"] = ir.Str(e.To)
			if e.From != "" {
				obj["from"] = ir.Str(e.From)
			}
			if e.Outcome != "" {
				obj["outcome"] = ir.Str(e.Outcome)
			}
			if len(e.Detail) > 0 {
				detail := make(ir.Object, len(e.Detail))
				for k, v := range e.Detail {
					detail[k] = ir.Str(v)
				}
				obj["detail"] = detail
			}
		}
		events[i] = obj
	}

	data, err := ir.MarshalCanonical(ir.Object{
		"scenario_name": ir.Str(name),
		"trace":         events,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal trace: %w", err)
	}
	return data, nil
}

// GoldenPath returns the golden file for a scenario file:
// golden/<basename>.golden next to the scenario.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// WriteGolden stores the result's snapshot at path, creating directories
// as needed.
func WriteGolden(path, name string, result *Result) error {
	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// MatchGolden reports whether the result's snapshot equals the golden file
// at path.
func MatchGolden(path, name string, result *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := Snapshot(name, result)
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, got), nil
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/<scenario.Name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
