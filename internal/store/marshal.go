package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/storyweave/internal/ir"
)

// marshalDetail converts step details to canonical JSON TEXT so identical
// details always produce identical rows.
func marshalDetail(detail map[string]string) (string, error) {
	obj := make(ir.Object, len(detail))
	for k, v := range detail {
		obj[k] = ir.Str(v)
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal detail: %w", err)
	}
	return string(data), nil
}

func unmarshalDetail(data string) (map[string]string, error) {
	if data == "" || data == "{}" {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal detail: %w", err)
	}
	return m, nil
}
