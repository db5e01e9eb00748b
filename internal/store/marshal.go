package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalJSON encodes v as compact JSON TEXT with HTML escaping disabled.
// Map keys are sorted by encoding/json, so output is deterministic.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalJSON decodes TEXT produced by marshalJSON. Numbers decode as
// json.Number to avoid float64 precision loss.
func unmarshalJSON(data string, v any) error {
	if data == "" {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
