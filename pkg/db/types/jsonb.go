package types

import (
	"encoding/json"
	"fmt"
)

// jsonbValue marshals v into the text form stored in a jsonb column.
func jsonbValue(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode jsonb: %w", err)
	}
	return string(raw), nil
}

// jsonbScan decodes a jsonb column value into dest. Nil columns leave dest untouched.
func jsonbScan(value any, dest any) error {
	if value == nil {
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
