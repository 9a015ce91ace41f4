package store

import (
	"encoding/json"
	"fmt"
)

// jsonColumn renders v for storage in a TEXT column.
func jsonColumn(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding column: %w", err)
	}
	return string(data), nil
}

// fromJSONColumn decodes a TEXT column into v, treating empty as absent.
func fromJSONColumn(s string, v any) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decoding column: %w", err)
	}
	return nil
}
