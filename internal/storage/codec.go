package storage

import (
	"encoding/json"
	"fmt"

	"staffsync/internal/staff"
)

// ReadJSON decodes the value stored under key into v.
// It reports false, leaving v untouched, if the key holds no value.
func ReadJSON(s staff.Storage, key string, v any) (bool, error) {
	data, err := s.Get(key)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// WriteJSON encodes v and stores it under key.
func WriteJSON(s staff.Storage, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.Put(key, data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
