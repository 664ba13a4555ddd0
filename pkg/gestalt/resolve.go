package gestalt

import (
	"fmt"

	"chorus/pkg/api"
)

// Resolve is the one config fetch-or-create helper used across the pipeline.
// It syncs def at path (persisted fields override the in-code default) and
// decodes the effective value into T.
func Resolve[T any](store api.ConfigStore, path string, def T) (T, error) {
	var out T

	effective, err := store.Sync(def, path)
	if err != nil {
		return out, err
	}
	if effective == nil {
		return def, nil
	}

	raw, err := json.Marshal(effective)
	if err != nil {
		return out, fmt.Errorf("failed to encode config at %q: %w", path, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode config at %q: %w", path, err)
	}
	return out, nil
}

// GetString reads a string value at path. Absence or a non-string value
// yields "".
func GetString(store api.ConfigStore, path string) string {
	v, err := store.Get(path)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
