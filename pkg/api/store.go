package api

// ConfigStore is the persisted configuration surface the pipeline consults.
// Paths are slash-delimited hierarchical strings, e.g. "/bots/alpha/clients/telegram/command_prefix".
//
// Absence is not an error: Get returns (nil, nil) for a path that holds no
// value.
type ConfigStore interface {
	// Get returns the value stored at path, or nil when nothing is stored.
	Get(path string) (any, error)
	// Post stores value at path, overwriting any existing value.
	Post(path string, value any) error
	// Update deep-merges partial into the map stored at path and returns
	// the merged result. Missing intermediate maps are created.
	Update(path string, partial map[string]any) (any, error)
	// Delete removes the value at path. Deleting an absent path is a no-op.
	Delete(path string) error
	// Sync returns the effective value for path: the persisted value merged
	// over def when one exists, otherwise it persists def and returns it.
	Sync(def any, path string) (any, error)
}
