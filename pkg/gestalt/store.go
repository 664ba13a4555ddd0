// Package gestalt implements the persisted configuration store consulted by
// the message pipeline. Values live in an in-memory tree addressed by
// slash-delimited paths and are persisted to JSON files underneath a root
// directory on a best-effort basis: a failed write is logged, never fatal.
package gestalt

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileStore is the file-backed implementation of api.ConfigStore.
//
// The first two path segments select the backing file: the value at
// "/bots/alpha/clients/telegram/..." is persisted to "{root}/bots/alpha.json".
type FileStore struct {
	root string
	mu   sync.RWMutex
	tree map[string]any
}

// NewFileStore creates the store rooted at dir and loads every previously
// persisted scope file. A missing directory is created; an unreadable scope
// file is skipped with a warning.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("gestalt root directory not configured")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create gestalt root: %w", err)
	}

	s := &FileStore{
		root: dir,
		tree: make(map[string]any),
	}
	s.loadAll()
	return s, nil
}

func (s *FileStore) loadAll() {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		slog.Warn("Could not read gestalt root", "dir", s.root, "error", err)
		return
	}
	for _, top := range entries {
		if !top.IsDir() {
			continue
		}
		scopeDir := filepath.Join(s.root, top.Name())
		files, err := os.ReadDir(scopeDir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(scopeDir, f.Name()))
			if err != nil {
				slog.Warn("Skipping unreadable gestalt file", "file", f.Name(), "error", err)
				continue
			}
			var value any
			if err := json.Unmarshal(raw, &value); err != nil {
				slog.Warn("Skipping corrupt gestalt file", "file", f.Name(), "error", err)
				continue
			}
			scope := strings.TrimSuffix(f.Name(), ".json")
			s.setSegments([]string{top.Name(), scope}, value)
		}
	}
}

// splitPath turns "/bots/alpha/prefix" into ["bots","alpha","prefix"].
func splitPath(path string) ([]string, error) {
	segs := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(segs) == 0 {
		return nil, fmt.Errorf("empty gestalt path %q", path)
	}
	return segs, nil
}

// Get returns the value stored at path, or nil when the path holds nothing.
func (s *FileStore) Get(path string) (any, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var node any = s.tree
	for _, seg := range segs {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, nil
		}
		node, ok = m[seg]
		if !ok {
			return nil, nil
		}
	}
	return node, nil
}

// Post stores value at path, overwriting whatever is there.
func (s *FileStore) Post(path string, value any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	normalized, err := normalize(value)
	if err != nil {
		return fmt.Errorf("failed to normalize value for %q: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.setSegments(segs, normalized)
	s.persist(segs)
	return nil
}

// Update deep-merges partial into the map stored at path and returns the
// merged value. The partial's fields win on conflict.
func (s *FileStore) Update(path string, partial map[string]any) (any, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	normalized, err := normalize(partial)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize value for %q: %w", path, err)
	}
	patch, _ := normalized.(map[string]any)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.getSegments(segs).(map[string]any)
	merged := MergeMaps(current, patch)
	s.setSegments(segs, merged)
	s.persist(segs)
	return merged, nil
}

// Delete removes the value at path. Absent paths are a no-op.
func (s *FileStore) Delete(path string) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var node any = s.tree
	for _, seg := range segs[:len(segs)-1] {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = m[seg]
		if !ok {
			return nil
		}
	}
	if m, ok := node.(map[string]any); ok {
		delete(m, segs[len(segs)-1])
		s.persist(segs)
	}
	return nil
}

// Sync returns the effective value for path. When a persisted value exists it
// wins over def: for maps the two are deep-merged with the persisted fields
// taking precedence, and the merged result is written back so new default
// keys appear in storage. When nothing is persisted yet, def is stored and
// returned.
func (s *FileStore) Sync(def any, path string) (any, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	normalized, err := normalize(def)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize default for %q: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.getSegments(segs)
	if existing == nil {
		s.setSegments(segs, normalized)
		s.persist(segs)
		return normalized, nil
	}

	defMap, defOK := normalized.(map[string]any)
	curMap, curOK := existing.(map[string]any)
	if !defOK || !curOK {
		// Scalar sync: the persisted value wins outright.
		return existing, nil
	}

	merged := MergeMaps(defMap, curMap)
	s.setSegments(segs, merged)
	s.persist(segs)
	return merged, nil
}

// getSegments walks the tree; caller holds the lock.
func (s *FileStore) getSegments(segs []string) any {
	var node any = s.tree
	for _, seg := range segs {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return node
}

// setSegments writes value at the segment path, creating intermediate maps
// and replacing non-map intermediates; caller holds the lock.
func (s *FileStore) setSegments(segs []string, value any) {
	node := s.tree
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[seg] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = value
}

// persist writes the scope file covering segs; caller holds the lock.
// Failures are logged and swallowed: persistence is best effort.
func (s *FileStore) persist(segs []string) {
	var file string
	var subtree any
	if len(segs) == 1 {
		file = filepath.Join(s.root, segs[0]+".json")
		subtree = s.getSegments(segs[:1])
	} else {
		file = filepath.Join(s.root, segs[0], segs[1]+".json")
		subtree = s.getSegments(segs[:2])
	}

	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		slog.Warn("Gestalt persist failed", "file", file, "error", err)
		return
	}
	data, err := json.MarshalIndent(subtree, "", "  ")
	if err != nil {
		slog.Warn("Gestalt persist failed", "file", file, "error", err)
		return
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		slog.Warn("Gestalt persist failed", "file", file, "error", err)
	}
}

// normalize round-trips a value through JSON so the tree only ever holds
// map[string]any, []any and primitives. That keeps MergeMaps and typed
// decoding well defined regardless of what callers hand in.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MergeMaps deep-merges override onto base and returns a new map. Values in
// override win; nested maps are merged recursively. Neither input is mutated.
func MergeMaps(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if ov, ok := v.(map[string]any); ok {
			if bv, ok := out[k].(map[string]any); ok {
				out[k] = MergeMaps(bv, ov)
				continue
			}
		}
		out[k] = v
	}
	return out
}
