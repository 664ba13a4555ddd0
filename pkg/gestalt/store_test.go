package gestalt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestFileStore_GetAbsence(t *testing.T) {
	s := newTestStore(t)

	v, err := s.Get("/bots/alpha/command_prefix")
	require.NoError(t, err)
	assert.Nil(t, v, "absence must be nil, not an error")
}

func TestFileStore_PostGet(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Post("/bots/alpha/clients/telegram/command_prefix", "$"))

	v, err := s.Get("/bots/alpha/clients/telegram/command_prefix")
	require.NoError(t, err)
	assert.Equal(t, "$", v)

	// Intermediate nodes are navigable maps.
	v, err = s.Get("/bots/alpha/clients")
	require.NoError(t, err)
	assert.IsType(t, map[string]any{}, v)
}

func TestFileStore_SyncCreatesDefault(t *testing.T) {
	s := newTestStore(t)

	def := map[string]any{"active": true, "cooldown": map[string]any{"user": 5}}
	v, err := s.Sync(def, "/bots/alpha/commands/ping/config")
	require.NoError(t, err)

	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, m["active"])

	// A second sync sees the persisted copy.
	v2, err := s.Sync(map[string]any{"active": false}, "/bots/alpha/commands/ping/config")
	require.NoError(t, err)
	m2 := v2.(map[string]any)
	assert.Equal(t, true, m2["active"], "persisted value must override the in-code default")
}

func TestFileStore_SyncMergesNewDefaultKeys(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Post("/bots/alpha/commands/roll/config", map[string]any{"eminence": "master"}))

	v, err := s.Sync(map[string]any{"eminence": "none", "input_required": true}, "/bots/alpha/commands/roll/config")
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, "master", m["eminence"], "persisted field wins")
	assert.Equal(t, true, m["input_required"], "new default keys are filled in")
}

func TestFileStore_Update(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Post("/bots/alpha/clients/web/config", map[string]any{"port": 9453, "open": true}))

	v, err := s.Update("/bots/alpha/clients/web/config", map[string]any{"open": false})
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, false, m["open"])
	assert.EqualValues(t, 9453, m["port"])
}

func TestFileStore_Delete(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Post("/bots/alpha/locale", "fr"))
	require.NoError(t, s.Delete("/bots/alpha/locale"))

	v, err := s.Get("/bots/alpha/locale")
	require.NoError(t, err)
	assert.Nil(t, v)

	// Deleting again stays a no-op.
	require.NoError(t, s.Delete("/bots/alpha/locale"))
}

func TestFileStore_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Post("/bots/alpha/clients/telegram/command_prefix", "$"))
	require.NoError(t, s.Post("/i18n/alpha/greeting", "bonjour"))

	// Scope files land under {root}/{seg0}/{seg1}.json.
	assert.FileExists(t, filepath.Join(dir, "bots", "alpha.json"))
	assert.FileExists(t, filepath.Join(dir, "i18n", "alpha.json"))

	reloaded, err := NewFileStore(dir)
	require.NoError(t, err)
	v, err := reloaded.Get("/bots/alpha/clients/telegram/command_prefix")
	require.NoError(t, err)
	assert.Equal(t, "$", v)
}

func TestResolve_TypedDecode(t *testing.T) {
	s := newTestStore(t)

	type cooldown struct {
		User   int `json:"user"`
		Global int `json:"global"`
	}

	got, err := Resolve(s, "/bots/alpha/commands/roll/cooldown", cooldown{User: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, got.User)

	// Operator edits the persisted value; the next resolve reflects it.
	_, err = s.Update("/bots/alpha/commands/roll/cooldown", map[string]any{"global": 30})
	require.NoError(t, err)

	got, err = Resolve(s, "/bots/alpha/commands/roll/cooldown", cooldown{User: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, got.User)
	assert.Equal(t, 30, got.Global)
}

func TestMergeMaps(t *testing.T) {
	base := map[string]any{"a": 1, "nested": map[string]any{"x": "keep", "y": "old"}}
	override := map[string]any{"nested": map[string]any{"y": "new"}, "b": 2}

	out := MergeMaps(base, override)
	assert.Equal(t, 1, out["a"])
	assert.Equal(t, 2, out["b"])
	nested := out["nested"].(map[string]any)
	assert.Equal(t, "keep", nested["x"])
	assert.Equal(t, "new", nested["y"])

	// Inputs untouched.
	assert.Equal(t, "old", base["nested"].(map[string]any)["y"])
}
