package prefs_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/bookmarks/internal/prefs"
	"github.com/nikbrunner/bookmarks/internal/storage"
)

// memSettings is an in-memory prefs.Settings.
type memSettings struct {
	values map[string]json.RawMessage
	err    error
}

func (s *memSettings) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memSettings) Set(_ context.Context, key string, value any) error {
	if s.err != nil {
		return s.err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.values[key] = data
	return nil
}

func newMemSettings(kv ...string) *memSettings {
	s := &memSettings{values: map[string]json.RawMessage{}}
	for i := 0; i+1 < len(kv); i += 2 {
		s.values[kv[i]] = json.RawMessage(kv[i+1])
	}
	return s
}

func TestLoad_Defaults(t *testing.T) {
	m := prefs.NewManager(newMemSettings(), nil)

	p, err := m.Load(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, p, prefs.Preferences{Theme: prefs.ThemeLight, Density: prefs.DensityDefault})
}

func TestLoad_StoredValues(t *testing.T) {
	m := prefs.NewManager(newMemSettings(
		storage.KeyTheme, `"dark"`,
		storage.KeyLayoutDensity, `"compact"`,
	), nil)

	p, err := m.Load(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, p.Theme, prefs.ThemeDark)
	assert.Equal(t, p.Density, prefs.DensityCompact)
	assert.DeepEqual(t, m.Current(), p)
}

func TestLoad_IgnoresUnknownValues(t *testing.T) {
	m := prefs.NewManager(newMemSettings(
		storage.KeyTheme, `"solarized"`,
		storage.KeyLayoutDensity, `42`,
	), nil)

	p, err := m.Load(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, p, prefs.Defaults())
}

func TestLoad_ReadFailureKeepsDefaults(t *testing.T) {
	s := newMemSettings(storage.KeyTheme, `"dark"`)
	s.err = storage.ErrStorageUnavailable
	m := prefs.NewManager(s, nil)

	p, err := m.Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	assert.DeepEqual(t, p, prefs.Defaults())

	s.err = nil
	assert.NilError(t, m.SetTheme(context.Background(), prefs.ThemeDark), "writes allowed after a failed load")
}

func TestSet_RefusedBeforeLoad(t *testing.T) {
	s := newMemSettings()
	m := prefs.NewManager(s, nil)

	err := m.SetTheme(context.Background(), prefs.ThemeDark)
	assert.ErrorIs(t, err, prefs.ErrNotLoaded)
	err = m.SetDensity(context.Background(), prefs.DensityGenerous)
	assert.ErrorIs(t, err, prefs.ErrNotLoaded)
	assert.Equal(t, len(s.values), 0)
	assert.DeepEqual(t, m.Current(), prefs.Defaults())
}

func TestSet(t *testing.T) {
	ctx := context.Background()
	s := newMemSettings()
	m := prefs.NewManager(s, nil)
	_, err := m.Load(ctx)
	assert.NilError(t, err)

	assert.NilError(t, m.Set(ctx, prefs.KeyTheme, " Dark "))
	assert.NilError(t, m.Set(ctx, prefs.KeyDensity, "generous"))
	assert.Equal(t, string(s.values[storage.KeyTheme]), `"dark"`)
	assert.Equal(t, string(s.values[storage.KeyLayoutDensity]), `"generous"`)

	err = m.Set(ctx, prefs.KeyTheme, "blue")
	assert.ErrorIs(t, err, prefs.ErrInvalidValue)
	err = m.Set(ctx, "font", "mono")
	assert.ErrorIs(t, err, prefs.ErrUnknownKey)

	v, err := m.Current().Get(prefs.KeyDensity)
	assert.NilError(t, err)
	assert.Equal(t, v, "generous")
}

func TestToggleTheme(t *testing.T) {
	ctx := context.Background()
	m := prefs.NewManager(newMemSettings(), nil)
	_, err := m.Load(ctx)
	assert.NilError(t, err)

	theme, err := m.ToggleTheme(ctx)
	assert.NilError(t, err)
	assert.Equal(t, theme, prefs.ThemeDark)
	theme, err = m.ToggleTheme(ctx)
	assert.NilError(t, err)
	assert.Equal(t, theme, prefs.ThemeLight)
}

func TestSet_WriteFailureKeepsValue(t *testing.T) {
	ctx := context.Background()
	s := newMemSettings()
	m := prefs.NewManager(s, nil)
	_, err := m.Load(ctx)
	assert.NilError(t, err)

	s.err = errors.New("disk gone")
	err = m.SetDensity(ctx, prefs.DensityCompact)
	assert.ErrorContains(t, err, "disk gone")
	assert.Equal(t, m.Current().Density, prefs.DensityCompact)
}

func TestManager_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(filepath.Join(t.TempDir(), "bm.db"), storage.Options{})
	assert.NilError(t, err)
	defer store.Close()

	m := prefs.NewManager(store.Settings(), nil)
	_, err = m.Load(ctx)
	assert.NilError(t, err)
	assert.NilError(t, m.SetTheme(ctx, prefs.ThemeDark))

	again := prefs.NewManager(store.Settings(), nil)
	p, err := again.Load(ctx)
	assert.NilError(t, err)
	assert.Equal(t, p.Theme, prefs.ThemeDark)
	assert.Equal(t, p.Density, prefs.DensityDefault)
}
