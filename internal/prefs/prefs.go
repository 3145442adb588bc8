// Package prefs holds the user's presentation preferences: color theme and
// list density. They are persisted in the settings collection.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/nikbrunner/bookmarks/internal/logging"
	"github.com/nikbrunner/bookmarks/internal/storage"
)

var (
	ErrNotLoaded    = errors.New("preferences not loaded")
	ErrInvalidValue = errors.New("invalid preference value")
	ErrUnknownKey   = errors.New("unknown preference")
)

// Theme is the color theme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Density is the spacing of list rows.
type Density string

const (
	DensityCompact  Density = "compact"
	DensityDefault  Density = "default"
	DensityGenerous Density = "generous"
)

// Preference keys accepted by Get and Set.
const (
	KeyTheme   = "theme"
	KeyDensity = "density"
)

// Keys lists the preference keys in display order.
var Keys = []string{KeyTheme, KeyDensity}

// ParseTheme validates s as a Theme.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark:
		return t, nil
	}
	return "", fmt.Errorf("%w: theme %q (want light or dark)", ErrInvalidValue, s)
}

// ParseDensity validates s as a Density.
func ParseDensity(s string) (Density, error) {
	switch d := Density(strings.ToLower(strings.TrimSpace(s))); d {
	case DensityCompact, DensityDefault, DensityGenerous:
		return d, nil
	}
	return "", fmt.Errorf("%w: density %q (want compact, default or generous)", ErrInvalidValue, s)
}

// Preferences is a snapshot of the current values.
type Preferences struct {
	Theme   Theme
	Density Density
}

// Defaults returns the preferences used before anything is stored.
func Defaults() Preferences {
	return Preferences{Theme: ThemeLight, Density: DensityDefault}
}

// Get returns the value of key as a string.
func (p Preferences) Get(key string) (string, error) {
	switch key {
	case KeyTheme:
		return string(p.Theme), nil
	case KeyDensity:
		return string(p.Density), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Settings is the part of the settings collection preferences need.
type Settings interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Manager loads and persists preferences. Writes are refused until Load has
// run so stored values are never overwritten by defaults.
type Manager struct {
	settings Settings
	logger   *log.Logger

	mu      sync.Mutex
	current Preferences
	loaded  bool
}

// NewManager creates a Manager holding the defaults.
func NewManager(settings Settings, logger *log.Logger) *Manager {
	return &Manager{
		settings: settings,
		logger:   logging.OrDiscard(logger),
		current:  Defaults(),
	}
}

// Load reads the stored preferences. Unknown stored values are ignored and
// the default is kept. A read failure keeps the defaults and is returned;
// the manager still counts as loaded.
func (m *Manager) Load(ctx context.Context) (Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := Defaults()
	var errs []error

	theme, err := storage.GetOr(ctx, m.settings, storage.KeyTheme, string(p.Theme))
	if err != nil {
		errs = append(errs, err)
	} else if t, err := ParseTheme(theme); err == nil {
		p.Theme = t
	} else {
		m.logger.Warn("ignoring stored theme", "value", theme)
	}

	density, err := storage.GetOr(ctx, m.settings, storage.KeyLayoutDensity, string(p.Density))
	if err != nil {
		errs = append(errs, err)
	} else if d, err := ParseDensity(density); err == nil {
		p.Density = d
	} else {
		m.logger.Warn("ignoring stored density", "value", density)
	}

	m.current = p
	m.loaded = true
	return p, errors.Join(errs...)
}

// Current returns the in-memory preferences.
func (m *Manager) Current() Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetTheme stores theme. The in-memory value changes even if the write
// fails.
func (m *Manager) SetTheme(ctx context.Context, theme Theme) error {
	if _, err := ParseTheme(string(theme)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return ErrNotLoaded
	}
	m.current.Theme = theme
	return m.settings.Set(ctx, storage.KeyTheme, string(theme))
}

// ToggleTheme switches between light and dark and returns the new theme.
func (m *Manager) ToggleTheme(ctx context.Context) (Theme, error) {
	next := ThemeDark
	if m.Current().Theme == ThemeDark {
		next = ThemeLight
	}
	return next, m.SetTheme(ctx, next)
}

// SetDensity stores density. The in-memory value changes even if the write
// fails.
func (m *Manager) SetDensity(ctx context.Context, density Density) error {
	if _, err := ParseDensity(string(density)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return ErrNotLoaded
	}
	m.current.Density = density
	return m.settings.Set(ctx, storage.KeyLayoutDensity, string(density))
}

// Set parses value for key and stores it.
func (m *Manager) Set(ctx context.Context, key, value string) error {
	switch key {
	case KeyTheme:
		t, err := ParseTheme(value)
		if err != nil {
			return err
		}
		return m.SetTheme(ctx, t)
	case KeyDensity:
		d, err := ParseDensity(value)
		if err != nil {
			return err
		}
		return m.SetDensity(ctx, d)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKey, key)
}
