package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pders01/mastofeed/internal/debuglog"
	"github.com/pders01/mastofeed/internal/storage"
)

// OptionKey is the options-bucket key holding the stored settings.
const OptionKey = "mastodon_feed_settings"

// ErrInvalidPatch is returned by Update for a patch that is not a JSON object
// of settings.
var ErrInvalidPatch = errors.New("invalid settings patch")

// OptionStore persists named option values.
type OptionStore interface {
	GetOption(name string) ([]byte, error)
	PutOption(name string, value []byte) error
	DeleteOption(name string) error
}

// Manager loads and saves settings, falling back to defaults for anything
// never stored.
type Manager struct {
	store    OptionStore
	defaults Settings
	mu       sync.RWMutex
}

func NewManager(store OptionStore, defaults Settings) *Manager {
	return &Manager{
		store:    store,
		defaults: defaults.Sanitize(),
	}
}

// Defaults returns the settings a reset restores.
func (m *Manager) Defaults() Settings {
	return m.defaults
}

// Get returns the current sanitized settings. Stored values overlay the
// defaults field by field.
func (m *Manager) Get() (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.load()
}

func (m *Manager) load() (Settings, error) {
	current := m.defaults

	data, err := m.store.GetOption(OptionKey)
	if errors.Is(err, storage.ErrNotFound) {
		return current, nil
	}
	if err != nil {
		return current, fmt.Errorf("reading settings: %w", err)
	}

	if err := json.Unmarshal(data, &current); err != nil {
		debuglog.Warnf("stored settings are corrupt, using defaults: %v", err)
		return m.defaults, nil
	}
	return current.Sanitize(), nil
}

// Update applies a partial JSON document over the current settings,
// sanitizes the result and stores it.
func (m *Manager) Update(patch []byte) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.load()
	if err != nil {
		return Settings{}, err
	}
	if err := json.Unmarshal(patch, &current); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return current.Sanitize(), m.save(current.Sanitize())
}

// Save replaces the stored settings.
func (m *Manager) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(s.Sanitize())
}

func (m *Manager) save(s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := m.store.PutOption(OptionKey, data); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// Reset drops the stored settings so every option reverts to its default.
func (m *Manager) Reset() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.DeleteOption(OptionKey); err != nil {
		return Settings{}, fmt.Errorf("resetting settings: %w", err)
	}
	debuglog.Infof("settings reset to defaults")
	return m.defaults, nil
}
