package config

import (
	"context"
	"log"
	"maps"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the bursts of events editors and atomic saves produce.
const reloadDebounce = 100 * time.Millisecond

// Manager owns the live config and reloads it when the file changes.
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	onReload []func(*Config)

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewManager() (*Manager, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerForFile(configPath)
}

// NewManagerForFile manages the config at configPath. An invalid file is
// logged rather than rejected so the daemon can still start on defaults.
func NewManagerForFile(configPath string) (*Manager, error) {
	config, err := LoadFile(configPath)
	if err != nil {
		log.Printf("Config manager: failed to load %s: %v", configPath, err)
		return nil, err
	}
	if err := config.Validate(); err != nil {
		log.Printf("Config manager: validation warning: %v", err)
	}
	return &Manager{config: config, path: configPath}, nil
}

// Path is the watched config file.
func (m *Manager) Path() string {
	return m.path
}

// GetConfig returns a snapshot; callers may modify it freely.
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.clone()
}

func (c *Config) clone() *Config {
	cp := *c
	cp.Providers = maps.Clone(c.Providers)
	if cp.Providers == nil {
		cp.Providers = make(map[string]ProviderConfig)
	}
	cp.Recording.MIMETypes = append([]string(nil), c.Recording.MIMETypes...)
	return &cp
}

// OnReload registers fn to run with each successfully reloaded config.
// Register callbacks before StartWatching.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = append(m.onReload, fn)
}

// StartWatching watches the config directory, so a file replaced by rename is
// still seen, until ctx ends or Stop is called.
func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop(ctx)

	log.Printf("Config manager: watching %s for changes", m.path)
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()

	name := filepath.Base(m.path)
	debounce := time.NewTimer(reloadDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				debounce.Reset(reloadDebounce)
			}

		case <-debounce.C:
			log.Printf("Config manager: %s changed, reloading", m.path)
			m.reloadConfig()

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config manager: watcher error: %v", err)

		case <-ctx.Done():
			return
		}
	}
}

// reloadConfig swaps in the file's contents if they validate; otherwise the
// previous config stays live.
func (m *Manager) reloadConfig() {
	newConfig, err := LoadFile(m.path)
	if err != nil {
		log.Printf("Config manager: failed to reload config: %v", err)
		return
	}
	if err := newConfig.Validate(); err != nil {
		log.Printf("Config manager: invalid config after reload, keeping previous: %v", err)
		return
	}

	m.mu.Lock()
	m.config = newConfig
	callbacks := append([]func(*Config){}, m.onReload...)
	m.mu.Unlock()

	log.Printf("Config manager: configuration reloaded")
	for _, fn := range callbacks {
		fn(newConfig.clone())
	}
}
