package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

// Loader reads persona definitions from disk and caches them by bot ID.
type Loader struct {
	botsDir string
	mu      sync.RWMutex
	cache   map[string]*Persona
	log     logger.Logger
}

// NewLoader creates a loader over the given bots directory.
func NewLoader(botsDir string, log logger.Logger) *Loader {
	if log == nil {
		panic("logger cannot be nil")
	}
	return &Loader{
		botsDir: botsDir,
		cache:   make(map[string]*Persona),
		log:     log,
	}
}

// Get returns the persona for botID, loading it on first access.
func (l *Loader) Get(botID string) (*Persona, error) {
	l.mu.RLock()
	if p, ok := l.cache[botID]; ok {
		l.mu.RUnlock()
		return p, nil
	}
	l.mu.RUnlock()

	return l.load(botID)
}

// Reload drops the cached persona and reads it from disk again.
func (l *Loader) Reload(botID string) (*Persona, error) {
	l.mu.Lock()
	delete(l.cache, botID)
	l.mu.Unlock()

	return l.load(botID)
}

// List returns the IDs of every bot directory holding a config.yaml,
// sorted. Directories starting with an underscore are skipped.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.botsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read bots directory: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), "_") {
			continue
		}
		if _, err := os.Stat(l.configPath(entry.Name())); err != nil {
			continue
		}
		ids = append(ids, entry.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadAll loads every listed persona, skipping and logging invalid ones.
func (l *Loader) LoadAll() (map[string]*Persona, error) {
	ids, err := l.List()
	if err != nil {
		return nil, err
	}

	personas := make(map[string]*Persona, len(ids))
	for _, id := range ids {
		p, err := l.Get(id)
		if err != nil {
			l.log.Warn("Skipping invalid persona",
				logger.StringField("bot_id", id),
				logger.ErrorField(err))
			continue
		}
		personas[id] = p
	}
	return personas, nil
}

func (l *Loader) load(botID string) (*Persona, error) {
	data, err := os.ReadFile(l.configPath(botID))
	if err != nil {
		return nil, fmt.Errorf("failed to read persona config for %s: %w", botID, err)
	}

	p := &Persona{ID: botID}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse persona config for %s: %w", botID, err)
	}
	if p.Name == "" {
		p.Name = botID
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[botID] = p
	l.mu.Unlock()

	l.log.Info("Loaded persona",
		logger.StringField("bot_id", botID),
		logger.StringField("name", p.Name))

	return p, nil
}

func (l *Loader) configPath(botID string) string {
	return filepath.Join(l.botsDir, botID, "config.yaml")
}
