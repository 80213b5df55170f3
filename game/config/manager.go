package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/tout-va-bien/game/engine"
	"github.com/wricardo/tout-va-bien/game/service"
)

var (
	ErrLevelNotFound = service.ErrLevelNotFound
	ErrInvalidLevel  = service.ErrInvalidLevel
)

// SandboxCells is the grid size of the create-mode level when no level
// file provides one
const SandboxCells = 9

// Manager handles level loading, ordering and caching
type Manager struct {
	levelsDir string
	builtin   []*engine.Level
	create    *engine.Level
	community []*engine.Level
	mu        sync.RWMutex
}

// NewManager creates a level catalog backed by a directory of level files
func NewManager(levelsDir string) (*Manager, error) {
	// Ensure levels directory exists
	if _, err := os.Stat(levelsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("levels directory does not exist: %s", levelsDir)
	}

	m := &Manager{levelsDir: levelsDir}
	if err := m.Refresh(); err != nil {
		return nil, fmt.Errorf("failed to load levels: %w", err)
	}

	return m, nil
}

// Refresh reloads the built-in levels from disk. Community levels merged
// at runtime are kept.
func (m *Manager) Refresh() error {
	entries, err := os.ReadDir(m.levelsDir)
	if err != nil {
		return fmt.Errorf("failed to read levels directory: %w", err)
	}

	var builtin []*engine.Level
	var create *engine.Level
	seen := make(map[string]bool)

	// os.ReadDir sorts by filename, which gives the navigation order
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		level, err := engine.LoadLevel(filepath.Join(m.levelsDir, entry.Name()))
		if err != nil {
			// Skip invalid levels
			log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping invalid level")
			continue
		}
		if seen[level.ID] {
			log.Warn().Str("file", entry.Name()).Str("level", level.ID).Msg("skipping duplicate level id")
			continue
		}
		seen[level.ID] = true

		if level.ID == engine.CreateLevelID {
			create = level
			continue
		}
		builtin = append(builtin, level)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.builtin = builtin
	m.create = create

	log.Debug().Int("levels", len(builtin)).Bool("create_level", create != nil).Msg("levels loaded")
	return nil
}

// Levels returns the playable levels in navigation order: built-in levels
// followed by community levels
func (m *Manager) Levels() []*engine.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*engine.Level, 0, len(m.builtin)+len(m.community))
	out = append(out, m.builtin...)
	out = append(out, m.community...)
	return out
}

// LoadLevel returns a level by id
func (m *Manager) LoadLevel(id string) (*engine.Level, error) {
	if id == engine.CreateLevelID {
		return m.CreateLevel(), nil
	}

	for _, level := range m.Levels() {
		if level.ID == id {
			return level, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLevelNotFound, id)
}

// Resolve turns a navigation selector into a level: a 1-based index into
// Levels, the create-mode token, or a level id. An empty selector picks
// the first level.
func (m *Manager) Resolve(selector string) (*engine.Level, error) {
	selector = strings.TrimSpace(selector)

	if selector == engine.CreateSelector {
		return m.CreateLevel(), nil
	}
	if selector == "" {
		selector = "1"
	}

	if n, err := strconv.Atoi(selector); err == nil {
		levels := m.Levels()
		if n < 1 || n > len(levels) {
			return nil, fmt.Errorf("%w: index %d out of range (1-%d)", ErrLevelNotFound, n, len(levels))
		}
		return levels[n-1], nil
	}

	return m.LoadLevel(selector)
}

// CreateLevel returns the level used in create mode. A level file with the
// create-mode id wins; otherwise a sandbox is assembled from every deck.
func (m *Manager) CreateLevel() *engine.Level {
	m.mu.RLock()
	create := m.create
	builtin := append([]*engine.Level(nil), m.builtin...)
	m.mu.RUnlock()

	if create != nil {
		return create
	}

	sandbox := engine.SandboxLevel(builtin, SandboxCells)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.create == nil {
		m.create = sandbox
	}
	return m.create
}

// MergeCommunity adds fetched community levels to the catalog. A level
// already merged under the same id is replaced; invalid levels and ids
// clashing with built-in levels are skipped. Returns the number of levels
// merged.
func (m *Manager) MergeCommunity(levels []*engine.Level) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := 0
	for _, level := range levels {
		if err := engine.ValidateLevel(level); err != nil {
			log.Warn().Err(err).Msg("skipping invalid community level")
			continue
		}
		if m.isBuiltin(level.ID) {
			log.Warn().Str("level", level.ID).Msg("community level clashes with a built-in level")
			continue
		}

		replaced := false
		for i, existing := range m.community {
			if existing.ID == level.ID {
				m.community[i] = level
				replaced = true
				break
			}
		}
		if !replaced {
			m.community = append(m.community, level)
		}
		merged++
	}

	return merged
}

// ListLevels returns information about every level, create mode last
func (m *Manager) ListLevels() ([]*service.LevelInfo, error) {
	levels := m.Levels()
	infos := make([]*service.LevelInfo, 0, len(levels)+1)

	for i, level := range levels {
		infos = append(infos, service.NewLevelInfo(i+1, level, IsCommunityLevel(level.ID)))
	}
	infos = append(infos, service.NewLevelInfo(0, m.CreateLevel(), false))

	return infos, nil
}

// SaveLevel writes a level to the levels directory and adds it to the
// built-in levels
func (m *Manager) SaveLevel(level *engine.Level) error {
	// Validate level before saving
	if err := engine.ValidateLevel(level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	if !service.ValidPublishedID(level.ID) {
		return fmt.Errorf("%w: unusable level id %q", ErrInvalidLevel, level.ID)
	}

	data, err := json.MarshalIndent(level, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}

	path := filepath.Join(m.levelsDir, level.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	defer m.mu.Unlock()

	if level.ID == engine.CreateLevelID {
		m.create = level
		return nil
	}
	for i, existing := range m.builtin {
		if existing.ID == level.ID {
			m.builtin[i] = level
			return nil
		}
	}
	m.builtin = append(m.builtin, level)
	return nil
}

// Dir returns the levels directory
func (m *Manager) Dir() string {
	return m.levelsDir
}

func (m *Manager) isBuiltin(id string) bool {
	if id == engine.CreateLevelID {
		return true
	}
	for _, level := range m.builtin {
		if level.ID == id {
			return true
		}
	}
	return false
}

// IsCommunityLevel reports whether a level id was produced by level
// creation rather than shipped with the game
func IsCommunityLevel(id string) bool {
	return strings.Contains(id, engine.CreateSelector) && id != engine.CreateLevelID
}
