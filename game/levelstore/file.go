package levelstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/tout-va-bien/game/service"
)

// FileStore keeps every published level in its own JSON file
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a file-based level store rooted at dir
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("level store directory is required")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create level store directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

// Put persists a published level. Existing ids are never overwritten.
func (fs *FileStore) Put(ctx context.Context, level *service.PublishedLevel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if level == nil {
		return fmt.Errorf("published level cannot be nil")
	}
	if err := validateID(level.ID); err != nil {
		return err
	}

	data, err := json.Marshal(level)
	if err != nil {
		return fmt.Errorf("failed to marshal published level: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.OpenFile(fs.filePath(level.ID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, level.ID)
		}
		return fmt.Errorf("failed to create published level file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write published level file: %w", err)
	}
	return nil
}

// Get loads a published level by id
func (fs *FileStore) Get(ctx context.Context, id string) (*service.PublishedLevel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fs.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read published level file: %w", err)
	}

	var level service.PublishedLevel
	if err := json.Unmarshal(data, &level); err != nil {
		return nil, fmt.Errorf("failed to unmarshal published level: %w", err)
	}
	return &level, nil
}

// List returns every published level, oldest first
func (fs *FileStore) List(ctx context.Context) ([]*service.PublishedLevel, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read level store directory: %w", err)
	}

	var levels []*service.PublishedLevel
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		level, err := fs.Get(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Skip unreadable files
			continue
		}
		levels = append(levels, level)
	}

	sort.SliceStable(levels, func(i, j int) bool {
		if !levels[i].CreatedAt.Equal(levels[j].CreatedAt) {
			return levels[i].CreatedAt.Before(levels[j].CreatedAt)
		}
		return levels[i].ID < levels[j].ID
	})
	return levels, nil
}

// Close is a no-op for the file store
func (fs *FileStore) Close() error {
	return nil
}

// filePath returns the full file path for a level id
func (fs *FileStore) filePath(id string) string {
	return filepath.Join(fs.dir, id+".json")
}

var _ Store = (*FileStore)(nil)
