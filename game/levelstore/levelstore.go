package levelstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/tout-va-bien/game/service"
)

var (
	ErrNotFound      = service.ErrLevelNotFound
	ErrAlreadyExists = service.ErrLevelExists
	ErrInvalidID     = errors.New("invalid published level id")
)

// Store is a service.LevelStore that holds resources
type Store interface {
	service.LevelStore
	Close() error
}

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open creates the store for the named backend
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStore(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown level store backend %q (want %s or %s)", backend, BackendFile, BackendSQLite)
	}
}

// validateID rejects ids that cannot be used as file names
func validateID(id string) error {
	if !service.ValidPublishedID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
