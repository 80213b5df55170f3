package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/wricardo/tout-va-bien/game/engine"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrLevelNotFound        = errors.New("level not found")
	ErrLevelExists          = errors.New("level already exists")
	ErrInvalidLevel         = errors.New("invalid level")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNoChanges            = errors.New("board has no changes to submit")
	ErrPublishFailed        = errors.New("level publication failed")
	ErrNoPublisher          = errors.New("no level publishing API configured")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, selector string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Board Operations
	GetBoard(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	DragStart(ctx context.Context, sessionID string, req DragStartRequest) (*engine.ActiveCard, error)
	Drop(ctx context.Context, sessionID string, req DropRequest) (*DropResponse, error)
	Remove(ctx context.Context, sessionID, cellID, cardID string) (*engine.Snapshot, error)
	Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	Victory(ctx context.Context, sessionID string) (*engine.VictoryResult, error)
	ApplyVictory(ctx context.Context, sessionID string, index int) (*engine.Snapshot, error)

	// Level creation
	SubmitLevel(ctx context.Context, sessionID, title string) (*SubmitResult, error)

	// Levels
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	GetLevel(ctx context.Context, levelID string) (*engine.Level, error)
	RefreshCommunityLevels(ctx context.Context) (*RefreshResult, error)

	// Publishing API
	PublishLevel(ctx context.Context, doc json.RawMessage) (*PublishedLevel, error)
	ListPublished(ctx context.Context) ([]json.RawMessage, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, level *engine.Level) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// LevelCatalog gives access to the playable levels
type LevelCatalog interface {
	Resolve(selector string) (*engine.Level, error)
	LoadLevel(id string) (*engine.Level, error)
	ListLevels() ([]*LevelInfo, error)
	MergeCommunity(levels []*engine.Level) int
}

// LevelStore keeps the documents received by the publishing API
type LevelStore interface {
	Put(ctx context.Context, level *PublishedLevel) error
	Get(ctx context.Context, id string) (*PublishedLevel, error)
	List(ctx context.Context) ([]*PublishedLevel, error)
}

// Publisher talks to the level publishing API
type Publisher interface {
	FetchLevels(ctx context.Context) ([]*engine.Level, error)
	SubmitLevel(ctx context.Context, level *engine.Level) error
}

// Session represents an active play session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Level          *engine.Level
	CreatedAt      time.Time
	LastAccessedAt time.Time
	Notification   *Notification
}
