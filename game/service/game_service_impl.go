package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/tout-va-bien/game/engine"
)

// NotificationTTL is how long a notification stays visible
const NotificationTTL = 3 * time.Second

// MaxTitleLength bounds the title of a created level
const MaxTitleLength = 120

// Notification messages shown after a level submission
const (
	MsgSubmitSuccess = "Niveau envoyé avec succès !"
	MsgSubmitFailed  = "Échec de l'envoi du niveau"
	MsgSubmitError   = "Erreur lors de l'envoi du niveau"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	levels    LevelCatalog
	store     LevelStore
	publisher Publisher
	now       func() time.Time
	mu        sync.RWMutex
}

// Option configures optional collaborators of the game service
type Option func(*gameServiceImpl)

// WithLevelStore sets the store behind the publishing API endpoints
func WithLevelStore(store LevelStore) Option {
	return func(s *gameServiceImpl) { s.store = store }
}

// WithPublisher sets the client used to fetch and submit community levels
func WithPublisher(publisher Publisher) Option {
	return func(s *gameServiceImpl) { s.publisher = publisher }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *gameServiceImpl) { s.now = now }
}

// NewGameService creates a new game service instance. Without a publisher,
// a configured level store plays the publishing API.
func NewGameService(sessions SessionManager, levels LevelCatalog, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		levels:   levels,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil && s.store != nil {
		s.publisher = &localPublisher{store: s.store, now: s.now}
	}
	return s
}

// CreateSession creates a new play session for a level selector
func (s *gameServiceImpl) CreateSession(ctx context.Context, selector string) (*SessionInfo, error) {
	level, err := s.levels.Resolve(selector)
	if err != nil {
		if errors.Is(err, ErrLevelNotFound) {
			return nil, fmt.Errorf("level '%s' not found, use /api/levels to list available levels: %w", selector, err)
		}
		return nil, fmt.Errorf("failed to resolve level %s: %w", selector, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", level)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().Str("session", sess.ID).Str("level", level.ID).Msg("session created")
	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	return nil
}

// GetBoard returns the board snapshot of a session
func (s *gameServiceImpl) GetBoard(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Snapshot(), nil
}

// DragStart resolves the card a player picked up
func (s *gameServiceImpl) DragStart(ctx context.Context, sessionID string, req DragStartRequest) (*engine.ActiveCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	active, ok := sess.Engine.DragStart(req.CardID, req.SourceCellID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown card '%s'", ErrInvalidArgument, req.CardID)
	}
	return active, nil
}

// Drop applies a drag-end to the session board
func (s *gameServiceImpl) Drop(ctx context.Context, sessionID string, req DropRequest) (*DropResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	cmd := req.Command()
	result := sess.Engine.DragEnd(cmd)

	log.Debug().
		Str("session", sessionID).
		Str("card", cmd.CardID).
		Str("source", cmd.SourceCellID).
		Str("target", cmd.TargetCellID).
		Str("position", cmd.TargetPosition).
		Bool("changed", result.Changed).
		Msg("card dropped")
	if result.Victory.Achieved && result.Changed {
		log.Info().Str("session", sessionID).Str("level", sess.Level.ID).Int("moves", result.Moves).Msg("level solved")
	}

	return &DropResponse{DropResult: result, HasChanges: sess.Engine.HasChanges()}, nil
}

// Remove takes a card out of a cell
func (s *gameServiceImpl) Remove(ctx context.Context, sessionID, cellID, cardID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Engine.Remove(cellID, cardID)
	log.Debug().Str("session", sessionID).Str("cell", cellID).Str("card", cardID).Msg("card removed")

	return sess.Engine.Snapshot(), nil
}

// Reset returns the board to its initial seed
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Engine.Reset()
	log.Debug().Str("session", sessionID).Msg("board reset")

	return sess.Engine.Snapshot(), nil
}

// Victory evaluates the session board
func (s *gameServiceImpl) Victory(ctx context.Context, sessionID string) (*engine.VictoryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result := sess.Engine.Victory()
	return &result, nil
}

// ApplyVictory seeds the board with a copy of one of the level's victory
// states
func (s *gameServiceImpl) ApplyVictory(ctx context.Context, sessionID string, index int) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	states := sess.Level.VictoryStates
	if index < 0 || index >= len(states) {
		return nil, fmt.Errorf("%w: victory state %d out of range (level has %d)", ErrInvalidArgument, index, len(states))
	}
	if err := sess.Engine.SetState(states[index]); err != nil {
		return nil, err
	}

	log.Debug().Str("session", sessionID).Int("index", index).Msg("victory state applied")
	return sess.Engine.Snapshot(), nil
}

// SubmitLevel publishes the session board as a new level. The network call
// runs without holding the service lock.
func (s *gameServiceImpl) SubmitLevel(ctx context.Context, sessionID, title string) (*SubmitResult, error) {
	title = strings.TrimSpace(title)
	if len([]rune(title)) > MaxTitleLength {
		return nil, fmt.Errorf("%w: title longer than %d characters", ErrInvalidArgument, MaxTitleLength)
	}

	s.mu.RLock()
	sess, err := s.session(sessionID)
	if err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	if !sess.Engine.HasChanges() {
		s.mu.RUnlock()
		return nil, ErrNoChanges
	}
	if title == "" {
		title = sess.Level.Title
	}
	level := engine.ComposeLevel(sess.Level, title, sess.Engine.State())
	level.ID = NewCommunityLevelID()
	s.mu.RUnlock()

	result := &SubmitResult{LevelID: level.ID, Level: level}

	var notification *Notification
	switch err := s.submit(ctx, level); {
	case err == nil:
		result.Success = true
		notification = s.notify("success", MsgSubmitSuccess)
		log.Info().Str("session", sessionID).Str("level", level.ID).Msg("level submitted")
	case errors.Is(err, ErrPublishFailed):
		notification = s.notify("error", MsgSubmitFailed)
		log.Error().Err(err).Str("session", sessionID).Msg("level submission rejected")
	default:
		notification = s.notify("error", MsgSubmitError)
		log.Error().Err(err).Str("session", sessionID).Msg("level submission failed")
	}
	result.Notification = notification

	s.mu.Lock()
	if sess, err := s.sessions.Get(sessionID); err == nil {
		sess.Notification = notification
	}
	s.mu.Unlock()

	return result, nil
}

func (s *gameServiceImpl) submit(ctx context.Context, level *engine.Level) error {
	if s.publisher == nil {
		return ErrNoPublisher
	}
	return s.publisher.SubmitLevel(ctx, level)
}

func (s *gameServiceImpl) notify(kind, message string) *Notification {
	return &Notification{
		Type:      kind,
		Message:   message,
		ExpiresAt: s.now().Add(NotificationTTL),
	}
}

// ListLevels returns information about all available levels
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	return s.levels.ListLevels()
}

// GetLevel returns a level by id or navigation selector
func (s *gameServiceImpl) GetLevel(ctx context.Context, levelID string) (*engine.Level, error) {
	return s.levels.Resolve(levelID)
}

// RefreshCommunityLevels fetches community levels and merges them into
// the catalog. Fetch failures leave the catalog untouched and are
// reported in the result, not as an error.
func (s *gameServiceImpl) RefreshCommunityLevels(ctx context.Context) (*RefreshResult, error) {
	if s.publisher == nil {
		return nil, ErrNoPublisher
	}

	result := &RefreshResult{}
	fetched, err := s.publisher.FetchLevels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch community levels")
		result.Error = err.Error()
	} else {
		result.Fetched = len(fetched)
		result.Merged = s.levels.MergeCommunity(fetched)
		log.Info().Int("fetched", result.Fetched).Int("merged", result.Merged).Msg("community levels loaded")
	}

	infos, err := s.levels.ListLevels()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Index > 0 {
			result.Total++
		}
	}
	return result, nil
}

// PublishLevel stores a level document received by the publishing API
func (s *gameServiceImpl) PublishLevel(ctx context.Context, doc json.RawMessage) (*PublishedLevel, error) {
	if s.store == nil {
		return nil, ErrNoPublisher
	}

	record, err := NewPublishedLevel(doc, s.now())
	if err != nil {
		return nil, err
	}

	err = s.store.Put(ctx, record)
	if errors.Is(err, ErrLevelExists) {
		// Keep both documents
		record.ID = NewCommunityLevelID()
		err = s.store.Put(ctx, record)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store level: %w", err)
	}

	log.Info().Str("level", record.ID).Int("bytes", len(record.Data)).Msg("level received")
	return record, nil
}

// ListPublished returns every stored level document
func (s *gameServiceImpl) ListPublished(ctx context.Context) ([]json.RawMessage, error) {
	if s.store == nil {
		return nil, ErrNoPublisher
	}

	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}

	docs := make([]json.RawMessage, 0, len(records))
	for _, record := range records {
		docs = append(docs, record.Data)
	}
	return docs, nil
}

// session fetches a session and marks it accessed. Callers hold s.mu.
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	info := &SessionInfo{
		ID:             sess.ID,
		LevelID:        sess.Level.ID,
		CreateMode:     sess.Level.ID == engine.CreateLevelID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Snapshot:       sess.Engine.Snapshot(),
		Level:          sess.Level,
	}
	if sess.Notification.Active(s.now()) {
		info.Notification = sess.Notification
	}
	return info
}
