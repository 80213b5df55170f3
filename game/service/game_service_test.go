package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/tout-va-bien/game/engine"
	"github.com/wricardo/tout-va-bien/game/service"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	mu       sync.Mutex
	sessions map[string]*service.Session
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id string, level *engine.Level) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}

	if _, exists := m.sessions[id]; exists {
		return nil, service.ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(level)
	if err != nil {
		return nil, err
	}

	session := &service.Session{
		ID:             id,
		Engine:         eng,
		Level:          level,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, service.ErrSessionNotFound
	}
	return session, nil
}

func (m *MockSessionManager) List() []*service.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return service.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, exists := m.sessions[id]; exists {
		session.LastAccessedAt = time.Now()
		return nil
	}
	return service.ErrSessionNotFound
}

// MockLevelCatalog implements service.LevelCatalog for testing
type MockLevelCatalog struct {
	levels    []*engine.Level
	community []*engine.Level
	create    *engine.Level
}

func NewMockLevelCatalog() *MockLevelCatalog {
	create := createTestLevel()
	create.ID = engine.CreateLevelID
	create.Title = "Créez votre niveau"
	create.VictoryStates = nil

	return &MockLevelCatalog{
		levels: []*engine.Level{createTestLevel()},
		create: create,
	}
}

func (m *MockLevelCatalog) all() []*engine.Level {
	return append(append([]*engine.Level{}, m.levels...), m.community...)
}

func (m *MockLevelCatalog) Resolve(selector string) (*engine.Level, error) {
	switch selector {
	case "", "1":
		return m.levels[0], nil
	case engine.CreateSelector:
		return m.create, nil
	}
	return m.LoadLevel(selector)
}

func (m *MockLevelCatalog) LoadLevel(id string) (*engine.Level, error) {
	if id == engine.CreateLevelID {
		return m.create, nil
	}
	for _, level := range m.all() {
		if level.ID == id {
			return level, nil
		}
	}
	return nil, service.ErrLevelNotFound
}

func (m *MockLevelCatalog) ListLevels() ([]*service.LevelInfo, error) {
	var infos []*service.LevelInfo
	for i, level := range m.all() {
		infos = append(infos, service.NewLevelInfo(i+1, level, i >= len(m.levels)))
	}
	return append(infos, service.NewLevelInfo(0, m.create, false)), nil
}

func (m *MockLevelCatalog) MergeCommunity(levels []*engine.Level) int {
	merged := 0
	for _, level := range levels {
		if _, err := m.LoadLevel(level.ID); err == nil {
			continue
		}
		m.community = append(m.community, level)
		merged++
	}
	return merged
}

// MockPublisher implements service.Publisher for testing
type MockPublisher struct {
	mu        sync.Mutex
	fetched   []*engine.Level
	fetchErr  error
	submitErr error
	submitted []*engine.Level
}

func (m *MockPublisher) FetchLevels(ctx context.Context) ([]*engine.Level, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.fetched, nil
}

func (m *MockPublisher) SubmitLevel(ctx context.Context, level *engine.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return m.submitErr
	}
	m.submitted = append(m.submitted, level)
	return nil
}

// MockLevelStore implements service.LevelStore for testing
type MockLevelStore struct {
	levels map[string]*service.PublishedLevel
	order  []string
	putErr error
}

func NewMockLevelStore() *MockLevelStore {
	return &MockLevelStore{levels: make(map[string]*service.PublishedLevel)}
}

func (m *MockLevelStore) Put(ctx context.Context, level *service.PublishedLevel) error {
	if m.putErr != nil {
		return m.putErr
	}
	if _, exists := m.levels[level.ID]; exists {
		return service.ErrLevelExists
	}
	copied := *level
	m.levels[level.ID] = &copied
	m.order = append(m.order, level.ID)
	return nil
}

func (m *MockLevelStore) Get(ctx context.Context, id string) (*service.PublishedLevel, error) {
	level, exists := m.levels[id]
	if !exists {
		return nil, service.ErrLevelNotFound
	}
	return level, nil
}

func (m *MockLevelStore) List(ctx context.Context) ([]*service.PublishedLevel, error) {
	result := make([]*service.PublishedLevel, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.levels[id])
	}
	return result, nil
}

func createTestLevel() *engine.Level {
	return &engine.Level{
		ID:         "level_service_1",
		ShortTitle: "1",
		Title:      "Service test level",
		Cells:      2,
		CharacterDeck: []engine.Card{
			{ID: "macron", Label: "Macron", Kind: engine.KindCharacter},
			{ID: "lepen", Label: "Le Pen", Kind: engine.KindCharacter},
		},
		LocationDeck: []engine.Card{
			{ID: "office", Label: "Bureau", Kind: engine.KindLocation, Slots: engine.SlotSpec{MaxCharacters: 1}},
			{ID: "debate", Label: "Débat", Kind: engine.KindLocation, Slots: engine.SlotSpec{MaxCharacters: 2, Positions: []string{"left", "right"}}},
		},
		VictoryStates: []engine.BoardState{
			{
				"cell-1": {Location: "office", Characters: []engine.PlacedCharacter{{ID: "macron"}}},
				"cell-2": {Location: "debate", Characters: []engine.PlacedCharacter{{ID: "lepen", Position: "left"}}},
			},
		},
	}
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func newTestService(opts ...service.Option) (service.GameService, *MockSessionManager, *MockLevelCatalog) {
	sessions := NewMockSessionManager()
	levels := NewMockLevelCatalog()
	return service.NewGameService(sessions, levels, opts...), sessions, levels
}

// Test cases
func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	tests := []struct {
		name       string
		selector   string
		wantLevel  string
		createMode bool
		wantErr    error
	}{
		{name: "default selector", selector: "", wantLevel: "level_service_1"},
		{name: "numeric selector", selector: "1", wantLevel: "level_service_1"},
		{name: "level id", selector: "level_service_1", wantLevel: "level_service_1"},
		{name: "create mode", selector: "create", wantLevel: engine.CreateLevelID, createMode: true},
		{name: "unknown level", selector: "nonexistent", wantErr: service.ErrLevelNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := svc.CreateSession(ctx, tt.selector)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CreateSession() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateSession() error = %v", err)
			}
			if info.LevelID != tt.wantLevel {
				t.Errorf("LevelID = %s, want %s", info.LevelID, tt.wantLevel)
			}
			if info.CreateMode != tt.createMode {
				t.Errorf("CreateMode = %v, want %v", info.CreateMode, tt.createMode)
			}
			if info.Snapshot == nil || len(info.Snapshot.Cells) == 0 {
				t.Error("expected a board snapshot")
			}
		})
	}
}

func TestGameService_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	first, _ := svc.CreateSession(ctx, "1")
	second, _ := svc.CreateSession(ctx, "1")

	sessions, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	if _, err := svc.GetSession(ctx, first.ID); err != nil {
		t.Errorf("GetSession() error = %v", err)
	}
	if err := svc.DeleteSession(ctx, first.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := svc.GetSession(ctx, first.ID); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
	if err := svc.DeleteSession(ctx, first.ID); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on second delete, got %v", err)
	}
	if _, err := svc.GetBoard(ctx, second.ID); err != nil {
		t.Errorf("GetBoard() error = %v", err)
	}
}

func TestGameService_UnknownSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	calls := map[string]func() error{
		"GetBoard": func() error { _, err := svc.GetBoard(ctx, "nope"); return err },
		"DragStart": func() error {
			_, err := svc.DragStart(ctx, "nope", service.DragStartRequest{CardID: "macron"})
			return err
		},
		"Drop": func() error {
			_, err := svc.Drop(ctx, "nope", service.DropRequest{CardID: "macron", Target: "cell-1"})
			return err
		},
		"Remove":       func() error { _, err := svc.Remove(ctx, "nope", "cell-1", "office"); return err },
		"Reset":        func() error { _, err := svc.Reset(ctx, "nope"); return err },
		"Victory":      func() error { _, err := svc.Victory(ctx, "nope"); return err },
		"ApplyVictory": func() error { _, err := svc.ApplyVictory(ctx, "nope", 0); return err },
		"SubmitLevel":  func() error { _, err := svc.SubmitLevel(ctx, "nope", ""); return err },
	}

	for name, call := range calls {
		if err := call(); !errors.Is(err, service.ErrSessionNotFound) {
			t.Errorf("%s: expected ErrSessionNotFound, got %v", name, err)
		}
	}
}

func TestGameService_PlayToVictory(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	info, err := svc.CreateSession(ctx, "1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	drops := []service.DropRequest{
		{CardID: "office", Target: "cell-1"},
		{CardID: "debate", Target: "cell-2"},
		{CardID: "macron", Target: "cell-1"},
		{CardID: "lepen", Target: "cell-2-left"},
	}

	var last *service.DropResponse
	for _, drop := range drops {
		last, err = svc.Drop(ctx, info.ID, drop)
		if err != nil {
			t.Fatalf("Drop(%+v) error = %v", drop, err)
		}
		if !last.Changed {
			t.Errorf("Drop(%+v) did not change the board", drop)
		}
	}

	if !last.Victory.Achieved {
		t.Errorf("expected victory, got %+v", last.Victory)
	}
	if last.Moves != len(drops) {
		t.Errorf("moves = %d, want %d", last.Moves, len(drops))
	}
	if !last.HasChanges {
		t.Error("expected HasChanges after drops")
	}

	victory, err := svc.Victory(ctx, info.ID)
	if err != nil || !victory.Achieved {
		t.Errorf("Victory() = %+v, %v", victory, err)
	}

	board, err := svc.Reset(ctx, info.ID)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if len(board.Board) != 0 || board.HasChanges {
		t.Errorf("expected empty unchanged board after reset, got %+v", board)
	}
}

func TestGameService_DropNoOp(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	info, _ := svc.CreateSession(ctx, "1")

	// Character on an empty cell
	resp, err := svc.Drop(ctx, info.ID, service.DropRequest{CardID: "macron", Target: "cell-1"})
	if err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if resp.Changed || resp.HasChanges {
		t.Errorf("expected a no-op drop, got %+v", resp)
	}
}

func TestGameService_DropExplicitPosition(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	info, _ := svc.CreateSession(ctx, "1")

	svc.Drop(ctx, info.ID, service.DropRequest{CardID: "debate", TargetCellID: "cell-2"})
	resp, err := svc.Drop(ctx, info.ID, service.DropRequest{CardID: "lepen", TargetCellID: "cell-2", TargetPosition: "right"})
	if err != nil {
		t.Fatalf("Drop() error = %v", err)
	}

	chars := resp.Board["cell-2"].Characters
	if len(chars) != 1 || chars[0].Position != "right" {
		t.Errorf("expected lepen on the right, got %v", chars)
	}
}

func TestGameService_DragStart(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	info, _ := svc.CreateSession(ctx, "1")
	svc.Drop(ctx, info.ID, service.DropRequest{CardID: "office", Target: "cell-1"})

	active, err := svc.DragStart(ctx, info.ID, service.DragStartRequest{CardID: "office", SourceCellID: "cell-1"})
	if err != nil {
		t.Fatalf("DragStart() error = %v", err)
	}
	if active.Kind != "location" || active.CellData == nil || active.CellData.Location != "office" {
		t.Errorf("unexpected active card %+v", active)
	}

	if _, err := svc.DragStart(ctx, info.ID, service.DragStartRequest{CardID: "ghost"}); !errors.Is(err, service.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown card, got %v", err)
	}
}

func TestGameService_Remove(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	info, _ := svc.CreateSession(ctx, "1")
	svc.Drop(ctx, info.ID, service.DropRequest{CardID: "office", Target: "cell-1"})
	svc.Drop(ctx, info.ID, service.DropRequest{CardID: "macron", Target: "cell-1"})

	snap, err := svc.Remove(ctx, info.ID, "cell-1", "macron")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if cell := snap.Board["cell-1"]; cell.Location != "office" || len(cell.Characters) != 0 {
		t.Errorf("expected office without characters, got %+v", cell)
	}

	snap, _ = svc.Remove(ctx, info.ID, "cell-1", "office")
	if _, ok := snap.Board["cell-1"]; ok {
		t.Errorf("expected cell-1 cleared, got %+v", snap.Board)
	}
}

func TestGameService_ApplyVictory(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	info, _ := svc.CreateSession(ctx, "1")

	snap, err := svc.ApplyVictory(ctx, info.ID, 0)
	if err != nil {
		t.Fatalf("ApplyVictory() error = %v", err)
	}
	if !snap.Victory.Achieved {
		t.Error("expected victory after applying a victory state")
	}

	for _, index := range []int{-1, 1} {
		if _, err := svc.ApplyVictory(ctx, info.ID, index); !errors.Is(err, service.ErrInvalidArgument) {
			t.Errorf("ApplyVictory(%d): expected ErrInvalidArgument, got %v", index, err)
		}
	}

	// The level's victory state must not alias the board
	svc.Remove(ctx, info.ID, "cell-1", "macron")
	level, _ := svc.GetLevel(ctx, "level_service_1")
	if len(level.VictoryStates[0]["cell-1"].Characters) != 1 {
		t.Error("level victory state was mutated through the board")
	}
}

func TestGameService_SubmitLevel(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)}
	publisher := &MockPublisher{}
	svc, _, _ := newTestService(service.WithPublisher(publisher), service.WithClock(clock.Now))

	info, _ := svc.CreateSession(ctx, "create")

	if _, err := svc.SubmitLevel(ctx, info.ID, "Mon niveau"); !errors.Is(err, service.ErrNoChanges) {
		t.Errorf("expected ErrNoChanges on untouched board, got %v", err)
	}

	svc.Drop(ctx, info.ID, service.DropRequest{CardID: "office", Target: "cell-1"})
	svc.Drop(ctx, info.ID, service.DropRequest{CardID: "macron", Target: "cell-1"})

	result, err := svc.SubmitLevel(ctx, info.ID, "  Mon niveau  ")
	if err != nil {
		t.Fatalf("SubmitLevel() error = %v", err)
	}
	if !result.Success {
		t.Fatal("expected a successful submission")
	}
	if !strings.HasPrefix(result.LevelID, service.CommunityLevelPrefix) {
		t.Errorf("level id %s lacks community prefix", result.LevelID)
	}
	if result.Level.Title != "Mon niveau" {
		t.Errorf("title = %q, want trimmed title", result.Level.Title)
	}
	if result.Level.IsUserCreated {
		t.Error("submitted level should not be flagged user-created")
	}
	if len(result.Level.VictoryStates) != 1 || result.Level.VictoryStates[0]["cell-1"].Location != "office" {
		t.Errorf("victory state should be the board, got %v", result.Level.VictoryStates)
	}
	if result.Notification == nil || result.Notification.Message != service.MsgSubmitSuccess {
		t.Errorf("unexpected notification %+v", result.Notification)
	}
	if len(publisher.submitted) != 1 {
		t.Errorf("expected one submitted level, got %d", len(publisher.submitted))
	}

	got, _ := svc.GetSession(ctx, info.ID)
	if got.Notification == nil {
		t.Error("expected the notification on the session")
	}

	clock.now = clock.now.Add(service.NotificationTTL)
	got, _ = svc.GetSession(ctx, info.ID)
	if got.Notification != nil {
		t.Errorf("expected the notification to expire, got %+v", got.Notification)
	}
}

func TestGameService_SubmitLevelFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		publisher *MockPublisher
		want      string
	}{
		{"rejected", &MockPublisher{submitErr: fmt.Errorf("%w: status 500", service.ErrPublishFailed)}, service.MsgSubmitFailed},
		{"network", &MockPublisher{submitErr: errors.New("connection refused")}, service.MsgSubmitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(service.WithPublisher(tt.publisher))
			info, _ := svc.CreateSession(ctx, "create")
			svc.Drop(ctx, info.ID, service.DropRequest{CardID: "office", Target: "cell-1"})

			result, err := svc.SubmitLevel(ctx, info.ID, "")
			if err != nil {
				t.Fatalf("SubmitLevel() error = %v", err)
			}
			if result.Success {
				t.Error("expected a failed submission")
			}
			if result.Notification.Type != "error" || result.Notification.Message != tt.want {
				t.Errorf("notification = %+v, want %q", result.Notification, tt.want)
			}
			if result.Level.Title != "Créez votre niveau" {
				t.Errorf("empty title should default to the level title, got %q", result.Level.Title)
			}
		})
	}
}

func TestGameService_SubmitLevelValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	info, _ := svc.CreateSession(ctx, "create")
	svc.Drop(ctx, info.ID, service.DropRequest{CardID: "office", Target: "cell-1"})

	if _, err := svc.SubmitLevel(ctx, info.ID, strings.Repeat("a", service.MaxTitleLength+1)); !errors.Is(err, service.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for long title, got %v", err)
	}

	result, err := svc.SubmitLevel(ctx, info.ID, "x")
	if err != nil {
		t.Fatalf("SubmitLevel() error = %v", err)
	}
	if result.Success || result.Notification.Message != service.MsgSubmitError {
		t.Errorf("expected an error notification without publisher, got %+v", result)
	}
}

func TestGameService_RefreshCommunityLevels(t *testing.T) {
	ctx := context.Background()

	community := createTestLevel()
	community.ID = "community_create_1"
	publisher := &MockPublisher{fetched: []*engine.Level{community, createTestLevel()}}
	svc, _, _ := newTestService(service.WithPublisher(publisher))

	result, err := svc.RefreshCommunityLevels(ctx)
	if err != nil {
		t.Fatalf("RefreshCommunityLevels() error = %v", err)
	}
	if result.Fetched != 2 || result.Merged != 1 || result.Total != 2 {
		t.Errorf("unexpected result %+v", result)
	}

	if _, err := svc.CreateSession(ctx, "community_create_1"); err != nil {
		t.Errorf("expected community level to be playable: %v", err)
	}

	publisher.fetchErr = errors.New("unreachable")
	result, err = svc.RefreshCommunityLevels(ctx)
	if err != nil {
		t.Fatalf("fetch failures should not be returned: %v", err)
	}
	if result.Error == "" || result.Total != 2 {
		t.Errorf("expected error recorded and catalog kept, got %+v", result)
	}

	bare, _, _ := newTestService()
	if _, err := bare.RefreshCommunityLevels(ctx); !errors.Is(err, service.ErrNoPublisher) {
		t.Errorf("expected ErrNoPublisher, got %v", err)
	}
}

func TestGameService_PublishLevel(t *testing.T) {
	ctx := context.Background()
	store := NewMockLevelStore()
	svc, _, _ := newTestService(service.WithLevelStore(store))

	doc := json.RawMessage(`{"id":"community_create_x","title":"A"}`)
	first, err := svc.PublishLevel(ctx, doc)
	if err != nil {
		t.Fatalf("PublishLevel() error = %v", err)
	}
	if first.ID != "community_create_x" {
		t.Errorf("id = %s, want the document id", first.ID)
	}

	second, err := svc.PublishLevel(ctx, doc)
	if err != nil {
		t.Fatalf("PublishLevel() duplicate error = %v", err)
	}
	if second.ID == first.ID {
		t.Error("duplicate document should get a fresh id")
	}

	if _, err := svc.PublishLevel(ctx, json.RawMessage(`{broken`)); !errors.Is(err, service.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for invalid JSON, got %v", err)
	}

	docs, err := svc.ListPublished(ctx)
	if err != nil {
		t.Fatalf("ListPublished() error = %v", err)
	}
	if len(docs) != 2 || string(docs[0]) != string(doc) {
		t.Errorf("unexpected published docs %s", docs)
	}

	bare, _, _ := newTestService()
	if _, err := bare.PublishLevel(ctx, doc); !errors.Is(err, service.ErrNoPublisher) {
		t.Errorf("expected ErrNoPublisher, got %v", err)
	}
}

func TestGameService_LocalPublisherRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMockLevelStore()
	svc, _, _ := newTestService(service.WithLevelStore(store))

	info, _ := svc.CreateSession(ctx, "create")
	svc.Drop(ctx, info.ID, service.DropRequest{CardID: "office", Target: "cell-1"})

	result, err := svc.SubmitLevel(ctx, info.ID, "Local")
	if err != nil || !result.Success {
		t.Fatalf("SubmitLevel() = %+v, %v", result, err)
	}

	refresh, err := svc.RefreshCommunityLevels(ctx)
	if err != nil {
		t.Fatalf("RefreshCommunityLevels() error = %v", err)
	}
	if refresh.Merged != 1 {
		t.Errorf("expected the submitted level to come back, got %+v", refresh)
	}

	level, err := svc.GetLevel(ctx, result.LevelID)
	if err != nil {
		t.Fatalf("GetLevel() error = %v", err)
	}
	if level.Title != "Local" {
		t.Errorf("title = %q", level.Title)
	}
}

func TestGameService_ListLevels(t *testing.T) {
	svc, _, _ := newTestService()

	levels, err := svc.ListLevels(context.Background())
	if err != nil {
		t.Fatalf("ListLevels() error = %v", err)
	}
	if len(levels) != 2 || levels[1].ID != engine.CreateLevelID || levels[1].Index != 0 {
		t.Errorf("unexpected levels %+v", levels)
	}
}

func TestGameService_ConcurrentDrops(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	info, _ := svc.CreateSession(ctx, "1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			card := "office"
			if i%2 == 0 {
				card = "debate"
			}
			svc.Drop(ctx, info.ID, service.DropRequest{CardID: card, Target: "cell-1"})
			svc.GetBoard(ctx, info.ID)
		}(i)
	}
	wg.Wait()

	board, _ := svc.GetBoard(ctx, info.ID)
	if board.Moves != 20 {
		t.Errorf("moves = %d, want every drop counted", board.Moves)
	}
	if engine.CountLocations(board.Board) != 1 {
		t.Errorf("expected a single placed location, got %v", board.Board)
	}
}

func TestNewPublishedLevel(t *testing.T) {
	now := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name      string
		doc       string
		wantID    string
		generated bool
		wantErr   bool
	}{
		{name: "document id", doc: `{"id":"community_create_abc"}`, wantID: "community_create_abc"},
		{name: "trimmed id", doc: `{"id":"  lvl  "}`, wantID: "lvl"},
		{name: "missing id", doc: `{"title":"x"}`, generated: true},
		{name: "path id", doc: `{"id":"../etc"}`, generated: true},
		{name: "numeric id", doc: `{"id":42}`, generated: true},
		{name: "array document", doc: `[1,2]`, generated: true},
		{name: "invalid json", doc: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := service.NewPublishedLevel([]byte(tt.doc), now)
			if tt.wantErr {
				if !errors.Is(err, service.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPublishedLevel() error = %v", err)
			}
			if tt.generated {
				if !strings.HasPrefix(level.ID, service.CommunityLevelPrefix) {
					t.Errorf("expected a generated id, got %s", level.ID)
				}
			} else if level.ID != tt.wantID {
				t.Errorf("id = %s, want %s", level.ID, tt.wantID)
			}
			if string(level.Data) != tt.doc {
				t.Errorf("data = %s, want verbatim %s", level.Data, tt.doc)
			}
			if level.CreatedAt.Location() != time.UTC || !level.CreatedAt.Equal(now) {
				t.Errorf("created_at = %v", level.CreatedAt)
			}
		})
	}
}

func TestNewCommunityLevelID(t *testing.T) {
	a, b := service.NewCommunityLevelID(), service.NewCommunityLevelID()
	if a == b {
		t.Error("expected unique ids")
	}
	if !service.ValidPublishedID(a) {
		t.Errorf("generated id %s is not a valid published id", a)
	}
}

func TestDropRequest_Command(t *testing.T) {
	tests := []struct {
		req  service.DropRequest
		want engine.Command
	}{
		{service.DropRequest{CardID: "a", Target: "cell-2-left"}, engine.Command{CardID: "a", TargetCellID: "cell-2", TargetPosition: "left"}},
		{service.DropRequest{CardID: "a", Target: "cell-2"}, engine.Command{CardID: "a", TargetCellID: "cell-2"}},
		{service.DropRequest{CardID: "a", Target: "cell-2-left", TargetPosition: "right"}, engine.Command{CardID: "a", TargetCellID: "cell-2", TargetPosition: "right"}},
		{service.DropRequest{CardID: "a", Target: "cell-9", TargetCellID: "cell-1"}, engine.Command{CardID: "a", TargetCellID: "cell-1"}},
		{service.DropRequest{CardID: "a", SourceCellID: "cell-1"}, engine.Command{CardID: "a", SourceCellID: "cell-1"}},
	}

	for _, tt := range tests {
		if got := tt.req.Command(); got != tt.want {
			t.Errorf("%+v.Command() = %+v, want %+v", tt.req, got, tt.want)
		}
	}
}
