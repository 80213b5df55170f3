package engine

import "fmt"

// Engine provides the main interface for board operations
type Engine interface {
	// Board state management
	State() BoardState
	SetState(board BoardState) error
	Reset() BoardState
	HasChanges() bool
	Moves() int

	// Drag and drop
	DragStart(cardID, sourceCellID string) (*ActiveCard, bool)
	DragEnd(cmd Command) *DropResult
	Remove(cellID, cardID string) BoardState

	// Victory
	Victory() VictoryResult
	IsVictory() bool

	// Level
	Level() *Level
	Deck() Deck
	Snapshot() *Snapshot
}

// GameEngine implements the Engine interface for a single level
type GameEngine struct {
	level   *Level
	deck    Deck
	store   *Store
	initial BoardState
	moves   int
}

// NewEngine creates a new engine for the provided level
func NewEngine(level *Level) (*GameEngine, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}

	initial := InitBoardFromLevel(level)
	engine := &GameEngine{
		level:   level,
		deck:    NewDeck(level),
		store:   NewStore(initial),
		initial: initial,
	}

	return engine, nil
}

// State returns a copy of the current board
func (e *GameEngine) State() BoardState {
	return e.store.Read()
}

// SetState replaces the board wholesale (debug seeding)
func (e *GameEngine) SetState(board BoardState) error {
	if board == nil {
		return fmt.Errorf("board cannot be nil")
	}
	e.store.Replace(board)
	return nil
}

// Reset returns the board to its initial seed
func (e *GameEngine) Reset() BoardState {
	e.store.Reset(e.initial)
	e.moves = 0
	return e.store.Read()
}

// HasChanges reports whether the board differs from its initial seed
func (e *GameEngine) HasChanges() bool {
	return !e.store.board.Equal(e.initial)
}

// Moves returns the number of drops applied since the last reset
func (e *GameEngine) Moves() int {
	return e.moves
}

// DragStart resolves the card under the pointer. Dragging a placed
// location also reports the contents of its cell.
func (e *GameEngine) DragStart(cardID, sourceCellID string) (*ActiveCard, bool) {
	card, ok := e.deck.Lookup(cardID)
	if !ok {
		return nil, false
	}

	active := &ActiveCard{
		ID:    card.ID,
		Kind:  card.Kind.String(),
		Label: card.Label,
	}
	if card.IsLocation() && sourceCellID != "" {
		if cell, ok := e.store.board[sourceCellID]; ok {
			data := cell.clone()
			active.CellData = &data
		}
	}
	return active, true
}

// DragEnd applies a drop and evaluates the resulting board
func (e *GameEngine) DragEnd(cmd Command) *DropResult {
	prev := e.store.board
	next := Place(prev, cmd, e.level, e.deck)

	changed := !next.Equal(prev)
	if changed {
		e.store.Replace(next)
	}
	if cmd.CardID != "" {
		e.moves++
	}

	return &DropResult{
		Board:   e.store.Read(),
		Changed: changed,
		Victory: Evaluate(e.store.board, e.level),
		Moves:   e.moves,
	}
}

// Remove takes a card out of a cell
func (e *GameEngine) Remove(cellID, cardID string) BoardState {
	next := Remove(e.store.board, cellID, cardID, e.deck)
	if !next.Equal(e.store.board) {
		e.store.Replace(next)
	}
	return e.store.Read()
}

// Victory evaluates the current board
func (e *GameEngine) Victory() VictoryResult {
	return Evaluate(e.store.board, e.level)
}

// IsVictory returns whether any victory state is satisfied
func (e *GameEngine) IsVictory() bool {
	return e.Victory().Achieved
}

// Level returns the level being played
func (e *GameEngine) Level() *Level {
	return e.level
}

// Deck returns the card lookup table of the level
func (e *GameEngine) Deck() Deck {
	return e.deck
}

// Subscribe forwards every new board to fn
func (e *GameEngine) Subscribe(fn func(BoardState)) {
	e.store.Subscribe(fn)
}

// Snapshot returns a read-only view for transport layers
func (e *GameEngine) Snapshot() *Snapshot {
	return &Snapshot{
		LevelID:    e.level.ID,
		Title:      e.level.Title,
		Cells:      CellIDs(e.level.Cells),
		Board:      e.store.Read(),
		Victory:    e.Victory(),
		Moves:      e.moves,
		HasChanges: e.HasChanges(),
	}
}

// ComposeLevel builds the level record published from a created board:
// the source level with the user's title and the board as its only
// victory state
func ComposeLevel(level *Level, title string, board BoardState) *Level {
	out := *level
	out.Title = title
	out.IsUserCreated = false
	out.CharacterDeck = append([]Card(nil), level.CharacterDeck...)
	out.LocationDeck = append([]Card(nil), level.LocationDeck...)
	out.VictoryStates = []BoardState{board.Clone()}
	return &out
}
