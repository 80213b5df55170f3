package engine

// Store holds the canonical board of one game. It only accepts whole-board
// replacements; nobody edits cells in place. Store is not safe for
// concurrent use, its owner serializes access.
type Store struct {
	board     BoardState
	observers []func(BoardState)
}

// NewStore creates a store seeded with a copy of seed (nil means empty)
func NewStore(seed BoardState) *Store {
	s := &Store{}
	s.board = seedBoard(seed)
	return s
}

// Read returns a copy of the current board
func (s *Store) Read() BoardState {
	return s.board.Clone()
}

// Replace swaps in the next board and notifies observers
func (s *Store) Replace(next BoardState) {
	s.board = seedBoard(next)
	s.notify()
}

// Reset replaces the board with a copy of seed, or an empty board
func (s *Store) Reset(seed BoardState) {
	s.board = seedBoard(seed)
	s.notify()
}

// Subscribe registers fn to receive a copy of every new board
func (s *Store) Subscribe(fn func(BoardState)) {
	if fn != nil {
		s.observers = append(s.observers, fn)
	}
}

func (s *Store) notify() {
	for _, fn := range s.observers {
		fn(s.board.Clone())
	}
}

func seedBoard(seed BoardState) BoardState {
	if seed == nil {
		return BoardState{}
	}
	return seed.Clone()
}
