package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Deck indexes every card of a level by id
type Deck map[string]Card

// NewDeck builds the card lookup table for a level. Location cards win
// over character cards sharing the same id.
func NewDeck(level *Level) Deck {
	deck := make(Deck, len(level.CharacterDeck)+len(level.LocationDeck))
	for _, c := range level.CharacterDeck {
		deck[c.ID] = c
	}
	for _, c := range level.LocationDeck {
		deck[c.ID] = c
	}
	return deck
}

// Lookup returns the card with the given id
func (d Deck) Lookup(id string) (Card, bool) {
	c, ok := d[id]
	return c, ok
}

// CellID returns the identifier of the n-th cell (1-based)
func CellID(n int) string {
	return fmt.Sprintf("%s%d", CellPrefix, n)
}

// CellIDs lists the identifiers of a grid with count cells
func CellIDs(count int) []string {
	ids := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		ids = append(ids, CellID(i))
	}
	return ids
}

// CellIndex parses the 1-based index out of a cell identifier
func CellIndex(id string) (int, bool) {
	if !strings.HasPrefix(id, CellPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, CellPrefix))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// HasCell reports whether id names a cell of the level's grid
func (l *Level) HasCell(id string) bool {
	n, ok := CellIndex(id)
	return ok && n <= l.Cells && id == CellID(n)
}

// SplitDropTarget decomposes a droppable identifier such as "cell-1-left"
// into its cell id and slot position. Identifiers with fewer than three
// dash-separated components carry no position.
func SplitDropTarget(raw string) (cellID, position string) {
	parts := strings.Split(raw, "-")
	if len(parts) < 3 {
		return raw, ""
	}
	return strings.Join(parts[:len(parts)-1], "-"), parts[len(parts)-1]
}

// sortedCellIDs returns the keys of a board ordered by cell index
func sortedCellIDs(b BoardState) []string {
	ids := make([]string, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, okI := CellIndex(ids[i])
		nj, okJ := CellIndex(ids[j])
		if okI && okJ && ni != nj {
			return ni < nj
		}
		return ids[i] < ids[j]
	})
	return ids
}
