package engine

import (
	"fmt"
	"strings"
)

// GridColumns is the number of columns the board is laid out on
const GridColumns = 3

// CountPlacedCharacters counts the characters placed anywhere on the board
func CountPlacedCharacters(board BoardState) int {
	count := 0
	for _, cell := range board {
		count += len(cell.Characters)
	}
	return count
}

// CountLocations counts the cells holding a location
func CountLocations(board BoardState) int {
	count := 0
	for _, cell := range board {
		if cell.Location != "" {
			count++
		}
	}
	return count
}

// FreeSlots returns how many more characters a cell accepts before
// placements start evicting. Slotted locations count free positions.
func FreeSlots(board BoardState, cellID string, deck Deck) int {
	cell, ok := board[cellID]
	if !ok {
		return 0
	}
	loc, ok := deck.Lookup(cell.Location)
	if !ok {
		return 0
	}
	if loc.Slotted() {
		return len(loc.Slots.Positions) - len(cell.Characters)
	}
	free := loc.Capacity() - len(cell.Characters)
	if free < 0 {
		return 0
	}
	return free
}

// DescribeCell renders one cell as "location[a, b@left]" or "." when empty
func DescribeCell(cell CellContent, ok bool) string {
	if !ok || cell.Location == "" {
		return "."
	}
	names := make([]string, 0, len(cell.Characters))
	for _, ch := range cell.Characters {
		if ch.Position != "" {
			names = append(names, fmt.Sprintf("%s@%s", ch.ID, ch.Position))
		} else {
			names = append(names, ch.ID)
		}
	}
	return fmt.Sprintf("%s[%s]", cell.Location, strings.Join(names, ", "))
}

// RenderBoard lays the board out as text rows of GridColumns cells
func RenderBoard(board BoardState, cells int) []string {
	var rows []string
	var row []string
	for i, id := range CellIDs(cells) {
		cell, ok := board[id]
		row = append(row, fmt.Sprintf("%s: %s", id, DescribeCell(cell, ok)))
		if (i+1)%GridColumns == 0 || i == cells-1 {
			rows = append(rows, strings.Join(row, " | "))
			row = nil
		}
	}
	return rows
}
