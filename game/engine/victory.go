package engine

import "sort"

// Evaluate compares the board with every victory state of the level in
// declaration order. The first full match wins. When nothing matches, the
// result carries per-cell diagnostics against the first victory state.
func Evaluate(board BoardState, level *Level) VictoryResult {
	for i, target := range level.VictoryStates {
		if matchesState(board, target) {
			return VictoryResult{
				Achieved:     true,
				MatchedIndex: i,
				MatchedState: target.Clone(),
			}
		}
	}

	result := VictoryResult{MatchedIndex: -1}
	if len(level.VictoryStates) == 0 {
		return result
	}

	result.Diagnostics = Diagnose(board, level.VictoryStates[0])
	result.ErrorCount = ErrorCount(result.Diagnostics)
	return result
}

// matchesState reports whether every cell named by target is satisfied
func matchesState(board, target BoardState) bool {
	for cellID, want := range target {
		got, ok := board[cellID]
		if !ok || got.Location != want.Location {
			return false
		}
		if !CharactersEqual(want.Characters, got.Characters) {
			return false
		}
	}
	return true
}

// CharactersEqual compares two occupant lists as sets of (id, position)
// pairs. Order does not matter, positions do.
func CharactersEqual(a, b []PlacedCharacter) bool {
	if len(a) != len(b) {
		return false
	}

	sortedA := sortCharacters(a)
	sortedB := sortCharacters(b)
	for i := range sortedA {
		if sortedA[i] != sortedB[i] {
			return false
		}
	}
	return true
}

func sortCharacters(chars []PlacedCharacter) []PlacedCharacter {
	out := make([]PlacedCharacter, len(chars))
	copy(out, chars)
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// Diagnose flags, for each cell of the target, whether the location is
// right and whether at least one expected character sits there at the
// expected position
func Diagnose(board, target BoardState) []CellDiagnostic {
	diags := make([]CellDiagnostic, 0, len(target))
	for _, cellID := range sortedCellIDs(target) {
		want := target[cellID]
		got, ok := board[cellID]

		d := CellDiagnostic{CellID: cellID}
		d.LocationMatches = ok && got.Location == want.Location
		if ok {
			for _, wc := range want.Characters {
				if hasPlacement(got, wc) {
					d.AnyCharacterMatches = true
					break
				}
			}
		}
		diags = append(diags, d)
	}
	return diags
}

func hasPlacement(cell CellContent, want PlacedCharacter) bool {
	for _, ch := range cell.Characters {
		if ch == want {
			return true
		}
	}
	return false
}

// ErrorCount turns diagnostics into the "incorrect placements" figure:
// two points per target cell minus the points achieved
func ErrorCount(diags []CellDiagnostic) int {
	points := 0
	for _, d := range diags {
		if d.LocationMatches {
			points++
		}
		if d.AnyCharacterMatches {
			points++
		}
	}
	return 2*len(diags) - points
}
