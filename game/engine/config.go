package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateLevel checks a level for structural soundness. Content problems
// that only make a victory state unreachable are left to LintLevel.
func ValidateLevel(level *Level) error {
	if level == nil {
		return fmt.Errorf("level validation: level is required")
	}

	// Validate required fields
	if strings.TrimSpace(level.ID) == "" {
		return fmt.Errorf("level validation: id is required")
	}

	// Validate grid size
	if level.Cells < MinCells || level.Cells > MaxCells {
		return fmt.Errorf("level validation: cells must be between %d and %d, got %d", MinCells, MaxCells, level.Cells)
	}

	// Validate decks
	seen := make(map[string]string)
	checkCard := func(deck string, c Card) error {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("level validation: %s contains a card without id", deck)
		}
		if prev, ok := seen[c.ID]; ok {
			return fmt.Errorf("level validation: card '%s' appears in both %s and %s", c.ID, prev, deck)
		}
		seen[c.ID] = deck
		return nil
	}

	for _, c := range level.CharacterDeck {
		if err := checkCard("cardsCaracter", c); err != nil {
			return err
		}
	}
	for _, c := range level.LocationDeck {
		if err := checkCard("cardsPlace", c); err != nil {
			return err
		}
		if c.Slots.MaxCharacters < 0 {
			return fmt.Errorf("level validation: location '%s' has negative maxCharacters %d", c.ID, c.Slots.MaxCharacters)
		}
		positions := make(map[string]bool, len(c.Slots.Positions))
		for _, p := range c.Slots.Positions {
			if p == "" {
				return fmt.Errorf("level validation: location '%s' declares an empty position", c.ID)
			}
			if positions[p] {
				return fmt.Errorf("level validation: location '%s' declares position '%s' twice", c.ID, p)
			}
			positions[p] = true
		}
	}

	// Validate victory state keys
	for i, state := range level.VictoryStates {
		for cellID := range state {
			if !level.HasCell(cellID) {
				return fmt.Errorf("level validation: victory state %d references unknown cell '%s'", i+1, cellID)
			}
		}
	}

	return nil
}

// LintLevel reports authoring mistakes that make a victory state
// unreachable without making the level unplayable
func LintLevel(level *Level) []string {
	var warnings []string
	deck := NewDeck(level)

	if len(level.VictoryStates) == 0 {
		warnings = append(warnings, "level has no victory state and can never be won")
	}

	for i, state := range level.VictoryStates {
		for _, cellID := range sortedCellIDs(state) {
			cell := state[cellID]
			loc, ok := deck.Lookup(cell.Location)
			if !ok || !loc.IsLocation() {
				warnings = append(warnings, fmt.Sprintf("victory state %d, %s: unknown location '%s'", i+1, cellID, cell.Location))
				continue
			}
			if !loc.Slotted() && len(cell.Characters) > loc.Capacity() {
				warnings = append(warnings, fmt.Sprintf("victory state %d, %s: %d characters exceed capacity %d of '%s'",
					i+1, cellID, len(cell.Characters), loc.Capacity(), loc.ID))
			}
			for _, ch := range cell.Characters {
				card, ok := deck.Lookup(ch.ID)
				if !ok || card.IsLocation() {
					warnings = append(warnings, fmt.Sprintf("victory state %d, %s: unknown character '%s'", i+1, cellID, ch.ID))
					continue
				}
				if loc.Slotted() && !loc.HasPosition(ch.Position) {
					warnings = append(warnings, fmt.Sprintf("victory state %d, %s: '%s' uses undeclared position '%s'", i+1, cellID, ch.ID, ch.Position))
				}
				if !loc.Slotted() && ch.Position != "" {
					warnings = append(warnings, fmt.Sprintf("victory state %d, %s: '%s' has position '%s' on unslotted '%s'", i+1, cellID, ch.ID, ch.Position, loc.ID))
				}
			}
		}
	}

	return warnings
}

// LoadLevel loads and validates a level from a JSON file
func LoadLevel(filename string) (*Level, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	level, err := ParseLevel(data)
	if err != nil {
		return nil, fmt.Errorf("level '%s': %w", filepath.Base(filename), err)
	}
	return level, nil
}

// ParseLevel decodes and validates a level document
func ParseLevel(data []byte) (*Level, error) {
	var level Level
	if err := json.Unmarshal(data, &level); err != nil {
		return nil, err
	}

	if err := ValidateLevel(&level); err != nil {
		return nil, err
	}

	return &level, nil
}

// InitBoardFromLevel returns the board a level starts with: empty, or the
// first victory state as a template for user-created levels
func InitBoardFromLevel(level *Level) BoardState {
	if level.IsUserCreated && len(level.VictoryStates) > 0 {
		return level.VictoryStates[0].Clone()
	}
	return BoardState{}
}

// SandboxLevel builds a create-mode level from the union of the decks of
// the given levels
func SandboxLevel(levels []*Level, cells int) *Level {
	sandbox := &Level{
		ID:         CreateLevelID,
		ShortTitle: "+",
		Title:      "Créez votre niveau",
		Cells:      cells,
	}

	seen := make(map[string]bool)
	for _, l := range levels {
		for _, c := range l.CharacterDeck {
			if !seen[c.ID] {
				seen[c.ID] = true
				sandbox.CharacterDeck = append(sandbox.CharacterDeck, c)
			}
		}
		for _, c := range l.LocationDeck {
			if !seen[c.ID] {
				seen[c.ID] = true
				sandbox.LocationDeck = append(sandbox.LocationDeck, c)
			}
		}
	}

	return sandbox
}
