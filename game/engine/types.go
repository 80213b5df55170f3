package engine

import (
	"encoding/json"
	"fmt"
)

// CardKind tags the variant of a card
type CardKind int

const (
	KindCharacter CardKind = iota
	KindLocation
)

const (
	// Validation constants
	MinCells        = 1
	MaxCells        = 64
	DefaultCapacity = 99
	CellPrefix      = "cell-"

	// CreateLevelID identifies the sandbox level used in create mode
	CreateLevelID = "level_storyteller_0create"
	// CreateSelector is the navigation token that selects create mode
	CreateSelector = "create"
)

// String returns the wire name of the kind
func (k CardKind) String() string {
	if k == KindLocation {
		return "location"
	}
	return "character"
}

// SlotSpec describes how a location holds characters
type SlotSpec struct {
	MaxCharacters int      `json:"maxCharacters"`
	Positions     []string `json:"positions,omitempty"`
}

// Card is a character or a location. Slots only matter for locations.
type Card struct {
	ID    string
	Label string
	Kind  CardKind
	Slots SlotSpec
}

// wireCard is the JSON shape of a card in level files
type wireCard struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	Type  string    `json:"type"`
	Slots *SlotSpec `json:"slots,omitempty"`
}

// IsLocation reports whether the card is a location card
func (c Card) IsLocation() bool {
	return c.Kind == KindLocation
}

// Slotted reports whether characters occupy named positions on this location
func (c Card) Slotted() bool {
	return c.Kind == KindLocation && len(c.Slots.Positions) > 0
}

// Capacity returns the maximum number of characters the location accepts.
// A zero MaxCharacters means no declared bound.
func (c Card) Capacity() int {
	if c.Slots.MaxCharacters <= 0 {
		return DefaultCapacity
	}
	return c.Slots.MaxCharacters
}

// HasPosition reports whether the location declares the named position
func (c Card) HasPosition(position string) bool {
	for _, p := range c.Slots.Positions {
		if p == position {
			return true
		}
	}
	return false
}

// PlacedCharacter is a character sitting in a cell. Position is empty on
// unslotted locations.
type PlacedCharacter struct {
	ID       string `json:"id"`
	Position string `json:"position,omitempty"`
}

// CellContent is what a cell holds: a location and its occupants
type CellContent struct {
	Location   string            `json:"location"`
	Characters []PlacedCharacter `json:"characters"`
}

// BoardState maps cell identifiers to their content. A missing key is an
// empty cell.
type BoardState map[string]CellContent

// Clone returns a deep copy of the board
func (b BoardState) Clone() BoardState {
	out := make(BoardState, len(b))
	for id, cell := range b {
		out[id] = cell.clone()
	}
	return out
}

// Equal reports whether two boards hold the same cells with the same
// characters in the same order
func (b BoardState) Equal(other BoardState) bool {
	if len(b) != len(other) {
		return false
	}
	for id, cell := range b {
		o, ok := other[id]
		if !ok || o.Location != cell.Location || len(o.Characters) != len(cell.Characters) {
			return false
		}
		for i := range cell.Characters {
			if cell.Characters[i] != o.Characters[i] {
				return false
			}
		}
	}
	return true
}

func (c CellContent) clone() CellContent {
	chars := make([]PlacedCharacter, len(c.Characters))
	copy(chars, c.Characters)
	return CellContent{Location: c.Location, Characters: chars}
}

// indexOf returns the index of the character in the cell, or -1
func (c CellContent) indexOf(cardID string) int {
	for i, ch := range c.Characters {
		if ch.ID == cardID {
			return i
		}
	}
	return -1
}

// Level is an immutable puzzle definition
type Level struct {
	ID            string
	ShortTitle    string
	Title         string
	Cells         int
	CharacterDeck []Card
	LocationDeck  []Card
	VictoryStates []BoardState
	IsUserCreated bool
}

type wireLevel struct {
	ID            string       `json:"id"`
	ShortTitle    string       `json:"shortTitle"`
	Title         string       `json:"title"`
	Cells         int          `json:"cells"`
	CardsCaracter []wireCard   `json:"cardsCaracter"`
	CardsPlace    []wireCard   `json:"cardsPlace"`
	VictoryStates []BoardState `json:"victoryStates"`
	IsUserCreated bool         `json:"isUserCreated,omitempty"`
}

// MarshalJSON encodes the level in the published level format
func (l Level) MarshalJSON() ([]byte, error) {
	w := wireLevel{
		ID:            l.ID,
		ShortTitle:    l.ShortTitle,
		Title:         l.Title,
		Cells:         l.Cells,
		CardsCaracter: toWireCards(l.CharacterDeck),
		CardsPlace:    toWireCards(l.LocationDeck),
		VictoryStates: l.VictoryStates,
		IsUserCreated: l.IsUserCreated,
	}
	if w.VictoryStates == nil {
		w.VictoryStates = []BoardState{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a level. A card's kind comes from the deck it is
// listed in; the "type" field is informational.
func (l *Level) UnmarshalJSON(data []byte) error {
	var w wireLevel
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode level: %w", err)
	}

	*l = Level{
		ID:            w.ID,
		ShortTitle:    w.ShortTitle,
		Title:         w.Title,
		Cells:         w.Cells,
		CharacterDeck: fromWireCards(w.CardsCaracter, KindCharacter),
		LocationDeck:  fromWireCards(w.CardsPlace, KindLocation),
		VictoryStates: w.VictoryStates,
		IsUserCreated: w.IsUserCreated,
	}
	return nil
}

func toWireCards(cards []Card) []wireCard {
	out := make([]wireCard, 0, len(cards))
	for _, c := range cards {
		wc := wireCard{ID: c.ID, Label: c.Label, Type: c.Kind.String()}
		if c.IsLocation() {
			slots := c.Slots
			wc.Slots = &slots
		}
		out = append(out, wc)
	}
	return out
}

func fromWireCards(cards []wireCard, kind CardKind) []Card {
	out := make([]Card, 0, len(cards))
	for _, wc := range cards {
		c := Card{ID: wc.ID, Label: wc.Label, Kind: kind}
		if wc.Slots != nil && kind == KindLocation {
			c.Slots = SlotSpec{
				MaxCharacters: wc.Slots.MaxCharacters,
				Positions:     append([]string(nil), wc.Slots.Positions...),
			}
		}
		out = append(out, c)
	}
	return out
}

// Command is a drop of a card coming out of the interaction layer.
// SourceCellID is empty when the card was dragged from the deck;
// TargetCellID is empty when the card was dropped outside the board.
type Command struct {
	CardID         string `json:"card_id"`
	SourceCellID   string `json:"source_cell_id,omitempty"`
	TargetCellID   string `json:"target_cell_id,omitempty"`
	TargetPosition string `json:"target_position,omitempty"`
}

// ActiveCard describes the card being dragged
type ActiveCard struct {
	ID       string       `json:"id"`
	Kind     string       `json:"type"`
	Label    string       `json:"label"`
	CellData *CellContent `json:"cell_data,omitempty"`
}

// CellDiagnostic flags how close one target cell is to being satisfied
type CellDiagnostic struct {
	CellID              string `json:"cell_id"`
	LocationMatches     bool   `json:"location_matches"`
	AnyCharacterMatches bool   `json:"any_character_matches"`
}

// VictoryResult is the outcome of evaluating a board against a level
type VictoryResult struct {
	Achieved     bool             `json:"achieved"`
	MatchedIndex int              `json:"matched_index"`
	MatchedState BoardState       `json:"matched_state,omitempty"`
	Diagnostics  []CellDiagnostic `json:"diagnostics,omitempty"`
	ErrorCount   int              `json:"errors"`
}

// DropResult is returned after a drag ends
type DropResult struct {
	Board   BoardState    `json:"board"`
	Changed bool          `json:"changed"`
	Victory VictoryResult `json:"victory"`
	Moves   int           `json:"moves"`
}

// Snapshot is a read-only view of an engine for transport layers
type Snapshot struct {
	LevelID    string        `json:"level_id"`
	Title      string        `json:"title"`
	Cells      []string      `json:"cells"`
	Board      BoardState    `json:"board"`
	Victory    VictoryResult `json:"victory"`
	Moves      int           `json:"moves"`
	HasChanges bool          `json:"has_changes"`
}
