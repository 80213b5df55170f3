package engine

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCardKindString(t *testing.T) {
	if KindLocation.String() != "location" {
		t.Errorf("Expected 'location', got %s", KindLocation.String())
	}
	if KindCharacter.String() != "character" {
		t.Errorf("Expected 'character', got %s", KindCharacter.String())
	}
}

func TestCardCapacity(t *testing.T) {
	tests := []struct {
		name     string
		max      int
		expected int
	}{
		{"declared", 3, 3},
		{"zero means unbounded", 0, DefaultCapacity},
		{"negative", -2, DefaultCapacity},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			card := Card{ID: "loc", Kind: KindLocation, Slots: SlotSpec{MaxCharacters: test.max}}
			if got := card.Capacity(); got != test.expected {
				t.Errorf("Expected capacity %d, got %d", test.expected, got)
			}
		})
	}
}

func TestCardSlotted(t *testing.T) {
	slotted := Card{Kind: KindLocation, Slots: SlotSpec{Positions: []string{"left"}}}
	if !slotted.Slotted() || !slotted.HasPosition("left") || slotted.HasPosition("right") {
		t.Errorf("Unexpected slot handling for %+v", slotted)
	}

	// Characters never have slots, whatever the file says
	character := Card{Kind: KindCharacter, Slots: SlotSpec{Positions: []string{"left"}}}
	if character.Slotted() {
		t.Error("Expected character card not to be slotted")
	}
}

func TestBoardStateClone(t *testing.T) {
	board := BoardState{
		"cell-1": {Location: "cafe", Characters: []PlacedCharacter{{ID: "macron"}}},
	}

	clone := board.Clone()
	clone["cell-1"].Characters[0] = PlacedCharacter{ID: "lepen"}
	clone["cell-2"] = CellContent{Location: "office"}

	if board["cell-1"].Characters[0].ID != "macron" {
		t.Error("Expected clone characters to be independent")
	}
	if _, ok := board["cell-2"]; ok {
		t.Error("Expected clone map to be independent")
	}

	var nilBoard BoardState
	if c := nilBoard.Clone(); c == nil || len(c) != 0 {
		t.Errorf("Expected empty non-nil clone of a nil board, got %#v", c)
	}
}

func TestBoardStateEqual(t *testing.T) {
	a := BoardState{"cell-1": {Location: "cafe", Characters: []PlacedCharacter{{ID: "x"}, {ID: "y"}}}}

	tests := []struct {
		name     string
		other    BoardState
		expected bool
	}{
		{"same", a.Clone(), true},
		{"reordered characters", BoardState{"cell-1": {Location: "cafe", Characters: []PlacedCharacter{{ID: "y"}, {ID: "x"}}}}, false},
		{"other location", BoardState{"cell-1": {Location: "office", Characters: []PlacedCharacter{{ID: "x"}, {ID: "y"}}}}, false},
		{"other cell", BoardState{"cell-2": {Location: "cafe", Characters: []PlacedCharacter{{ID: "x"}, {ID: "y"}}}}, false},
		{"empty", BoardState{}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := a.Equal(test.other); got != test.expected {
				t.Errorf("Expected %v, got %v", test.expected, got)
			}
		})
	}
}

func TestLevelJSONMarshaling(t *testing.T) {
	level := createTestLevel()

	data, err := json.Marshal(level)
	if err != nil {
		t.Fatalf("Failed to marshal level: %v", err)
	}

	for _, key := range []string{`"cardsCaracter"`, `"cardsPlace"`, `"victoryStates"`, `"type":"location"`, `"positions":["left","right"]`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("Expected %s in %s", key, data)
		}
	}
	if strings.Contains(string(data), "isUserCreated") {
		t.Error("Expected isUserCreated to be omitted when false")
	}

	var decoded Level
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal level: %v", err)
	}
	if decoded.ID != level.ID || decoded.Cells != level.Cells {
		t.Errorf("Unexpected decoded header: %+v", decoded)
	}
	if !decoded.VictoryStates[0].Equal(level.VictoryStates[0]) {
		t.Errorf("Expected victory state to survive, got %v", decoded.VictoryStates[0])
	}
}

func TestLevelUnmarshalKindFromDeck(t *testing.T) {
	// The "type" field is wrong on purpose: the deck decides the kind
	data := `{
		"id": "l", "cells": 1,
		"cardsCaracter": [{"id": "a", "label": "A", "type": "location", "slots": {"maxCharacters": 1}}],
		"cardsPlace": [{"id": "b", "label": "B", "type": "character"}]
	}`

	var level Level
	if err := json.Unmarshal([]byte(data), &level); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if level.CharacterDeck[0].IsLocation() {
		t.Error("Expected card from cardsCaracter to be a character")
	}
	if level.CharacterDeck[0].Slots.MaxCharacters != 0 {
		t.Error("Expected slots to be ignored on characters")
	}
	if !level.LocationDeck[0].IsLocation() {
		t.Error("Expected card from cardsPlace to be a location")
	}
}

func TestCommandJSON(t *testing.T) {
	var cmd Command
	raw := `{"card_id": "macron", "source_cell_id": "cell-2", "target_cell_id": "cell-1", "target_position": "left"}`
	if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
		t.Fatalf("Failed to unmarshal command: %v", err)
	}

	expected := Command{CardID: "macron", SourceCellID: "cell-2", TargetCellID: "cell-1", TargetPosition: "left"}
	if cmd != expected {
		t.Errorf("Expected %+v, got %+v", expected, cmd)
	}
}
