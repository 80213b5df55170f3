// Package engine provides the board logic for "Tout va bien !".
//
// Players drag political characters onto location cards laid out on a grid
// of cells. The engine package implements:
//   - The level and board data model (cards, decks, cells, occupants)
//   - The placement rules applied when a card is dropped or removed
//   - Victory evaluation against the level's target boards
//   - The board store owned by a single game
//   - Level loading and validation
//
// Core Types:
//
// Level is the immutable puzzle definition loaded from JSON. BoardState maps
// cell identifiers ("cell-1" … "cell-N") to the location placed there and
// the characters it holds; an absent key is an empty cell. Deck indexes the
// level's cards by id and tags each card as a location or a character.
//
// Place and Remove are pure: they read one board and return a new one,
// never touching the input. Evaluate checks the board against every
// victory state in order and reports the first match. GameEngine wires them
// to a Store for one level.
//
// Usage:
//
//	level, err := engine.LoadLevel("levels/01_debat.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	game, err := engine.NewEngine(level)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	game.DragEnd(engine.Command{CardID: "plateau", TargetCellID: "cell-1"})
//	result := game.DragEnd(engine.Command{
//		CardID:         "macron",
//		TargetCellID:   "cell-1",
//		TargetPosition: "left",
//	})
//	fmt.Println(result.Victory.Achieved)
//
// Placement Rules:
//
// Locations dragged between cells carry their occupants along, truncated to
// the new capacity, and swap with a location already sitting in the target.
// Characters need a location to stand on. Slotted locations take one
// character per named position and ignore drops without a position.
// Unslotted locations take characters up to their capacity; one more clears
// the cell and keeps only the newcomer. Malformed commands change nothing.
package engine
