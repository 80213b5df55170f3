package engine

// Place applies a drop command to the board and returns the next board.
// The input board is never modified. Commands that do not fit any rule
// return an unchanged copy.
func Place(board BoardState, cmd Command, level *Level, deck Deck) BoardState {
	next := board.Clone()

	card, ok := deck.Lookup(cmd.CardID)
	if !ok {
		return next
	}
	if cmd.SourceCellID != "" && !level.HasCell(cmd.SourceCellID) {
		return next
	}

	// Dropped outside the board
	if cmd.TargetCellID == "" {
		if cmd.SourceCellID == "" {
			return next
		}
		return Remove(board, cmd.SourceCellID, cmd.CardID, deck)
	}
	if !level.HasCell(cmd.TargetCellID) {
		return next
	}

	if card.IsLocation() {
		return placeLocation(next, card, cmd, deck)
	}
	return placeCharacter(board, next, card, cmd, deck)
}

// placeLocation handles moving a location between cells and placing one
// from the deck
func placeLocation(next BoardState, card Card, cmd Command, deck Deck) BoardState {
	if cmd.SourceCellID == "" {
		existing := next[cmd.TargetCellID].Characters
		next[cmd.TargetCellID] = CellContent{
			Location:   card.ID,
			Characters: fitCharacters(existing, card),
		}
		return next
	}

	if cmd.SourceCellID == cmd.TargetCellID {
		return next
	}

	source := next[cmd.SourceCellID]
	if source.Location != card.ID {
		return next
	}
	delete(next, cmd.SourceCellID)

	// The target's location, if any, swaps into the vacated source cell
	// alone; its occupants stay behind and are replaced.
	if target, ok := next[cmd.TargetCellID]; ok && target.Location != "" {
		next[cmd.SourceCellID] = CellContent{
			Location:   target.Location,
			Characters: []PlacedCharacter{},
		}
	}

	next[cmd.TargetCellID] = CellContent{
		Location:   card.ID,
		Characters: fitCharacters(source.Characters, card),
	}
	return next
}

// placeCharacter handles a character dropped onto a cell
func placeCharacter(board, next BoardState, card Card, cmd Command, deck Deck) BoardState {
	target, ok := next[cmd.TargetCellID]
	if !ok || target.Location == "" {
		if cmd.SourceCellID == "" {
			return next
		}
		return Remove(board, cmd.SourceCellID, card.ID, deck)
	}

	location, ok := deck.Lookup(target.Location)
	if !ok || !location.IsLocation() {
		return next
	}
	if location.Slotted() && !location.HasPosition(cmd.TargetPosition) {
		return next
	}

	if cmd.SourceCellID != "" {
		next = withoutCharacter(next, cmd.SourceCellID, card.ID)
	}

	target = next[cmd.TargetCellID]
	var chars []PlacedCharacter

	if location.Slotted() {
		chars = make([]PlacedCharacter, 0, len(target.Characters)+1)
		for _, ch := range target.Characters {
			if ch.Position == cmd.TargetPosition || ch.ID == card.ID {
				continue
			}
			chars = append(chars, ch)
		}
		chars = append(chars, PlacedCharacter{ID: card.ID, Position: cmd.TargetPosition})
	} else {
		chars = make([]PlacedCharacter, 0, len(target.Characters)+1)
		for _, ch := range target.Characters {
			if ch.ID != card.ID {
				chars = append(chars, ch)
			}
		}
		if len(chars) < location.Capacity() {
			chars = append(chars, PlacedCharacter{ID: card.ID})
		} else {
			// Overflow clears every occupant, not only the oldest one
			chars = []PlacedCharacter{{ID: card.ID}}
		}
	}

	next[cmd.TargetCellID] = CellContent{Location: target.Location, Characters: chars}
	return next
}

// Remove takes a card out of a cell. Removing a location empties the
// whole cell; removing a card that is not there changes nothing.
func Remove(board BoardState, cellID, cardID string, deck Deck) BoardState {
	next := board.Clone()

	cell, ok := next[cellID]
	if !ok {
		return next
	}

	card, known := deck.Lookup(cardID)
	if known && card.IsLocation() {
		if cell.Location == cardID {
			delete(next, cellID)
		}
		return next
	}

	return withoutCharacter(next, cellID, cardID)
}

// withoutCharacter drops a character from a cell of next in place and
// prunes the cell when nothing is left in it
func withoutCharacter(next BoardState, cellID, cardID string) BoardState {
	cell, ok := next[cellID]
	if !ok || cell.indexOf(cardID) < 0 {
		return next
	}

	chars := make([]PlacedCharacter, 0, len(cell.Characters))
	for _, ch := range cell.Characters {
		if ch.ID != cardID {
			chars = append(chars, ch)
		}
	}

	if cell.Location == "" && len(chars) == 0 {
		delete(next, cellID)
		return next
	}
	next[cellID] = CellContent{Location: cell.Location, Characters: chars}
	return next
}

// fitCharacters adapts occupants carried over to a new location: positions
// are cleared on unslotted locations, undeclared or contested positions are
// dropped on slotted ones, and the list is truncated to capacity.
func fitCharacters(chars []PlacedCharacter, location Card) []PlacedCharacter {
	out := make([]PlacedCharacter, 0, len(chars))
	seen := make(map[string]bool, len(chars))
	taken := make(map[string]bool, len(location.Slots.Positions))

	for _, ch := range chars {
		if seen[ch.ID] {
			continue
		}
		if location.Slotted() {
			if !location.HasPosition(ch.Position) || taken[ch.Position] {
				continue
			}
			taken[ch.Position] = true
		} else {
			ch.Position = ""
		}
		seen[ch.ID] = true
		out = append(out, ch)
	}

	if capacity := location.Capacity(); len(out) > capacity {
		out = out[:capacity]
	}
	return out
}
