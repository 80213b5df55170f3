package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/tout-va-bien/game/config"
	"github.com/wricardo/tout-va-bien/game/engine"
	"github.com/wricardo/tout-va-bien/game/service"
	"github.com/wricardo/tout-va-bien/transport/levelapi"
)

// levelFiles expands directories into their *.json files
func levelFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"levels"}
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.json"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no level files found in %s", strings.Join(paths, ", "))
	}
	return files, nil
}

// ValidationResult captures the outcome of validating a single file.
// Warnings never make a level invalid.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

// validateFile loads a level file and collects structural errors,
// authoring warnings and a short summary
func validateFile(path string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	level, err := engine.LoadLevel(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if want := level.ID + ".json"; result.File != want {
		result.Warnings = append(result.Warnings, fmt.Sprintf("file name does not match level id (expected %s)", want))
	}
	if level.ID != engine.CreateLevelID {
		result.Warnings = append(result.Warnings, engine.LintLevel(level)...)
	}

	result.Info = append(result.Info,
		fmt.Sprintf("✓ Title: %s", level.Title),
		fmt.Sprintf("✓ Cells: %d", level.Cells),
		fmt.Sprintf("✓ Characters: %d", len(level.CharacterDeck)),
		fmt.Sprintf("✓ Locations: %d", len(level.LocationDeck)),
		fmt.Sprintf("✓ Victory states: %d", len(level.VictoryStates)),
	)
	return result
}

func runValidate(out io.Writer, files []string) error {
	invalid := 0
	for _, file := range files {
		result := validateFile(file)

		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(out, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(out, "  "+info)
			}
		} else {
			fmt.Fprintln(out, "❌ INVALID")
			invalid++
			for _, err := range result.Errors {
				fmt.Fprintln(out, "  ❌ "+err)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(out, "  ⚠️  "+warning)
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if invalid > 0 {
		fmt.Fprintln(out, "❌ Some levels have errors")
		return fmt.Errorf("%d of %d levels invalid", invalid, len(files))
	}
	fmt.Fprintln(out, "✅ All levels are valid!")
	return nil
}

// Analysis summarizes how a level uses its decks and whether each victory
// state can be built with the placement rules
type Analysis struct {
	Level          *engine.Level
	UnusedCards    []string
	SlottedPlaces  []string
	SolutionMoves  []int
	Unreachable    []int
	InitialErrors  int
	InitialVictory bool
}

// solutionCommands lists the drops that build state from an empty board:
// each location first, then its characters
func solutionCommands(state engine.BoardState) []engine.Command {
	cells := make([]string, 0, len(state))
	for id := range state {
		cells = append(cells, id)
	}
	sort.Slice(cells, func(i, j int) bool {
		a, _ := engine.CellIndex(cells[i])
		b, _ := engine.CellIndex(cells[j])
		return a < b
	})

	var cmds []engine.Command
	for _, cellID := range cells {
		cell := state[cellID]
		if cell.Location == "" {
			continue
		}
		cmds = append(cmds, engine.Command{CardID: cell.Location, TargetCellID: cellID})
		for _, ch := range cell.Characters {
			cmds = append(cmds, engine.Command{CardID: ch.ID, TargetCellID: cellID, TargetPosition: ch.Position})
		}
	}
	return cmds
}

// analyzeLevel replays every victory state through the engine
func analyzeLevel(level *engine.Level) (*Analysis, error) {
	eng, err := engine.NewEngine(level)
	if err != nil {
		return nil, err
	}

	a := &Analysis{Level: level}

	initial := eng.Victory()
	a.InitialVictory = initial.Achieved
	a.InitialErrors = initial.ErrorCount

	used := make(map[string]bool)
	for i, state := range level.VictoryStates {
		if err := eng.SetState(engine.BoardState{}); err != nil {
			return nil, err
		}

		cmds := solutionCommands(state)
		for _, cmd := range cmds {
			used[cmd.CardID] = true
			eng.DragEnd(cmd)
		}
		a.SolutionMoves = append(a.SolutionMoves, len(cmds))

		if v := eng.Victory(); !v.Achieved {
			a.Unreachable = append(a.Unreachable, i)
		}
	}

	for _, c := range append(append([]engine.Card(nil), level.CharacterDeck...), level.LocationDeck...) {
		if !used[c.ID] {
			a.UnusedCards = append(a.UnusedCards, c.ID)
		}
		if c.Slotted() {
			a.SlottedPlaces = append(a.SlottedPlaces, fmt.Sprintf("%s (%s)", c.ID, strings.Join(c.Slots.Positions, "/")))
		}
	}

	return a, nil
}

func runAnalyze(out io.Writer, files []string) error {
	failed := 0
	for _, file := range files {
		fmt.Fprintf(out, "\n=== Analyzing %s ===\n", filepath.Base(file))

		level, err := engine.LoadLevel(file)
		if err != nil {
			fmt.Fprintf(out, "Error loading level: %v\n", err)
			failed++
			continue
		}

		a, err := analyzeLevel(level)
		if err != nil {
			fmt.Fprintf(out, "Error analyzing level: %v\n", err)
			failed++
			continue
		}

		fmt.Fprintf(out, "Title: %s\n", level.Title)
		fmt.Fprintf(out, "Cells: %d\n", level.Cells)
		fmt.Fprintf(out, "Deck: %d characters, %d locations\n", len(level.CharacterDeck), len(level.LocationDeck))
		if len(a.SlottedPlaces) > 0 {
			fmt.Fprintf(out, "Slotted locations: %s\n", strings.Join(a.SlottedPlaces, ", "))
		}
		fmt.Fprintf(out, "Victory states: %d\n", len(level.VictoryStates))

		if a.InitialVictory {
			fmt.Fprintf(out, "⚠️  WARNING: the initial board already wins\n")
		}
		for i, moves := range a.SolutionMoves {
			fmt.Fprintf(out, "  Solution %d: %d drops\n", i+1, moves)
		}

		if len(a.UnusedCards) > 0 {
			fmt.Fprintf(out, "ℹ️  Decoy cards (in no solution): %s\n", strings.Join(a.UnusedCards, ", "))
		}

		if len(a.Unreachable) > 0 {
			for _, i := range a.Unreachable {
				fmt.Fprintf(out, "⚠️  CRITICAL: solution %d cannot be built with the placement rules\n", i+1)
			}
			failed++
		} else if len(level.VictoryStates) > 0 {
			fmt.Fprintf(out, "✅ Every solution can be built from an empty board\n")
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d levels have problems", failed, len(files))
	}
	return nil
}

// loadDrops reads a JSON array of drops
func loadDrops(path string) ([]service.DropRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var drops []service.DropRequest
	if err := json.Unmarshal(data, &drops); err != nil {
		return nil, fmt.Errorf("decode commands: %w", err)
	}
	return drops, nil
}

func runReplay(out io.Writer, levelPath, commandsPath string) error {
	level, err := engine.LoadLevel(levelPath)
	if err != nil {
		return err
	}

	drops, err := loadDrops(commandsPath)
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(level)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Level: %s (%s)\n\n", level.Title, level.ID)
	for i, drop := range drops {
		result := eng.DragEnd(drop.Command())

		target := drop.Target
		if target == "" {
			target = drop.TargetCellID
		}
		if target == "" {
			target = "outside"
		}
		status := "no-op"
		if result.Changed {
			status = "changed"
		}
		fmt.Fprintf(out, "%3d. %s -> %s: %s\n", i+1, drop.CardID, target, status)
	}

	fmt.Fprintln(out)
	for _, row := range engine.RenderBoard(eng.State(), level.Cells) {
		fmt.Fprintln(out, row)
	}

	victory := eng.Victory()
	fmt.Fprintln(out)
	if victory.Achieved {
		fmt.Fprintf(out, "🎉 Victory (solution %d) in %d moves\n", victory.MatchedIndex+1, eng.Moves())
		return nil
	}

	fmt.Fprintf(out, "Not solved: %d errors after %d moves\n", victory.ErrorCount, eng.Moves())
	for _, d := range victory.Diagnostics {
		fmt.Fprintf(out, "  %s: location=%v characters=%v\n", d.CellID, d.LocationMatches, d.AnyCharacterMatches)
	}
	return nil
}

func runPull(ctx context.Context, out io.Writer, apiURL, dir string, dryRun bool) error {
	client := levelapi.NewClient(apiURL)

	levels, err := client.FetchLevels(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Fetched %d levels from %s\n", len(levels), client.BaseURL())

	if dryRun {
		for _, level := range levels {
			fmt.Fprintf(out, "  %s: %s\n", level.ID, level.Title)
		}
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create levels directory: %w", err)
	}
	catalog, err := config.NewManager(dir)
	if err != nil {
		return err
	}

	saved := 0
	for _, level := range levels {
		if !service.ValidPublishedID(level.ID) {
			log.Warn().Str("level", level.ID).Msg("skipping level with unusable id")
			continue
		}
		if err := catalog.SaveLevel(level); err != nil {
			log.Warn().Err(err).Str("level", level.ID).Msg("skipping level")
			continue
		}
		saved++
		fmt.Fprintf(out, "  saved %s\n", filepath.Join(dir, level.ID+".json"))
	}

	fmt.Fprintf(out, "Saved %d of %d levels to %s\n", saved, len(levels), dir)
	return nil
}
