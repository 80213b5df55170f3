// Package config provides the level catalog for "Tout va bien !".
//
// The config package handles:
//   - Loading level files from a directory
//   - Level ordering and navigation selectors
//   - The create-mode level
//   - Community levels merged at runtime
//
// Level Files:
//
// Every *.json file of the levels directory holds one level. Files are
// ordered by name, so prefixing them ("01_debat.json", "02_plateau.json")
// sets the order players meet them in. Invalid files are logged and
// skipped. The file whose id is "level_storyteller_0create", when present,
// is the create-mode level instead of a playable one.
//
// Selectors:
//
// Resolve accepts the same selectors as the game's "level" query
// parameter: "1", "2", … pick levels by position, "create" opens create
// mode, anything else is looked up as a level id.
//
// Usage:
//
//	manager, err := config.NewManager("levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	level, err := manager.Resolve("1")
//	sandbox, _ := manager.Resolve("create")
//
//	// Community levels fetched from the publishing API
//	manager.MergeCommunity(fetched)
package config
