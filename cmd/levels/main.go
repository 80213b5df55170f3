// Command levels checks, inspects and fetches Tout va bien level files.
//
//	levels validate levels/                 structural checks and authoring warnings
//	levels analyze levels/level_1.json      deck usage and solution replay
//	levels replay --level l.json --commands moves.json
//	levels pull --api https://host --dir levels/
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "levels: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the command tree; all reports are written to out
func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "levels",
		Usage:  "Validate, analyze, replay and fetch Tout va bien levels",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Validate level files",
				ArgsUsage: "<file|dir>...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					files, err := levelFiles(cmd.Args().Slice())
					if err != nil {
						return err
					}
					return runValidate(out, files)
				},
			},
			{
				Name:      "analyze",
				Usage:     "Summarize decks and replay every solution from an empty board",
				ArgsUsage: "<file|dir>...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					files, err := levelFiles(cmd.Args().Slice())
					if err != nil {
						return err
					}
					return runAnalyze(out, files)
				},
			},
			{
				Name:  "replay",
				Usage: "Apply a list of drops to a level and print the board",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "level",
						Aliases:  []string{"l"},
						Usage:    "level file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "commands",
						Aliases:  []string{"c"},
						Usage:    "JSON array of drops ({card_id, source_cell_id, target})",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runReplay(out, cmd.String("level"), cmd.String("commands"))
				},
			},
			{
				Name:  "pull",
				Usage: "Fetch community levels and save the valid ones as level files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "api",
						Usage:    "community level API base URL",
						Sources:  cli.EnvVars("API_URL"),
						Required: true,
					},
					&cli.StringFlag{
						Name:  "dir",
						Usage: "destination levels directory",
						Value: "levels",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "list the levels without writing them",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runPull(ctx, out, cmd.String("api"), cmd.String("dir"), cmd.Bool("dry-run"))
				},
			},
		},
	}
}
