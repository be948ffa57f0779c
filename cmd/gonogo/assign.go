package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/m-mizutani/gonogo"
	"github.com/m-mizutani/gonogo/record/sqlite"
	"github.com/urfave/cli/v3"
)

func assignCommand() *cli.Command {
	return &cli.Command{
		Name:  "assign",
		Usage: "Print the condition a participant is assigned to",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "participant",
				Aliases:  []string{"p"},
				Required: true,
				Sources:  cli.EnvVars("GONOGO_PARTICIPANT"),
				Usage:    "Participant ID",
			},
			&cli.StringFlag{
				Name:    "sqlite",
				Sources: cli.EnvVars("GONOGO_SQLITE"),
				Usage:   "SQLite database to report the current condition balance from",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return printAssignment(ctx, cmd.Root().Writer, cmd.Int("participant"), cmd.String("sqlite"))
		},
	}
}

func printAssignment(ctx context.Context, w io.Writer, participant int, dbPath string) error {
	c := gonogo.Assign(participant)
	fmt.Fprintf(w, "participant: %d\n", participant)
	fmt.Fprintf(w, "condition:   %s\n", c)
	fmt.Fprintf(w, "go first:    %s\n", gonogo.GoCategory(c))
	fmt.Fprintf(w, "go second:   %s\n", gonogo.GoCategory(gonogo.Reverse(c)))

	if dbPath == "" {
		return nil
	}

	db, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	counts, err := db.ConditionCounts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "recorded sessions:")
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(w, "  %s: %d\n", name, counts[name])
	}
	return nil
}
