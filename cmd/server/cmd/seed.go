package cmd

import (
	"fmt"

	"github.com/Togather-Foundation/nko-directory/internal/domain/events"
	"github.com/Togather-Foundation/nko-directory/internal/importer"
	"github.com/spf13/cobra"
)

func newSeedEventsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-events <file.yaml|file.json>",
		Short: "Seed demo events",
		Long: `Insert events from a seed file. Cities that already have events are
skipped, so running the same seed twice adds nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := importer.LoadEvents(args[0])
			if err != nil {
				return err
			}

			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			repo, _, closePool, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closePool()

			inserted, err := events.NewService(repo.Events(), logger).Seed(cmd.Context(), inputs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d event(s)\n", inserted)
			return nil
		},
	}
}
