package cmd

import (
	"fmt"

	"github.com/Togather-Foundation/nko-directory/internal/audit"
	"github.com/Togather-Foundation/nko-directory/internal/domain/nko"
	"github.com/Togather-Foundation/nko-directory/internal/importer"
	"github.com/spf13/cobra"
)

func newImportCommand(root *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import-nko <file.yaml|file.json>",
		Short: "Bulk import approved NKO listings",
		Long: `Import NKO listings produced by the spreadsheet converter.

Every row with a name is inserted as an approved listing in a single
transaction; rows without a name are skipped.

Examples:
  server import-nko listings.yaml
  server import-nko listings.json --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := importer.LoadListings(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				listings, result := nko.PrepareImport(rows)
				fmt.Fprintf(out, "would import %d listing(s), skip %d\n", len(listings), result.Skipped)
				return nil
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

			service := nko.NewService(repo.Listings(), audit.NewLogger(logger), logger)
			result, err := service.Import(cmd.Context(), rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "imported %d listing(s), skipped %d\n", result.Inserted, result.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and count rows without touching the database")
	return cmd
}
