package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/Togather-Foundation/nko-directory/internal/audit"
	"github.com/Togather-Foundation/nko-directory/internal/domain/nko"
	"github.com/spf13/cobra"
)

// moderationService is the subset of nko.Service the moderate commands use.
type moderationService interface {
	ListPending(ctx context.Context) ([]nko.Listing, error)
	Approve(ctx context.Context, id int64) (*nko.Listing, error)
	Reject(ctx context.Context, id int64) (*nko.Listing, error)
}

// moderationConnector opens the service; tests replace it.
type moderationConnector func(ctx context.Context, root *rootOptions) (moderationService, func(), error)

func connectModeration(ctx context.Context, root *rootOptions) (moderationService, func(), error) {
	cfg, logger, err := root.load()
	if err != nil {
		return nil, nil, err
	}
	repo, _, closePool, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return nko.NewService(repo.Listings(), audit.NewLogger(logger), logger), closePool, nil
}

func newModerateCommand(root *rootOptions) *cobra.Command {
	return newModerateCommandWith(root, connectModeration)
}

func newModerateCommandWith(root *rootOptions, connect moderationConnector) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moderate",
		Short: "Review listings submitted by users",
		Long: `Moderation is an operator capability: listings submitted through the API
stay pending until approved or rejected here.`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List pending listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, closeFn, err := connect(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer closeFn()

			pending, err := service.ListPending(cmd.Context())
			if err != nil {
				return err
			}
			return printListings(cmd.OutOrStdout(), pending)
		},
	}

	transition := func(use, short string, apply func(moderationService, context.Context, int64) (*nko.Listing, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid listing id %q", args[0])
				}

				service, closeFn, err := connect(cmd.Context(), root)
				if err != nil {
					return err
				}
				defer closeFn()

				listing, err := apply(service, cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "listing %d %q is now %s\n", listing.ID, listing.Name, listing.Status)
				return nil
			},
		}
	}

	cmd.AddCommand(
		list,
		transition("approve", "Publish a pending listing", moderationService.Approve),
		transition("reject", "Reject a pending listing", moderationService.Reject),
	)
	return cmd
}

func printListings(out io.Writer, listings []nko.Listing) error {
	if len(listings) == 0 {
		_, err := fmt.Fprintln(out, "No pending listings.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tCITY")
	for _, l := range listings {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", l.ID, l.Name, l.Category, l.City)
	}
	return w.Flush()
}
