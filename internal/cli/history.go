package cli

import (
	"github.com/spf13/cobra"

	"github.com/dlovans/formwalk/internal/store"
)

func newHistoryCommand() *cobra.Command {
	var (
		formID string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored snapshots, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := store.Open(ctx, getConfig(ctx).StorePath)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			snaps, err := s.List(ctx, formID, limit)
			if err != nil {
				return err
			}
			return getRenderer(cmd).Snapshots(snaps)
		},
	}
	cmd.Flags().StringVar(&formID, "form-id", "", "Only list snapshots of this form id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of snapshots (0 for all)")
	cmd.Flags().String("store", "", "Snapshot database path")
	return cmd
}
