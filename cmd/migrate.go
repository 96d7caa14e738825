package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.mustLoaded(); err != nil {
				return err
			}
			conn, err := openStore(cmd.Context(), opts.cfg, opts.logger, true)
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Migration completed successfully!")
			return nil
		},
	}
}
