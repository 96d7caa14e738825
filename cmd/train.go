package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bargain-backend/dao"
	"bargain-backend/usecase"
)

func newTrainCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Refit the acceptance predictor on stored negotiation outcomes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.mustLoaded(); err != nil {
				return err
			}
			ctx := cmd.Context()

			conn, err := openStore(ctx, opts.cfg, opts.logger, false)
			if err != nil {
				return err
			}
			defer conn.Close()

			trainer := usecase.NewTrainer(dao.NewTrainingRepository(conn), newModel(ctx, opts.cfg, opts.logger), opts.logger)
			msg, err := trainer.TrainAgent(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}
