package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aqasim81/dmt/internal/database"
)

var rollbackCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "rollback",
	Short: "Roll back applied migrations",
	Long: `Roll back applied migrations that are still on disk using their
down.sql files. By default every one of them is reverted in identifier
order; --steps N reverts only the N most recent, newest first.`,
	Args: cobra.NoArgs,
	RunE: runRollback,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rollbackCmd.Flags().Int("steps", 0, "number of most recent migrations to roll back (0 = all)")
	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, _ []string) error {
	steps, _ := cmd.Flags().GetInt("steps")

	return withConnection(cmd, func(ctx context.Context, conn database.Connection, log *zap.Logger) error {
		return newExecutor(cmd, conn, log).Rollback(ctx, steps)
	})
}
