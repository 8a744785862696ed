package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aqasim81/dmt/internal/database"
	"github.com/aqasim81/dmt/internal/executor"
	"github.com/aqasim81/dmt/internal/migration"
)

var migrateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "migrate",
	Short: "Apply outstanding migrations",
	Long: `Apply every migration found on disk that is not yet recorded in the
ledger, in identifier order. The run stops at the first failure.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	return withConnection(cmd, func(ctx context.Context, conn database.Connection, log *zap.Logger) error {
		return newExecutor(cmd, conn, log).Apply(ctx)
	})
}

func newExecutor(cmd *cobra.Command, conn database.Connection, log *zap.Logger) *executor.Executor {
	return executor.New(conn, migration.NewDirectory(AppConfig.MigrationsDir),
		executor.WithReporter(consoleReporter{out: cmd.OutOrStdout()}),
		executor.WithLogger(log),
		executor.WithStatementTimeout(AppConfig.StatementTimeout),
	)
}
