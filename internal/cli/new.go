package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aqasim81/dmt/internal/migration"
)

var newCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "new <name>",
	Short: "Create a new migration",
	Long: `Create <migrations-dir>/<timestamp>_<name>/ holding placeholder up.sql
and down.sql files.`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	root := AppConfig.MigrationsDir

	id, err := migration.Scaffold(root, args[0], time.Now())
	if err != nil {
		return err
	}

	logger().Debug("scaffolded migration", zap.String("migration", id), zap.String("root", root))
	fmt.Fprintf(cmd.OutOrStdout(), "Created migration %s\n", filepath.Join(root, id))

	return nil
}
