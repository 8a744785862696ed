package cli

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/aqasim81/dmt/internal/database"
)

// openConnection is swapped in tests.
var openConnection = database.Open //nolint:gochecknoglobals // test seam

type runFunc func(ctx context.Context, conn database.Connection, log *zap.Logger) error

// withConnection validates AppConfig, opens the configured backend, runs fn
// and closes the connection on every path.
func withConnection(cmd *cobra.Command, fn runFunc) (err error) {
	cfg := AppConfig

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log := logger().With(
		zap.String("run_id", uuid.NewString()),
		zap.String("command", cmd.Name()),
	)

	log.Info("connecting",
		zap.String("database", string(cfg.Database)),
		zap.String("target", cfg.Target()),
	)

	conn, err := openConnection(ctx, cfg.Params())
	if err != nil {
		return err
	}

	defer func() {
		err = multierr.Append(err, conn.Close(context.WithoutCancel(ctx)))
	}()

	return fn(ctx, conn, log)
}
