package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/tradebooks/internal/app"
	"github.com/josh-kwaku/tradebooks/internal/config"
	"github.com/josh-kwaku/tradebooks/internal/logging"
	"github.com/josh-kwaku/tradebooks/internal/repository"
)

var version = "1.0.0"

type runtime struct {
	cfg *config.Config
	db  *sql.DB
}

// open loads config and connects on first use. Commands that never touch the
// database do not need DATABASE_URL.
func (rt *runtime) open(ctx context.Context) (*sql.DB, error) {
	if rt.db != nil {
		return rt.db, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init("ledgerctl", cfg.LogLevel, cfg.AppEnv)

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, app.PoolConfig(cfg))
	if err != nil {
		return nil, err
	}
	rt.cfg, rt.db = cfg, db
	return db, nil
}

func (rt *runtime) app(ctx context.Context) (*app.App, error) {
	db, err := rt.open(ctx)
	if err != nil {
		return nil, err
	}
	return app.New(db, rt.cfg, nil)
}

func (rt *runtime) close() {
	if rt.db != nil {
		rt.db.Close()
	}
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the tradebooks ledger from the command line",
		Long: `ledgerctl runs the ledger's reconciliation operations directly against
the database: balance reconstruction, invoice reconciliation, the fiscal-year
financial summary, the transfer gate and schema migrations.

Configuration is read from the environment and an optional .env file, the
same as the API server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.close()
		},
	}

	root.AddCommand(
		newBalanceCmd(rt),
		newRefreshBalanceCmd(rt),
		newReconcileCmd(rt),
		newSummaryCmd(rt),
		newTransferEligibilityCmd(rt),
		newMigrateCmd(rt),
		newPruneIdempotencyCmd(rt),
	)
	return root
}

func parseID(arg, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", what, arg, err)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
