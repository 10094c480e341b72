package main

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/venue-checkin/internal/config"
	"github.com/iliyamo/venue-checkin/internal/database"
	"github.com/iliyamo/venue-checkin/internal/logger"
)

// app carries what every subcommand needs once the root has run.
type app struct {
	cfg config.Config
	log *slog.Logger
}

// openDB opens the configured store.
func (a *app) openDB() (*sql.DB, error) {
	db, err := database.Open(a.cfg.DB)
	if err != nil {
		return nil, err
	}
	a.log.Info("database: connected", "driver", a.cfg.DB.Driver)
	return db, nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "venue-checkin",
		Short:         "Door check-in service for clubs and restaurants",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(log)
			a.cfg, a.log = cfg, log
			return nil
		},
	}
	root.AddCommand(
		serveCmd(a),
		migrateCmd(a),
		backfillCmd(a),
		probeCmd(a),
		watchCmd(a),
		tokenCmd(a),
	)
	return root
}
