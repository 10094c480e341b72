package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/venue-checkin/internal/database"
	"github.com/iliyamo/venue-checkin/internal/linker"
	"github.com/iliyamo/venue-checkin/internal/repository"
	"github.com/iliyamo/venue-checkin/internal/utils"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db, a.cfg.DB.Driver); err != nil {
				return err
			}
			a.log.Info("database: schema applied")
			return nil
		},
	}
}

func backfillCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Link unlinked reservations to the single event at their venue and date",
		Long: "Assigns event_id to reservations whose venue and date match exactly one event.\n" +
			"Once nothing is left unlinked, LEGACY_DATE_FALLBACK can be turned off.",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			probe := repository.NewSchemaProbe(db, a.cfg.CapabilityTTL)
			results, err := linker.New(db, probe, nil, a.log).Backfill(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, results)
		},
	}
}

func probeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report which optional schema features the database has",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			caps, err := repository.NewSchemaProbe(db, a.cfg.CapabilityTTL).Capabilities(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, caps)
		},
	}
}

func tokenCmd(a *app) *cobra.Command {
	var (
		userID uint64
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an operator token with JWT_SECRET for local use",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := utils.NewAccessToken(a.cfg.JWTSecret, userID, role, ttl)
			if err != nil {
				return err
			}
			return printJSON(cmd, tok)
		},
	}
	cmd.Flags().Uint64Var(&userID, "user", 1, "operator id (sub claim)")
	cmd.Flags().StringVar(&role, "role", "STAFF", "STAFF, MANAGER or ADMIN")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
