package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/qtdeferred/internal/db"
	syncx "github.com/mind-engage/qtdeferred/internal/sync"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			return err
		}
		defer dbh.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.DBDriver)
		return nil
	},
}

var (
	eventsAfter int64
	eventsLimit int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print the attempt event log as JSON lines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbh, err := db.OpenNoMigrate(cmd.Context(), db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			return err
		}
		defer dbh.Close()
		evs, err := syncx.NewEventRepo(dbh, cfg.SiteID).Since(cmd.Context(), eventsAfter, eventsLimit)
		if err != nil {
			return fmt.Errorf("read events: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, e := range evs {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for ADMIN_PASS_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(h))
		return nil
	},
}

func init() {
	eventsCmd.Flags().Int64Var(&eventsAfter, "after", 0, "only events with an offset greater than this")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 100, "maximum number of events")
}
