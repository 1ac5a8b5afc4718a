package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/hyperengineering/crm/internal/config"
	"github.com/hyperengineering/crm/internal/crm"
	"github.com/hyperengineering/crm/internal/store"
)

// cliSource attributes mutations made from local commands in the change log.
const cliSource = "cli"

var (
	dbPathOverride string
	jsonOutput     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathOverride, "db", "",
		"Database path (overrides config and CRM_DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")
}

// openService opens the database directly for a local command. Local
// commands do not need the API key. The caller must invoke the returned
// close function.
func openService(w io.Writer) (*crm.Service, func(), error) {
	cfg, err := config.LoadLocal()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	path := cfg.Database.Path
	if dbPathOverride != "" {
		path = dbPathOverride
	}

	db, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}

	// Only warnings and errors reach the terminal
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc := crm.NewService(db, logger,
		crm.WithProfile(cfg.Auth.ProfileID, cfg.Auth.ProfileEmail),
		crm.WithReportMonths(cfg.Reports.Months),
	)
	return svc, func() { db.Close() }, nil
}

// cliContext returns the context local commands run under.
func cliContext() context.Context {
	return crm.WithSource(context.Background(), cliSource)
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// formatMoney renders an amount with two decimals.
func formatMoney(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// orDash substitutes "-" for empty table cells.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
