// Command leadsimport imports a lead spreadsheet from the command line,
// using the same pipeline and configuration as the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadimport/internal/config"
	"github.com/JonMunkholm/leadimport/internal/core"
	"github.com/JonMunkholm/leadimport/internal/database"
	"github.com/JonMunkholm/leadimport/internal/events"
	"github.com/JonMunkholm/leadimport/internal/logging"
)

// app holds what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg      *config.Config
	store    *database.Store
	notifier events.Notifier
	service  *core.Service
	out      io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}

	root := &cobra.Command{
		Use:   "leadsimport",
		Short: "Import lead spreadsheets into the CRM leads table",
		Long: `leadsimport reads an .xlsx or .csv file, maps its headers onto the leads
table (adding columns when asked), and imports every row in one transaction.
Configuration comes from the environment or a .env file, like the server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	root.AddCommand(newImportCmd(a), newColumnsCmd(a), newPreviewCmd(a))
	return root
}

func (a *app) open(ctx context.Context) error {
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	// stdout carries results only.
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	svcCfg, err := core.NewServiceConfig(cfg.Import)
	if err != nil {
		return err
	}

	a.store, err = database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}

	a.notifier, err = events.New(cfg.Events)
	if err != nil {
		slog.Warn("import events disabled", "error", err)
		a.notifier = events.Nop{}
	}

	a.service = core.NewService(a.store, a.store, svcCfg, core.WithNotifier(a.notifier))
	return nil
}

func (a *app) close() {
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			slog.Warn("close event publisher", "error", err)
		}
	}
	if a.store != nil {
		a.store.Close()
	}
}

// printJSON writes v indented to the command output.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
