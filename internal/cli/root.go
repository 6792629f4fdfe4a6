// Package cli is the kassabok command line. Commands print JSON on stdout and
// log to stderr.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/kassabok/internal/config"
	"github.com/MrJamesThe3rd/kassabok/internal/database"
	"github.com/MrJamesThe3rd/kassabok/internal/importer"
	"github.com/MrJamesThe3rd/kassabok/internal/observability"
	"github.com/MrJamesThe3rd/kassabok/internal/report"
)

// app carries what the commands share. It is filled in by setup before any
// command runs.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *observability.Metrics
	tables   *report.Tables
	importer *importer.Service
	db       *sql.DB
	shutdown func(context.Context) error
}

// Execute runs the command line with args, writing command output to stdout.
func Execute(ctx context.Context, args []string, stdout io.Writer) error {
	a := &app{}

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)

	err := root.ExecuteContext(ctx)

	return errors.Join(err, a.close(ctx))
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "kassabok",
		Short: "Import Swedish accounting files and derive tax reports",
		Long: `kassabok reads SIE 4 and SIE 5 files, normalises them to transactions,
checks them for duplicates against a workspace and derives the NE-bilaga,
the momsdeklaration and grouped income statement and balance sheet reports.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	root.AddCommand(
		newParseCmd(a),
		newTransactionsCmd(a),
		newDedupCmd(a),
		newReportCmd(a),
		newExplainCmd(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.App.LogLevel = level
	}

	a.cfg = cfg
	a.logger = observability.NewLogger(cfg.App.LogLevel)
	a.metrics = observability.NewMetrics()
	a.importer = importer.NewService(a.logger, a.metrics)

	a.tables, err = report.LoadTables(cfg.Report.MappingsDir)
	if err != nil {
		return fmt.Errorf("loading report mappings: %w", err)
	}

	a.shutdown, err = observability.InitTracer(cmd.Context(), cfg.Telemetry.OTLPEndpoint, cfg.App.Name)
	if err != nil {
		return err
	}

	return nil
}

// openDB connects on first use; commands working on files never touch it.
func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}

	db, err := database.New(ctx, a.cfg.ConnectionString(), a.cfg.DB.Timeout)
	if err != nil {
		return nil, err
	}

	a.db = db

	return db, nil
}

// close pushes metrics and releases what setup and openDB acquired.
func (a *app) close(ctx context.Context) error {
	var errs []error

	if a.metrics != nil && a.cfg.Telemetry.PushgatewayURL != "" {
		if err := a.metrics.Push(ctx, a.cfg.Telemetry.PushgatewayURL, a.cfg.App.Name); err != nil {
			a.logger.Warn("metrics push failed", zap.Error(err))
		}
	}

	if a.db != nil {
		errs = append(errs, a.db.Close())
	}

	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
	}

	if a.logger != nil {
		_ = a.logger.Sync()
	}

	return errors.Join(errs...)
}

// importFile reads and normalises one interchange file.
func (a *app) importFile(path string) (*importer.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return a.importer.Import(path, f)
}
