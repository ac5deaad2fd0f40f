package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"superstore-dashboard/internal/config"
	"superstore-dashboard/internal/observability"
)

var (
	version = "dev"
	v       = viper.New()
	cfg     *config.Config
	logger  = slog.Default()
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "superstore",
		Short: "SuperStore KPI reports from the command line",
		Long: `superstore loads the Superstore order table from an xlsx workbook, a CSV
export or a SQL database and prints the same KPIs, rankings and breakdowns
as the web dashboard.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	flags := root.PersistentFlags()
	flags.String("source", "Sample - Superstore.xlsx", "data source: .xlsx/.csv path, postgres:// or sqlite:// DSN")
	flags.String("table", "orders", "SQL table holding the orders")
	flags.String("sheet", "", "xlsx worksheet (default: first sheet)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")

	_ = v.BindPFlag("DATA_SOURCE", flags.Lookup("source"))
	_ = v.BindPFlag("DATA_TABLE", flags.Lookup("table"))
	_ = v.BindPFlag("DATA_SHEET", flags.Lookup("sheet"))
	_ = v.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))
	_ = v.BindPFlag("LOG_FORMAT", flags.Lookup("log-format"))

	root.AddCommand(reportCmd())
	root.AddCommand(optionsCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(versionCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read .env: %w", err)
	}

	// Terminal defaults; the web server logs json at info.
	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("LOG_FORMAT", "text")

	var err error
	if cfg, err = config.LoadFrom(v); err != nil {
		return err
	}

	logger = observability.NewLoggerTo(os.Stderr, cfg.Logger)
	slog.SetDefault(logger)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "superstore %s\n", version)
		},
	}
}
