package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"superstore-dashboard/internal/export"
	"superstore-dashboard/internal/loader"
	"superstore-dashboard/internal/pipeline"
	"superstore-dashboard/internal/report"
	"superstore-dashboard/internal/services"
)

// queryFlags registers the filter, date and metric flags shared by the
// report and export commands.
func queryFlags(cmd *cobra.Command, p *services.QueryParams) {
	f := cmd.Flags()
	f.StringVar(&p.Region, "region", pipeline.All, "region filter")
	f.StringVar(&p.State, "state", pipeline.All, "state filter")
	f.StringVar(&p.Category, "category", pipeline.All, "category filter")
	f.StringVar(&p.SubCategory, "sub-category", pipeline.All, "sub-category filter")
	f.StringVar(&p.From, "from", "", "first order date, YYYY-MM-DD (default: earliest)")
	f.StringVar(&p.To, "to", "", "last order date, YYYY-MM-DD (default: latest)")
	f.StringVar(&p.Metric, "metric", "Sales", "metric for the rankings: Sales, Quantity, Profit, Margin Rate")
}

// loadDashboard reads the configured source with a progress bar on stderr.
func loadDashboard(ctx context.Context) (*services.Dashboard, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Loading orders"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	src, err := loader.Open(cfg.Data.Source,
		loader.WithTable(cfg.Data.Table),
		loader.WithSheet(cfg.Data.Sheet),
		loader.WithProgress(func(rows int) { _ = bar.Add(rows) }),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Data.LoadTimeout)
	defer cancel()

	dashboard := services.NewDashboard(logger)
	err = dashboard.Load(ctx, src)
	_ = bar.Finish()
	if err != nil {
		return nil, err
	}
	return dashboard, nil
}

func compute(cmd *cobra.Command, p services.QueryParams) (*services.Snapshot, error) {
	q, err := p.Query()
	if err != nil {
		return nil, err
	}
	dashboard, err := loadDashboard(cmd.Context())
	if err != nil {
		return nil, err
	}
	return dashboard.Compute(cmd.Context(), q), nil
}

func reportCmd() *cobra.Command {
	var params services.QueryParams
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print KPIs, trend, top products and the category breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := compute(cmd, params)
			if err != nil {
				return err
			}
			return report.Render(cmd.OutOrStdout(), snap)
		},
	}
	queryFlags(cmd, &params)
	return cmd
}

func optionsCmd() *cobra.Command {
	var params services.QueryParams
	cmd := &cobra.Command{
		Use:   "options",
		Short: "List the values each filter offers for a selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := params.Query()
			if err != nil {
				return err
			}
			dashboard, err := loadDashboard(cmd.Context())
			if err != nil {
				return err
			}

			cascade, bounds := dashboard.Options(q.Chain)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FILTER\tSELECTED\tOPTIONS")
			for _, p := range cascade.Positions {
				selected := p.Selected
				if p.Reset {
					selected += " (reset)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Column, selected, strings.Join(p.Options, ", "))
			}
			fmt.Fprintf(w, "Order Date\t\t%s .. %s\n", bounds.From.Format("2006-01-02"), bounds.To.Format("2006-01-02"))
			return w.Flush()
		},
	}
	queryFlags(cmd, &params)
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		params services.QueryParams
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered orders to a csv or xlsx file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			snap, err := compute(cmd, params)
			if err != nil {
				return err
			}
			for _, notice := range []string{snap.Validation, snap.DateNotice} {
				if notice != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), notice)
				}
			}

			if output == "" {
				output = f.FileName()
			}
			if output == "-" {
				return export.Write(cmd.OutOrStdout(), f, snap.Filtered())
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := export.Write(file, f, snap.Filtered()); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d orders to %s\n", snap.RecordCount, output)
			return nil
		},
	}
	queryFlags(cmd, &params)
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, - for stdout (default: filtered_data.<format>)")
	return cmd
}
