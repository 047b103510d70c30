package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	"github.com/ravirajbabasomane202/PCMCApp/internal/service"
)

func kpiCmd() *cobra.Command {
	var (
		period string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "kpi",
		Short: "Print a KPI snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := service.ParseKPIPeriod(period)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.reports.Advanced(ctx, p)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printKPIReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "all", "day, week, month, year or all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of a summary")
	return cmd
}

func printKPIReport(out io.Writer, report *models.KPIReport) {
	heading := color.New(color.Bold)
	fmt.Fprintf(out, "%s (%s, generated %s)\n\n", heading.Sprint("Grievance KPIs"), report.Period, report.GeneratedAt.Format("2006-01-02 15:04"))

	fmt.Fprintf(out, "Resolution rate   %s  (%d of %d closed)\n", rateColor(report.ResolutionRate.Rate), report.ResolutionRate.Closed, report.ResolutionRate.Total)
	fmt.Fprintf(out, "SLA compliance    %s  (%d of %d within %d days)\n", rateColor(report.SLACompliance.Rate), report.SLACompliance.WithinSLA, report.SLACompliance.Closed, report.SLACompliance.SLADays)
	fmt.Fprintf(out, "Pending           %d  (avg age %.2f days)\n\n", report.PendingAging.Pending, report.PendingAging.AverageAgeDays)

	fmt.Fprintln(out, heading.Sprint("By status"))
	for _, row := range report.StatusOverview {
		fmt.Fprintf(out, "  %-12s %d\n", row.Status, row.Count)
	}

	fmt.Fprintln(out, heading.Sprint("Filed"))
	totals := report.ComplaintTotals
	fmt.Fprintf(out, "  day %d  week %d  month %d  year %d  all %d\n", totals.Day, totals.Week, totals.Month, totals.Year, totals.All)
}

func rateColor(rate float64) string {
	text := fmt.Sprintf("%6.2f%%", rate)
	switch {
	case rate >= 80:
		return color.New(color.FgGreen).Sprint(text)
	case rate >= 50:
		return color.New(color.FgYellow).Sprint(text)
	default:
		return color.New(color.FgRed).Sprint(text)
	}
}
