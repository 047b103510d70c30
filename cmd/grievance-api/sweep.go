package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one SLA auto-close sweep and exit",
		Long: `Closes every RESOLVED grievance whose confirmation window has lapsed.
Useful from cron when the in-process sweeper is disabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			a.notifications.Start(ctx)

			result, err := a.sla.Sweep(ctx)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scanned: %d\n", result.Scanned)
			fmt.Fprintf(out, "closed:  %s\n", color.New(color.FgGreen).Sprint(result.Closed))
			failed := fmt.Sprint(result.Failed)
			if result.Failed > 0 {
				failed = color.New(color.FgRed).Sprint(result.Failed)
			}
			fmt.Fprintf(out, "failed:  %s\n", failed)
			return nil
		},
	}
}
