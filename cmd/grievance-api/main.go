package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title PCMC Grievance API
// @version 1.0.0
// @description Grievance lifecycle, escalation, SLA auto-closure and KPI reporting
// @BasePath /
// @schemes http https

func main() {
	rootCmd := &cobra.Command{
		Use:   "grievance-api",
		Short: "Municipal grievance workflow service",
		Long: `grievance-api serves the grievance workflow over HTTP and offers
operational commands for the SLA auto-close sweep and KPI snapshots.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(kpiCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
