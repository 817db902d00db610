package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var followupCmd = &cobra.Command{
	Use:   "followup",
	Short: "Manage automated follow-up requests",
}

var followupSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Send due requests and re-arm unanswered ones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := buildPipeline(st)
		if err != nil {
			return err
		}

		stats, err := p.SweepFollowups(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("sent %d, followed up %d, closed %d, failed %d\n",
			stats.Sent, stats.FollowedUp, stats.Closed, stats.Failed)
		return nil
	},
}

var followupReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the weekly data quality and outreach summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := buildPipeline(st)
		if err != nil {
			return err
		}

		_, report, err := p.WeeklyReport(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(report)
		return nil
	},
}

func init() {
	followupCmd.AddCommand(followupSweepCmd)
	followupCmd.AddCommand(followupReportCmd)
	rootCmd.AddCommand(followupCmd)
}
