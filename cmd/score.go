package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wedealize/sourcing-engine/internal/model"
)

var scoreAll bool

var scoreCmd = &cobra.Command{
	Use:   "score [supplier-id]",
	Short: "Recompute completeness scores and plan follow-ups",
	Args:  cobra.MaximumNArgs(1),
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

		if scoreAll {
			suppliers, err := st.ListSuppliers(cmd.Context())
			if err != nil {
				return err
			}
			ids := make([]string, len(suppliers))
			for i, s := range suppliers {
				ids[i] = s.ID
			}
			stats, err := p.ScoreBatch(cmd.Context(), ids)
			if err != nil {
				return err
			}
			fmt.Printf("scored %d suppliers, %d failed\n", stats.Scored, stats.Failed)
			return nil
		}

		if len(args) != 1 {
			return fmt.Errorf("supplier-id required unless --all is given")
		}
		report, req, err := p.ScoreSupplier(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printReport(report)
		if req != nil {
			fmt.Printf("follow-up scheduled: %s tier, due %s\n", req.Tier, req.ScheduledAt.Format("2006-01-02"))
		}
		return nil
	},
}

func printReport(report *model.CompletenessReport) {
	if report == nil {
		return
	}
	fmt.Printf("supplier %s: score %.1f (%d products)\n", report.SupplierID, report.Score, report.ProductCount)
	for _, g := range report.Missing {
		fmt.Printf("  missing %-16s %s tier, %d products\n", g.Field, g.Tier, g.Count)
	}
	for _, r := range report.Recommendations {
		fmt.Printf("  - %s\n", r)
	}
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreAll, "all", false, "score every supplier")
	rootCmd.AddCommand(scoreCmd)
}
