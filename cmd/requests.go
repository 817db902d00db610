package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var requestsCmd = &cobra.Command{
	Use:   "requests <supplier-id>",
	Short: "List follow-up requests for a supplier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		requests, err := st.ListRequests(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(requests) == 0 {
			fmt.Println("no follow-up requests")
			return nil
		}
		for _, r := range requests {
			sent := "-"
			if r.SentAt != nil {
				sent = r.SentAt.Format("2006-01-02 15:04")
			}
			fmt.Printf("%s  %-6s %-13s attempts=%d scheduled=%s sent=%s\n",
				r.ID, r.Tier, r.Status, r.AttemptCount,
				r.ScheduledAt.Format("2006-01-02 15:04"), sent)
			if r.Error != "" {
				fmt.Printf("    error: %s\n", r.Error)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(requestsCmd)
}
