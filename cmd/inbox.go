package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wedealize/sourcing-engine/internal/model"
)

var inboxCmd = &cobra.Command{
	Use:   "inbox <messages.json>",
	Short: "Match a batch of inbound replies against open requests",
	Long:  "Reads a JSON array of inbound messages, matches each by sender address against requests awaiting a reply, and re-ingests usable attachments.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read messages: %w", err)
		}
		var msgs []model.InboundMessage
		if err := json.Unmarshal(data, &msgs); err != nil {
			return fmt.Errorf("parse messages: %w", err)
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := buildPipeline(st)
		if err != nil {
			return err
		}

		stats, err := p.ProcessInbox(cmd.Context(), msgs)
		if err != nil {
			return err
		}
		fmt.Printf("replied %d, received %d, unmatched %d, failed %d\n",
			stats.Replied, stats.Received, stats.Unmatched, stats.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inboxCmd)
}
