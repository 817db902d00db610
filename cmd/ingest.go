package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wedealize/sourcing-engine/internal/model"
)

var ingestKind string

var ingestCmd = &cobra.Command{
	Use:   "ingest <supplier-id> <file>",
	Short: "Ingest one supplier document and rescore",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		supplierID, path := args[0], args[1]

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
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

		result, err := p.IngestDocument(cmd.Context(), supplierID, model.DocumentKind(ingestKind), filepath.Base(path), data)
		if err != nil {
			return err
		}

		fmt.Printf("document %s (%s): %d products extracted\n", result.DocumentID, result.Format, result.Products)
		if result.Degraded != "" {
			fmt.Printf("degraded: %s\n", result.Degraded)
		}
		printReport(result.Report)
		if result.Request != nil {
			fmt.Printf("follow-up scheduled: %s tier, due %s\n", result.Request.Tier, result.Request.ScheduledAt.Format("2006-01-02"))
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestKind, "kind", string(model.KindCatalog), "document kind: catalog, pricelist, certificate, image")
	rootCmd.AddCommand(ingestCmd)
}
