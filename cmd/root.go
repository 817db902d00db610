package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wedealize/sourcing-engine/internal/config"
	"github.com/wedealize/sourcing-engine/internal/extract"
	"github.com/wedealize/sourcing-engine/internal/followup"
	"github.com/wedealize/sourcing-engine/internal/ingest"
	"github.com/wedealize/sourcing-engine/internal/mailer"
	"github.com/wedealize/sourcing-engine/internal/model"
	"github.com/wedealize/sourcing-engine/internal/ocr"
	"github.com/wedealize/sourcing-engine/internal/pipeline"
	"github.com/wedealize/sourcing-engine/internal/scorer"
	"github.com/wedealize/sourcing-engine/internal/store"
	"github.com/wedealize/sourcing-engine/pkg/anthropic"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sourcing-engine",
	Short: "Supplier document ingestion and completeness pipeline",
	Long:  "Ingests supplier catalogs, extracts structured product data, scores completeness, and automates follow-up requests for missing information.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (store.Store, error) {
	return store.New(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
}

// buildPipeline assembles the full document-to-followup pipeline from
// config. AI extraction is optional; without an API key the table and
// heuristic paths still run.
func buildPipeline(st store.Store) (*pipeline.Pipeline, error) {
	ocrExtractor, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		return nil, err
	}

	var ai extract.TextExtractor
	if cfg.Anthropic.Key != "" {
		client := anthropic.NewClient(cfg.Anthropic.Key)
		ai = extract.NewClaudeExtractor(client, cfg.Anthropic)
	}

	catalog := model.DefaultCatalog()
	catalog.ApplyWeights(cfg.Scorer.WeightOverrides)

	ing := ingest.New(ocrExtractor, cfg.Ingest.TempDir)
	ext := extract.New(ai, cfg.Extract)
	sc := scorer.New(catalog)
	sender := mailer.NewSMTPSender(cfg.Mailer)
	pl := followup.New(st, catalog, cfg.Followup, sender, cfg.Mailer.RatePerSec)

	return pipeline.New(cfg, st, ing, ext, sc, pl), nil
}
