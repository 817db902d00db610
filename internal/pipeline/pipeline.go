// Package pipeline wires ingestion, extraction, scoring, follow-up and
// reply matching into the end-to-end flows the CLI invokes. Per-document
// and per-supplier failures degrade or are isolated; only store failures
// abort a flow.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wedealize/sourcing-engine/internal/config"
	"github.com/wedealize/sourcing-engine/internal/extract"
	"github.com/wedealize/sourcing-engine/internal/followup"
	"github.com/wedealize/sourcing-engine/internal/inbox"
	"github.com/wedealize/sourcing-engine/internal/ingest"
	"github.com/wedealize/sourcing-engine/internal/model"
	"github.com/wedealize/sourcing-engine/internal/scorer"
	"github.com/wedealize/sourcing-engine/internal/store"
)

// Pipeline orchestrates the document-to-followup flow.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	ingestor  *ingest.Ingestor
	extractor *extract.Extractor
	scorer    *scorer.Scorer
	planner   *followup.Planner
	matcher   *inbox.Matcher
}

// New assembles a Pipeline from its collaborators. The reply matcher is
// wired back into ingestion so supplier attachments close the loop.
func New(cfg *config.Config, st store.Store, ing *ingest.Ingestor, ext *extract.Extractor, sc *scorer.Scorer, pl *followup.Planner) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		store:     st,
		ingestor:  ing,
		extractor: ext,
		scorer:    sc,
		planner:   pl,
	}
	p.matcher = inbox.New(st, p.reingestAttachment)
	return p
}

// Matcher exposes the reply matcher for callers that feed messages directly.
func (p *Pipeline) Matcher() *inbox.Matcher {
	return p.matcher
}

// IngestResult summarizes one document run end to end.
type IngestResult struct {
	DocumentID string                    `json:"document_id"`
	Format     model.DocumentFormat      `json:"format"`
	Degraded   string                    `json:"degraded,omitempty"`
	Products   int                       `json:"products"`
	Report     *model.CompletenessReport `json:"report,omitempty"`
	Request    *model.FollowupRequest    `json:"request,omitempty"`
}

// IngestDocument runs one uploaded file through validation, ingestion,
// extraction and persistence, then rescores the supplier and plans any
// follow-up the new state warrants.
func (p *Pipeline) IngestDocument(ctx context.Context, supplierID string, kind model.DocumentKind, filename string, data []byte) (*IngestResult, error) {
	if err := ingest.ValidateUpload(p.cfg.Ingest, kind, filename, int64(len(data))); err != nil {
		return nil, err
	}
	if _, err := p.store.GetSupplier(ctx, supplierID); err != nil {
		return nil, eris.Wrap(err, "pipeline: load supplier")
	}

	doc := p.ingestor.Ingest(ctx, supplierID, kind, filename, data)
	products := p.extractor.FromDocument(ctx, doc)
	if err := p.store.UpsertProducts(ctx, products); err != nil {
		return nil, eris.Wrap(err, "pipeline: upsert products")
	}

	result := &IngestResult{
		DocumentID: doc.ID,
		Format:     doc.Format,
		Degraded:   doc.Err,
		Products:   len(products),
	}

	report, req, err := p.ScoreSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	result.Report = report
	result.Request = req

	zap.L().Info("pipeline: document processed",
		zap.String("supplier_id", supplierID),
		zap.String("document_id", doc.ID),
		zap.String("filename", filename),
		zap.Int("products", len(products)),
		zap.Float64("score", report.Score),
	)
	return result, nil
}

// ScoreSupplier recomputes the supplier's completeness report from the
// currently stored products, persists it, and plans a follow-up when the
// gaps warrant one.
func (p *Pipeline) ScoreSupplier(ctx context.Context, supplierID string) (*model.CompletenessReport, *model.FollowupRequest, error) {
	supplier, err := p.store.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: load supplier")
	}
	products, err := p.store.ListProducts(ctx, supplierID)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: list products")
	}

	report := p.scorer.Analyze(supplier, products)
	if err := p.store.SaveReport(ctx, report); err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: save report")
	}

	req, err := p.planner.Plan(ctx, supplier, report)
	if err != nil {
		return nil, nil, err
	}
	return report, req, nil
}

// SweepFollowups runs one follow-up sweep pass.
func (p *Pipeline) SweepFollowups(ctx context.Context) (followup.SweepStats, error) {
	return p.planner.Sweep(ctx, time.Now().UTC())
}

// WeeklyReport aggregates the last week's quality and outreach activity
// and renders the plain-text admin summary.
func (p *Pipeline) WeeklyReport(ctx context.Context) (followup.WeeklyStats, string, error) {
	stats, err := p.planner.WeeklyStats(ctx, time.Now().UTC())
	if err != nil {
		return stats, "", err
	}
	return stats, p.planner.RenderAdminReport(stats), nil
}

// ProcessInbox matches a batch of inbound messages against open requests.
func (p *Pipeline) ProcessInbox(ctx context.Context, msgs []model.InboundMessage) (inbox.BatchStats, error) {
	return p.matcher.ProcessBatch(ctx, msgs)
}

// BatchStats summarizes a batch scoring pass.
type BatchStats struct {
	Scored int `json:"scored"`
	Failed int `json:"failed"`
}

// ScoreBatch rescores the given suppliers concurrently, bounded by
// batch.max_concurrent_suppliers. One supplier's failure is logged and
// counted without stopping the rest; cancellation stops the batch.
func (p *Pipeline) ScoreBatch(ctx context.Context, supplierIDs []string) (BatchStats, error) {
	limit := p.cfg.Batch.MaxConcurrentSuppliers
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	results := make([]error, len(supplierIDs))
	for i, id := range supplierIDs {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, _, err := p.ScoreSupplier(gctx, id)
			if err != nil {
				zap.L().Error("pipeline: supplier scoring failed",
					zap.String("supplier_id", id),
					zap.Error(err),
				)
			}
			results[i] = err
			return nil
		})
	}

	var stats BatchStats
	if err := g.Wait(); err != nil {
		return stats, eris.Wrap(err, "pipeline: batch interrupted")
	}
	for _, err := range results {
		if err != nil {
			stats.Failed++
		} else {
			stats.Scored++
		}
	}
	zap.L().Info("pipeline: batch scoring complete",
		zap.Int("scored", stats.Scored),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// reingestAttachment feeds one reply attachment back through the document
// flow. The attachment's bytes are used when present, otherwise read from
// its recorded path.
func (p *Pipeline) reingestAttachment(ctx context.Context, supplierID string, att model.Attachment) error {
	data := att.Data
	if len(data) == 0 && att.Path != "" {
		b, err := os.ReadFile(att.Path)
		if err != nil {
			return eris.Wrapf(err, "pipeline: read attachment %s", att.Filename)
		}
		data = b
	}
	if len(data) == 0 {
		return eris.Errorf("pipeline: attachment %s has no content", att.Filename)
	}
	_, err := p.IngestDocument(ctx, supplierID, attachmentKind(att.Filename), att.Filename, data)
	return err
}

// attachmentKind guesses the upload kind for a reply attachment. Documents
// default to catalog; images come in as product images.
func attachmentKind(filename string) model.DocumentKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return model.KindImage
	default:
		return model.KindCatalog
	}
}
