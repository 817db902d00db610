package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wedealize/sourcing-engine/internal/model"
)

// reportWindow is the period the periodic quality report covers.
const reportWindow = 7 * 24 * time.Hour

// WeeklyStats aggregates supplier data quality and outreach activity over
// one report window.
type WeeklyStats struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	ActiveSuppliers  int            `json:"active_suppliers"`
	AverageScore     float64        `json:"average_score"`
	LowScoreCount    int            `json:"low_score_count"` // below 50
	MostMissingField model.FieldKey `json:"most_missing_field,omitempty"`

	RequestsSent    int     `json:"requests_sent"`
	RepliesReceived int     `json:"replies_received"`
	ResponseRate    float64 `json:"response_rate"`
	FollowupsSent   int     `json:"followups_sent"`
	Closed          int     `json:"closed"`
}

// WeeklyStats collects the admin report numbers for the window ending at
// now: supplier completeness from the latest reports, outreach counts from
// requests touched inside the window.
func (p *Planner) WeeklyStats(ctx context.Context, now time.Time) (WeeklyStats, error) {
	since := now.Add(-reportWindow)
	stats := WeeklyStats{From: since, To: now}

	suppliers, err := p.store.ListSuppliers(ctx)
	if err != nil {
		return stats, eris.Wrap(err, "followup: list suppliers")
	}

	var scoreSum float64
	missingCounts := make(map[model.FieldKey]int)
	for _, sup := range suppliers {
		report, err := p.store.GetReport(ctx, sup.ID)
		if err != nil {
			return stats, eris.Wrapf(err, "followup: load report %s", sup.ID)
		}
		if report == nil || report.GeneratedAt.Before(since) {
			continue
		}
		stats.ActiveSuppliers++
		scoreSum += report.Score
		if report.Score < 50 {
			stats.LowScoreCount++
		}
		for _, g := range report.Missing {
			missingCounts[g.Field] += g.Count
		}
	}
	if stats.ActiveSuppliers > 0 {
		stats.AverageScore = scoreSum / float64(stats.ActiveSuppliers)
	}
	for field, count := range missingCounts {
		if count > missingCounts[stats.MostMissingField] || stats.MostMissingField == "" {
			stats.MostMissingField = field
		}
	}

	requests, err := p.store.RequestsUpdatedSince(ctx, since)
	if err != nil {
		return stats, eris.Wrap(err, "followup: list recent requests")
	}
	for _, r := range requests {
		if r.SentAt != nil && !r.SentAt.Before(since) {
			if r.AttemptCount > 0 {
				stats.FollowupsSent++
			} else {
				stats.RequestsSent++
			}
		}
		if r.ReplyReceivedAt != nil && !r.ReplyReceivedAt.Before(since) {
			stats.RepliesReceived++
		}
		if r.Status == model.StatusClosed {
			stats.Closed++
		}
	}
	if outreach := stats.RequestsSent + stats.FollowupsSent; outreach > 0 {
		stats.ResponseRate = 100 * float64(stats.RepliesReceived) / float64(outreach)
	}

	zap.L().Info("followup: weekly stats collected",
		zap.Int("active_suppliers", stats.ActiveSuppliers),
		zap.Float64("average_score", stats.AverageScore),
		zap.Int("requests_sent", stats.RequestsSent),
		zap.Int("replies_received", stats.RepliesReceived),
	)
	return stats, nil
}

// RenderAdminReport formats the weekly stats as the plain-text admin
// summary.
func (p *Planner) RenderAdminReport(stats WeeklyStats) string {
	mostMissing := "N/A"
	if stats.MostMissingField != "" {
		if f := p.catalog.ByKey(stats.MostMissingField); f != nil {
			mostMissing = f.LabelEN
		}
	}

	var b strings.Builder
	b.WriteString("WeDealize Weekly Data Quality Report\n")
	b.WriteString("=====================================\n")
	fmt.Fprintf(&b, "Period: %s ~ %s\n\n", stats.From.Format("2006-01-02"), stats.To.Format("2006-01-02"))
	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "- Active Suppliers: %d\n", stats.ActiveSuppliers)
	fmt.Fprintf(&b, "- Average Completeness Score: %.1f%%\n", stats.AverageScore)
	fmt.Fprintf(&b, "- Suppliers below 50%% completeness: %d\n", stats.LowScoreCount)
	fmt.Fprintf(&b, "- Most common missing field: %s\n\n", mostMissing)
	b.WriteString("Outreach Performance:\n")
	fmt.Fprintf(&b, "- Requests Sent: %d\n", stats.RequestsSent)
	fmt.Fprintf(&b, "- Follow-ups Sent: %d\n", stats.FollowupsSent)
	fmt.Fprintf(&b, "- Responses Received: %d\n", stats.RepliesReceived)
	fmt.Fprintf(&b, "- Response Rate: %.1f%%\n", stats.ResponseRate)
	fmt.Fprintf(&b, "- Requests Closed: %d\n", stats.Closed)
	return b.String()
}
