// Package inbox matches inbound supplier replies back to the follow-up
// requests that prompted them and routes usable attachments into
// re-ingestion.
package inbox

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wedealize/sourcing-engine/internal/model"
	"github.com/wedealize/sourcing-engine/internal/store"
)

// snippetLimit caps how much reply text is preserved on the request.
const snippetLimit = 500

// ingestableExtensions are attachment types worth re-ingesting. Anything
// else (signatures, inline logos) is ignored for matching purposes.
var ingestableExtensions = map[string]bool{
	".pdf":  true,
	".xlsx": true,
	".xls":  true,
	".csv":  true,
	".doc":  true,
	".docx": true,
	".zip":  true,
}

// ReingestFunc hands one reply attachment back to the ingestion pipeline.
type ReingestFunc func(ctx context.Context, supplierID string, att model.Attachment) error

// Matcher associates inbound messages with open follow-up requests.
type Matcher struct {
	store    store.Store
	reingest ReingestFunc
}

// New creates a Matcher. reingest may be nil when attachments should only
// be recorded, not re-processed.
func New(st store.Store, reingest ReingestFunc) *Matcher {
	return &Matcher{store: st, reingest: reingest}
}

// BatchStats summarizes one inbox pass.
type BatchStats struct {
	Replied   int `json:"replied"`
	Received  int `json:"received"`
	Unmatched int `json:"unmatched"`
	Failed    int `json:"failed"`
}

// ProcessBatch runs Process over a batch of messages. A bad message is
// counted and logged, never aborts the rest.
func (m *Matcher) ProcessBatch(ctx context.Context, msgs []model.InboundMessage) (BatchStats, error) {
	var stats BatchStats
	for i := range msgs {
		if err := ctx.Err(); err != nil {
			return stats, eris.Wrap(err, "inbox: batch interrupted")
		}
		req, err := m.Process(ctx, &msgs[i])
		switch {
		case err != nil:
			stats.Failed++
			zap.L().Error("inbox: message processing failed",
				zap.String("message_id", msgs[i].ID),
				zap.Error(err),
			)
		case req == nil:
			stats.Unmatched++
		case req.Status == model.StatusReceived:
			stats.Received++
		default:
			stats.Replied++
		}
	}
	zap.L().Info("inbox: batch complete",
		zap.Int("replied", stats.Replied),
		zap.Int("received", stats.Received),
		zap.Int("unmatched", stats.Unmatched),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// Process matches one inbound message against the open requests awaiting a
// reply and mutates at most that one request. An unmatched message is
// stored unassociated and returns (nil, nil).
func (m *Matcher) Process(ctx context.Context, msg *model.InboundMessage) (*model.FollowupRequest, error) {
	req, err := m.match(ctx, msg)
	if err != nil {
		return nil, err
	}
	if req == nil {
		zap.L().Info("inbox: no matching request",
			zap.String("message_id", msg.ID),
			zap.String("sender", msg.SenderAddress()),
		)
		if err := m.store.SaveMessage(ctx, msg); err != nil {
			return nil, eris.Wrap(err, "inbox: save unmatched message")
		}
		return nil, nil
	}

	usable := usableAttachments(msg.Attachments)
	now := time.Now().UTC()

	if len(usable) == 0 {
		req.Status = model.StatusReplied
		req.ReplyReceivedAt = &now
		req.ReplySnippet = snippet(msg.Body)
	} else {
		req.Status = model.StatusReceived
		req.ReplyReceivedAt = &now
		req.ReplySnippet = snippet(msg.Body)
		req.AttachmentPaths = attachmentPaths(usable)
	}

	if err := m.store.UpdateRequest(ctx, req); err != nil {
		return nil, eris.Wrapf(err, "inbox: update request %s", req.ID)
	}

	msg.MatchedRequestID = req.ID
	if err := m.store.SaveMessage(ctx, msg); err != nil {
		return nil, eris.Wrap(err, "inbox: save message")
	}

	zap.L().Info("inbox: reply matched",
		zap.String("message_id", msg.ID),
		zap.String("request_id", req.ID),
		zap.String("supplier_id", req.SupplierID),
		zap.String("status", string(req.Status)),
		zap.Int("attachments", len(usable)),
	)

	// Loop closure: documents sent in reply go straight back through
	// ingestion so the next rescore sees them.
	if req.Status == model.StatusReceived && m.reingest != nil {
		for _, att := range usable {
			if err := m.reingest(ctx, req.SupplierID, att); err != nil {
				zap.L().Error("inbox: re-ingest attachment failed",
					zap.String("request_id", req.ID),
					zap.String("filename", att.Filename),
					zap.Error(err),
				)
			}
		}
	}
	return req, nil
}

// match finds the open request the message replies to. The sender address
// is compared case-insensitively; when several requests await a reply from
// the same address the most recently dispatched one wins.
func (m *Matcher) match(ctx context.Context, msg *model.InboundMessage) (*model.FollowupRequest, error) {
	sender := msg.SenderAddress()
	if sender == "" {
		return nil, nil
	}

	open, err := m.store.OpenAwaitingReply(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "inbox: list awaiting requests")
	}

	var candidates []model.FollowupRequest
	for _, r := range open {
		if strings.EqualFold(strings.TrimSpace(r.Address), sender) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := candidates[0]
	for _, r := range candidates[1:] {
		if sentAfter(r, best) {
			best = r
		}
	}

	if len(candidates) > 1 {
		zap.L().Warn("inbox: ambiguous reply match, picking most recent",
			zap.String("message_id", msg.ID),
			zap.String("sender", sender),
			zap.Int("candidates", len(candidates)),
			zap.String("request_id", best.ID),
		)
	}
	return &best, nil
}

func sentAfter(a, b model.FollowupRequest) bool {
	if a.SentAt == nil {
		return false
	}
	if b.SentAt == nil {
		return true
	}
	return a.SentAt.After(*b.SentAt)
}

func usableAttachments(atts []model.Attachment) []model.Attachment {
	var out []model.Attachment
	for _, a := range atts {
		ext := strings.ToLower(filepath.Ext(a.Filename))
		if ingestableExtensions[ext] {
			out = append(out, a)
		}
	}
	return out
}

func attachmentPaths(atts []model.Attachment) []string {
	paths := make([]string, 0, len(atts))
	for _, a := range atts {
		if a.Path != "" {
			paths = append(paths, a.Path)
			continue
		}
		paths = append(paths, a.Filename)
	}
	return paths
}

func snippet(body string) string {
	s := strings.TrimSpace(body)
	if len(s) <= snippetLimit {
		return s
	}
	// Cut on a rune boundary so multibyte replies stay valid UTF-8.
	cut := snippetLimit
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
