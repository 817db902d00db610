package followup

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wedealize/sourcing-engine/internal/model"
	"github.com/wedealize/sourcing-engine/internal/resilience"
)

// sendTimeout bounds a single SMTP conversation during a sweep.
const sendTimeout = 30 * time.Second

// SweepStats summarizes one sweep pass.
type SweepStats struct {
	Sent       int `json:"sent"`
	FollowedUp int `json:"followed_up"`
	Closed     int `json:"closed"`
	Failed     int `json:"failed"`
}

// Sweep runs one pass of the externally triggered cadence: dispatch due
// scheduled requests, re-arm unanswered ones past the response timeout, and
// close requests that exhausted their attempts. Failures are isolated per
// request; the pass continues. The context is checked between requests so a
// sweep can be interrupted without leaving a request half-updated.
func (p *Planner) Sweep(ctx context.Context, now time.Time) (SweepStats, error) {
	var stats SweepStats

	due, err := p.store.DueScheduled(ctx, now)
	if err != nil {
		return stats, eris.Wrap(err, "followup: list due requests")
	}
	for i := range due {
		if err := ctx.Err(); err != nil {
			return stats, eris.Wrap(err, "followup: sweep interrupted")
		}
		if p.dispatchDue(ctx, &due[i], now) {
			stats.Sent++
		} else {
			stats.Failed++
		}
	}

	stale, err := p.store.StaleSent(ctx, now.Add(-p.cfg.ResponseTimeout()))
	if err != nil {
		return stats, eris.Wrap(err, "followup: list stale requests")
	}
	for i := range stale {
		if err := ctx.Err(); err != nil {
			return stats, eris.Wrap(err, "followup: sweep interrupted")
		}
		switch p.handleStale(ctx, &stale[i], now) {
		case staleFollowedUp:
			stats.FollowedUp++
		case staleClosed:
			stats.Closed++
		case staleFailed:
			stats.Failed++
		}
	}

	zap.L().Info("followup: sweep complete",
		zap.Int("sent", stats.Sent),
		zap.Int("followed_up", stats.FollowedUp),
		zap.Int("closed", stats.Closed),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// dispatchDue sends a scheduled request. On send failure the request is
// marked FAILED with the error preserved; the sweep moves on.
func (p *Planner) dispatchDue(ctx context.Context, req *model.FollowupRequest, now time.Time) bool {
	messageID, err := p.send(ctx, req.Address, req.Subject, req.Message)
	if err != nil {
		zap.L().Error("followup: send failed",
			zap.String("request_id", req.ID),
			zap.String("address", req.Address),
			zap.Error(err),
		)
		req.Status = model.StatusFailed
		req.Error = err.Error()
		if uerr := p.store.UpdateRequest(ctx, req); uerr != nil {
			zap.L().Error("followup: mark failed", zap.String("request_id", req.ID), zap.Error(uerr))
		}
		return false
	}

	sentAt := now
	req.Status = model.StatusSent
	req.SentAt = &sentAt
	req.ProviderMessageID = messageID
	req.Error = ""
	if err := p.store.UpdateRequest(ctx, req); err != nil {
		zap.L().Error("followup: mark sent", zap.String("request_id", req.ID), zap.Error(err))
		return false
	}
	return true
}

type staleOutcome int

const (
	staleFollowedUp staleOutcome = iota
	staleClosed
	staleFailed
)

// handleStale re-arms an unanswered request with a reminder, or closes it
// once the attempt cap is reached.
func (p *Planner) handleStale(ctx context.Context, req *model.FollowupRequest, now time.Time) staleOutcome {
	if req.AttemptCount >= model.MaxFollowupAttempts {
		req.Status = model.StatusClosed
		if err := p.store.UpdateRequest(ctx, req); err != nil {
			zap.L().Error("followup: close request", zap.String("request_id", req.ID), zap.Error(err))
			return staleFailed
		}
		zap.L().Info("followup: request closed after max attempts",
			zap.String("request_id", req.ID),
			zap.String("supplier_id", req.SupplierID),
		)
		return staleClosed
	}

	supplier, err := p.store.GetSupplier(ctx, req.SupplierID)
	if err != nil {
		zap.L().Error("followup: load supplier", zap.String("request_id", req.ID), zap.Error(err))
		return staleFailed
	}

	subject, body := renderNoResponse(supplier.Name, req.Locale)
	if _, err := p.send(ctx, req.Address, subject, body); err != nil {
		zap.L().Error("followup: reminder send failed",
			zap.String("request_id", req.ID),
			zap.Error(err),
		)
		return staleFailed
	}

	sentAt := now
	req.Status = model.StatusFollowupSent
	req.SentAt = &sentAt
	req.AttemptCount++
	if err := p.store.UpdateRequest(ctx, req); err != nil {
		zap.L().Error("followup: mark followed up", zap.String("request_id", req.ID), zap.Error(err))
		return staleFailed
	}
	return staleFollowedUp
}

// send paces by the shared limiter and retries transient failures within a
// bounded window.
func (p *Planner) send(ctx context.Context, to, subject, body string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "followup: rate limit wait")
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("mailer", "send followup")

	return resilience.DoVal(sendCtx, retryCfg, func(ctx context.Context) (string, error) {
		return p.sender.Send(ctx, to, subject, body, "")
	})
}
