// Package followup plans and dispatches automated data requests to
// suppliers. Planning turns a completeness report into at most one
// scheduled request; the sweep sends due requests, re-arms unanswered ones
// and closes out requests that hit the attempt cap.
package followup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wedealize/sourcing-engine/internal/config"
	"github.com/wedealize/sourcing-engine/internal/mailer"
	"github.com/wedealize/sourcing-engine/internal/model"
	"github.com/wedealize/sourcing-engine/internal/store"
)

// Planner creates and dispatches follow-up requests.
type Planner struct {
	store   store.Store
	catalog *model.Catalog
	cfg     config.FollowupConfig
	sender  mailer.Sender
	limiter *rate.Limiter

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Planner. ratePerSec paces outbound sends during sweeps.
func New(st store.Store, catalog *model.Catalog, cfg config.FollowupConfig, sender mailer.Sender, ratePerSec float64) *Planner {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	return &Planner{
		store:   st,
		catalog: catalog,
		cfg:     cfg,
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		locks:   make(map[string]*sync.Mutex),
	}
}

// supplierLock serializes planning per supplier so the one-open-request-
// per-tier invariant holds under concurrent scoring.
func (p *Planner) supplierLock(supplierID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[supplierID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[supplierID] = l
	}
	return l
}

// Plan turns a completeness report into at most one scheduled follow-up
// request. Required-field gaps take precedence; when none exist, up to
// three MEDIUM-tier gaps are bundled instead. Returns (nil, nil) when no
// follow-up is warranted.
func (p *Planner) Plan(ctx context.Context, supplier *model.Supplier, report *model.CompletenessReport) (*model.FollowupRequest, error) {
	eligible := eligibleGroups(report.Missing)
	if len(eligible) == 0 {
		zap.L().Info("followup: no follow-up needed",
			zap.String("supplier_id", supplier.ID),
			zap.Float64("score", report.Score),
		)
		return nil, nil
	}

	lock := p.supplierLock(supplier.ID)
	lock.Lock()
	defer lock.Unlock()

	count, err := p.store.CountRequests(ctx, supplier.ID)
	if err != nil {
		return nil, eris.Wrap(err, "followup: count requests")
	}
	if count >= p.cfg.MaxRequests {
		zap.L().Info("followup: max request count reached",
			zap.String("supplier_id", supplier.ID),
			zap.Int("count", count),
		)
		return nil, nil
	}

	tier := eligible[0].Tier

	open, err := p.store.ListOpenRequests(ctx, supplier.ID)
	if err != nil {
		return nil, eris.Wrap(err, "followup: list open requests")
	}
	for _, r := range open {
		if r.Tier == tier {
			zap.L().Info("followup: open request exists for tier, skipping",
				zap.String("supplier_id", supplier.ID),
				zap.String("tier", string(tier)),
				zap.String("open_request_id", r.ID),
			)
			return nil, nil
		}
	}

	locale := negotiateLocale(supplier.Locale)
	if supplier.Locale == "" {
		locale = negotiateLocale(p.cfg.DefaultLocale)
	}
	subject, body := renderInitial(supplier.Name, eligible, p.catalog, locale)

	now := time.Now().UTC()
	req := &model.FollowupRequest{
		ID:          uuid.NewString(),
		SupplierID:  supplier.ID,
		Address:     supplier.Email,
		Tier:        tier,
		Channel:     "email",
		Groups:      eligible,
		Locale:      locale,
		Subject:     subject,
		Message:     body,
		Status:      model.StatusScheduled,
		ScheduledAt: now.Add(p.cfg.Interval(string(tier))),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.store.CreateRequest(ctx, req); err != nil {
		return nil, eris.Wrap(err, "followup: create request")
	}

	zap.L().Info("followup: request scheduled",
		zap.String("supplier_id", supplier.ID),
		zap.String("request_id", req.ID),
		zap.String("tier", string(tier)),
		zap.Time("scheduled_at", req.ScheduledAt),
		zap.Int("groups", len(eligible)),
	)
	return req, nil
}

// eligibleGroups selects which gaps to chase: all required-field groups, or
// up to three MEDIUM-tier groups when every required field is covered.
// Groups arrive in report order (tier, then affected count), which is
// preserved.
func eligibleGroups(groups []model.MissingFieldGroup) []model.MissingFieldGroup {
	var required []model.MissingFieldGroup
	for _, g := range groups {
		if g.Count > 0 && g.Required {
			required = append(required, g)
		}
	}
	if len(required) > 0 {
		return required
	}

	var medium []model.MissingFieldGroup
	for _, g := range groups {
		if g.Count > 0 && g.Tier == model.TierMedium {
			medium = append(medium, g)
			if len(medium) == 3 {
				break
			}
		}
	}
	return medium
}
