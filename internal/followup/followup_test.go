package followup

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedealize/sourcing-engine/internal/config"
	"github.com/wedealize/sourcing-engine/internal/model"
	"github.com/wedealize/sourcing-engine/internal/store"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMail
	failFor map[string]error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[to]; ok {
		return "", err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: textBody})
	return uuid.NewString(), nil
}

func testFollowupConfig() config.FollowupConfig {
	return config.FollowupConfig{
		HighIntervalDays:    3,
		MediumIntervalDays:  7,
		LowIntervalDays:     14,
		MaxRequests:         3,
		ResponseTimeoutDays: 5,
		DefaultLocale:       "en",
	}
}

func newTestPlanner(t *testing.T) (*Planner, store.Store, *fakeSender) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	sender := &fakeSender{failFor: map[string]error{}}
	p := New(st, model.DefaultCatalog(), testFollowupConfig(), sender, 1000)
	return p, st, sender
}

func seedSupplier(t *testing.T, st store.Store, locale string) *model.Supplier {
	t.Helper()
	sup := &model.Supplier{
		ID:     "sup-1",
		Name:   "Oleificio Ferrara",
		Email:  "sales@supplierx.com",
		Locale: locale,
	}
	require.NoError(t, st.SaveSupplier(context.Background(), sup))
	return sup
}

func highReport() *model.CompletenessReport {
	return &model.CompletenessReport{
		SupplierID: "sup-1",
		Score:      45,
		Missing: []model.MissingFieldGroup{
			{Field: model.FieldMOQ, Tier: model.TierHigh, Required: true, Count: 10, ProductNames: []string{"Olive Oil", "Green Tea"}},
			{Field: model.FieldPrice, Tier: model.TierHigh, Required: true, Count: 8},
			{Field: model.FieldImages, Tier: model.TierMedium, Count: 4},
		},
	}
}

func mediumReport() *model.CompletenessReport {
	return &model.CompletenessReport{
		SupplierID: "sup-1",
		Score:      74,
		Missing: []model.MissingFieldGroup{
			{Field: model.FieldCertifications, Tier: model.TierMedium, Count: 6},
			{Field: model.FieldImages, Tier: model.TierMedium, Count: 5},
			{Field: model.FieldSpecifications, Tier: model.TierMedium, Count: 3},
			{Field: model.FieldLeadTime, Tier: model.TierMedium, Count: 2},
			{Field: model.FieldHSCode, Tier: model.TierLow, Count: 1},
		},
	}
}

func TestPlanHighTierSchedule(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	sup := seedSupplier(t, p.store, "en")

	before := time.Now().UTC()
	req, err := p.Plan(context.Background(), sup, highReport())
	require.NoError(t, err)
	require.NotNil(t, req)

	assert.Equal(t, model.TierHigh, req.Tier)
	assert.Equal(t, model.StatusScheduled, req.Status)
	assert.Len(t, req.Groups, 2) // required groups only

	// HIGH tier schedules three days out.
	want := before.Add(3 * 24 * time.Hour)
	assert.WithinDuration(t, want, req.ScheduledAt, time.Minute)

	assert.Contains(t, req.Message, "Minimum Order Quantity")
	assert.Contains(t, req.Message, "Price Information")
	assert.Contains(t, req.Message, "Olive Oil")
}

func TestPlanMediumFallbackBundlesThree(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	sup := seedSupplier(t, p.store, "en")

	req, err := p.Plan(context.Background(), sup, mediumReport())
	require.NoError(t, err)
	require.NotNil(t, req)

	assert.Equal(t, model.TierMedium, req.Tier)
	assert.Len(t, req.Groups, 3)

	want := time.Now().UTC().Add(7 * 24 * time.Hour)
	assert.WithinDuration(t, want, req.ScheduledAt, time.Minute)
}

func TestPlanNoGapsNoRequest(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	sup := seedSupplier(t, p.store, "en")

	req, err := p.Plan(context.Background(), sup, &model.CompletenessReport{SupplierID: "sup-1", Score: 100})
	require.NoError(t, err)
	assert.Nil(t, req)
}

func TestPlanOpenRequestSameTierIsNoOp(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	sup := seedSupplier(t, p.store, "en")
	ctx := context.Background()

	first, err := p.Plan(ctx, sup, highReport())
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := p.Plan(ctx, sup, highReport())
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestPlanMaxRequestCount(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	sup := seedSupplier(t, st, "en")
	ctx := context.Background()

	// Three closed-out requests exhaust the per-supplier cap.
	for i := 0; i < 3; i++ {
		req := &model.FollowupRequest{
			ID:          uuid.NewString(),
			SupplierID:  sup.ID,
			Address:     sup.Email,
			Tier:        model.TierHigh,
			Status:      model.StatusClosed,
			ScheduledAt: time.Now().UTC(),
			CreatedAt:   time.Now().UTC(),
			UpdatedAt:   time.Now().UTC(),
		}
		require.NoError(t, st.CreateRequest(ctx, req))
	}

	got, err := p.Plan(ctx, sup, highReport())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPlanKoreanLocale(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	sup := seedSupplier(t, p.store, "ko-KR")

	req, err := p.Plan(context.Background(), sup, highReport())
	require.NoError(t, err)
	require.NotNil(t, req)

	assert.Equal(t, "ko", req.Locale)
	assert.Contains(t, req.Subject, "상품 정보 요청")
	assert.Contains(t, req.Message, "최소 주문 수량")
}

func TestSweepSendsDueRequests(t *testing.T) {
	p, st, sender := newTestPlanner(t)
	sup := seedSupplier(t, st, "en")
	ctx := context.Background()

	req, err := p.Plan(ctx, sup, highReport())
	require.NoError(t, err)
	require.NotNil(t, req)

	stats, err := p.Sweep(ctx, req.ScheduledAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "sales@supplierx.com", sender.sent[0].To)

	got, err := st.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	assert.NotEmpty(t, got.ProviderMessageID)
}

func TestSweepSkipsNotYetDue(t *testing.T) {
	p, _, sender := newTestPlanner(t)
	sup := seedSupplier(t, p.store, "en")
	ctx := context.Background()

	_, err := p.Plan(ctx, sup, highReport())
	require.NoError(t, err)

	stats, err := p.Sweep(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sent)
	assert.Empty(t, sender.sent)
}

func TestSweepSendFailureMarksFailed(t *testing.T) {
	p, st, sender := newTestPlanner(t)
	sup := seedSupplier(t, st, "en")
	ctx := context.Background()
	sender.failFor["sales@supplierx.com"] = errors.New("relay rejected")

	req, err := p.Plan(ctx, sup, highReport())
	require.NoError(t, err)

	stats, err := p.Sweep(ctx, req.ScheduledAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	got, err := st.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "relay rejected")
}

func TestSweepNoResponseRearm(t *testing.T) {
	p, st, sender := newTestPlanner(t)
	sup := seedSupplier(t, st, "en")
	ctx := context.Background()
	now := time.Now().UTC()

	sentAt := now.Add(-6 * 24 * time.Hour)
	req := &model.FollowupRequest{
		ID:          uuid.NewString(),
		SupplierID:  sup.ID,
		Address:     sup.Email,
		Tier:        model.TierHigh,
		Locale:      "en",
		Status:      model.StatusSent,
		ScheduledAt: sentAt,
		SentAt:      &sentAt,
		CreatedAt:   sentAt,
		UpdatedAt:   sentAt,
	}
	require.NoError(t, st.CreateRequest(ctx, req))

	stats, err := p.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FollowedUp)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "Follow-up")

	got, err := st.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFollowupSent, got.Status)
	assert.Equal(t, 1, got.AttemptCount)
	require.NotNil(t, got.SentAt)
	assert.WithinDuration(t, now, *got.SentAt, time.Minute)
}

func TestSweepClosesAtAttemptCap(t *testing.T) {
	p, st, sender := newTestPlanner(t)
	sup := seedSupplier(t, st, "en")
	ctx := context.Background()
	now := time.Now().UTC()

	sentAt := now.Add(-6 * 24 * time.Hour)
	req := &model.FollowupRequest{
		ID:           uuid.NewString(),
		SupplierID:   sup.ID,
		Address:      sup.Email,
		Tier:         model.TierHigh,
		Locale:       "en",
		Status:       model.StatusFollowupSent,
		ScheduledAt:  sentAt,
		SentAt:       &sentAt,
		AttemptCount: model.MaxFollowupAttempts,
		CreatedAt:    sentAt,
		UpdatedAt:    sentAt,
	}
	require.NoError(t, st.CreateRequest(ctx, req))

	stats, err := p.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Closed)
	assert.Empty(t, sender.sent)

	got, err := st.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, got.Status)
	assert.Equal(t, model.MaxFollowupAttempts, got.AttemptCount)
}

func TestSweepInterruptible(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	seedSupplier(t, st, "en")
	ctx, cancel := context.WithCancel(context.Background())

	req := &model.FollowupRequest{
		ID:          uuid.NewString(),
		SupplierID:  "sup-1",
		Address:     "sales@supplierx.com",
		Tier:        model.TierHigh,
		Status:      model.StatusScheduled,
		ScheduledAt: time.Now().UTC().Add(-time.Hour),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, st.CreateRequest(context.Background(), req))

	cancel()
	_, err := p.Sweep(ctx, time.Now().UTC())
	require.Error(t, err)

	got, err := st.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, got.Status)
}

func TestNegotiateLocale(t *testing.T) {
	assert.Equal(t, "en", negotiateLocale(""))
	assert.Equal(t, "en", negotiateLocale("en-US"))
	assert.Equal(t, "ko", negotiateLocale("ko"))
	assert.Equal(t, "ko", negotiateLocale("ko-KR"))
	assert.Equal(t, "en", negotiateLocale("fr"))
}

func TestRenderNoResponseKorean(t *testing.T) {
	subject, body := renderNoResponse("Oleificio Ferrara", "ko")
	assert.Contains(t, subject, "상품 정보 요청")
	assert.Contains(t, body, "Oleificio Ferrara 담당자님께")
}

func TestWeeklyStatsAggregation(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	ctx := context.Background()
	now := time.Now().UTC()
	sup := seedSupplier(t, st, "en")

	require.NoError(t, st.SaveReport(ctx, &model.CompletenessReport{
		SupplierID:  sup.ID,
		Score:       45,
		GeneratedAt: now.Add(-time.Hour),
		Missing: []model.MissingFieldGroup{
			{Field: model.FieldMOQ, Tier: model.TierHigh, Required: true, Count: 5},
			{Field: model.FieldImages, Tier: model.TierMedium, Count: 2},
		},
	}))

	// Stale report outside the window, not counted.
	stale := &model.Supplier{ID: "sup-2", Name: "Dormant Co", Email: "x@dormant.com"}
	require.NoError(t, st.SaveSupplier(ctx, stale))
	require.NoError(t, st.SaveReport(ctx, &model.CompletenessReport{
		SupplierID:  stale.ID,
		Score:       90,
		GeneratedAt: now.Add(-30 * 24 * time.Hour),
	}))

	inWindow := now.Add(-2 * 24 * time.Hour)
	outOfWindow := now.Add(-10 * 24 * time.Hour)

	initial := &model.FollowupRequest{
		ID: uuid.NewString(), SupplierID: sup.ID, Address: sup.Email,
		Tier: model.TierHigh, Status: model.StatusSent,
		ScheduledAt: inWindow, SentAt: &inWindow,
		CreatedAt: inWindow, UpdatedAt: inWindow,
	}
	require.NoError(t, st.CreateRequest(ctx, initial))

	reminder := &model.FollowupRequest{
		ID: uuid.NewString(), SupplierID: sup.ID, Address: sup.Email,
		Tier: model.TierMedium, Status: model.StatusFollowupSent,
		ScheduledAt: outOfWindow, SentAt: &inWindow, AttemptCount: 1,
		CreatedAt: outOfWindow, UpdatedAt: inWindow,
	}
	require.NoError(t, st.CreateRequest(ctx, reminder))

	replyAt := now.Add(-time.Hour)
	replied := &model.FollowupRequest{
		ID: uuid.NewString(), SupplierID: sup.ID, Address: sup.Email,
		Tier: model.TierLow, Status: model.StatusReplied,
		ScheduledAt: outOfWindow, SentAt: &outOfWindow, ReplyReceivedAt: &replyAt,
		CreatedAt: outOfWindow, UpdatedAt: replyAt,
	}
	require.NoError(t, st.CreateRequest(ctx, replied))

	stats, err := p.WeeklyStats(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ActiveSuppliers)
	assert.InDelta(t, 45.0, stats.AverageScore, 0.01)
	assert.Equal(t, 1, stats.LowScoreCount)
	assert.Equal(t, model.FieldMOQ, stats.MostMissingField)
	assert.Equal(t, 1, stats.RequestsSent)
	assert.Equal(t, 1, stats.FollowupsSent)
	assert.Equal(t, 1, stats.RepliesReceived)
	assert.InDelta(t, 50.0, stats.ResponseRate, 0.01)

	report := p.RenderAdminReport(stats)
	assert.Contains(t, report, "Weekly Data Quality Report")
	assert.Contains(t, report, "Most common missing field: Minimum Order Quantity")
	assert.Contains(t, report, "Response Rate: 50.0%")
}
