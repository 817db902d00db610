package inbox

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedealize/sourcing-engine/internal/model"
	"github.com/wedealize/sourcing-engine/internal/store"
)

type reingested struct {
	SupplierID string
	Filename   string
}

func newTestMatcher(t *testing.T) (*Matcher, store.Store, *[]reingested) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	var calls []reingested
	m := New(st, func(ctx context.Context, supplierID string, att model.Attachment) error {
		calls = append(calls, reingested{SupplierID: supplierID, Filename: att.Filename})
		return nil
	})
	return m, st, &calls
}

func seedSentRequest(t *testing.T, st store.Store, address string, sentAt time.Time) *model.FollowupRequest {
	t.Helper()
	ctx := context.Background()
	sup := &model.Supplier{ID: uuid.NewString(), Name: "Supplier X", Email: address}
	require.NoError(t, st.SaveSupplier(ctx, sup))

	req := &model.FollowupRequest{
		ID:          uuid.NewString(),
		SupplierID:  sup.ID,
		Address:     address,
		Tier:        model.TierHigh,
		Status:      model.StatusSent,
		ScheduledAt: sentAt,
		SentAt:      &sentAt,
		CreatedAt:   sentAt,
		UpdatedAt:   sentAt,
	}
	require.NoError(t, st.CreateRequest(ctx, req))
	return req
}

func TestProcessTextReplyMarksReplied(t *testing.T) {
	m, st, calls := newTestMatcher(t)
	ctx := context.Background()
	req := seedSentRequest(t, st, "sales@supplierx.com", time.Now().UTC().Add(-time.Hour))

	msg := &model.InboundMessage{
		ID:         uuid.NewString(),
		Sender:     "sales@supplierx.com",
		Subject:    "Re: Product Information Request",
		Body:       "MOQ is 500 units for all items.",
		ReceivedAt: time.Now().UTC(),
	}
	got, err := m.Process(ctx, msg)
	require.NoError(t, err)
	require.NotNil(t, got)

	stored, err := st.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReplied, stored.Status)
	require.NotNil(t, stored.ReplyReceivedAt)
	assert.Equal(t, "MOQ is 500 units for all items.", stored.ReplySnippet)
	assert.Empty(t, stored.AttachmentPaths)
	assert.Equal(t, req.ID, msg.MatchedRequestID)
	assert.Empty(t, *calls)
}

func TestProcessAttachmentReplyReingests(t *testing.T) {
	m, st, calls := newTestMatcher(t)
	ctx := context.Background()
	req := seedSentRequest(t, st, "sales@supplierx.com", time.Now().UTC().Add(-time.Hour))

	msg := &model.InboundMessage{
		ID:     uuid.NewString(),
		Sender: "Supplier X <sales@supplierx.com>",
		Body:   "Updated catalog attached.",
		Attachments: []model.Attachment{
			{Filename: "catalog_v2.xlsx", Path: "/inbox/catalog_v2.xlsx"},
			{Filename: "signature.png"},
		},
		ReceivedAt: time.Now().UTC(),
	}
	got, err := m.Process(ctx, msg)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StatusReceived, got.Status)

	stored, err := st.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReceived, stored.Status)
	assert.Equal(t, []string{"/inbox/catalog_v2.xlsx"}, stored.AttachmentPaths)

	// Only the spreadsheet goes back through ingestion, not the signature.
	require.Len(t, *calls, 1)
	assert.Equal(t, req.SupplierID, (*calls)[0].SupplierID)
	assert.Equal(t, "catalog_v2.xlsx", (*calls)[0].Filename)
}

func TestProcessMatchesCaseInsensitively(t *testing.T) {
	m, st, _ := newTestMatcher(t)
	ctx := context.Background()
	req := seedSentRequest(t, st, "Sales@SupplierX.com", time.Now().UTC().Add(-time.Hour))

	msg := &model.InboundMessage{
		ID:         uuid.NewString(),
		Sender:     "SALES@supplierx.COM",
		Body:       "reply",
		ReceivedAt: time.Now().UTC(),
	}
	got, err := m.Process(ctx, msg)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, req.ID, got.ID)
}

func TestProcessAmbiguousMatchPicksMostRecent(t *testing.T) {
	m, st, _ := newTestMatcher(t)
	ctx := context.Background()
	now := time.Now().UTC()
	older := seedSentRequest(t, st, "sales@supplierx.com", now.Add(-48*time.Hour))
	newer := seedSentRequest(t, st, "sales@supplierx.com", now.Add(-time.Hour))

	msg := &model.InboundMessage{
		ID:         uuid.NewString(),
		Sender:     "sales@supplierx.com",
		Body:       "reply",
		ReceivedAt: now,
	}
	got, err := m.Process(ctx, msg)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)

	// Only the matched request changes state.
	other, err := st.GetRequest(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, other.Status)
}

func TestProcessUnmatchedStoresMessage(t *testing.T) {
	m, st, _ := newTestMatcher(t)
	ctx := context.Background()
	req := seedSentRequest(t, st, "sales@supplierx.com", time.Now().UTC().Add(-time.Hour))

	msg := &model.InboundMessage{
		ID:         uuid.NewString(),
		Sender:     "unknown@elsewhere.com",
		Body:       "wrong address",
		ReceivedAt: time.Now().UTC(),
	}
	got, err := m.Process(ctx, msg)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, msg.MatchedRequestID)

	stored, err := st.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, stored.Status)
}

func TestProcessSnippetTruncated(t *testing.T) {
	m, st, _ := newTestMatcher(t)
	ctx := context.Background()
	req := seedSentRequest(t, st, "sales@supplierx.com", time.Now().UTC().Add(-time.Hour))

	msg := &model.InboundMessage{
		ID:         uuid.NewString(),
		Sender:     "sales@supplierx.com",
		Body:       strings.Repeat("a", 800),
		ReceivedAt: time.Now().UTC(),
	}
	_, err := m.Process(ctx, msg)
	require.NoError(t, err)

	stored, err := st.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, stored.ReplySnippet, 500)
}

func TestSnippetRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", 499) + "한글"
	s := snippet(body)
	assert.LessOrEqual(t, len(s), 500)
	assert.Equal(t, strings.Repeat("a", 499), s)
}

func TestProcessBatchCounts(t *testing.T) {
	m, st, _ := newTestMatcher(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedSentRequest(t, st, "a@supplier.com", now.Add(-time.Hour))
	seedSentRequest(t, st, "b@supplier.com", now.Add(-time.Hour))

	msgs := []model.InboundMessage{
		{ID: uuid.NewString(), Sender: "a@supplier.com", Body: "text only", ReceivedAt: now},
		{ID: uuid.NewString(), Sender: "b@supplier.com", Body: "file", ReceivedAt: now,
			Attachments: []model.Attachment{{Filename: "prices.csv", Path: "/inbox/prices.csv"}}},
		{ID: uuid.NewString(), Sender: "nobody@elsewhere.com", Body: "spam", ReceivedAt: now},
	}
	stats, err := m.ProcessBatch(ctx, msgs)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Replied)
	assert.Equal(t, 1, stats.Received)
	assert.Equal(t, 1, stats.Unmatched)
	assert.Equal(t, 0, stats.Failed)
}

func TestProcessBatchInterruptible(t *testing.T) {
	m, st, _ := newTestMatcher(t)
	seedSentRequest(t, st, "a@supplier.com", time.Now().UTC().Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.ProcessBatch(ctx, []model.InboundMessage{
		{ID: uuid.NewString(), Sender: "a@supplier.com", Body: "text"},
	})
	require.Error(t, err)
}
