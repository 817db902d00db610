package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/wedealize/sourcing-engine/internal/db"
	"github.com/wedealize/sourcing-engine/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Tests use this with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS suppliers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	locale     TEXT NOT NULL DEFAULT 'en',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	supplier_id TEXT NOT NULL REFERENCES suppliers(id),
	document_id TEXT NOT NULL,
	source_ref  TEXT NOT NULL,
	record      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	UNIQUE(supplier_id, document_id, source_ref)
);

CREATE TABLE IF NOT EXISTS reports (
	supplier_id  TEXT PRIMARY KEY REFERENCES suppliers(id),
	report       JSONB NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS requests (
	id            TEXT PRIMARY KEY,
	supplier_id   TEXT NOT NULL REFERENCES suppliers(id),
	address       TEXT NOT NULL,
	tier          TEXT NOT NULL,
	status        TEXT NOT NULL,
	scheduled_at  TIMESTAMPTZ NOT NULL,
	sent_at       TIMESTAMPTZ,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	payload       JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id                 TEXT PRIMARY KEY,
	sender             TEXT NOT NULL,
	matched_request_id TEXT,
	payload            JSONB NOT NULL,
	received_at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_supplier ON products(supplier_id);
CREATE INDEX IF NOT EXISTS idx_requests_supplier ON requests(supplier_id);
CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
CREATE INDEX IF NOT EXISTS idx_requests_scheduled ON requests(status, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveSupplier(ctx context.Context, supplier *model.Supplier) error {
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO suppliers (id, name, email, locale, created_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, locale = EXCLUDED.locale`,
		supplier.ID, supplier.Name, supplier.Email, supplier.Locale, supplier.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: save supplier %s", supplier.ID)
}

func (s *PostgresStore) GetSupplier(ctx context.Context, id string) (*model.Supplier, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, email, locale, created_at FROM suppliers WHERE id = $1`, id,
	)
	var sup model.Supplier
	err := row.Scan(&sup.ID, &sup.Name, &sup.Email, &sup.Locale, &sup.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("supplier not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get supplier %s", id)
	}
	return &sup, nil
}

func (s *PostgresStore) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, locale, created_at FROM suppliers ORDER BY created_at`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list suppliers")
	}
	defer rows.Close()

	var suppliers []model.Supplier
	for rows.Next() {
		var sup model.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Email, &sup.Locale, &sup.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan supplier")
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, eris.Wrap(rows.Err(), "postgres: list suppliers iterate")
}

// UpsertProducts bulk-upserts through a temp table; one round trip per
// document instead of one per record.
func (s *PostgresStore) UpsertProducts(ctx context.Context, products []model.ProductRecord) error {
	if len(products) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(products))
	for i := range products {
		p := &products[i]
		recordJSON, err := json.Marshal(p)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal product %s", p.ID)
		}
		rows = append(rows, []any{
			p.ID, p.SupplierID, p.Provenance.DocumentID, p.Provenance.SourceRef,
			recordJSON, p.CreatedAt, p.UpdatedAt,
		})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "products",
		Columns:      []string{"id", "supplier_id", "document_id", "source_ref", "record", "created_at", "updated_at"},
		ConflictKeys: []string{"supplier_id", "document_id", "source_ref"},
		UpdateCols:   []string{"id", "record", "updated_at"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert products")
}

func (s *PostgresStore) ListProducts(ctx context.Context, supplierID string) ([]model.ProductRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM products WHERE supplier_id = $1 ORDER BY document_id, source_ref`,
		supplierID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list products %s", supplierID)
	}
	defer rows.Close()

	var products []model.ProductRecord
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product")
		}
		var p model.ProductRecord
		if err := json.Unmarshal(recordJSON, &p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal product")
		}
		products = append(products, p)
	}
	return products, eris.Wrap(rows.Err(), "postgres: list products iterate")
}

func (s *PostgresStore) SaveReport(ctx context.Context, report *model.CompletenessReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (supplier_id, report, generated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (supplier_id) DO UPDATE SET report = EXCLUDED.report, generated_at = EXCLUDED.generated_at`,
		report.SupplierID, reportJSON, report.GeneratedAt,
	)
	return eris.Wrapf(err, "postgres: save report %s", report.SupplierID)
}

func (s *PostgresStore) GetReport(ctx context.Context, supplierID string) (*model.CompletenessReport, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT report FROM reports WHERE supplier_id = $1`, supplierID,
	)
	var reportJSON []byte
	err := row.Scan(&reportJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", supplierID)
	}
	var report model.CompletenessReport
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal report")
	}
	return &report, nil
}

func (s *PostgresStore) CreateRequest(ctx context.Context, req *model.FollowupRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal request")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO requests (id, supplier_id, address, tier, status, scheduled_at, sent_at, attempt_count, payload, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.ID, req.SupplierID, req.Address, string(req.Tier), string(req.Status),
		req.ScheduledAt, req.SentAt, req.AttemptCount, payload, req.CreatedAt, req.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: create request %s", req.ID)
}

func (s *PostgresStore) UpdateRequest(ctx context.Context, req *model.FollowupRequest) error {
	req.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(req)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal request")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE requests SET status = $1, scheduled_at = $2, sent_at = $3, attempt_count = $4, payload = $5, updated_at = $6
		 WHERE id = $7`,
		string(req.Status), req.ScheduledAt, req.SentAt, req.AttemptCount, payload, req.UpdatedAt, req.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update request %s", req.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("request not found: %s", req.ID)
	}
	return nil
}

func (s *PostgresStore) GetRequest(ctx context.Context, id string) (*model.FollowupRequest, error) {
	row := s.pool.QueryRow(ctx, `SELECT payload FROM requests WHERE id = $1`, id)
	var payload []byte
	err := row.Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("request not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get request %s", id)
	}
	return unmarshalRequest(string(payload))
}

func (s *PostgresStore) ListRequests(ctx context.Context, supplierID string) ([]model.FollowupRequest, error) {
	return s.queryRequests(ctx,
		`SELECT payload FROM requests WHERE supplier_id = $1 ORDER BY created_at`, supplierID)
}

func (s *PostgresStore) ListOpenRequests(ctx context.Context, supplierID string) ([]model.FollowupRequest, error) {
	return s.queryRequests(ctx,
		`SELECT payload FROM requests
		 WHERE supplier_id = $1 AND status IN ('scheduled', 'sent', 'followup_sent')
		 ORDER BY created_at`, supplierID)
}

func (s *PostgresStore) CountRequests(ctx context.Context, supplierID string) (int, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM requests WHERE supplier_id = $1`, supplierID,
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "postgres: count requests %s", supplierID)
	}
	return n, nil
}

func (s *PostgresStore) DueScheduled(ctx context.Context, now time.Time) ([]model.FollowupRequest, error) {
	return s.queryRequests(ctx,
		`SELECT payload FROM requests WHERE status = 'scheduled' AND scheduled_at <= $1
		 ORDER BY scheduled_at`, now)
}

func (s *PostgresStore) StaleSent(ctx context.Context, before time.Time) ([]model.FollowupRequest, error) {
	return s.queryRequests(ctx,
		`SELECT payload FROM requests
		 WHERE status IN ('sent', 'followup_sent') AND sent_at IS NOT NULL AND sent_at <= $1
		 ORDER BY sent_at`, before)
}

func (s *PostgresStore) RequestsUpdatedSince(ctx context.Context, since time.Time) ([]model.FollowupRequest, error) {
	return s.queryRequests(ctx,
		`SELECT payload FROM requests WHERE updated_at >= $1 ORDER BY updated_at`, since)
}

func (s *PostgresStore) OpenAwaitingReply(ctx context.Context) ([]model.FollowupRequest, error) {
	return s.queryRequests(ctx,
		`SELECT payload FROM requests WHERE status IN ('sent', 'followup_sent')
		 ORDER BY sent_at DESC`)
}

func (s *PostgresStore) SaveMessage(ctx context.Context, msg *model.InboundMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal message")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO messages (id, sender, matched_request_id, payload, received_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET matched_request_id = EXCLUDED.matched_request_id, payload = EXCLUDED.payload`,
		msg.ID, msg.SenderAddress(), nullable(msg.MatchedRequestID), payload, msg.ReceivedAt,
	)
	return eris.Wrapf(err, "postgres: save message %s", msg.ID)
}

func (s *PostgresStore) queryRequests(ctx context.Context, query string, args ...any) ([]model.FollowupRequest, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query requests")
	}
	defer rows.Close()

	var requests []model.FollowupRequest
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan request")
		}
		req, err := unmarshalRequest(string(payload))
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, eris.Wrap(rows.Err(), "postgres: query requests iterate")
}
