package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/wedealize/sourcing-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS suppliers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	locale     TEXT NOT NULL DEFAULT 'en',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	supplier_id TEXT NOT NULL REFERENCES suppliers(id),
	document_id TEXT NOT NULL,
	source_ref  TEXT NOT NULL,
	record      TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	UNIQUE(supplier_id, document_id, source_ref)
);

CREATE TABLE IF NOT EXISTS reports (
	supplier_id  TEXT PRIMARY KEY REFERENCES suppliers(id),
	report       TEXT NOT NULL,
	generated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS requests (
	id            TEXT PRIMARY KEY,
	supplier_id   TEXT NOT NULL REFERENCES suppliers(id),
	address       TEXT NOT NULL,
	tier          TEXT NOT NULL,
	status        TEXT NOT NULL,
	scheduled_at  DATETIME NOT NULL,
	sent_at       DATETIME,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	payload       TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id                 TEXT PRIMARY KEY,
	sender             TEXT NOT NULL,
	matched_request_id TEXT,
	payload            TEXT NOT NULL,
	received_at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_supplier ON products(supplier_id);
CREATE INDEX IF NOT EXISTS idx_requests_supplier ON requests(supplier_id);
CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
CREATE INDEX IF NOT EXISTS idx_requests_scheduled ON requests(status, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSupplier(ctx context.Context, supplier *model.Supplier) error {
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO suppliers (id, name, email, locale, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email, locale = excluded.locale`,
		supplier.ID, supplier.Name, supplier.Email, supplier.Locale, supplier.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: save supplier %s", supplier.ID)
}

func (s *SQLiteStore) GetSupplier(ctx context.Context, id string) (*model.Supplier, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, locale, created_at FROM suppliers WHERE id = ?`, id,
	)
	var sup model.Supplier
	err := row.Scan(&sup.ID, &sup.Name, &sup.Email, &sup.Locale, &sup.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("supplier not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get supplier %s", id)
	}
	return &sup, nil
}

func (s *SQLiteStore) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, locale, created_at FROM suppliers ORDER BY created_at`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list suppliers")
	}
	defer rows.Close()

	var suppliers []model.Supplier
	for rows.Next() {
		var sup model.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Email, &sup.Locale, &sup.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan supplier")
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, eris.Wrap(rows.Err(), "sqlite: list suppliers iterate")
}

func (s *SQLiteStore) UpsertProducts(ctx context.Context, products []model.ProductRecord) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert products begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO products (id, supplier_id, document_id, source_ref, record, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(supplier_id, document_id, source_ref) DO UPDATE SET
		   id = excluded.id, record = excluded.record, updated_at = excluded.updated_at`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert products prepare")
	}
	defer stmt.Close()

	for i := range products {
		p := &products[i]
		recordJSON, err := json.Marshal(p)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal product %s", p.ID)
		}
		_, err = stmt.ExecContext(ctx,
			p.ID, p.SupplierID, p.Provenance.DocumentID, p.Provenance.SourceRef,
			string(recordJSON), p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert product %s", p.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: upsert products commit")
}

func (s *SQLiteStore) ListProducts(ctx context.Context, supplierID string) ([]model.ProductRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM products WHERE supplier_id = ? ORDER BY document_id, source_ref`,
		supplierID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list products %s", supplierID)
	}
	defer rows.Close()

	var products []model.ProductRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product")
		}
		var p model.ProductRecord
		if err := json.Unmarshal([]byte(recordJSON), &p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal product")
		}
		products = append(products, p)
	}
	return products, eris.Wrap(rows.Err(), "sqlite: list products iterate")
}

func (s *SQLiteStore) SaveReport(ctx context.Context, report *model.CompletenessReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (supplier_id, report, generated_at) VALUES (?, ?, ?)
		 ON CONFLICT(supplier_id) DO UPDATE SET report = excluded.report, generated_at = excluded.generated_at`,
		report.SupplierID, string(reportJSON), report.GeneratedAt,
	)
	return eris.Wrapf(err, "sqlite: save report %s", report.SupplierID)
}

func (s *SQLiteStore) GetReport(ctx context.Context, supplierID string) (*model.CompletenessReport, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT report FROM reports WHERE supplier_id = ?`, supplierID,
	)
	var reportJSON string
	err := row.Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", supplierID)
	}
	var report model.CompletenessReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal report")
	}
	return &report, nil
}

func (s *SQLiteStore) CreateRequest(ctx context.Context, req *model.FollowupRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal request")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO requests (id, supplier_id, address, tier, status, scheduled_at, sent_at, attempt_count, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.SupplierID, req.Address, string(req.Tier), string(req.Status),
		req.ScheduledAt, req.SentAt, req.AttemptCount, string(payload), req.CreatedAt, req.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: create request %s", req.ID)
}

func (s *SQLiteStore) UpdateRequest(ctx context.Context, req *model.FollowupRequest) error {
	req.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(req)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal request")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE requests SET status = ?, scheduled_at = ?, sent_at = ?, attempt_count = ?, payload = ?, updated_at = ?
		 WHERE id = ?`,
		string(req.Status), req.ScheduledAt, req.SentAt, req.AttemptCount,
		string(payload), req.UpdatedAt, req.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update request %s", req.ID)
	}
	return checkRowsAffected(res, "request", req.ID)
}

func (s *SQLiteStore) GetRequest(ctx context.Context, id string) (*model.FollowupRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM requests WHERE id = ?`, id)
	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("request not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get request %s", id)
	}
	return unmarshalRequest(payload)
}

func (s *SQLiteStore) ListRequests(ctx context.Context, supplierID string) ([]model.FollowupRequest, error) {
	return s.queryRequests(ctx,
		`SELECT payload FROM requests WHERE supplier_id = ? ORDER BY created_at`, supplierID)
}

func (s *SQLiteStore) ListOpenRequests(ctx context.Context, supplierID string) ([]model.FollowupRequest, error) {
	return s.queryRequests(ctx,
		`SELECT payload FROM requests
		 WHERE supplier_id = ? AND status IN ('scheduled', 'sent', 'followup_sent')
		 ORDER BY created_at`, supplierID)
}

func (s *SQLiteStore) CountRequests(ctx context.Context, supplierID string) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM requests WHERE supplier_id = ?`, supplierID,
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "sqlite: count requests %s", supplierID)
	}
	return n, nil
}

func (s *SQLiteStore) DueScheduled(ctx context.Context, now time.Time) ([]model.FollowupRequest, error) {
	return s.queryRequests(ctx,
		`SELECT payload FROM requests WHERE status = 'scheduled' AND scheduled_at <= ?
		 ORDER BY scheduled_at`, now)
}

func (s *SQLiteStore) StaleSent(ctx context.Context, before time.Time) ([]model.FollowupRequest, error) {
	return s.queryRequests(ctx,
		`SELECT payload FROM requests
		 WHERE status IN ('sent', 'followup_sent') AND sent_at IS NOT NULL AND sent_at <= ?
		 ORDER BY sent_at`, before)
}

func (s *SQLiteStore) RequestsUpdatedSince(ctx context.Context, since time.Time) ([]model.FollowupRequest, error) {
	return s.queryRequests(ctx,
		`SELECT payload FROM requests WHERE updated_at >= ? ORDER BY updated_at`, since)
}

func (s *SQLiteStore) OpenAwaitingReply(ctx context.Context) ([]model.FollowupRequest, error) {
	return s.queryRequests(ctx,
		`SELECT payload FROM requests WHERE status IN ('sent', 'followup_sent')
		 ORDER BY sent_at DESC`)
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *model.InboundMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal message")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, sender, matched_request_id, payload, received_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET matched_request_id = excluded.matched_request_id, payload = excluded.payload`,
		msg.ID, msg.SenderAddress(), nullable(msg.MatchedRequestID), string(payload), msg.ReceivedAt,
	)
	return eris.Wrapf(err, "sqlite: save message %s", msg.ID)
}

// helpers

func (s *SQLiteStore) queryRequests(ctx context.Context, query string, args ...any) ([]model.FollowupRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query requests")
	}
	defer rows.Close()

	var requests []model.FollowupRequest
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan request")
		}
		req, err := unmarshalRequest(payload)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, eris.Wrap(rows.Err(), "sqlite: query requests iterate")
}

func unmarshalRequest(payload string) (*model.FollowupRequest, error) {
	var req model.FollowupRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal request")
	}
	return &req, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
