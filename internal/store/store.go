// Package store persists suppliers, extracted products, completeness
// reports, follow-up requests and inbound messages. Two backends implement
// the same interface: SQLite for single-operator use and PostgreSQL for
// shared deployments.
package store

import (
	"context"
	"time"

	"github.com/wedealize/sourcing-engine/internal/model"
)

// Store defines the persistence interface for the sourcing pipeline.
type Store interface {
	// Suppliers
	SaveSupplier(ctx context.Context, supplier *model.Supplier) error
	GetSupplier(ctx context.Context, id string) (*model.Supplier, error)
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)

	// Products. Upserts key on (supplier, document, source ref) so
	// re-ingesting a document supersedes its earlier records.
	UpsertProducts(ctx context.Context, products []model.ProductRecord) error
	ListProducts(ctx context.Context, supplierID string) ([]model.ProductRecord, error)

	// Reports, latest per supplier wins.
	SaveReport(ctx context.Context, report *model.CompletenessReport) error
	GetReport(ctx context.Context, supplierID string) (*model.CompletenessReport, error)

	// Follow-up requests
	CreateRequest(ctx context.Context, req *model.FollowupRequest) error
	UpdateRequest(ctx context.Context, req *model.FollowupRequest) error
	GetRequest(ctx context.Context, id string) (*model.FollowupRequest, error)
	ListRequests(ctx context.Context, supplierID string) ([]model.FollowupRequest, error)
	ListOpenRequests(ctx context.Context, supplierID string) ([]model.FollowupRequest, error)
	CountRequests(ctx context.Context, supplierID string) (int, error)
	DueScheduled(ctx context.Context, now time.Time) ([]model.FollowupRequest, error)
	StaleSent(ctx context.Context, before time.Time) ([]model.FollowupRequest, error)
	RequestsUpdatedSince(ctx context.Context, since time.Time) ([]model.FollowupRequest, error)
	OpenAwaitingReply(ctx context.Context) ([]model.FollowupRequest, error)

	// Inbound messages
	SaveMessage(ctx context.Context, msg *model.InboundMessage) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New opens the configured backend.
func New(ctx context.Context, driver, url string) (Store, error) {
	if driver == "postgres" {
		return NewPostgres(ctx, url)
	}
	return NewSQLite(url)
}
