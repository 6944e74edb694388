package ports

import (
	"context"

	"PublishGate/internal/domain"
)

// ContentRepository reads and mutates persisted content records.
type ContentRepository interface {
	Get(ctx context.Context, id string) (domain.ContentRecord, error)
	MarkPublished(ctx context.Context, id string, update domain.PublishUpdate) error
}

// CatalogRepository stores the derived cross-linking catalog, keyed by URL.
type CatalogRepository interface {
	UpsertCatalogEntry(ctx context.Context, entry domain.CatalogEntry) error
}

// IdentifierRegistry confirms that monetization identifiers exist in the data store.
type IdentifierRegistry interface {
	Exists(ctx context.Context, kind domain.IdentifierKind, id int64) (bool, error)
}

// PublishEndpoint sends one payload to the external publishing system.
type PublishEndpoint interface {
	Send(ctx context.Context, req domain.DispatchRequest) (domain.EndpointResponse, error)
}

// Pacer spaces consecutive dispatches to respect the endpoint's rate limits.
// Done marks the end of the dispatch released by the preceding Wait.
type Pacer interface {
	Wait(ctx context.Context) error
	Done()
}
