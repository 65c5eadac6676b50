package schema

import (
	"context"
	"sync"

	"github.com/teleskop/fieldbridge/errors"
	"github.com/teleskop/fieldbridge/logger"
)

// CatalogProvider supplies the ordered field list a provider declares for a
// project. The order is stable within a session.
type CatalogProvider interface {
	FieldCatalog(ctx context.Context, providerID, projectID string) ([]Field, error)
}

// RecordSource fetches one raw record from a provider. Failures are
// distinguished with errors.ErrRecordNotFound and errors.ErrTransientIO.
type RecordSource interface {
	RawRecord(ctx context.Context, providerID, recordID string) (Record, error)
}

// Catalog is a provider's field list for one project, fetched once per
// mapping/preview session.
type Catalog struct {
	ProviderID string  `json:"provider_id"`
	ProjectID  string  `json:"project_id"`
	Fields     []Field `json:"fields"` // declaration order as supplied by the provider
}

// Field returns the catalog field with the given id
func (c *Catalog) Field(id string) (Field, bool) {
	return FieldByID(c.Fields, id)
}

// Required returns the required fields in declaration order
func (c *Catalog) Required() []Field {
	return RequiredFields(c.Fields)
}

type catalogKey struct {
	providerID string
	projectID  string
}

// CatalogCache caches field catalogs per (provider, project) pair.
// Catalogs are read-only for the lifetime of a session; a pair is refetched
// only after Invalidate, which the session calls when the pair changes.
// Fetch failures are not cached, so a failed provider can be retried.
type CatalogCache struct {
	provider CatalogProvider
	mu       sync.RWMutex
	catalogs map[catalogKey]*Catalog
}

// NewCatalogCache creates a catalog cache over the given provider
func NewCatalogCache(provider CatalogProvider) *CatalogCache {
	return &CatalogCache{
		provider: provider,
		catalogs: make(map[catalogKey]*Catalog),
	}
}

// Get returns the catalog for the pair, fetching it on first use.
// A fetch failure is reported as ErrCatalogUnavailable and blocks mapping
// operations for the affected provider until a later Get succeeds.
func (cc *CatalogCache) Get(ctx context.Context, providerID, projectID string) (*Catalog, error) {
	key := catalogKey{providerID, projectID}

	cc.mu.RLock()
	cached, ok := cc.catalogs[key]
	cc.mu.RUnlock()
	if ok {
		return cached, nil
	}

	fields, err := cc.provider.FieldCatalog(ctx, providerID, projectID)
	if err != nil {
		logger.Warnw("Field catalog fetch failed",
			"provider", providerID,
			"project", projectID,
			"error", err)
		return nil, errors.Wrapf(errors.ErrCatalogUnavailable, "provider %s project %s: %v", providerID, projectID, err)
	}

	catalog := &Catalog{
		ProviderID: providerID,
		ProjectID:  projectID,
		Fields:     fields,
	}

	cc.mu.Lock()
	// Another fetch may have won the race; keep the first committed catalog
	// so the session sees one stable field order.
	if existing, ok := cc.catalogs[key]; ok {
		cc.mu.Unlock()
		return existing, nil
	}
	cc.catalogs[key] = catalog
	cc.mu.Unlock()

	logger.Debugw("Field catalog cached",
		"provider", providerID,
		"project", projectID,
		"fields", len(fields))
	return catalog, nil
}

// Invalidate drops the cached catalog for a pair so the next Get refetches
func (cc *CatalogCache) Invalidate(providerID, projectID string) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	delete(cc.catalogs, catalogKey{providerID, projectID})
}
