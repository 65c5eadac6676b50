// Package session hosts one mapping/preview session: a fixed pair of
// provider/project scopes, an active mapping set, and the preview
// machinery computed over them. It is the surface the presentation layer
// talks to; everything underneath is pure computation plus the two
// external fetch collaborators.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/teleskop/fieldbridge/batch"
	"github.com/teleskop/fieldbridge/errors"
	"github.com/teleskop/fieldbridge/logger"
	"github.com/teleskop/fieldbridge/mapping"
	"github.com/teleskop/fieldbridge/preview"
	"github.com/teleskop/fieldbridge/schema"
	"github.com/teleskop/fieldbridge/transform"
)

// Scope names one provider/project pair
type Scope struct {
	ProviderID string
	ProjectID  string
}

// Config assembles a session
type Config struct {
	Source     Scope
	Target     Scope
	Catalogs   schema.CatalogProvider
	Records    schema.RecordSource
	Dispatcher *transform.Dispatcher
	RecordIDs  []string      // ordered ids the batch orchestrator covers
	Mappings   mapping.Set   // initial active mapping set, may be nil
	PageSize   int           // batch page size (default 10)
	Prefetch   int           // batch prefetch window (default 2× page size)
	Limiter    *rate.Limiter // optional rate limit on record fetches
}

// Session is safe for concurrent use
type Session struct {
	id       string
	source   Scope
	target   Scope
	catalogs *schema.CatalogCache
	synth    *preview.Synthesizer
	orch     *batch.Orchestrator

	mu  sync.RWMutex
	set mapping.Set
}

// New creates a session. Catalogs are fetched lazily on first use and
// cached for the session's lifetime.
func New(cfg Config) *Session {
	s := &Session{
		id:       uuid.NewString(),
		source:   cfg.Source,
		target:   cfg.Target,
		catalogs: schema.NewCatalogCache(cfg.Catalogs),
		synth:    preview.NewSynthesizer(cfg.Records, cfg.Dispatcher),
		set:      cfg.Mappings.Clone(),
	}

	s.orch = batch.New(cfg.RecordIDs, s.computeForBatch, batch.Options{
		PageSize: cfg.PageSize,
		Prefetch: cfg.Prefetch,
		Limiter:  cfg.Limiter,
	})

	logger.Debugw("Session created",
		"session", s.id,
		"source", cfg.Source.ProviderID,
		"target", cfg.Target.ProviderID,
		"records", len(cfg.RecordIDs))
	return s
}

// ID returns the session's identifier
func (s *Session) ID() string {
	return s.id
}

// Mappings returns a copy of the active mapping set
func (s *Session) Mappings() mapping.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Clone()
}

// SetMappings replaces the active mapping set. Every preview the session
// produced is invalidated; the batch regenerates entries on the next page
// load, and in-flight fetches from before the change cannot commit.
func (s *Session) SetMappings(set mapping.Set) {
	s.mu.Lock()
	s.set = set.Clone()
	s.mu.Unlock()

	s.orch.Invalidate()
	logger.Debugw("Mapping set replaced; previews invalidated",
		"session", s.id,
		"mappings", len(set))
}

// scopes fetches both catalogs. A failed fetch surfaces as
// ErrCatalogUnavailable and blocks mapping operations for the affected
// provider until a later call succeeds.
func (s *Session) scopes(ctx context.Context) (source, target *schema.Catalog, err error) {
	source, err = s.catalogs.Get(ctx, s.source.ProviderID, s.source.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	target, err = s.catalogs.Get(ctx, s.target.ProviderID, s.target.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return source, target, nil
}

// RefreshCatalogs drops both cached catalogs and invalidates previews.
// Call when the provider/project pair's schema is known to have changed.
func (s *Session) RefreshCatalogs() {
	s.catalogs.Invalidate(s.source.ProviderID, s.source.ProjectID)
	s.catalogs.Invalidate(s.target.ProviderID, s.target.ProjectID)
	s.orch.Invalidate()
}

// ComputePreview synthesizes the three-tier preview for one record id
// against the active mapping set.
func (s *Session) ComputePreview(ctx context.Context, recordID string) (*preview.Preview, error) {
	source, target, err := s.scopes(ctx)
	if err != nil {
		return nil, err
	}
	return s.synth.Compute(ctx, s.source.ProviderID, recordID, s.Mappings(), source, target)
}

// computeForBatch adapts ComputePreview to the orchestrator's signature
func (s *Session) computeForBatch(ctx context.Context, recordID string) (*preview.Preview, error) {
	return s.ComputePreview(ctx, recordID)
}

// ProposeAutoMappings proposes additional mappings covering unmapped
// fields. The active set is not modified; pass the proposals to
// ExtendMappings to adopt them.
func (s *Session) ProposeAutoMappings(ctx context.Context) ([]mapping.FieldMapping, error) {
	source, target, err := s.scopes(ctx)
	if err != nil {
		return nil, err
	}
	return mapping.Propose(source.Fields, target.Fields, s.Mappings()), nil
}

// ExtendMappings adopts additional mappings into the active set and
// invalidates previews.
func (s *Session) ExtendMappings(additions ...mapping.FieldMapping) error {
	s.mu.Lock()
	extended, err := s.set.Extend(additions...)
	if err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "extending mapping set")
	}
	s.set = extended
	s.mu.Unlock()

	s.orch.Invalidate()
	return nil
}

// ValidateMappings checks the active set for coverage and type
// compatibility, returning ordered messages.
func (s *Session) ValidateMappings(ctx context.Context) ([]string, error) {
	source, target, err := s.scopes(ctx)
	if err != nil {
		return nil, err
	}
	return mapping.Validate(s.Mappings(), source.Fields, target.Fields), nil
}

// LoadPage drives the batch orchestrator over a 1-based page
func (s *Session) LoadPage(ctx context.Context, page int) {
	s.orch.LoadPage(ctx, page)
}

// Reload explicitly refetches one record
func (s *Session) Reload(ctx context.Context, recordID string) {
	s.orch.Reload(ctx, recordID)
}

// BatchState returns a snapshot of the batch preview state
func (s *Session) BatchState() batch.Snapshot {
	return s.orch.Snapshot()
}

// PageCount returns the batch page count
func (s *Session) PageCount() int {
	return s.orch.PageCount()
}
