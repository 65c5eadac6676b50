// Package batch orchestrates preview synthesis across many record ids.
//
// Records move through a per-record state machine (NotRequested → Loading
// → Ready | Failed; Ready or Failed re-enter Loading only on an explicit
// reload). Ids are processed in fixed-size windows: all fetches within a
// window run concurrently, and the window completes when every member has
// reached Ready or Failed — one member's failure never blocks or masks
// its siblings. Each record id owns a fixed slot with a generation
// counter, so a stale in-flight fetch detects it has been superseded and
// discards its result instead of overwriting a newer one.
package batch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/teleskop/fieldbridge/logger"
	"github.com/teleskop/fieldbridge/preview"
)

// Status is a record's position in the batch state machine
type Status string

const (
	StatusNotRequested Status = "not_requested"
	StatusLoading      Status = "loading"
	StatusReady        Status = "ready"
	StatusFailed       Status = "failed"
)

// Entry is one record's externally visible batch state
type Entry struct {
	Status  Status           `json:"status"`
	Preview *preview.Preview `json:"preview,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Snapshot is a point-in-time copy of the whole batch state. Every known
// record id has an entry; none is ever silently dropped.
type Snapshot struct {
	Entries    map[string]Entry `json:"entries"`
	IssueCount int              `json:"issue_count"` // validation issues across all Ready previews
	PageSize   int              `json:"page_size"`
}

// ComputeFunc synthesizes the preview for one record id
type ComputeFunc func(ctx context.Context, recordID string) (*preview.Preview, error)

// slot is the fixed per-record cell. Its mutex serializes updates to the
// same id; distinct ids never contend with each other on commit.
type slot struct {
	mu      sync.Mutex
	status  Status
	gen     uint64
	preview *preview.Preview
	errMsg  string
}

// Orchestrator drives preview computation over an ordered id list
type Orchestrator struct {
	compute  ComputeFunc
	ids      []string
	pageSize int
	prefetch int // window size pre-warmed from the page start
	limiter  *rate.Limiter

	mu         sync.RWMutex // guards slots map shape and issueCount
	slots      map[string]*slot
	issueCount int
}

// DefaultPageSize is the window page size when none is configured
const DefaultPageSize = 10

// Options tunes an orchestrator
type Options struct {
	PageSize int           // records per page (default 10)
	Prefetch int           // ids pre-warmed from the page start (default 2× page size)
	Limiter  *rate.Limiter // optional rate limit on record fetches
}

// New creates an orchestrator over the ordered record id list
func New(ids []string, compute ComputeFunc, opts Options) *Orchestrator {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	prefetch := opts.Prefetch
	if prefetch <= 0 {
		prefetch = 2 * pageSize
	}

	o := &Orchestrator{
		compute:  compute,
		ids:      append([]string(nil), ids...),
		pageSize: pageSize,
		prefetch: prefetch,
		limiter:  opts.Limiter,
		slots:    make(map[string]*slot, len(ids)),
	}
	for _, id := range o.ids {
		o.slots[id] = &slot{status: StatusNotRequested}
	}
	return o
}

// PageCount returns the number of pages over the id list
func (o *Orchestrator) PageCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.ids) == 0 {
		return 0
	}
	return (len(o.ids) + o.pageSize - 1) / o.pageSize
}

// PageIDs returns the ids on a 1-based page
func (o *Orchestrator) PageIDs(page int) []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pageSliceLocked(page, o.pageSize)
}

// window returns the prefetch window for a 1-based page: the page's ids
// plus enough following ids to pre-warm the next page.
func (o *Orchestrator) window(page int) []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pageSliceLocked(page, o.prefetch)
}

// pageSliceLocked copies up to span ids from the page start. slotFor can
// grow o.ids concurrently, so callers hold o.mu and receive a copy.
func (o *Orchestrator) pageSliceLocked(page, span int) []string {
	start := (page - 1) * o.pageSize
	if page < 1 || start >= len(o.ids) {
		return nil
	}
	end := start + span
	if end > len(o.ids) {
		end = len(o.ids)
	}
	return append([]string(nil), o.ids[start:end]...)
}

// LoadPage fetches every id in the page's prefetch window that lacks a
// resolved state. Already-resolved ids are not refetched; ids already
// Loading are left to their in-flight fetch. The call returns when every
// newly requested member has reached Ready or Failed.
func (o *Orchestrator) LoadPage(ctx context.Context, page int) {
	window := o.window(page)
	if len(window) == 0 {
		return
	}

	var pending []string
	var gens []uint64
	for _, id := range window {
		s := o.slotFor(id)
		s.mu.Lock()
		if s.status == StatusNotRequested {
			s.status = StatusLoading
			s.gen++
			pending = append(pending, id)
			gens = append(gens, s.gen)
		}
		s.mu.Unlock()
	}

	if len(pending) == 0 {
		return
	}
	logger.Debugw("Batch window requested",
		"page", page,
		"window", len(window),
		"fetching", len(pending))

	// All window members run concurrently; compute errors land in the
	// member's slot rather than aborting the group.
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range pending {
		id, gen := id, gens[i]
		g.Go(func() error {
			o.fetchOne(gctx, id, gen)
			return nil
		})
	}
	g.Wait()
}

// Reload explicitly re-enters Loading for one id and fetches it again.
// If a prior fetch for the id is still outstanding, the generation bump
// guarantees only this most-recently-initiated fetch commits its result.
func (o *Orchestrator) Reload(ctx context.Context, recordID string) {
	s := o.slotFor(recordID)
	s.mu.Lock()
	s.status = StatusLoading
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	o.fetchOne(ctx, recordID, gen)
}

// fetchOne computes one record's preview and commits it, unless the slot
// generation moved on while the fetch was in flight.
func (o *Orchestrator) fetchOne(ctx context.Context, recordID string, gen uint64) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			o.commit(recordID, gen, nil, err)
			return
		}
	}

	p, err := o.compute(ctx, recordID)
	o.commit(recordID, gen, p, err)
}

// commit applies a fetch result to the record's slot. A stale generation
// means a newer reload superseded this fetch; its result is discarded.
func (o *Orchestrator) commit(recordID string, gen uint64, p *preview.Preview, err error) {
	s := o.slotFor(recordID)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		logger.Debugw("Discarding superseded fetch result",
			"record", recordID,
			"generation", gen)
		return
	}
	if err != nil {
		s.status = StatusFailed
		s.preview = nil
		s.errMsg = err.Error()
	} else {
		s.status = StatusReady
		s.preview = p
		s.errMsg = ""
	}
	ready := err == nil
	s.mu.Unlock()

	if err != nil {
		logger.Warnw("Record preview failed",
			"record", recordID,
			"error", err)
	}
	if ready {
		o.recountIssues()
	}
}

// recountIssues recomputes the running validation-issue count across all
// currently Ready previews. Recomputed on every Ready transition.
func (o *Orchestrator) recountIssues() {
	o.mu.Lock()
	defer o.mu.Unlock()

	count := 0
	for _, s := range o.slots {
		s.mu.Lock()
		if s.status == StatusReady && s.preview != nil {
			count += s.preview.IssueCount()
		}
		s.mu.Unlock()
	}
	o.issueCount = count
}

// IssueCount returns the running count of validation issues across all
// currently Ready previews.
func (o *Orchestrator) IssueCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.issueCount
}

// Snapshot returns a copy of the full batch state
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	entries := make(map[string]Entry, len(o.slots))
	for id, s := range o.slots {
		s.mu.Lock()
		entries[id] = Entry{
			Status:  s.status,
			Preview: s.preview,
			Error:   s.errMsg,
		}
		s.mu.Unlock()
	}
	return Snapshot{
		Entries:    entries,
		IssueCount: o.issueCount,
		PageSize:   o.pageSize,
	}
}

// Invalidate resets every slot to NotRequested and bumps generations so
// in-flight fetches from before the invalidation cannot commit. Used when
// the mapping set or a field catalog changes and previews must be
// regenerated.
func (o *Orchestrator) Invalidate() {
	o.mu.Lock()
	for _, s := range o.slots {
		s.mu.Lock()
		s.status = StatusNotRequested
		s.gen++
		s.preview = nil
		s.errMsg = ""
		s.mu.Unlock()
	}
	o.issueCount = 0
	o.mu.Unlock()
}

// slotFor returns the fixed slot for a record id, creating one for ids
// outside the original list (explicit reload of an ad-hoc id).
func (o *Orchestrator) slotFor(recordID string) *slot {
	o.mu.RLock()
	s, ok := o.slots[recordID]
	o.mu.RUnlock()
	if ok {
		return s
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.slots[recordID]; ok {
		return s
	}
	s = &slot{status: StatusNotRequested}
	o.slots[recordID] = s
	o.ids = append(o.ids, recordID)
	return s
}
