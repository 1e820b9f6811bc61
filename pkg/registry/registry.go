package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/menonsoftware/Konexion/pkg/api"
	"github.com/menonsoftware/Konexion/pkg/provider"
)

// ErrAllProvidersFailed is returned by Refresh when no adapter produced
// a usable model list. The previous snapshot is retained.
var ErrAllProvidersFailed = errors.New("all providers failed to list models")

// RefreshResult summarizes one completed refresh.
type RefreshResult struct {
	// Total is the number of models in the published snapshot.
	Total int

	// Counts holds per-provider model counts in the published snapshot.
	Counts map[api.ClientType]int

	// Failures records adapters that failed during this refresh. Their
	// previous entries were carried forward into the new snapshot.
	Failures map[string]error
}

// Partial reports whether at least one adapter failed.
func (r *RefreshResult) Partial() bool {
	return len(r.Failures) > 0
}

// refreshCall is one shared in-flight refresh. Callers that arrive while
// it runs await the same outcome instead of triggering duplicate
// upstream calls.
type refreshCall struct {
	done   chan struct{}
	result *RefreshResult
	err    error
}

// Registry owns the current catalog snapshot and its refresh lifecycle.
// Get is non-blocking and never touches the network; Refresh and Preload
// do the upstream work.
type Registry struct {
	adapters []provider.Adapter
	byName   map[string]provider.Adapter
	timeout  time.Duration
	logger   *slog.Logger

	current atomic.Pointer[CatalogSnapshot]
	version atomic.Uint64

	mu       sync.Mutex
	inflight *refreshCall
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithAdapterTimeout bounds each adapter's list call during a refresh.
func WithAdapterTimeout(d time.Duration) Option {
	return func(r *Registry) { r.timeout = d }
}

// New creates a Registry over the given adapters. Adapter order is the
// fixed priority order for duplicate model ids: when two adapters report
// the same id, the later adapter wins.
func New(adapters []provider.Adapter, opts ...Option) *Registry {
	r := &Registry{
		adapters: adapters,
		byName:   make(map[string]provider.Adapter, len(adapters)),
		timeout:  30 * time.Second,
		logger:   slog.Default(),
	}
	for _, a := range adapters {
		r.byName[a.Name()] = a
	}
	for _, opt := range opts {
		opt(r)
	}

	// Start from an empty snapshot so Get never returns nil.
	r.current.Store(newSnapshot(0, map[string]api.ModelEntry{}, nil))
	return r
}

// Get returns the current catalog snapshot. It is lock-free and never
// blocks on a concurrent refresh.
func (r *Registry) Get() *CatalogSnapshot {
	return r.current.Load()
}

// AdapterFor resolves the adapter that owns a model id, via the current
// snapshot's client type for that entry.
func (r *Registry) AdapterFor(modelID string) (provider.Adapter, bool) {
	entry, ok := r.Get().Lookup(modelID)
	if !ok {
		return nil, false
	}
	a, ok := r.byName[string(entry.ClientType)]
	return a, ok
}

// Refresh pulls fresh model lists from every adapter concurrently,
// merges the results, and publishes a new snapshot if at least one
// adapter succeeded. A failed adapter's entries from the previous
// snapshot are carried forward until it next succeeds. If every adapter
// fails the previous snapshot is retained and ErrAllProvidersFailed is
// returned.
//
// Refresh is safe to call concurrently: callers that arrive while a
// refresh is in flight share its outcome.
func (r *Registry) Refresh(ctx context.Context) (*RefreshResult, error) {
	r.mu.Lock()
	if c := r.inflight; c != nil {
		r.mu.Unlock()
		select {
		case <-c.done:
			return c.result, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	r.inflight = call
	r.mu.Unlock()

	// The refresh outlives the triggering caller: other callers may be
	// waiting on the shared outcome.
	result, err := r.doRefresh(context.WithoutCancel(ctx))

	r.mu.Lock()
	call.result, call.err = result, err
	r.inflight = nil
	r.mu.Unlock()
	close(call.done)

	return result, err
}

// adapterOutcome is one adapter's contribution to a refresh.
type adapterOutcome struct {
	entries []api.ModelEntry
	err     error
}

// doRefresh fans out to all adapters, joins, merges, and publishes.
func (r *Registry) doRefresh(ctx context.Context) (*RefreshResult, error) {
	if len(r.adapters) == 0 {
		return nil, fmt.Errorf("%w: no adapters configured", ErrAllProvidersFailed)
	}

	outcomes := make([]adapterOutcome, len(r.adapters))

	var wg sync.WaitGroup
	for i, a := range r.adapters {
		wg.Add(1)
		go func(i int, a provider.Adapter) {
			defer wg.Done()
			listCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			entries, err := a.ListModels(listCtx)
			outcomes[i] = adapterOutcome{entries: entries, err: err}
		}(i, a)
	}
	wg.Wait()

	previous := r.Get()
	failures := make(map[string]error)
	succeeded := 0

	entries := make(map[string]api.ModelEntry)
	var order []string
	add := func(e api.ModelEntry) {
		if _, exists := entries[e.ModelID]; !exists {
			order = append(order, e.ModelID)
		}
		// Later adapters in priority order override duplicates.
		entries[e.ModelID] = e
	}

	for i, a := range r.adapters {
		out := outcomes[i]
		if out.err != nil {
			failures[a.Name()] = out.err
			r.logger.Error("provider refresh failed, retaining previous entries",
				"provider", a.Name(), "error", out.err.Error())
			for _, e := range previous.entriesForProvider(api.ClientType(a.Name())) {
				add(e)
			}
			continue
		}
		succeeded++
		for _, e := range out.entries {
			add(e)
		}
	}

	if succeeded == 0 {
		// Keep the previous snapshot untouched.
		return nil, fmt.Errorf("%w: %v", ErrAllProvidersFailed, failures)
	}

	snapshot := newSnapshot(r.version.Add(1), entries, order)
	r.current.Store(snapshot)

	result := &RefreshResult{
		Total:    snapshot.Len(),
		Counts:   snapshot.CountByProvider(),
		Failures: failures,
	}
	r.logger.Info("catalog refreshed",
		"version", snapshot.Version,
		"total", result.Total,
		"failed_providers", len(failures))
	return result, nil
}

// Preload performs the initial refresh at process start, blocking until
// a snapshot is available. If every adapter is unreachable it falls back
// to the built-in default catalog so the system stays usable, and
// reports the counts of whatever was published. Preload never fails.
func (r *Registry) Preload(ctx context.Context) *RefreshResult {
	result, err := r.Refresh(ctx)
	if err == nil {
		return result
	}

	r.logger.Warn("no provider reachable at startup, serving built-in default catalog",
		"error", err.Error())

	entries := make(map[string]api.ModelEntry)
	var order []string
	for _, e := range defaultCatalog {
		entries[e.ModelID] = e
		order = append(order, e.ModelID)
	}
	snapshot := newSnapshot(r.version.Add(1), entries, order)
	r.current.Store(snapshot)

	return &RefreshResult{
		Total:  snapshot.Len(),
		Counts: snapshot.CountByProvider(),
		Failures: map[string]error{
			"catalog": api.NewCatalogUnavailableError("no provider reachable, default catalog in use"),
		},
	}
}
