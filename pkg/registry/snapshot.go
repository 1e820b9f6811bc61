package registry

import (
	"time"

	"github.com/menonsoftware/Konexion/pkg/api"
)

// CatalogSnapshot is an immutable view of the merged model catalog.
// A snapshot is never mutated after publication; refresh builds a new
// one and swaps it in, so concurrent readers see either the old or the
// new catalog, never a mix.
type CatalogSnapshot struct {
	// Version increases monotonically with every published snapshot.
	Version uint64

	// CreatedAt records when the snapshot was built.
	CreatedAt time.Time

	entries map[string]api.ModelEntry
	order   []string
}

// newSnapshot builds a snapshot from entries in listing order.
func newSnapshot(version uint64, entries map[string]api.ModelEntry, order []string) *CatalogSnapshot {
	return &CatalogSnapshot{
		Version:   version,
		CreatedAt: time.Now(),
		entries:   entries,
		order:     order,
	}
}

// Lookup returns the entry for a model id.
func (s *CatalogSnapshot) Lookup(modelID string) (api.ModelEntry, bool) {
	e, ok := s.entries[modelID]
	return e, ok
}

// Models returns all entries in deterministic listing order (provider
// priority order, then upstream listing order within a provider).
func (s *CatalogSnapshot) Models() []api.ModelEntry {
	models := make([]api.ModelEntry, 0, len(s.order))
	for _, id := range s.order {
		models = append(models, s.entries[id])
	}
	return models
}

// Len returns the number of models in the snapshot.
func (s *CatalogSnapshot) Len() int {
	return len(s.entries)
}

// CountByProvider returns the number of models per client type.
func (s *CatalogSnapshot) CountByProvider() map[api.ClientType]int {
	counts := make(map[api.ClientType]int)
	for _, e := range s.entries {
		counts[e.ClientType]++
	}
	return counts
}

// entriesForProvider returns the snapshot's entries for one client type,
// preserving listing order. Used to carry a failed provider's models
// forward into the next snapshot.
func (s *CatalogSnapshot) entriesForProvider(clientType api.ClientType) []api.ModelEntry {
	var out []api.ModelEntry
	for _, id := range s.order {
		if e := s.entries[id]; e.ClientType == clientType {
			out = append(out, e)
		}
	}
	return out
}
