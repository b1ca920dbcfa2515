package search

import (
	"context"
	"fmt"
	"log"
	"sort"

	"kisara/pkg/types"
)

// Registry holds the registered source adapters keyed by name. Adapters are
// consulted in ascending priority order; sources with nothing to report are
// left out of the result map.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

func (r *Registry) ordered() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() < out[j].Priority()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// Search runs the first-page search on every adapter and maps source name
// to its ranked releases. An adapter error aborts the search; an adapter
// with zero results is silently omitted.
func (r *Registry) Search(ctx context.Context, ep types.Episode, anime types.Anime) (map[string][]types.Release, error) {
	results := make(map[string][]types.Release)
	for _, a := range r.ordered() {
		releases, err := a.Search(ctx, ep, anime, 1)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", a.Name(), err)
		}
		if len(releases) == 0 {
			continue
		}
		results[a.Name()] = releases
	}
	log.Printf("[search] ep=%d sources=%d", ep.ID, len(results))
	return results, nil
}

// SearchSource queries one named source for a specific page.
func (r *Registry) SearchSource(ctx context.Context, source string, ep types.Episode, anime types.Anime, page int) ([]types.Release, error) {
	a, ok := r.adapters[source]
	if !ok {
		return nil, UnknownSourceError{Source: source}
	}
	return a.Search(ctx, ep, anime, page)
}
