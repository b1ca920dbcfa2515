// Package search discovers torrent releases for an episode across external
// release indexes. Each index is an Adapter; the Registry fans keyword
// queries out per adapter and reports ranked results keyed by source name.
package search

import (
	"context"
	"fmt"
	"sort"

	"kisara/pkg/types"
)

// Adapter is one external release index. Search returns the releases for
// the given episode, already deduplicated and ranked; an empty result is
// not an error.
type Adapter interface {
	Name() string
	Priority() int
	Search(ctx context.Context, ep types.Episode, anime types.Anime, page int) ([]types.Release, error)
}

// HTMLParseError reports a result page missing an expected element.
type HTMLParseError struct {
	Selector string
}

func (e HTMLParseError) Error() string {
	return fmt.Sprintf("html parse: failed to select %s", e.Selector)
}

// UnknownSourceError reports a source name no adapter is registered under.
type UnknownSourceError struct {
	Source string
}

func (e UnknownSourceError) Error() string {
	return fmt.Sprintf("no such search source: %s", e.Source)
}

// dedupeAndRank collapses duplicates by magnet (first occurrence wins) and
// orders by seeder count descending, unknown counts last. Final ordering is
// a pure function of the collected releases, never of arrival order.
func dedupeAndRank(in []types.Release) []types.Release {
	seen := make(map[string]struct{}, len(in))
	out := make([]types.Release, 0, len(in))
	for _, r := range in {
		if _, ok := seen[r.Magnet]; ok {
			continue
		}
		seen[r.Magnet] = struct{}{}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SeederCount() > out[j].SeederCount()
	})
	return out
}
