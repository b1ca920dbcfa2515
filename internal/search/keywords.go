package search

import (
	"sort"
	"strconv"
	"strings"

	"kisara/pkg/types"
)

// Keywords synthesizes the per-episode search terms: every alias, the
// primary name, the localized name and any free-form extra keywords, each
// paired with the quoted episode display number. Blank names are dropped
// and duplicates collapsed; the result is sorted for determinism.
func Keywords(ep types.Episode, anime types.Anime) []string {
	num := padEpisode(ep.DisplayNumber())

	bases := make([]string, 0, len(anime.Aliases)+len(anime.Keywords)+2)
	bases = append(bases, anime.Aliases...)
	bases = append(bases, anime.Name, anime.NameCN)
	bases = append(bases, anime.Keywords...)

	seen := make(map[string]struct{}, len(bases))
	out := make([]string, 0, len(bases))
	for _, base := range bases {
		base = strings.TrimSpace(base)
		if base == "" {
			continue
		}
		kw := base + ` "` + num + `"`
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

// padEpisode zero-pads single-digit episode numbers: 7 -> "07", 12 -> "12".
func padEpisode(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
