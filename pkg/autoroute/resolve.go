package autoroute

import (
	"sort"
	"strings"

	"github.com/vango-dev/autoroute/pkg/routepath"
)

// ResolveUnique keeps one file per logical controller. Paths are grouped by
// directory and name without extension; within a group the file whose
// extension comes first in exts wins. Paths without a recognized extension
// are dropped.
//
// The result is sorted by group key, descending, and does not depend on the
// order of paths.
func ResolveUnique(paths []string, exts []string) []string {
	type candidate struct {
		path string
		rank int
	}

	best := make(map[string]candidate, len(paths))
	for _, p := range paths {
		ext := routepath.Ext(p, exts)
		if ext == "" {
			continue
		}
		key := p[:len(p)-len(ext)]
		rank := extRank(ext, exts)

		cur, ok := best[key]
		if !ok || rank < cur.rank || (rank == cur.rank && p < cur.path) {
			best[key] = candidate{path: p, rank: rank}
		}
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = best[k].path
	}
	return out
}

func extRank(ext string, exts []string) int {
	for i, e := range exts {
		if strings.EqualFold(e, ext) {
			return i
		}
	}
	return len(exts)
}
