package executor

import (
	"slices"

	"github.com/aqasim81/dmt/internal/migration"
)

// Outstanding returns the identifiers in onDisk that are not in applied,
// ascending. The order of either input does not matter.
func Outstanding(onDisk, applied []string) []string {
	done := toSet(applied)

	var out []string

	for _, id := range migration.Sort(onDisk) {
		if _, ok := done[id]; !ok {
			out = append(out, id)
		}
	}

	return out
}

// Candidates returns the identifiers present both on disk and in applied,
// ascending.
func Candidates(onDisk, applied []string) []string {
	done := toSet(applied)

	var out []string

	for _, id := range migration.Sort(onDisk) {
		if _, ok := done[id]; ok {
			out = append(out, id)
		}
	}

	return out
}

// mostRecent returns the last n of the ascending ids, newest first. n <= 0
// keeps every id in ascending order.
func mostRecent(ids []string, n int) []string {
	if n <= 0 {
		return ids
	}

	if n < len(ids) {
		ids = ids[len(ids)-n:]
	}

	out := slices.Clone(ids)
	slices.Reverse(out)

	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return set
}
