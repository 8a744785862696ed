package migration

import "slices"

// Sort returns a new slice of identifiers in ascending lexicographic order.
// Identifiers are timestamp-prefixed, so this is also chronological order.
func Sort(ids []string) []string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	return sorted
}
