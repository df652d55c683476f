package core

import (
	"fmt"
	"strings"
)

// ImportPolicy selects how an imported record set is combined with the Store.
type ImportPolicy string

const (
	// PolicyReplace discards the current records in favor of the imported ones.
	PolicyReplace ImportPolicy = "replace"
	// PolicyMerge appends the imported records and drops any whose id is
	// already present. Current records win.
	PolicyMerge ImportPolicy = "merge"
)

// ErrInvalidPolicy is returned for an import policy other than replace or merge.
var ErrInvalidPolicy = fmt.Errorf("invalid import policy: choose %q or %q", PolicyReplace, PolicyMerge)

// ParseImportPolicy parses a user-supplied policy name. There is no default:
// an empty value is rejected like any other unknown value.
func ParseImportPolicy(s string) (ImportPolicy, error) {
	switch ImportPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyReplace:
		return PolicyReplace, nil
	case PolicyMerge:
		return PolicyMerge, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// ImportResult summarizes a completed import.
type ImportResult struct {
	Policy     ImportPolicy `json:"policy"`
	Imported   int          `json:"imported"`   // records read from the file
	Total      int          `json:"total"`      // records in the Store afterwards
	Duplicates int          `json:"duplicates"` // records dropped as repeated ids
}

// Reconcile combines current and imported under policy. Neither input is
// modified. The second result counts the records dropped as duplicates.
//
// Merge keeps the first occurrence of every id scanning current then
// imported, so a current record always beats an imported one with the same
// id. Replace keeps the imported records in file order; a file that repeats an
// id keeps only its first entry so ids stay unique.
func Reconcile(current, imported []Customer, policy ImportPolicy) ([]Customer, int, error) {
	switch policy {
	case PolicyReplace:
		out := dedupeByID(imported)
		return out, len(imported) - len(out), nil
	case PolicyMerge:
		out := dedupeByID(current, imported)
		return out, len(current) + len(imported) - len(out), nil
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}
}

// dedupeByID concatenates lists keeping the first record seen for each id.
func dedupeByID(lists ...[]Customer) []Customer {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]Customer, 0, n)
	seen := make(map[string]struct{}, n)
	for _, l := range lists {
		for _, c := range l {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
