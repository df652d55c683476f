package core

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortOrder selects the presented order of the register.
type SortOrder string

const (
	SortLatest       SortOrder = "latest"       // createdAt, newest first
	SortAlphabetical SortOrder = "alphabetical" // name, Arabic collation
	SortFamilyCount  SortOrder = "family"       // familyCount, largest first
)

// ParseSortOrder maps a query value to a SortOrder. Unknown values mean
// SortLatest.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortAlphabetical:
		return SortAlphabetical
	case SortFamilyCount:
		return SortFamilyCount
	default:
		return SortLatest
	}
}

// Query describes a view of the register.
type Query struct {
	Search string
	Sort   SortOrder
}

// Project filters and sorts records for presentation. The input is not
// modified. Sorting is stable, so equal keys keep storage order.
func Project(records []Customer, q Query) []Customer {
	out := make([]Customer, 0, len(records))
	if strings.TrimSpace(q.Search) == "" {
		out = append(out, records...)
	} else {
		needle := strings.ToLower(q.Search)
		for _, c := range records {
			if strings.Contains(strings.ToLower(c.Name), needle) || strings.Contains(c.PageNumber, needle) {
				out = append(out, c)
			}
		}
	}

	switch q.Sort {
	case SortAlphabetical:
		col := collate.New(language.Arabic)
		slices.SortStableFunc(out, func(a, b Customer) int {
			return col.CompareString(a.Name, b.Name)
		})
	case SortFamilyCount:
		slices.SortStableFunc(out, func(a, b Customer) int {
			return cmp.Compare(b.FamilyCount, a.FamilyCount)
		})
	default:
		slices.SortStableFunc(out, func(a, b Customer) int {
			switch {
			case a.CreatedAt > b.CreatedAt:
				return -1
			case a.CreatedAt < b.CreatedAt:
				return 1
			}
			return 0
		})
	}
	return out
}

// Stats summarizes the register.
type Stats struct {
	Customers   int    `json:"customers"`
	Individuals int    `json:"individuals"`
	Average     string `json:"average"` // household size, one decimal
}

// ComputeStats totals the records. Average is "0" for an empty register.
func ComputeStats(records []Customer) Stats {
	s := Stats{Customers: len(records), Average: "0"}
	for _, c := range records {
		s.Individuals += c.FamilyCount
	}
	if s.Customers > 0 {
		avg := decimal.NewFromInt(int64(s.Individuals)).
			DivRound(decimal.NewFromInt(int64(s.Customers)), 1)
		s.Average = avg.StringFixed(1)
	}
	return s
}
